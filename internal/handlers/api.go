package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sadikur-dev/mailreward/internal/auth"
	"github.com/sadikur-dev/mailreward/internal/ledger"
	"github.com/sadikur-dev/mailreward/internal/middlewares"
	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/sadikur-dev/mailreward/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtLifetime = 24 * time.Hour
)

type API struct {
	storage   storage.Storage
	ledger    *ledger.Service
	log       *logrus.Logger
	jwtSecret string
}

func NewAPI(s storage.Storage, l *ledger.Service, log *logrus.Logger, jwtSecret string) *API {
	return &API{
		storage:   s,
		ledger:    l,
		log:       log,
		jwtSecret: jwtSecret,
	}
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, "login and password must not be empty", http.StatusBadRequest)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.log.Errorf("failed to hash password: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	account, err := a.storage.CreateAccount(r.Context(), req.Login, string(passwordHash))
	if err != nil {
		if errors.Is(err, storage.ErrLoginExists) {
			http.Error(w, "login already exists", http.StatusConflict)
			return
		}
		a.log.Errorf("failed to create account: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.issueToken(w, account)
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	account, err := a.storage.GetAccountByLogin(r.Context(), req.Login)
	if err != nil {
		a.log.Errorf("failed to get account: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "invalid login/password pair", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid login/password pair", http.StatusUnauthorized)
		return
	}

	a.issueToken(w, account)
}

func (a *API) issueToken(w http.ResponseWriter, account *models.Account) {
	token, err := auth.BuildJWTString(account.UserID, account.Login, a.jwtSecret, jwtLifetime)
	if err != nil {
		a.log.Errorf("failed to build JWT: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

func (a *API) SubmitCredential(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middlewares.UserIDKey).(string)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}

	credited, err := a.ledger.Submit(r.Context(), userID, string(body))
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, models.CreditResponse{Credited: credited})
}

func (a *API) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middlewares.UserIDKey).(string)

	balance, err := a.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, models.BalanceResponse{Balance: balance})
}

func (a *API) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middlewares.UserIDKey).(string)

	if err := a.ledger.RequestWithdrawal(r.Context(), userID); err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, map[string]string{"status": "awaiting_destination"})
}

func (a *API) ProvideDestination(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middlewares.UserIDKey).(string)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}

	withdrawal, err := a.ledger.ProvideDestination(r.Context(), userID, string(body))
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, withdrawal)
}

func (a *API) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	login := r.Context().Value(middlewares.LoginKey).(string)

	submissions, err := a.ledger.ListSubmissions(r.Context(), login)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if len(submissions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.writeJSON(w, submissions)
}

func (a *API) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	login := r.Context().Value(middlewares.LoginKey).(string)

	pending, err := a.ledger.ListPendingWithdrawals(r.Context(), login)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if len(pending) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.writeJSON(w, pending)
}

func (a *API) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	login := r.Context().Value(middlewares.LoginKey).(string)

	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid withdrawal id", http.StatusBadRequest)
		return
	}

	var req models.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	withdrawal, err := a.ledger.Decide(r.Context(), login, requestID, req.Decision)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, withdrawal)
}

func (a *API) SetSubmissionLimit(w http.ResponseWriter, r *http.Request) {
	login := r.Context().Value(middlewares.LoginKey).(string)

	var req models.LimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	if err := a.ledger.SetSubmissionLimit(r.Context(), login, req.Limit); err != nil {
		a.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) SetEmailPrice(w http.ResponseWriter, r *http.Request) {
	login := r.Context().Value(middlewares.LoginKey).(string)

	var req models.PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	if err := a.ledger.SetEmailPrice(r.Context(), login, req.Price); err != nil {
		a.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Errorf("failed to encode response: %v", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrBadFormat),
		errors.Is(err, ledger.ErrBadEmailSyntax),
		errors.Is(err, ledger.ErrUnresolvableDomain),
		errors.Is(err, ledger.ErrDisposableEmail),
		errors.Is(err, ledger.ErrWeakPassword),
		errors.Is(err, ledger.ErrInvalidDestination):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, storage.ErrDuplicateEmail),
		errors.Is(err, ledger.ErrAwaitingDestination),
		errors.Is(err, ledger.ErrNotAwaitingDestination),
		errors.Is(err, storage.ErrAlreadyDecided):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, storage.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, storage.ErrNoSuchWithdrawal),
		errors.Is(err, storage.ErrNoSuchAccount):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		a.log.Errorf("internal error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
