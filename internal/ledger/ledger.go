// Package ledger implements the reward ledger: the submission gate that turns
// validated email:password pairs into balance credits, the two-phase
// withdrawal workflow and the admin controls over pricing and quotas.
package ledger

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sadikur-dev/mailreward/internal/metrics"
	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/sadikur-dev/mailreward/internal/storage"
	"github.com/sadikur-dev/mailreward/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WithdrawalAmount is both the minimum balance required to request a
// withdrawal and the fixed amount each request debits.
var WithdrawalAmount = decimal.New(100, -2)

var destinationRe = regexp.MustCompile(`^01[3-9][0-9]{8}$`)

type Service struct {
	store      storage.Storage
	validator  validator.Validator
	log        *logrus.Logger
	adminLogin string
	now        func() time.Time
}

func NewService(store storage.Storage, v validator.Validator, log *logrus.Logger, adminLogin string) *Service {
	return &Service{
		store:      store,
		validator:  v,
		log:        log,
		adminLogin: adminLogin,
		now:        time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit gates one raw "email:password" submission. Checks run in order and
// stop at the first failure; a rejection leaves the ledger untouched except
// for the idempotent quota-date rollover. On acceptance the credited amount
// is returned.
func (s *Service) Submit(ctx context.Context, userID, raw string) (decimal.Decimal, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if account.AwaitingDestination {
		return s.reject(ErrAwaitingDestination)
	}

	text := strings.TrimSpace(raw)
	if strings.Count(text, ":") != 1 {
		return s.reject(ErrBadFormat)
	}
	parts := strings.SplitN(text, ":", 2)
	email := strings.TrimSpace(parts[0])
	password := strings.TrimSpace(parts[1])

	switch s.validator.CheckEmail(ctx, email) {
	case validator.VerdictBadSyntax:
		return s.reject(ErrBadEmailSyntax)
	case validator.VerdictUnresolvableDomain:
		return s.reject(ErrUnresolvableDomain)
	case validator.VerdictDisposable:
		return s.reject(ErrDisposableEmail)
	}

	if !s.validator.PasswordStrong(password) {
		return s.reject(ErrWeakPassword)
	}

	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return decimal.Zero, err
	}
	if exists {
		return s.reject(storage.ErrDuplicateEmail)
	}

	today := s.now().Format(models.DateLayout)
	credited, err := s.store.AcceptSubmission(ctx, userID, email, password, today)
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			metrics.SubmissionsRejected.WithLabelValues(reason).Inc()
		}
		return decimal.Zero, err
	}

	metrics.SubmissionsAccepted.Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "credited": credited.String()}).Info("submission accepted")
	return credited, nil
}

func (s *Service) reject(err error) (decimal.Decimal, error) {
	metrics.SubmissionsRejected.WithLabelValues(rejectionReason(err)).Inc()
	return decimal.Zero, err
}

func (s *Service) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.store.GetBalance(ctx, userID)
}

// RequestWithdrawal enters the awaiting-destination state. No ledger mutation
// happens here; the debit is deferred to ProvideDestination.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string) error {
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if balance.LessThan(WithdrawalAmount) {
		return storage.ErrInsufficientFunds
	}
	return s.store.SetAwaitingDestination(ctx, userID, true)
}

// ProvideDestination completes a requested withdrawal: the destination must
// match the mobile-money format, then the fixed amount is debited and a
// pending request recorded atomically. An invalid destination keeps the
// account awaiting, so the caller can retry.
func (s *Service) ProvideDestination(ctx context.Context, userID, text string) (*models.Withdrawal, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.AwaitingDestination {
		return nil, ErrNotAwaitingDestination
	}

	destination := strings.TrimSpace(text)
	if !destinationRe.MatchString(destination) {
		return nil, ErrInvalidDestination
	}

	withdrawal, err := s.store.CreateWithdrawal(ctx, userID, destination, WithdrawalAmount)
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalsRequested.Inc()
	s.log.WithFields(logrus.Fields{"user_id": userID, "withdrawal_id": withdrawal.ID}).Info("withdrawal requested")
	return withdrawal, nil
}

func (s *Service) authorize(callerLogin string) error {
	if callerLogin != s.adminLogin {
		return ErrForbidden
	}
	return nil
}

// Decide resolves a pending withdrawal. Approval finalizes the debit;
// rejection credits the amount back. Deciding a non-pending request fails.
func (s *Service) Decide(ctx context.Context, callerLogin string, requestID int64, decision string) (*models.Withdrawal, error) {
	if err := s.authorize(callerLogin); err != nil {
		return nil, err
	}

	var approve bool
	switch decision {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		return nil, ErrInvalidArgument
	}

	withdrawal, err := s.store.DecideWithdrawal(ctx, requestID, approve)
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalsDecided.WithLabelValues(withdrawal.Status).Inc()
	s.log.WithFields(logrus.Fields{"withdrawal_id": requestID, "status": withdrawal.Status}).Info("withdrawal decided")
	return withdrawal, nil
}

func (s *Service) SetSubmissionLimit(ctx context.Context, callerLogin string, limit int) error {
	if err := s.authorize(callerLogin); err != nil {
		return err
	}
	if limit < 1 {
		return ErrInvalidArgument
	}
	return s.store.SetSubmissionLimit(ctx, limit)
}

func (s *Service) SetEmailPrice(ctx context.Context, callerLogin string, price decimal.Decimal) error {
	if err := s.authorize(callerLogin); err != nil {
		return err
	}
	if price.IsNegative() {
		return ErrInvalidArgument
	}
	return s.store.SetEmailPrice(ctx, price)
}

func (s *Service) ListSubmissions(ctx context.Context, callerLogin string) ([]models.Submission, error) {
	if err := s.authorize(callerLogin); err != nil {
		return nil, err
	}
	return s.store.ListSubmissions(ctx)
}

func (s *Service) ListPendingWithdrawals(ctx context.Context, callerLogin string) ([]models.PendingWithdrawal, error) {
	if err := s.authorize(callerLogin); err != nil {
		return nil, err
	}
	return s.store.ListPendingWithdrawals(ctx)
}

// AwaitingDestination reports whether free text from this account should be
// treated as a payout destination rather than a submission.
func (s *Service) AwaitingDestination(ctx context.Context, userID string) (bool, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.AwaitingDestination, nil
}
