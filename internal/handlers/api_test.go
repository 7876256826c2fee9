package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sadikur-dev/mailreward/internal/auth"
	"github.com/sadikur-dev/mailreward/internal/ledger"
	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/sadikur-dev/mailreward/internal/storage"
	"github.com/sadikur-dev/mailreward/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type allOKValidator struct{}

func (allOKValidator) CheckEmail(_ context.Context, _ string) validator.Verdict {
	return validator.VerdictOK
}

func (allOKValidator) PasswordStrong(_ string) bool { return true }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := storage.NewMemoryStorage()
	service := ledger.NewService(store, allOKValidator{}, log, "admin")
	api := NewAPI(store, service, log, "testsecret")

	ts := httptest.NewServer(NewRouter(api))
	t.Cleanup(ts.Close)
	return ts
}

func register(t *testing.T, ts *httptest.Server, login string) string {
	t.Helper()

	cred := models.RegisterRequest{Login: login, Password: "pass123"}
	b, _ := json.Marshal(cred)
	resp, err := http.Post(ts.URL+"/api/user/register", "application/json", bytes.NewBuffer(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	header := resp.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	return header
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getBalance(t *testing.T, ts *httptest.Server, token string) decimal.Decimal {
	t.Helper()

	resp := doRequest(t, ts, http.MethodGet, "/api/user/balance", token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bal models.BalanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bal))
	return bal.Balance
}

// A valid token for an account the store does not know (e.g. issued before a
// database reset) is a client-side 404, not a server fault.
func TestStaleToken(t *testing.T) {
	ts := newTestServer(t)

	token, err := auth.BuildJWTString("ghost-id", "ghost", "testsecret", time.Minute)
	require.NoError(t, err)

	resp := doRequest(t, ts, http.MethodGet, "/api/user/balance", "Bearer "+token, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFlow(t *testing.T) {
	ts := newTestServer(t)

	adminToken := register(t, ts, "admin")
	userToken := register(t, ts, "bob")

	t.Run("login", func(t *testing.T) {
		cred := models.LoginRequest{Login: "bob", Password: "pass123"}
		b, _ := json.Marshal(cred)
		resp, err := http.Post(ts.URL+"/api/user/login", "application/json", bytes.NewBuffer(b))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("submit without token", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/submissions", "", "a@b.com:abc123")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("submit", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/submissions", userToken, "a@b.com:abc123")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var credit models.CreditResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&credit))
		require.True(t, credit.Credited.Equal(decimal.RequireFromString("0.05")))
	})

	t.Run("duplicate submit", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/submissions", userToken, "a@b.com:other99")
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("balance", func(t *testing.T) {
		require.True(t, getBalance(t, ts, userToken).Equal(decimal.RequireFromString("0.05")))
	})

	t.Run("withdraw below threshold", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/withdrawals", userToken, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})

	t.Run("admin raises price", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/admin/settings/price", adminToken, `{"price":"1.50"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("non-admin settings change", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/admin/settings/price", userToken, `{"price":"9.99"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("submit at new price", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/submissions", userToken, "b@c.com:abc123")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, getBalance(t, ts, userToken).Equal(decimal.RequireFromString("1.55")))
	})

	var withdrawalID int64

	t.Run("withdrawal flow", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodPost, "/api/user/withdrawals", userToken, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		bad := doRequest(t, ts, http.MethodPost, "/api/user/withdrawals/destination", userToken, "not-a-number")
		defer bad.Body.Close()
		require.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)

		good := doRequest(t, ts, http.MethodPost, "/api/user/withdrawals/destination", userToken, "01712345678")
		defer good.Body.Close()
		require.Equal(t, http.StatusOK, good.StatusCode)

		var withdrawal models.Withdrawal
		require.NoError(t, json.NewDecoder(good.Body).Decode(&withdrawal))
		require.Equal(t, models.WithdrawalPending, withdrawal.Status)
		withdrawalID = withdrawal.ID

		require.True(t, getBalance(t, ts, userToken).Equal(decimal.RequireFromString("0.55")))
	})

	t.Run("admin lists pending", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/admin/withdrawals", adminToken, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var pending []models.PendingWithdrawal
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
		require.Len(t, pending, 1)
		require.Equal(t, "01712345678", pending[0].Destination)
	})

	t.Run("admin rejects and refunds", func(t *testing.T) {
		path := fmt.Sprintf("/api/admin/withdrawals/%d/decision", withdrawalID)
		resp := doRequest(t, ts, http.MethodPost, path, adminToken, `{"decision":"reject"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.True(t, getBalance(t, ts, userToken).Equal(decimal.RequireFromString("1.55")))

		again := doRequest(t, ts, http.MethodPost, path, adminToken, `{"decision":"reject"}`)
		defer again.Body.Close()
		require.Equal(t, http.StatusConflict, again.StatusCode)
	})

	t.Run("admin lists submissions", func(t *testing.T) {
		resp := doRequest(t, ts, http.MethodGet, "/api/admin/submissions", adminToken, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var submissions []models.Submission
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&submissions))
		require.Len(t, submissions, 2)
	})
}
