package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// DateLayout is the calendar-day granularity used by the submission quota.
const DateLayout = "2006-01-02"

type Account struct {
	UserID              string          `json:"user_id"`
	Login               string          `json:"login"`
	PasswordHash        string          `json:"-"`
	Balance             decimal.Decimal `json:"balance"`
	SubmissionsToday    int             `json:"-"`
	LastSubmitDate      string          `json:"-"`
	PayoutDestination   string          `json:"-"`
	AwaitingDestination bool            `json:"-"`
}

type Submission struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

type Withdrawal struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// PendingWithdrawal is the admin projection: a pending request joined with
// the payout destination currently stored on the owning account.
type PendingWithdrawal struct {
	Withdrawal
	Destination string `json:"destination"`
}

type Settings struct {
	EmailPrice      decimal.Decimal `json:"email_price"`
	SubmissionLimit int             `json:"submission_limit"`
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type DecisionRequest struct {
	Decision string `json:"decision"`
}

type LimitRequest struct {
	Limit int `json:"limit"`
}

type PriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type CreditResponse struct {
	Credited decimal.Decimal `json:"credited"`
}
