package storage

import (
	"context"

	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/shopspring/decimal"
)

type Storage interface {
	CreateAccount(ctx context.Context, login, passwordHash string) (*models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*models.Account, error)
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	GetSettings(ctx context.Context) (*models.Settings, error)
	SetSubmissionLimit(ctx context.Context, limit int) error
	SetEmailPrice(ctx context.Context, price decimal.Decimal) error

	EmailExists(ctx context.Context, email string) (bool, error)
	AcceptSubmission(ctx context.Context, userID, email, password, today string) (decimal.Decimal, error)

	SetAwaitingDestination(ctx context.Context, userID string, awaiting bool) error
	CreateWithdrawal(ctx context.Context, userID, destination string, amount decimal.Decimal) (*models.Withdrawal, error)
	DecideWithdrawal(ctx context.Context, requestID int64, approve bool) (*models.Withdrawal, error)

	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	ListPendingWithdrawals(ctx context.Context) ([]models.PendingWithdrawal, error)

	Close()
}
