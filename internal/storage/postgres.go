package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrLoginExists       = errors.New("login already exists")
	ErrNoSuchAccount     = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already submitted")
	ErrQuotaExceeded     = errors.New("daily submission limit reached")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotAwaiting       = errors.New("no withdrawal in progress")
	ErrNoSuchWithdrawal  = errors.New("withdrawal request not found")
	ErrAlreadyDecided    = errors.New("withdrawal request already decided")
)

const pgUniqueViolation = "23505"

type PostgresStorage struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, log *logrus.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	storage := &PostgresStorage{pool: pool, log: log}
	if err := storage.runMigrations(ctx); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *PostgresStorage) runMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id UUID PRIMARY KEY,
			login VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			balance NUMERIC(12,2) NOT NULL DEFAULT 0,
			submissions_today INT NOT NULL DEFAULT 0,
			last_submit_date VARCHAR(10) NOT NULL DEFAULT '',
			payout_destination VARCHAR(32) NOT NULL DEFAULT '',
			awaiting_destination BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID REFERENCES accounts(user_id),
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID REFERENCES accounts(user_id),
			amount NUMERIC(12,2) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY,
			email_price NUMERIC(12,2) NOT NULL,
			submission_limit INT NOT NULL
		);

		INSERT INTO settings (id, email_price, submission_limit)
		VALUES (1, 0.05, 10)
		ON CONFLICT (id) DO NOTHING;
	`)
	return err
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

func (s *PostgresStorage) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.log.Errorf("failed to rollback transaction: %v", err)
	}
}

func (s *PostgresStorage) CreateAccount(ctx context.Context, login, passwordHash string) (*models.Account, error) {
	account := &models.Account{
		UserID:       uuid.NewString(),
		Login:        login,
		PasswordHash: passwordHash,
		Balance:      decimal.Zero,
	}
	_, err := s.pool.Exec(ctx, "INSERT INTO accounts (user_id, login, password_hash) VALUES ($1, $2, $3)",
		account.UserID, account.Login, account.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrLoginExists
		}
		return nil, err
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	account := &models.Account{}
	var balance string
	err := row.Scan(&account.UserID, &account.Login, &account.PasswordHash, &balance,
		&account.SubmissionsToday, &account.LastSubmitDate, &account.PayoutDestination, &account.AwaitingDestination)
	if err != nil {
		return nil, err
	}
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	return account, nil
}

const accountColumns = "user_id, login, password_hash, balance::text, submissions_today, last_submit_date, payout_destination, awaiting_destination"

func (s *PostgresStorage) GetAccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE login = $1", login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // account not found
		}
		return nil, err
	}
	return account, nil
}

func (s *PostgresStorage) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}
	return account, nil
}

func (s *PostgresStorage) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance string
	err := s.pool.QueryRow(ctx, "SELECT balance::text FROM accounts WHERE user_id = $1", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNoSuchAccount
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(balance)
}

func (s *PostgresStorage) GetSettings(ctx context.Context) (*models.Settings, error) {
	settings := &models.Settings{}
	var price string
	err := s.pool.QueryRow(ctx, "SELECT email_price::text, submission_limit FROM settings WHERE id = 1").
		Scan(&price, &settings.SubmissionLimit)
	if err != nil {
		return nil, err
	}
	settings.EmailPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *PostgresStorage) SetSubmissionLimit(ctx context.Context, limit int) error {
	_, err := s.pool.Exec(ctx, "UPDATE settings SET submission_limit = $1 WHERE id = 1", limit)
	return err
}

func (s *PostgresStorage) SetEmailPrice(ctx context.Context, price decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, "UPDATE settings SET email_price = $1::numeric WHERE id = 1", price.String())
	return err
}

func (s *PostgresStorage) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM submissions WHERE email = $1)", email).Scan(&exists)
	return exists, err
}

// AcceptSubmission runs the quota check, the dedup insert and the credit as one
// transaction with the account row locked. The date rollover is committed even
// when the quota rejects, so a rejected attempt still resets a stale counter.
func (s *PostgresStorage) AcceptSubmission(ctx context.Context, userID, email, password, today string) (decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer s.rollback(ctx, tx)

	var count int
	var lastDate string
	err = tx.QueryRow(ctx, "SELECT submissions_today, last_submit_date FROM accounts WHERE user_id = $1 FOR UPDATE", userID).
		Scan(&count, &lastDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNoSuchAccount
		}
		return decimal.Zero, err
	}

	var priceText string
	var limit int
	err = tx.QueryRow(ctx, "SELECT email_price::text, submission_limit FROM settings WHERE id = 1").Scan(&priceText, &limit)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return decimal.Zero, err
	}

	if lastDate != today {
		count = 0
		_, err = tx.Exec(ctx, "UPDATE accounts SET submissions_today = 0, last_submit_date = $1 WHERE user_id = $2", today, userID)
		if err != nil {
			return decimal.Zero, err
		}
	}

	if count >= limit {
		// keep the rollover write
		if err := tx.Commit(ctx); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, ErrQuotaExceeded
	}

	_, err = tx.Exec(ctx, "INSERT INTO submissions (user_id, email, password, created_at) VALUES ($1, $2, $3, $4)",
		userID, email, password, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return decimal.Zero, ErrDuplicateEmail
		}
		return decimal.Zero, err
	}

	_, err = tx.Exec(ctx, `UPDATE accounts
		SET balance = balance + $1::numeric, submissions_today = submissions_today + 1, last_submit_date = $2
		WHERE user_id = $3`, price.String(), today, userID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

func (s *PostgresStorage) SetAwaitingDestination(ctx context.Context, userID string, awaiting bool) error {
	tag, err := s.pool.Exec(ctx, "UPDATE accounts SET awaiting_destination = $1 WHERE user_id = $2", awaiting, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSuchAccount
	}
	return nil
}

// CreateWithdrawal debits the account and records the pending request in one
// transaction. Both the awaiting flag and the balance are re-checked under
// the row lock: a concurrent destination message may have consumed the flag,
// and the balance may have dropped since the withdrawal was requested.
func (s *PostgresStorage) CreateWithdrawal(ctx context.Context, userID, destination string, amount decimal.Decimal) (*models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.rollback(ctx, tx)

	var balanceText string
	var awaiting bool
	err = tx.QueryRow(ctx, "SELECT balance::text, awaiting_destination FROM accounts WHERE user_id = $1 FOR UPDATE", userID).
		Scan(&balanceText, &awaiting)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}
	if !awaiting {
		return nil, ErrNotAwaiting
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, `UPDATE accounts
		SET balance = balance - $1::numeric, payout_destination = $2, awaiting_destination = FALSE
		WHERE user_id = $3`, amount.String(), destination, userID)
	if err != nil {
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		UserID:    userID,
		Amount:    amount,
		Status:    models.WithdrawalPending,
		CreatedAt: time.Now(),
	}
	err = tx.QueryRow(ctx, "INSERT INTO withdrawals (user_id, amount, status, created_at) VALUES ($1, $2::numeric, $3, $4) RETURNING id",
		userID, amount.String(), withdrawal.Status, withdrawal.CreatedAt).Scan(&withdrawal.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// DecideWithdrawal moves a pending request to approved or rejected. A rejected
// request credits its amount back to the owning account; the pending-only
// transition under the row lock makes the refund happen at most once.
func (s *PostgresStorage) DecideWithdrawal(ctx context.Context, requestID int64, approve bool) (*models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.rollback(ctx, tx)

	withdrawal := &models.Withdrawal{ID: requestID}
	var amountText string
	err = tx.QueryRow(ctx, "SELECT user_id, amount::text, status, created_at FROM withdrawals WHERE id = $1 FOR UPDATE", requestID).
		Scan(&withdrawal.UserID, &amountText, &withdrawal.Status, &withdrawal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchWithdrawal
		}
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalPending {
		return nil, ErrAlreadyDecided
	}
	withdrawal.Amount, err = decimal.NewFromString(amountText)
	if err != nil {
		return nil, err
	}

	newStatus := models.WithdrawalRejected
	if approve {
		newStatus = models.WithdrawalApproved
	}
	_, err = tx.Exec(ctx, "UPDATE withdrawals SET status = $1 WHERE id = $2", newStatus, requestID)
	if err != nil {
		return nil, err
	}
	withdrawal.Status = newStatus

	if !approve {
		_, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1::numeric WHERE user_id = $2",
			withdrawal.Amount.String(), withdrawal.UserID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (s *PostgresStorage) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, user_id, email, password, created_at FROM submissions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Email, &sub.Password, &sub.CreatedAt); err != nil {
			return nil, err
		}
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}

func (s *PostgresStorage) ListPendingWithdrawals(ctx context.Context) ([]models.PendingWithdrawal, error) {
	rows, err := s.pool.Query(ctx, `SELECT w.id, w.user_id, w.amount::text, w.status, w.created_at, a.payout_destination
		FROM withdrawals w JOIN accounts a ON a.user_id = w.user_id
		WHERE w.status = $1 ORDER BY w.id`, models.WithdrawalPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingWithdrawal
	for rows.Next() {
		var p models.PendingWithdrawal
		var amountText string
		if err := rows.Scan(&p.ID, &p.UserID, &amountText, &p.Status, &p.CreatedAt, &p.Destination); err != nil {
			return nil, err
		}
		p.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
