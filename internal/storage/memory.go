package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadikur-dev/mailreward/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStorage is a mutex-guarded in-memory Storage used in tests. It keeps
// the same semantics as the Postgres implementation: global email uniqueness,
// quota rollover persisted on rejection, pending-only withdrawal transitions.
type MemoryStorage struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account // by user id
	logins       map[string]string          // login -> user id
	submissions  []models.Submission
	emails       map[string]struct{}
	withdrawals  map[int64]*models.Withdrawal
	nextSubID    int64
	nextWithdrID int64
	settings     models.Settings
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts:    make(map[string]*models.Account),
		logins:      make(map[string]string),
		emails:      make(map[string]struct{}),
		withdrawals: make(map[int64]*models.Withdrawal),
		settings: models.Settings{
			EmailPrice:      decimal.New(5, -2),
			SubmissionLimit: 10,
		},
	}
}

func (s *MemoryStorage) Close() {}

func (s *MemoryStorage) CreateAccount(_ context.Context, login, passwordHash string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logins[login]; ok {
		return nil, ErrLoginExists
	}
	account := &models.Account{
		UserID:       uuid.NewString(),
		Login:        login,
		PasswordHash: passwordHash,
		Balance:      decimal.Zero,
	}
	s.accounts[account.UserID] = account
	s.logins[login] = account.UserID
	copied := *account
	return &copied, nil
}

func (s *MemoryStorage) GetAccountByLogin(_ context.Context, login string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.logins[login]
	if !ok {
		return nil, nil
	}
	copied := *s.accounts[userID]
	return &copied, nil
}

func (s *MemoryStorage) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNoSuchAccount
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStorage) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return decimal.Zero, ErrNoSuchAccount
	}
	return account.Balance, nil
}

func (s *MemoryStorage) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := s.settings
	return &copied, nil
}

func (s *MemoryStorage) SetSubmissionLimit(_ context.Context, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.SubmissionLimit = limit
	return nil
}

func (s *MemoryStorage) SetEmailPrice(_ context.Context, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.EmailPrice = price
	return nil
}

func (s *MemoryStorage) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.emails[email]
	return ok, nil
}

func (s *MemoryStorage) AcceptSubmission(_ context.Context, userID, email, password, today string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return decimal.Zero, ErrNoSuchAccount
	}

	if account.LastSubmitDate != today {
		account.SubmissionsToday = 0
		account.LastSubmitDate = today
	}
	if account.SubmissionsToday >= s.settings.SubmissionLimit {
		return decimal.Zero, ErrQuotaExceeded
	}
	if _, ok := s.emails[email]; ok {
		return decimal.Zero, ErrDuplicateEmail
	}

	s.nextSubID++
	s.emails[email] = struct{}{}
	s.submissions = append(s.submissions, models.Submission{
		ID:        s.nextSubID,
		UserID:    userID,
		Email:     email,
		Password:  password,
		CreatedAt: time.Now(),
	})
	account.Balance = account.Balance.Add(s.settings.EmailPrice)
	account.SubmissionsToday++
	return s.settings.EmailPrice, nil
}

func (s *MemoryStorage) SetAwaitingDestination(_ context.Context, userID string, awaiting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return ErrNoSuchAccount
	}
	account.AwaitingDestination = awaiting
	return nil
}

func (s *MemoryStorage) CreateWithdrawal(_ context.Context, userID, destination string, amount decimal.Decimal) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNoSuchAccount
	}
	if !account.AwaitingDestination {
		return nil, ErrNotAwaiting
	}
	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(amount)
	account.PayoutDestination = destination
	account.AwaitingDestination = false

	s.nextWithdrID++
	withdrawal := &models.Withdrawal{
		ID:        s.nextWithdrID,
		UserID:    userID,
		Amount:    amount,
		Status:    models.WithdrawalPending,
		CreatedAt: time.Now(),
	}
	s.withdrawals[withdrawal.ID] = withdrawal
	copied := *withdrawal
	return &copied, nil
}

func (s *MemoryStorage) DecideWithdrawal(_ context.Context, requestID int64, approve bool) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	withdrawal, ok := s.withdrawals[requestID]
	if !ok {
		return nil, ErrNoSuchWithdrawal
	}
	if withdrawal.Status != models.WithdrawalPending {
		return nil, ErrAlreadyDecided
	}

	if approve {
		withdrawal.Status = models.WithdrawalApproved
	} else {
		withdrawal.Status = models.WithdrawalRejected
		s.accounts[withdrawal.UserID].Balance = s.accounts[withdrawal.UserID].Balance.Add(withdrawal.Amount)
	}
	copied := *withdrawal
	return &copied, nil
}

func (s *MemoryStorage) ListSubmissions(_ context.Context) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Submission, len(s.submissions))
	copy(out, s.submissions)
	return out, nil
}

func (s *MemoryStorage) ListPendingWithdrawals(_ context.Context) ([]models.PendingWithdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.PendingWithdrawal
	for id := int64(1); id <= s.nextWithdrID; id++ {
		withdrawal, ok := s.withdrawals[id]
		if !ok || withdrawal.Status != models.WithdrawalPending {
			continue
		}
		pending = append(pending, models.PendingWithdrawal{
			Withdrawal:  *withdrawal,
			Destination: s.accounts[withdrawal.UserID].PayoutDestination,
		})
	}
	return pending, nil
}
