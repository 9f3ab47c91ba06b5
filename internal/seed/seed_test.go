package seed

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/ledger"
	"github.com/vanshika/peerpay/internal/repository"
)

// countingStore tracks balances in memory so the seeder's transfers hit
// realistic insufficient-funds rejections.
type countingStore struct {
	mu       sync.Mutex
	nextID   int
	balances map[string]float64
	created  int
	applied  int
}

func newCountingStore() *countingStore {
	return &countingStore{balances: make(map[string]float64)}
}

func (s *countingStore) CreateUser(_ context.Context, p repository.CreateUserParams) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := "u" + strconv.Itoa(s.nextID)
	s.balances[id] = p.Balance
	s.created++
	return domain.User{ID: id, Name: p.Name, Balance: p.Balance}, nil
}

func (s *countingStore) Transfer(_ context.Context, p repository.TransferParams) (repository.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[p.SenderID] < p.Amount {
		return repository.TransferResult{}, domain.ErrInsufficientFunds
	}
	s.balances[p.SenderID] -= p.Amount
	s.balances[p.ReceiverID] += p.Amount
	s.applied++
	return repository.TransferResult{
		Transaction: domain.Transaction{ID: p.TransactionID, Amount: p.Amount},
	}, nil
}

func (s *countingStore) EnsureUserBySubject(context.Context, repository.EnsureUserParams) (domain.User, bool, error) {
	return domain.User{}, false, nil
}

func (s *countingStore) EnsureReserve(context.Context, string, string, time.Time) (domain.User, error) {
	return domain.User{}, nil
}

func (s *countingStore) GetUser(context.Context, string) (domain.User, error) {
	return domain.User{}, nil
}

func (s *countingStore) GetUserBySubject(context.Context, string) (domain.User, error) {
	return domain.User{}, nil
}

func (s *countingStore) ListUsers(context.Context, int) ([]domain.User, error) { return nil, nil }

func (s *countingStore) DeleteUser(context.Context, string) error { return nil }

func (s *countingStore) UpdateProfile(context.Context, string, *string, *string) (domain.User, error) {
	return domain.User{}, nil
}

func (s *countingStore) UpdateRiskScore(context.Context, string, domain.RiskLevel) error {
	return nil
}

func (s *countingStore) History(context.Context, string) ([]domain.FeedItem, error) {
	return nil, nil
}

func (s *countingStore) ClaimBonus(context.Context, repository.BonusClaimParams) (repository.TransferResult, bool, error) {
	return repository.TransferResult{}, false, nil
}

func (s *countingStore) GrantSignupBonus(context.Context, repository.SignupBonusParams) (bool, error) {
	return false, nil
}

func TestSeederRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newCountingStore()
	users := ledger.NewUserService(store, nil, nil, logger)
	transfers := ledger.NewTransferService(store, nil, nil, logger)

	seeder := New(Config{
		NumUsers:     10,
		NumTransfers: 50,
		Workers:      3,
		Seed:         7,
	}, users, transfers, logger)

	summary, err := seeder.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.UsersCreated != 10 {
		t.Errorf("users created: want 10 got %d", summary.UsersCreated)
	}
	if summary.TransfersCompleted+summary.TransfersRejected != 50 {
		t.Errorf("transfer attempts: want 50 got %d completed + %d rejected",
			summary.TransfersCompleted, summary.TransfersRejected)
	}
	if summary.TransfersCompleted != store.applied {
		t.Errorf("completed count %d does not match applied transfers %d",
			summary.TransfersCompleted, store.applied)
	}
	if store.created != 10 {
		t.Errorf("store user count: want 10 got %d", store.created)
	}
}

func TestSeederCancelled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newCountingStore()
	users := ledger.NewUserService(store, nil, nil, logger)
	transfers := ledger.NewTransferService(store, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seeder := New(DefaultConfig(), users, transfers, logger)
	if _, err := seeder.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
