package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

// DefaultCategory labels transfers whose caller did not supply one.
const DefaultCategory = "Other"

// TransferInput is the caller-facing transfer request. SenderID always
// comes from the resolved authenticated identity, never from a request
// body.
type TransferInput struct {
	SenderID    string
	ReceiverID  string
	Amount      float64
	Category    string
	Description string
}

// TransferService validates and executes atomic balance transfers. After a
// successful transfer it schedules a best-effort risk recomputation for
// the sender.
type TransferService struct {
	store  Store
	risk   *RiskService
	hooks  *HookRunner
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewTransferService constructs a TransferService. risk and hooks may be
// nil, in which case no post-transfer recomputation is scheduled.
func NewTransferService(store Store, risk *RiskService, hooks *HookRunner, logger *slog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		risk:   risk,
		hooks:  hooks,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used in tests).
func (s *TransferService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Transfer moves amount from sender to receiver, producing one immutable
// transaction record. All preconditions are checked before any mutation;
// the store-level statement is all-or-nothing.
func (s *TransferService) Transfer(ctx context.Context, in TransferInput) (repository.TransferResult, error) {
	if in.SenderID == "" || in.ReceiverID == "" {
		return repository.TransferResult{}, fmt.Errorf("%w: sender and receiver ids are required", domain.ErrInvalidArgument)
	}
	if in.SenderID == in.ReceiverID {
		return repository.TransferResult{}, fmt.Errorf("%w: self-transfers are not allowed", domain.ErrInvalidOperation)
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return repository.TransferResult{}, fmt.Errorf("%w: amount must be a finite number", domain.ErrInvalidArgument)
	}
	amount := round2(in.Amount)
	if amount <= 0 {
		return repository.TransferResult{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}

	category := in.Category
	if category == "" {
		category = DefaultCategory
	}

	result, err := s.store.Transfer(ctx, repository.TransferParams{
		TransactionID: uuid.NewString(),
		SenderID:      in.SenderID,
		ReceiverID:    in.ReceiverID,
		Amount:        amount,
		Category:      category,
		Description:   in.Description,
		Date:          s.nowFn().UTC(),
	})
	if err != nil {
		return repository.TransferResult{}, err
	}

	s.scheduleRiskRecompute(in.SenderID)
	return result, nil
}

// scheduleRiskRecompute enqueues the sender's risk recomputation. The hook
// is fire-and-forget: its failure is observable in logs only.
func (s *TransferService) scheduleRiskRecompute(userID string) {
	if s.hooks == nil || s.risk == nil {
		return
	}
	s.hooks.Enqueue("risk-recompute", func(ctx context.Context) error {
		_, err := s.risk.RecomputeAndPersist(ctx, userID)
		return err
	})
}
