package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

// BonusPolicy pins down the incentive amounts and the claim cooldown.
type BonusPolicy struct {
	ClaimAmount  float64
	SignupAmount float64
	Cooldown     time.Duration
}

// ClaimResult reports a bonus claim attempt. Claimed false with a nil
// error is the normal "not eligible yet" outcome, not a fault.
type ClaimResult struct {
	Claimed     bool
	User        domain.User
	Transaction domain.Transaction
}

// BonusService owns the time-gated bonus claim and the one-time signup
// grant, both paid out of the reserve account.
type BonusService struct {
	store     Store
	reserveID string
	policy    BonusPolicy
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewBonusService constructs a BonusService bound to the given reserve
// account.
func NewBonusService(store Store, reserveID string, policy BonusPolicy, logger *slog.Logger) *BonusService {
	return &BonusService{
		store:     store,
		reserveID: reserveID,
		policy:    policy,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// WithClock overrides the time provider (used in tests).
func (s *BonusService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Eligible reports whether the user may claim the recurring bonus right
// now. This is a pure read; the authoritative check happens inside Claim.
func (s *BonusService) Eligible(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.eligibleAt(user.LastBonusClaimAt, s.nowFn().UTC()), nil
}

func (s *BonusService) eligibleAt(lastClaim *time.Time, now time.Time) bool {
	if lastClaim == nil {
		return true
	}
	return now.Sub(*lastClaim) >= s.policy.Cooldown
}

// Claim attempts the cooldown-gated credit. The eligibility check, the
// cooldown stamp and the credit transfer commit in one atomic unit, so
// concurrent claims by the same user yield at most one success.
func (s *BonusService) Claim(ctx context.Context, userID string) (ClaimResult, error) {
	if userID == "" {
		return ClaimResult{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	if userID == s.reserveID {
		return ClaimResult{}, fmt.Errorf("%w: reserve account cannot claim a bonus", domain.ErrInvalidOperation)
	}

	result, claimed, err := s.store.ClaimBonus(ctx, repository.BonusClaimParams{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		ReserveID:     s.reserveID,
		Amount:        s.policy.ClaimAmount,
		Cooldown:      s.policy.Cooldown,
		Now:           s.nowFn().UTC(),
	})
	if err != nil {
		return ClaimResult{}, err
	}
	if !claimed {
		return ClaimResult{}, nil
	}

	return ClaimResult{
		Claimed:     true,
		User:        result.Receiver,
		Transaction: result.Transaction,
	}, nil
}

// GrantSignup credits the one-time signup grant. The store-level guard
// makes it an idempotent no-op for users that already received it, so it
// is safe to invoke on every provisioning call.
func (s *BonusService) GrantSignup(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.store.GrantSignupBonus(ctx, repository.SignupBonusParams{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		ReserveID:     s.reserveID,
		Amount:        s.policy.SignupAmount,
		Now:           s.nowFn().UTC(),
	})
}
