package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

func newBonusService(store Store) *BonusService {
	return NewBonusService(store, "reserve-1", BonusPolicy{
		ClaimAmount:  100,
		SignupAmount: 300,
		Cooldown:     24 * time.Hour,
	}, testLogger())
}

func TestBonusService_Eligible(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		lastClaim *time.Time
		want      bool
	}{
		{"never claimed", nil, true},
		{"cooldown exactly elapsed", timePtr(now.Add(-24 * time.Hour)), true},
		{"cooldown long elapsed", timePtr(now.Add(-72 * time.Hour)), true},
		{"one second short", timePtr(now.Add(-24*time.Hour + time.Second)), false},
		{"just claimed", timePtr(now), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{
				getUserFn: func(context.Context, string) (domain.User, error) {
					return domain.User{ID: "u1", LastBonusClaimAt: tc.lastClaim}, nil
				},
			}
			svc := newBonusService(store)
			svc.WithClock(func() time.Time { return now })

			eligible, err := svc.Eligible(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, eligible)
		})
	}
}

func TestBonusService_Claim(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	var captured repository.BonusClaimParams
	store := &fakeStore{
		claimBonusFn: func(_ context.Context, p repository.BonusClaimParams) (repository.TransferResult, bool, error) {
			captured = p
			return repository.TransferResult{
				Receiver:    domain.User{ID: p.UserID, Balance: 150},
				Transaction: domain.Transaction{ID: p.TransactionID, Amount: p.Amount},
			}, true, nil
		},
	}
	svc := newBonusService(store)
	svc.WithClock(func() time.Time { return now })

	result, err := svc.Claim(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, result.Claimed)
	assert.Equal(t, 150.0, result.User.Balance)
	assert.Equal(t, 100.0, result.Transaction.Amount)

	assert.Equal(t, "reserve-1", captured.ReserveID)
	assert.Equal(t, 24*time.Hour, captured.Cooldown)
	assert.Equal(t, now, captured.Now)
	assert.NotEmpty(t, captured.TransactionID)
}

func TestBonusService_ClaimNotEligible(t *testing.T) {
	store := &fakeStore{
		claimBonusFn: func(context.Context, repository.BonusClaimParams) (repository.TransferResult, bool, error) {
			return repository.TransferResult{}, false, nil
		},
	}
	svc := newBonusService(store)

	result, err := svc.Claim(context.Background(), "u1")
	require.NoError(t, err, "an ineligible claim is not a fault")
	assert.False(t, result.Claimed)
}

func TestBonusService_ClaimRequiresUserID(t *testing.T) {
	svc := newBonusService(&fakeStore{})

	_, err := svc.Claim(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBonusService_ClaimRejectsReserveAccount(t *testing.T) {
	stored := false
	store := &fakeStore{
		claimBonusFn: func(context.Context, repository.BonusClaimParams) (repository.TransferResult, bool, error) {
			stored = true
			return repository.TransferResult{}, true, nil
		},
	}
	svc := newBonusService(store)

	// The reserve claiming from itself would create a self-transaction.
	_, err := svc.Claim(context.Background(), "reserve-1")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.False(t, stored, "rejection must happen before any store call")
}

func TestBonusService_GrantSignup(t *testing.T) {
	var captured repository.SignupBonusParams
	store := &fakeStore{
		grantSignupFn: func(_ context.Context, p repository.SignupBonusParams) (bool, error) {
			captured = p
			return true, nil
		},
	}
	svc := newBonusService(store)

	granted, err := svc.GrantSignup(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, 300.0, captured.Amount)
	assert.Equal(t, "reserve-1", captured.ReserveID)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
