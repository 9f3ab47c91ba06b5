package ledger

import (
	"context"
	"math"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

// Store is the persistence contract required by the ledger services. It is
// implemented by *repository.Repository.
type Store interface {
	CreateUser(ctx context.Context, p repository.CreateUserParams) (domain.User, error)
	EnsureUserBySubject(ctx context.Context, p repository.EnsureUserParams) (domain.User, bool, error)
	EnsureReserve(ctx context.Context, id, name string, now time.Time) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserBySubject(ctx context.Context, subject string) (domain.User, error)
	ListUsers(ctx context.Context, limit int) ([]domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, name, img *string) (domain.User, error)
	UpdateRiskScore(ctx context.Context, id string, score domain.RiskLevel) error
	Transfer(ctx context.Context, p repository.TransferParams) (repository.TransferResult, error)
	History(ctx context.Context, userID string) ([]domain.FeedItem, error)
	ClaimBonus(ctx context.Context, p repository.BonusClaimParams) (repository.TransferResult, bool, error)
	GrantSignupBonus(ctx context.Context, p repository.SignupBonusParams) (bool, error)
}

// round2 snaps a monetary value to 2 decimal places. Balances and amounts
// are stored as Cypher floats, so rounding happens at the boundary.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
