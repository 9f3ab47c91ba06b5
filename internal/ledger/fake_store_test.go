package ledger

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

// fakeStore implements Store with overridable function fields. Unset
// methods return zero values.
type fakeStore struct {
	createUserFn       func(ctx context.Context, p repository.CreateUserParams) (domain.User, error)
	ensureUserFn       func(ctx context.Context, p repository.EnsureUserParams) (domain.User, bool, error)
	ensureReserveFn    func(ctx context.Context, id, name string, now time.Time) (domain.User, error)
	getUserFn          func(ctx context.Context, id string) (domain.User, error)
	getUserBySubjectFn func(ctx context.Context, subject string) (domain.User, error)
	listUsersFn        func(ctx context.Context, limit int) ([]domain.User, error)
	deleteUserFn       func(ctx context.Context, id string) error
	updateProfileFn    func(ctx context.Context, id string, name, img *string) (domain.User, error)
	updateRiskFn       func(ctx context.Context, id string, score domain.RiskLevel) error
	transferFn         func(ctx context.Context, p repository.TransferParams) (repository.TransferResult, error)
	historyFn          func(ctx context.Context, userID string) ([]domain.FeedItem, error)
	claimBonusFn       func(ctx context.Context, p repository.BonusClaimParams) (repository.TransferResult, bool, error)
	grantSignupFn      func(ctx context.Context, p repository.SignupBonusParams) (bool, error)
}

func (f *fakeStore) CreateUser(ctx context.Context, p repository.CreateUserParams) (domain.User, error) {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, p)
	}
	return domain.User{}, nil
}

func (f *fakeStore) EnsureUserBySubject(ctx context.Context, p repository.EnsureUserParams) (domain.User, bool, error) {
	if f.ensureUserFn != nil {
		return f.ensureUserFn(ctx, p)
	}
	return domain.User{}, false, nil
}

func (f *fakeStore) EnsureReserve(ctx context.Context, id, name string, now time.Time) (domain.User, error) {
	if f.ensureReserveFn != nil {
		return f.ensureReserveFn(ctx, id, name, now)
	}
	return domain.User{}, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, id)
	}
	return domain.User{}, nil
}

func (f *fakeStore) GetUserBySubject(ctx context.Context, subject string) (domain.User, error) {
	if f.getUserBySubjectFn != nil {
		return f.getUserBySubjectFn(ctx, subject)
	}
	return domain.User{}, nil
}

func (f *fakeStore) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, id string) error {
	if f.deleteUserFn != nil {
		return f.deleteUserFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, id string, name, img *string) (domain.User, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, id, name, img)
	}
	return domain.User{}, nil
}

func (f *fakeStore) UpdateRiskScore(ctx context.Context, id string, score domain.RiskLevel) error {
	if f.updateRiskFn != nil {
		return f.updateRiskFn(ctx, id, score)
	}
	return nil
}

func (f *fakeStore) Transfer(ctx context.Context, p repository.TransferParams) (repository.TransferResult, error) {
	if f.transferFn != nil {
		return f.transferFn(ctx, p)
	}
	return repository.TransferResult{}, nil
}

func (f *fakeStore) History(ctx context.Context, userID string) ([]domain.FeedItem, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) ClaimBonus(ctx context.Context, p repository.BonusClaimParams) (repository.TransferResult, bool, error) {
	if f.claimBonusFn != nil {
		return f.claimBonusFn(ctx, p)
	}
	return repository.TransferResult{}, false, nil
}

func (f *fakeStore) GrantSignupBonus(ctx context.Context, p repository.SignupBonusParams) (bool, error) {
	if f.grantSignupFn != nil {
		return f.grantSignupFn(ctx, p)
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
