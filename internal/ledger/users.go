package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

const fallbackDisplayName = "Unnamed user"

// UserService owns user lifecycle: provisioning on first authenticated
// contact, direct registration, profile edits and deletion. Profile
// changes are mirrored to the identity provider best-effort; the ledger
// remains the source of truth.
type UserService struct {
	store       Store
	bonus       *BonusService
	provisioner IdentityProvisioner
	logger      *slog.Logger
	nowFn       func() time.Time
}

// NewUserService constructs a UserService. provisioner may be nil, which
// disables the external mirror calls.
func NewUserService(store Store, bonus *BonusService, provisioner IdentityProvisioner, logger *slog.Logger) *UserService {
	if provisioner == nil {
		provisioner = NopProvisioner{}
	}
	return &UserService{
		store:       store,
		bonus:       bonus,
		provisioner: provisioner,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// WithClock overrides the time provider (used in tests).
func (s *UserService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Ensure resolves the external identity subject to a user, provisioning
// one on first contact. The signup grant is attempted on every call; its
// store-level guard makes it a no-op for anyone already granted.
func (s *UserService) Ensure(ctx context.Context, subject, fallbackName string) (domain.User, error) {
	if subject == "" {
		return domain.User{}, fmt.Errorf("%w: subject is required", domain.ErrInvalidArgument)
	}

	name := strings.TrimSpace(fallbackName)
	if name == "" {
		name = fallbackDisplayName
	}

	user, created, err := s.store.EnsureUserBySubject(ctx, repository.EnsureUserParams{
		ID:      uuid.NewString(),
		Subject: subject,
		Name:    name,
		Now:     s.nowFn().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	if created {
		s.logger.Info("provisioned user", "userId", user.ID)
	}

	if s.bonus != nil {
		granted, err := s.bonus.GrantSignup(ctx, user.ID)
		if err != nil {
			s.logger.Warn("signup bonus grant failed", "userId", user.ID, "error", err)
		} else if granted {
			// Refresh so the caller sees the credited balance.
			if refreshed, err := s.store.GetUser(ctx, user.ID); err == nil {
				user = refreshed
			}
		}
	}

	return user, nil
}

// Register creates a user directly with a non-negative initial balance.
func (s *UserService) Register(ctx context.Context, name string, initialBalance float64) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	if math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) {
		return domain.User{}, fmt.Errorf("%w: initial balance must be a finite number", domain.ErrInvalidArgument)
	}
	balance := round2(initialBalance)
	if balance < 0 {
		return domain.User{}, fmt.Errorf("%w: initial balance must not be negative", domain.ErrInvalidArgument)
	}

	return s.store.CreateUser(ctx, repository.CreateUserParams{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   balance,
		CreatedAt: s.nowFn().UTC(),
	})
}

// Get fetches a user by internal id.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.store.GetUser(ctx, id)
}

// GetBySubject fetches a user by external identity subject.
func (s *UserService) GetBySubject(ctx context.Context, subject string) (domain.User, error) {
	if subject == "" {
		return domain.User{}, fmt.Errorf("%w: subject is required", domain.ErrInvalidArgument)
	}
	return s.store.GetUserBySubject(ctx, subject)
}

// List returns the most recently created users.
func (s *UserService) List(ctx context.Context, limit int) ([]domain.User, error) {
	return s.store.ListUsers(ctx, limit)
}

// UpdateProfile patches the caller's display name and/or profile image.
// Name changes are normalized to title case and mirrored to the identity
// provider; a provider failure is logged and does not undo the ledger
// update.
func (s *UserService) UpdateProfile(ctx context.Context, subject string, name, img *string) (domain.User, error) {
	user, err := s.GetBySubject(ctx, subject)
	if err != nil {
		return domain.User{}, err
	}

	var formatted *string
	if name != nil {
		f := FormatDisplayName(*name)
		if f != "" {
			formatted = &f
		}
	}

	updated, err := s.store.UpdateProfile(ctx, user.ID, formatted, img)
	if err != nil {
		return domain.User{}, err
	}

	if formatted != nil {
		if err := s.provisioner.UpdateAttributes(ctx, subject, map[string]string{"name": *formatted}); err != nil {
			s.logger.Warn("identity provider attribute update failed", "userId", user.ID, "error", err)
		}
	}
	return updated, nil
}

// Delete removes the caller's user node and then the provider account.
// Provider failure after a successful store delete is logged, not rolled
// back. The reserve account cannot be deleted.
func (s *UserService) Delete(ctx context.Context, subject string) error {
	user, err := s.GetBySubject(ctx, subject)
	if err != nil {
		return err
	}
	if user.Reserve {
		return fmt.Errorf("%w: the reserve account cannot be deleted", domain.ErrInvalidOperation)
	}

	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	if err := s.provisioner.DeleteAccount(ctx, subject); err != nil {
		s.logger.Warn("identity provider account deletion failed", "userId", user.ID, "error", err)
	}
	return nil
}

// DeleteByID removes a user by internal id. The reserve account cannot
// be deleted. No provider call is made; use Delete for subject-owned
// accounts.
func (s *UserService) DeleteByID(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Reserve {
		return fmt.Errorf("%w: the reserve account cannot be deleted", domain.ErrInvalidOperation)
	}
	return s.store.DeleteUser(ctx, user.ID)
}

// History returns the user's merged transaction feed, most recent first.
func (s *UserService) History(ctx context.Context, userID string) ([]domain.FeedItem, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.store.History(ctx, userID)
}

// FormatDisplayName title-cases each space-separated word of a display
// name and collapses surrounding whitespace.
func FormatDisplayName(name string) string {
	fields := strings.Fields(name)
	for i, word := range fields {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
