package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/repository"
)

func TestFormatDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jane doe", "Jane Doe"},
		{"  jOHN   dOE  ", "John Doe"},
		{"MARIA", "Maria"},
		{"o", "O"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDisplayName(tc.in), "input %q", tc.in)
	}
}

func TestUserService_EnsureProvisionsAndGrants(t *testing.T) {
	var ensureParams repository.EnsureUserParams
	var grantedUserID string

	store := &fakeStore{
		ensureUserFn: func(_ context.Context, p repository.EnsureUserParams) (domain.User, bool, error) {
			ensureParams = p
			return domain.User{ID: p.ID, Subject: p.Subject, Name: p.Name}, true, nil
		},
		grantSignupFn: func(_ context.Context, p repository.SignupBonusParams) (bool, error) {
			grantedUserID = p.UserID
			return true, nil
		},
		getUserFn: func(_ context.Context, id string) (domain.User, error) {
			return domain.User{ID: id, Balance: 300}, nil
		},
	}
	bonus := newBonusService(store)
	svc := NewUserService(store, bonus, nil, testLogger())

	user, err := svc.Ensure(context.Background(), "sub-123", "jane")
	require.NoError(t, err)

	assert.Equal(t, "sub-123", ensureParams.Subject)
	assert.Equal(t, "jane", ensureParams.Name)
	assert.NotEmpty(t, ensureParams.ID)
	assert.Equal(t, ensureParams.ID, grantedUserID)
	assert.Equal(t, 300.0, user.Balance, "balance reflects the signup grant")
}

func TestUserService_EnsureDefaultName(t *testing.T) {
	store := &fakeStore{
		ensureUserFn: func(_ context.Context, p repository.EnsureUserParams) (domain.User, bool, error) {
			assert.Equal(t, "Unnamed user", p.Name)
			return domain.User{ID: p.ID, Name: p.Name}, false, nil
		},
	}
	svc := NewUserService(store, nil, nil, testLogger())

	_, err := svc.Ensure(context.Background(), "sub-123", "   ")
	require.NoError(t, err)
}

func TestUserService_EnsureGrantFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{
		ensureUserFn: func(_ context.Context, p repository.EnsureUserParams) (domain.User, bool, error) {
			return domain.User{ID: "u1", Subject: p.Subject}, false, nil
		},
		grantSignupFn: func(context.Context, repository.SignupBonusParams) (bool, error) {
			return false, errors.New("reserve unavailable")
		},
	}
	bonus := newBonusService(store)
	svc := NewUserService(store, bonus, nil, testLogger())

	user, err := svc.Ensure(context.Background(), "sub-123", "jane")
	require.NoError(t, err, "the profile read must survive a grant failure")
	assert.Equal(t, "u1", user.ID)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := NewUserService(&fakeStore{}, nil, nil, testLogger())

	_, err := svc.Register(context.Background(), "", 100)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Register(context.Background(), "Jane Doe", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUserService_UpdateProfileFormatsName(t *testing.T) {
	store := &fakeStore{
		getUserBySubjectFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "u1", Subject: "sub-123"}, nil
		},
		updateProfileFn: func(_ context.Context, id string, name, img *string) (domain.User, error) {
			require.NotNil(t, name)
			assert.Equal(t, "Jane Doe", *name)
			assert.Nil(t, img)
			return domain.User{ID: id, Name: *name}, nil
		},
	}

	var mirrored map[string]string
	prov := &recordingProvisioner{
		update: func(_ context.Context, subject string, attrs map[string]string) error {
			assert.Equal(t, "sub-123", subject)
			mirrored = attrs
			return nil
		},
	}
	svc := NewUserService(store, nil, prov, testLogger())

	name := "jane dOE"
	user, err := svc.UpdateProfile(context.Background(), "sub-123", &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, map[string]string{"name": "Jane Doe"}, mirrored)
}

func TestUserService_DeleteRejectsReserve(t *testing.T) {
	store := &fakeStore{
		getUserBySubjectFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "r1", Reserve: true}, nil
		},
	}
	svc := NewUserService(store, nil, nil, testLogger())

	err := svc.Delete(context.Background(), "reserve")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestUserService_DeleteSurvivesProviderFailure(t *testing.T) {
	deleted := false
	store := &fakeStore{
		getUserBySubjectFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "u1", Subject: "sub-123"}, nil
		},
		deleteUserFn: func(_ context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	prov := &recordingProvisioner{
		deleteAcct: func(context.Context, string) error {
			return errors.New("provider down")
		},
	}
	svc := NewUserService(store, nil, prov, testLogger())

	err := svc.Delete(context.Background(), "sub-123")
	require.NoError(t, err, "ledger deletion already committed")
	assert.True(t, deleted)
}

// recordingProvisioner lets tests observe identity-provider mirror calls.
type recordingProvisioner struct {
	update     func(ctx context.Context, subject string, attrs map[string]string) error
	deleteAcct func(ctx context.Context, subject string) error
}

func (p *recordingProvisioner) UpdateAttributes(ctx context.Context, subject string, attrs map[string]string) error {
	if p.update != nil {
		return p.update(ctx, subject, attrs)
	}
	return nil
}

func (p *recordingProvisioner) DeleteAccount(ctx context.Context, subject string) error {
	if p.deleteAcct != nil {
		return p.deleteAcct(ctx, subject)
	}
	return nil
}
