package ledger

import "context"

// IdentityProvisioner is the boundary to the external identity provider.
// The core only ever calls this capability; it never touches a concrete
// provider SDK. Resolution of subjects to users is a store concern and is
// deliberately not part of this interface.
type IdentityProvisioner interface {
	// UpdateAttributes pushes profile attribute changes for the subject.
	UpdateAttributes(ctx context.Context, subject string, attrs map[string]string) error
	// DeleteAccount removes the subject's account at the provider.
	DeleteAccount(ctx context.Context, subject string) error
}

// NopProvisioner backs deployments without an external identity provider.
type NopProvisioner struct{}

func (NopProvisioner) UpdateAttributes(context.Context, string, map[string]string) error {
	return nil
}

func (NopProvisioner) DeleteAccount(context.Context, string) error {
	return nil
}
