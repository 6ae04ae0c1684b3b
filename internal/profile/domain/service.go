package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type SaveRequest struct {
	UID         string `json:"-"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

type Service interface {
	Save(ctx context.Context, key tenant.Key, req SaveRequest) (UserProfile, error)
	Get(ctx context.Context, key tenant.Key, uid string) (UserProfile, error)
	// Resolve finds the recipient of uid: the tenant profile email first,
	// then the identity provider record.
	Resolve(ctx context.Context, key tenant.Key, uid string) (Identity, error)
	ResolveEmail(ctx context.Context, key tenant.Key, uid string) (string, error)
}

// IdentityProvider looks users up in the external sign-in system.
type IdentityProvider interface {
	LookupUser(ctx context.Context, uid string) (Identity, error)
}

var (
	ErrInvalidUID        = errors.New("invalid_uid")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrProfileNotFound   = errors.New("profile_not_found")
	ErrIdentityNotFound  = errors.New("identity_not_found")
	ErrEmailUnresolvable = errors.New("email_unresolvable")
)
