// Package identity resolves users against the external sign-in provider.
package identity

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	"go.uber.org/zap"
)

type userGetter interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseProvider reads user records from Firebase Authentication.
type FirebaseProvider struct {
	client userGetter
}

func NewFirebaseProvider(client *auth.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

func (p *FirebaseProvider) LookupUser(ctx context.Context, uid string) (profiledomain.Identity, error) {
	user, err := p.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return profiledomain.Identity{}, profiledomain.ErrIdentityNotFound
		}
		return profiledomain.Identity{}, fmt.Errorf("firebase get user: %w", err)
	}
	if user == nil || user.UserInfo == nil {
		return profiledomain.Identity{}, profiledomain.ErrIdentityNotFound
	}
	return profiledomain.Identity{
		UID:    uid,
		Email:  strings.TrimSpace(user.Email),
		Name:   strings.TrimSpace(user.DisplayName),
		Source: profiledomain.SourceIdentity,
	}, nil
}

// NoopProvider knows no users. It is used when Firebase is not configured.
type NoopProvider struct{}

func (NoopProvider) LookupUser(context.Context, string) (profiledomain.Identity, error) {
	return profiledomain.Identity{}, profiledomain.ErrIdentityNotFound
}

func NewProvider(app *firebase.App, log *zap.Logger) (profiledomain.IdentityProvider, error) {
	if app == nil {
		log.Named("profile.identity").Info("identity provider disabled; profile emails only")
		return NoopProvider{}, nil
	}
	client, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return NewFirebaseProvider(client), nil
}
