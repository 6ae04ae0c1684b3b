package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/smallbiznis/ticketflow/internal/clock"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       profiledomain.Repository
	identities profiledomain.IdentityProvider
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       profiledomain.Repository
	Identities profiledomain.IdentityProvider
}

func NewService(p ServiceParam) profiledomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("profile.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		identities: p.Identities,
	}
}

func (s *Service) Save(ctx context.Context, key tenant.Key, req profiledomain.SaveRequest) (profiledomain.UserProfile, error) {
	if err := key.Validate(); err != nil {
		return profiledomain.UserProfile{}, err
	}
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return profiledomain.UserProfile{}, profiledomain.ErrInvalidUID
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !validEmail(email) {
		return profiledomain.UserProfile{}, profiledomain.ErrInvalidEmail
	}

	now := s.clock.Now()
	profile := profiledomain.UserProfile{
		TenantID:    key.TenantID,
		AppID:       key.AppID,
		UID:         uid,
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Phone:       strings.TrimSpace(req.Phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, s.db, &profile); err != nil {
		return profiledomain.UserProfile{}, err
	}
	return profile, nil
}

func (s *Service) Get(ctx context.Context, key tenant.Key, uid string) (profiledomain.UserProfile, error) {
	if err := key.Validate(); err != nil {
		return profiledomain.UserProfile{}, err
	}
	profile, err := s.repo.FindByID(ctx, s.db, key, strings.TrimSpace(uid))
	if err != nil {
		return profiledomain.UserProfile{}, err
	}
	if profile == nil {
		return profiledomain.UserProfile{}, profiledomain.ErrProfileNotFound
	}
	return *profile, nil
}

func (s *Service) Resolve(ctx context.Context, key tenant.Key, uid string) (profiledomain.Identity, error) {
	if err := key.Validate(); err != nil {
		return profiledomain.Identity{}, err
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return profiledomain.Identity{}, profiledomain.ErrInvalidUID
	}
	logger := ctxlogger.WithContext(ctx, s.log).With(zap.String("path", key.Path("users", uid)))

	profile, err := s.repo.FindByID(ctx, s.db, key, uid)
	if err != nil {
		return profiledomain.Identity{}, err
	}
	name := ""
	if profile != nil {
		name = profile.DisplayName
		if profile.Email != "" {
			return profiledomain.Identity{
				UID:    uid,
				Email:  profile.Email,
				Name:   name,
				Source: profiledomain.SourceProfile,
			}, nil
		}
	}

	identity, err := s.identities.LookupUser(ctx, uid)
	switch {
	case errors.Is(err, profiledomain.ErrIdentityNotFound):
		logger.Warn("profile.resolve.unresolvable")
		return profiledomain.Identity{}, profiledomain.ErrEmailUnresolvable
	case err != nil:
		return profiledomain.Identity{}, err
	}
	if identity.Email == "" {
		logger.Warn("profile.resolve.unresolvable", zap.String("reason", "identity has no email"))
		return profiledomain.Identity{}, profiledomain.ErrEmailUnresolvable
	}
	if identity.Name == "" {
		identity.Name = name
	}
	identity.UID = uid
	identity.Source = profiledomain.SourceIdentity
	logger.Debug("profile.resolve.fallback")
	return identity, nil
}

func (s *Service) ResolveEmail(ctx context.Context, key tenant.Key, uid string) (string, error) {
	identity, err := s.Resolve(ctx, key, uid)
	if err != nil {
		return "", err
	}
	return identity.Email, nil
}

// validEmail accepts a bare address only, not the "Name <addr>" form.
func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
