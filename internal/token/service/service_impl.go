package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  tokendomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  tokendomain.Repository
}

func NewService(p ServiceParam) tokendomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("token.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, key tenant.Key, req tokendomain.RegisterRequest) (tokendomain.NotificationToken, error) {
	if err := key.Validate(); err != nil {
		return tokendomain.NotificationToken{}, err
	}
	role, err := tokendomain.ParseRole(req.Role)
	if err != nil {
		return tokendomain.NotificationToken{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return tokendomain.NotificationToken{}, tokendomain.ErrInvalidUserID
	}
	value := strings.TrimSpace(req.Token)
	if value == "" {
		return tokendomain.NotificationToken{}, tokendomain.ErrInvalidToken
	}

	token := tokendomain.NotificationToken{
		TenantID:  key.TenantID,
		AppID:     key.AppID,
		Role:      role,
		UserID:    userID,
		Token:     value,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.repo.Upsert(ctx, s.db, &token); err != nil {
		return tokendomain.NotificationToken{}, err
	}
	s.log.Debug("token.registered",
		zap.String("path", key.Path("notifications_tokens", string(role), "tokens", userID)),
	)
	return token, nil
}

func (s *Service) Get(ctx context.Context, key tenant.Key, role tokendomain.Role, userID string) (tokendomain.NotificationToken, error) {
	token, err := s.repo.Find(ctx, s.db, key, role, userID)
	if err != nil {
		return tokendomain.NotificationToken{}, err
	}
	if token == nil {
		return tokendomain.NotificationToken{}, tokendomain.ErrTokenNotFound
	}
	return *token, nil
}

func (s *Service) ListByRole(ctx context.Context, key tenant.Key, role tokendomain.Role) ([]tokendomain.NotificationToken, error) {
	return s.repo.ListByRole(ctx, s.db, key, role)
}

func (s *Service) Prune(ctx context.Context, key tenant.Key, role tokendomain.Role, userID, token string) (bool, error) {
	return s.repo.DeleteIfToken(ctx, s.db, key, role, userID, token)
}
