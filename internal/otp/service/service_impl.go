package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	invoicedomain "github.com/smallbiznis/ticketflow/internal/invoice/domain"
	"github.com/smallbiznis/ticketflow/internal/invoice/render"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/otp/codehash"
	otpdomain "github.com/smallbiznis/ticketflow/internal/otp/domain"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeTTL     = 10 * time.Minute
	maxAttempts = 5
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	policy   *config.PolicyHolder
	repo     otpdomain.Repository
	mail     maildomain.Service
	renderer render.Renderer

	generate func() (string, error)
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Repo     otpdomain.Repository
	Mail     maildomain.Service
	Renderer render.Renderer
}

func NewService(p ServiceParam) otpdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("otp.service"),
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		mail:     p.Mail,
		renderer: p.Renderer,
		generate: codehash.GenerateCode,
	}
}

func (s *Service) Issue(ctx context.Context, key tenant.Key, email string) (otpdomain.IssueResult, error) {
	if err := key.Validate(); err != nil {
		return otpdomain.IssueResult{}, err
	}
	email = normalizeEmail(email)
	if !validEmail(email) {
		return otpdomain.IssueResult{}, otpdomain.ErrInvalidEmail
	}

	code, err := s.generate()
	if err != nil {
		return otpdomain.IssueResult{}, fmt.Errorf("generate code: %w", err)
	}
	hash, err := codehash.Hash(code)
	if err != nil {
		return otpdomain.IssueResult{}, fmt.Errorf("hash code: %w", err)
	}

	now := s.clock.Now()
	expiresAt := now.Add(codeTTL)
	body, err := s.renderer.OneTimeCodeEmail(s.policy.Get(), invoicedomain.OneTimeCode{Code: code, ExpiresAt: expiresAt})
	if err != nil {
		return otpdomain.IssueResult{}, fmt.Errorf("render code email: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &otpdomain.Code{
			TenantID:  key.TenantID,
			AppID:     key.AppID,
			Email:     email,
			CodeHash:  hash,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		_, err := s.mail.EnqueueTx(ctx, tx, key, maildomain.Message{
			To:      email,
			Subject: body.Subject,
			HTML:    body.HTML,
		})
		return err
	})
	if err != nil {
		return otpdomain.IssueResult{}, err
	}

	ctxlogger.WithContext(ctx, s.log).Info("otp.issued",
		zap.String("tenant_id", key.TenantID),
		zap.String("app_id", key.AppID),
		zap.Time("expires_at", expiresAt),
	)
	return otpdomain.IssueResult{Email: email, ExpiresAt: expiresAt}, nil
}

func (s *Service) Verify(ctx context.Context, key tenant.Key, email, code string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if !validEmail(email) {
		return otpdomain.ErrInvalidEmail
	}
	code = strings.TrimSpace(code)
	if len(code) != codehash.CodeDigits {
		return otpdomain.ErrInvalidCode
	}
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("tenant_id", key.TenantID),
		zap.String("app_id", key.AppID),
	)

	pending, err := s.repo.Find(ctx, s.db, key, email)
	if err != nil {
		return err
	}
	if pending == nil {
		return otpdomain.ErrCodeNotFound
	}
	if !s.clock.Now().Before(pending.ExpiresAt) {
		if err := s.repo.Delete(ctx, s.db, key, email); err != nil {
			log.Warn("otp.cleanup_failed", zap.Error(err))
		}
		return otpdomain.ErrExpired
	}

	// The attempt is counted before the hash is checked so that parallel
	// guesses cannot all pass the limit.
	claimed, err := s.repo.ClaimAttempt(ctx, s.db, key, email, pending.CodeHash, maxAttempts)
	if err != nil {
		return err
	}
	if !claimed {
		return s.rejectUnclaimed(ctx, log, key, email, pending.CodeHash)
	}
	if !codehash.Verify(code, pending.CodeHash) {
		return otpdomain.ErrInvalidCode
	}

	consumed, err := s.repo.Consume(ctx, s.db, key, email, pending.CodeHash)
	if err != nil {
		return err
	}
	if !consumed {
		return otpdomain.ErrInvalidCode
	}
	log.Info("otp.verified")
	return nil
}

// rejectUnclaimed explains a failed attempt claim: the code was consumed or
// superseded meanwhile, or its attempts are used up and it is discarded.
func (s *Service) rejectUnclaimed(ctx context.Context, log *zap.Logger, key tenant.Key, email, codeHash string) error {
	current, err := s.repo.Find(ctx, s.db, key, email)
	if err != nil {
		return err
	}
	if current == nil {
		return otpdomain.ErrCodeNotFound
	}
	if current.CodeHash != codeHash {
		return otpdomain.ErrInvalidCode
	}
	if _, err := s.repo.Consume(ctx, s.db, key, email, codeHash); err != nil {
		log.Warn("otp.cleanup_failed", zap.Error(err))
	}
	log.Warn("otp.locked", zap.Int("attempts", current.Attempts))
	return otpdomain.ErrTooManyAttempts
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// validEmail accepts a bare address only, not the "Name <addr>" form.
func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
