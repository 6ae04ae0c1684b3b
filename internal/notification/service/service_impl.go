package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/clock"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"github.com/smallbiznis/ticketflow/internal/push"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultFanOutConcurrency = 16
	bannerListLimit          = 100
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	tokens  tokendomain.Service
	sender  push.Sender
	banners notificationdomain.BannerRepository
	metrics *metrics.Metrics

	fanOutConcurrency int
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Tokens  tokendomain.Service
	Sender  push.Sender
	Banners notificationdomain.BannerRepository
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:                p.DB,
		log:               p.Log.Named("notification.dispatcher"),
		genID:             p.GenID,
		clock:             p.Clock,
		tokens:            p.Tokens,
		sender:            p.Sender,
		banners:           p.Banners,
		metrics:           p.Metrics,
		fanOutConcurrency: defaultFanOutConcurrency,
	}
}

func (s *Service) Dispatch(ctx context.Context, key tenant.Key, role tokendomain.Role, userID string, payload notificationdomain.Payload) notificationdomain.Result {
	userID = strings.TrimSpace(userID)
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("role", string(role)),
		zap.String("user_id", userID),
		zap.String("type", payload.Data["type"]),
	)
	if userID == "" {
		log.Warn("dispatch.skipped", zap.String("reason", "missing_user_id"))
		return s.finish(role, "", notificationdomain.OutcomeSkipped, nil)
	}

	token, err := s.tokens.Get(ctx, key, role, userID)
	if err != nil {
		if errors.Is(err, tokendomain.ErrTokenNotFound) {
			log.Warn("dispatch.skipped",
				zap.String("reason", "token_not_registered"),
				zap.String("path", key.Path("notifications_tokens", string(role), "tokens", userID)),
			)
			return s.finish(role, userID, notificationdomain.OutcomeSkipped, nil)
		}
		log.Warn("dispatch.token_lookup_failed", zap.Error(err))
		return s.finish(role, userID, notificationdomain.OutcomeTransientFailure, err)
	}

	return s.send(ctx, log, key, token, payload)
}

func (s *Service) FanOut(ctx context.Context, key tenant.Key, role tokendomain.Role, payload notificationdomain.Payload) (notificationdomain.Report, error) {
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("role", string(role)),
		zap.String("type", payload.Data["type"]),
	)
	tokens, err := s.tokens.ListByRole(ctx, key, role)
	if err != nil {
		return notificationdomain.Report{}, err
	}
	if len(tokens) == 0 {
		log.Warn("dispatch.fanout.empty", zap.String("path", key.Path("notifications_tokens", string(role), "tokens")))
		return notificationdomain.Report{}, nil
	}

	p := pool.NewWithResults[notificationdomain.Result]().WithMaxGoroutines(s.fanOutConcurrency)
	for _, token := range tokens {
		p.Go(func() notificationdomain.Result {
			recipientLog := log.With(zap.String("user_id", token.UserID))
			return s.send(ctx, recipientLog, key, token, payload)
		})
	}
	report := notificationdomain.Report{Results: p.Wait()}

	log.Info("dispatch.fanout.finish",
		zap.Int("recipients", len(report.Results)),
		zap.Int("sent", report.Sent()),
		zap.Int("failed", report.Failed()),
		zap.Int("skipped", report.Count(notificationdomain.OutcomeSkipped)),
	)
	return report, nil
}

func (s *Service) send(ctx context.Context, log *zap.Logger, key tenant.Key, token tokendomain.NotificationToken, payload notificationdomain.Payload) notificationdomain.Result {
	if strings.TrimSpace(token.Token) == "" {
		log.Warn("dispatch.skipped", zap.String("reason", "token_field_empty"))
		return s.finish(token.Role, token.UserID, notificationdomain.OutcomeSkipped, nil)
	}

	err := s.sender.Send(ctx, push.Message{
		Token:        token.Token,
		Notification: push.Notification{Title: payload.Title, Body: payload.Body},
		Data:         payload.Data,
	})
	if err == nil {
		log.Info("dispatch.sent", zap.String("token", push.Redact(token.Token)))
		return s.finish(token.Role, token.UserID, notificationdomain.OutcomeSent, nil)
	}

	if push.IsPermanent(err) {
		log.Warn("dispatch.failed", zap.Bool("permanent", true), zap.Error(err))
		pruned, pruneErr := s.tokens.Prune(ctx, key, token.Role, token.UserID, token.Token)
		if pruneErr != nil {
			log.Warn("dispatch.prune_failed", zap.Error(pruneErr))
		} else if pruned {
			log.Info("dispatch.token_pruned")
		}
		return s.finish(token.Role, token.UserID, notificationdomain.OutcomePermanentFailure, err)
	}

	log.Warn("dispatch.failed", zap.Bool("permanent", false), zap.Error(err))
	return s.finish(token.Role, token.UserID, notificationdomain.OutcomeTransientFailure, err)
}

func (s *Service) finish(role tokendomain.Role, userID string, outcome notificationdomain.Outcome, err error) notificationdomain.Result {
	s.metrics.RecordDispatch(string(role), string(outcome))
	return notificationdomain.Result{Role: role, UserID: userID, Outcome: outcome, Err: err}
}

func (s *Service) AppendBanner(ctx context.Context, key tenant.Key, req notificationdomain.BannerRequest) (notificationdomain.Banner, error) {
	if err := key.Validate(); err != nil {
		return notificationdomain.Banner{}, err
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return notificationdomain.Banner{}, notificationdomain.ErrInvalidCustomer
	}
	if strings.TrimSpace(req.Title) == "" {
		return notificationdomain.Banner{}, notificationdomain.ErrInvalidTitle
	}

	banner := notificationdomain.Banner{
		ID:         s.genID.Generate(),
		TenantID:   key.TenantID,
		AppID:      key.AppID,
		CustomerID: customerID,
		BookingID:  strings.TrimSpace(req.BookingID),
		Title:      req.Title,
		Body:       req.Body,
		Type:       req.Type,
		Seen:       false,
		Timestamp:  s.clock.Now(),
	}
	if err := s.banners.Insert(ctx, s.db, &banner); err != nil {
		return notificationdomain.Banner{}, err
	}
	return banner, nil
}

func (s *Service) ListBanners(ctx context.Context, key tenant.Key, customerID string) ([]notificationdomain.Banner, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, notificationdomain.ErrInvalidCustomer
	}
	return s.banners.ListByCustomer(ctx, s.db, key, customerID, bannerListLimit)
}
