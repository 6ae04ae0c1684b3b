package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/clock"
	maildomain "github.com/smallbiznis/ticketflow/internal/mailqueue/domain"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"github.com/smallbiznis/ticketflow/internal/providers/email"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stalledAfter is how long a claimed item may go without a status before
// operators see it alongside ERROR items.
const stalledAfter = 5 * time.Minute

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      maildomain.Repository
	recorder  *changefeed.Recorder
	transport email.Transport
	metrics   *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      maildomain.Repository
	Recorder  *changefeed.Recorder
	Transport email.Transport
	Metrics   *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) maildomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("mailqueue.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		recorder:  p.Recorder,
		transport: p.Transport,
		metrics:   p.Metrics,
	}
}

func (s *Service) Enqueue(ctx context.Context, key tenant.Key, msg maildomain.Message) (maildomain.Item, error) {
	var item maildomain.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = s.EnqueueTx(ctx, tx, key, msg)
		return err
	})
	return item, err
}

func (s *Service) EnqueueTx(ctx context.Context, tx *gorm.DB, key tenant.Key, msg maildomain.Message) (maildomain.Item, error) {
	if err := key.Validate(); err != nil {
		return maildomain.Item{}, err
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return maildomain.Item{}, maildomain.ErrInvalidRecipient
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return maildomain.Item{}, maildomain.ErrInvalidSubject
	}

	item := maildomain.Item{
		ID:          s.genID.Generate(),
		TenantID:    key.TenantID,
		AppID:       key.AppID,
		To:          to,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Attachments: msg.Attachments,
		Status:      maildomain.StatusPending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &item); err != nil {
		return maildomain.Item{}, fmt.Errorf("insert mail item: %w", err)
	}
	if _, err := s.recorder.Record(ctx, tx, key, changefeed.CollectionMail, item.ID.String(), nil, item.Snapshot()); err != nil {
		return maildomain.Item{}, err
	}
	return item, nil
}

// HandleCreated delivers a newly created item exactly once. Updates and
// items that already carry a status are ignored.
func (s *Service) HandleCreated(ctx context.Context, evt changefeed.ChangeEvent) error {
	if evt.HasBefore() || !evt.HasAfter() {
		return nil
	}
	log := ctxlogger.WithContext(ctx, s.log).With(zap.String("path", evt.Path()))

	var snap maildomain.Snapshot
	if err := evt.DecodeAfter(&snap); err != nil {
		log.Error("mail.decode_failed", zap.Error(err))
		return nil
	}
	if snap.Status != maildomain.StatusPending {
		return nil
	}

	claimed, err := s.repo.MarkAttempted(ctx, s.db, evt.Key, snap.ID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("claim mail item: %w", err)
	}
	if !claimed {
		log.Debug("mail.already_attempted", zap.String("mail_id", snap.ID.String()))
		return nil
	}

	item, err := s.repo.FindByID(ctx, s.db, evt.Key, snap.ID)
	if err != nil {
		return fmt.Errorf("load mail item: %w", err)
	}
	if item == nil {
		log.Warn("mail.missing", zap.String("mail_id", snap.ID.String()))
		return nil
	}

	sendErr := s.transport.Send(ctx, email.Mail{
		To:          item.To,
		Subject:     item.Subject,
		HTML:        item.HTML,
		Attachments: item.Attachments,
	})

	status, errMsg := maildomain.StatusSent, ""
	if sendErr != nil {
		status, errMsg = maildomain.StatusError, sendErr.Error()
	}
	// The claim above rules out a retry, so the stamp must outlive ctx.
	if err := s.repo.Finish(context.WithoutCancel(ctx), s.db, evt.Key, item.ID, status, errMsg, s.clock.Now()); err != nil {
		return errors.Join(sendErr, fmt.Errorf("stamp mail status: %w", err))
	}
	s.metrics.RecordMailDelivery(string(status))

	if sendErr != nil {
		log.Warn("mail.failed", zap.String("mail_id", item.ID.String()), zap.Error(sendErr))
		return nil
	}
	log.Info("mail.sent", zap.String("mail_id", item.ID.String()))
	return nil
}

func (s *Service) ListErrored(ctx context.Context, key tenant.Key, page pagination.Pagination) (maildomain.ListResponse, error) {
	if err := key.Validate(); err != nil {
		return maildomain.ListResponse{}, err
	}
	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return maildomain.ListResponse{}, maildomain.ErrInvalidPageToken
	}

	limit := page.Limit()
	items, err := s.repo.ListUndelivered(ctx, s.db, key, s.clock.Now().Add(-stalledAfter), cursor, limit+1)
	if err != nil {
		return maildomain.ListResponse{}, err
	}
	items, info, err := pagination.Page(items, limit, func(item maildomain.Item) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String(), CreatedAt: item.CreatedAt}
	})
	if err != nil {
		return maildomain.ListResponse{}, err
	}
	return maildomain.ListResponse{PageInfo: info, Items: items}, nil
}
