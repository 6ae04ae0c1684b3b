package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Relay moves unpublished outbox rows onto the message bus. A crash between
// publish and mark re-publishes the row on the next poll.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher message.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics

	batchSize    int
	pollInterval time.Duration
}

type RelayParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Publisher message.Publisher
	Clock     clock.Clock
	Config    config.Config
	Metrics   *metrics.Metrics `optional:"true"`
}

func NewRelay(p RelayParams) *Relay {
	batchSize := p.Config.Feed.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	interval := p.Config.Feed.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Relay{
		db:           p.DB,
		log:          p.Log.Named("changefeed.relay"),
		publisher:    p.Publisher,
		clock:        p.Clock,
		metrics:      p.Metrics,
		batchSize:    batchSize,
		pollInterval: interval,
	}
}

// ProcessPending publishes one batch in outbox order and returns how many
// rows were published. It stops at the first publish failure so later rows
// are never published ahead of an earlier one.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	var rows []Change
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(r.batchSize).
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("load pending changes: %w", err)
	}
	r.metrics.SetFeedBacklog(len(rows))

	published := 0
	for _, row := range rows {
		evt := row.toEvent()
		msg, err := encodeMessage(ctx, evt)
		if err != nil {
			// Unencodable rows would block the feed forever; park them as published.
			r.log.Error("changefeed.encode.failed", zap.String("change_id", evt.ID), zap.String("path", evt.Path()), zap.Error(err))
			r.metrics.RecordPublished(row.Collection, "dropped", 1)
			if markErr := r.markPublished(ctx, row); markErr != nil {
				return published, markErr
			}
			continue
		}

		if err := r.publisher.Publish(row.Collection, msg); err != nil {
			r.metrics.RecordPublished(row.Collection, "error", 1)
			return published, fmt.Errorf("publish change %s: %w", evt.ID, err)
		}
		if err := r.markPublished(ctx, row); err != nil {
			return published, err
		}
		r.metrics.RecordPublished(row.Collection, "ok", 1)
		published++
	}
	return published, nil
}

func (r *Relay) markPublished(ctx context.Context, row Change) error {
	now := r.clock.Now()
	err := r.db.WithContext(ctx).
		Model(&Change{}).
		Where("id = ?", row.ID).
		Update("published_at", now).Error
	if err != nil {
		return fmt.Errorf("mark change %s published: %w", row.ID, err)
	}
	return nil
}

// RunForever polls until ctx is cancelled. A full batch is followed
// immediately by another poll.
func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		n, err := r.ProcessPending(ctx)
		if err != nil {
			r.log.Error("changefeed.poll.failed", zap.Error(err))
		}
		if err == nil && n >= r.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
