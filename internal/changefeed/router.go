package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/smallbiznis/ticketflow/internal/observability/metrics"
	"github.com/smallbiznis/ticketflow/internal/observability/tracing"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"github.com/smallbiznis/ticketflow/pkg/tenantctx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Router dispatches bus messages to the registered handlers.
type Router struct {
	router   *message.Router
	log      *zap.Logger
	metrics  *metrics.Metrics
	handlers []Handler
}

type RouterParams struct {
	fx.In

	Log        *zap.Logger
	Subscriber message.Subscriber
	Adapter    watermill.LoggerAdapter
	Metrics    *metrics.Metrics `optional:"true"`
	Handlers   []Handler        `group:"changefeed.handlers"`
}

func NewRouter(p RouterParams) (*Router, error) {
	wr, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, p.Adapter)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	r := &Router{
		router:   wr,
		log:      p.Log.Named("changefeed.router"),
		metrics:  p.Metrics,
		handlers: p.Handlers,
	}
	for _, h := range p.Handlers {
		if h.Handle == nil || h.Collection == "" {
			continue
		}
		wr.AddConsumerHandler(h.Name, h.Collection, p.Subscriber, r.wrap(h))
	}
	return r, nil
}

// wrap adapts a Handler to watermill. Every message is acked: handler
// failures are logged and counted, never retried by the bus.
func (r *Router) wrap(h Handler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		evt, ctx, err := decodeMessage(msg)
		if err != nil {
			r.log.Error("changefeed.message.invalid", zap.String("handler", h.Name), zap.String("message_uuid", msg.UUID), zap.Error(err))
			return nil
		}
		r.dispatch(ctx, h, evt)
		return nil
	}
}

func (r *Router) dispatch(ctx context.Context, h Handler, evt ChangeEvent) {
	ctx = tenantctx.WithKey(ctx, evt.Key)
	ctx = ctxlogger.ContextWithDocument(ctx, ctxlogger.Document{
		Collection: evt.Collection,
		ID:         evt.DocumentID,
		ChangeID:   evt.ID,
	})
	ctx, span := tracing.StartSpan(ctx, "ticketflow/changefeed", "changefeed."+h.Name,
		attribute.String("collection", evt.Collection),
		attribute.String("document_id", evt.DocumentID),
		attribute.String("change_id", evt.ID),
	)

	start := time.Now()
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
			ctxlogger.FromContext(ctx).Error("changefeed.handler.panic",
				zap.String("handler", h.Name),
				zap.String("path", evt.Path()),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.ObserveHandler(evt.Collection, status, time.Since(start))
		tracing.EndSpan(span, err)
	}()

	err = h.Handle(ctx, evt)
	if err != nil {
		ctxlogger.FromContext(ctx).Error("changefeed.handler.failed",
			zap.String("handler", h.Name),
			zap.String("path", evt.Path()),
			zap.Error(err),
		)
	}
}

// Run blocks until ctx is cancelled or the router is closed.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	return r.router.Close()
}

// Handlers lists the registered handler names.
func (r *Router) Handlers() []string {
	names := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		names = append(names, h.Name)
	}
	return names
}
