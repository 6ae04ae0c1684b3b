package lifecycle

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	"github.com/smallbiznis/ticketflow/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// BecameSuccessful is the edge guard: only a transition into SUCCESS starts
// the lifecycle. Later edits of a successful transaction never do.
func BecameSuccessful(before, after *paymentdomain.Transaction) bool {
	if after == nil || after.Status != paymentdomain.StatusSuccess {
		return false
	}
	return before == nil || before.Status != paymentdomain.StatusSuccess
}

// HandleChange runs the lifecycle for a payment change event. Every failure
// is logged here and swallowed so the event is acknowledged.
func (e *Engine) HandleChange(ctx context.Context, evt changefeed.ChangeEvent) error {
	log := ctxlogger.WithContext(ctx, e.log).With(
		zap.String("txn_id", evt.DocumentID),
		zap.String("event_id", evt.ID),
	)

	var before, after *paymentdomain.Transaction
	if evt.HasBefore() {
		before = &paymentdomain.Transaction{}
		if err := evt.DecodeBefore(before); err != nil {
			log.Error("lifecycle.event.invalid", zap.Error(err))
			return nil
		}
	}
	if evt.HasAfter() {
		after = &paymentdomain.Transaction{}
		if err := evt.DecodeAfter(after); err != nil {
			log.Error("lifecycle.event.invalid", zap.Error(err))
			return nil
		}
	}

	if !BecameSuccessful(before, after) {
		log.Debug("lifecycle.event.ignored")
		return nil
	}

	res, err := e.Run(ctx, evt.Key, evt.DocumentID)
	if err != nil {
		log.Error("lifecycle.run.error", zap.Error(err))
		return nil
	}
	log.Debug("lifecycle.event.handled", zap.String("outcome", string(res.Outcome)))
	return nil
}

func (e *Engine) Registration() changefeed.Handler {
	return changefeed.Handler{
		Name:       "lifecycle.payment",
		Collection: changefeed.CollectionPaymentTransactions,
		Handle:     e.HandleChange,
	}
}
