package changefeed

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the Recorder used by document writers.
var Module = fx.Module("changefeed",
	fx.Provide(NewRecorder),
)

// WorkerModule relays the outbox onto an in-process bus and runs the router.
var WorkerModule = fx.Module("changefeed.worker",
	fx.Provide(
		NewLoggerAdapter,
		NewBus,
		func(b *gochannel.GoChannel) message.Publisher { return b },
		func(b *gochannel.GoChannel) message.Subscriber { return b },
		NewRelay,
		NewRouter,
	),
	fx.Invoke(runWorker),
)

// AsHandler annotates a constructor returning Handler for the router group.
func AsHandler(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"changefeed.handlers"`))
}

// NewBus returns an in-memory pub/sub that blocks publishers until every
// subscriber has acked, so the relay marks a row only after handlers ran.
func NewBus(adapter watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, adapter)
}

func runWorker(lc fx.Lifecycle, router *Router, relay *Relay, bus *gochannel.GoChannel, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			go func() {
				if err := router.Run(ctx); err != nil {
					log.Error("changefeed.router.stopped", zap.Error(err))
				}
			}()
			select {
			case <-router.Running():
			case <-startCtx.Done():
				return startCtx.Err()
			case <-time.After(10 * time.Second):
				log.Warn("changefeed.router.slow_start")
			}
			log.Info("changefeed.worker.started", zap.Strings("handlers", router.Handlers()))
			go relay.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if err := router.Close(); err != nil {
				log.Warn("changefeed.router.close_failed", zap.Error(err))
			}
			return bus.Close()
		},
	})
}
