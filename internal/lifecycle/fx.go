package lifecycle

import (
	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"go.uber.org/fx"
)

var Module = fx.Module("lifecycle.engine",
	fx.Provide(NewEngine),
)

var ConsumerModule = fx.Module("lifecycle.consumer",
	fx.Provide(changefeed.AsHandler(func(e *Engine) changefeed.Handler {
		return e.Registration()
	})),
)
