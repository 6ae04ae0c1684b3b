package providers

import (
	"github.com/smallbiznis/ticketflow/internal/providers/email"
	"github.com/smallbiznis/ticketflow/internal/providers/pdf"
	"github.com/smallbiznis/ticketflow/internal/push"
	"go.uber.org/fx"
)

// Module wires the outbound transports: SMTP, PDF rendering and push.
var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	push.Module,
)
