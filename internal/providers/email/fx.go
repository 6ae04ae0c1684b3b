package email

import (
	"time"

	"github.com/smallbiznis/ticketflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Transport {
	if cfg.SMTP.Host == "" {
		log.Warn("email.transport.noop", zap.String("reason", "SMTP_HOST not set"))
		return NoOpTransport{}
	}
	return NewSMTP(Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		Timeout:  30 * time.Second,
	})
}
