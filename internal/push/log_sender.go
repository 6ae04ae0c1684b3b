package push

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes pushes to the log instead of a device.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("push.log")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("push.log.sent",
		zap.String("token", Redact(msg.Token)),
		zap.String("title", msg.Notification.Title),
		zap.String("type", msg.Data["type"]),
	)
	return nil
}
