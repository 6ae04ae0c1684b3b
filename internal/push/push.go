package push

import (
	"context"
	"errors"
	"strings"
)

// ErrTokenUnregistered marks a device token the transport will never accept
// again. Every other send error is transient.
var ErrTokenUnregistered = errors.New("token_unregistered")

const (
	AndroidChannelID = "high_importance_channel"
	APNsSound        = "default"
)

type Notification struct {
	Title string
	Body  string
}

type Message struct {
	Token        string
	Notification Notification
	Data         map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// IsPermanent reports whether err means the token should be pruned.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrTokenUnregistered)
}

// Redact shortens a device token for logging.
func Redact(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 10 {
		return "***"
	}
	return token[:10] + "..."
}
