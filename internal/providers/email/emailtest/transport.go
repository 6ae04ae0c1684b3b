// Package emailtest provides an in-memory email.Transport for tests.
package emailtest

import (
	"context"
	"sync"

	"github.com/smallbiznis/ticketflow/internal/providers/email"
)

type Transport struct {
	mu   sync.Mutex
	sent []email.Mail
	Err  error

	// OnSend runs before delivery; a non-nil result fails the send.
	OnSend func(ctx context.Context) error
}

func (t *Transport) Send(ctx context.Context, mail email.Mail) error {
	if t.OnSend != nil {
		if err := t.OnSend(ctx); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.sent = append(t.sent, mail)
	return nil
}

func (t *Transport) Sent() []email.Mail {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]email.Mail, len(t.sent))
	copy(out, t.sent)
	return out
}
