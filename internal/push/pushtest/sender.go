// Package pushtest provides an in-memory push.Sender for tests.
package pushtest

import (
	"context"
	"sync"

	"github.com/smallbiznis/ticketflow/internal/push"
)

type Sender struct {
	mu       sync.Mutex
	sent     []push.Message
	failures map[string]error
}

func NewSender() *Sender {
	return &Sender{failures: map[string]error{}}
}

// FailToken makes every send to token return err.
func (s *Sender) FailToken(token string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[token] = err
}

func (s *Sender) Send(ctx context.Context, msg push.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[msg.Token]; ok {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *Sender) Sent() []push.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]push.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// SentTo returns the messages delivered to token.
func (s *Sender) SentTo(token string) []push.Message {
	var out []push.Message
	for _, msg := range s.Sent() {
		if msg.Token == token {
			out = append(out, msg)
		}
	}
	return out
}
