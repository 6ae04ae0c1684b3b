package email

import (
	"context"
	"errors"
)

var (
	ErrNoRecipient       = errors.New("email_no_recipient")
	ErrInvalidAttachment = errors.New("email_invalid_attachment")
)

// Attachment carries base64 encoded content, as stored on the mail queue.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type Mail struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Transport interface {
	Send(ctx context.Context, mail Mail) error
}

type NoOpTransport struct{}

func (NoOpTransport) Send(ctx context.Context, mail Mail) error {
	return nil
}
