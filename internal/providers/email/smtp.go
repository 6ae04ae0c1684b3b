package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	mail "gopkg.in/mail.v2"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

type SMTPTransport struct {
	cfg    Config
	dialer *mail.Dialer
}

func NewSMTP(cfg Config) *SMTPTransport {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		dialer.Timeout = cfg.Timeout
	}
	return &SMTPTransport{cfg: cfg, dialer: dialer}
}

func (t *SMTPTransport) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := t.build(m)
	if err != nil {
		return err
	}
	return t.dialer.DialAndSend(msg)
}

func (t *SMTPTransport) build(m Mail) (*mail.Message, error) {
	to := strings.TrimSpace(m.To)
	if to == "" {
		return nil, ErrNoRecipient
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", t.cfg.From, t.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	for _, att := range m.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAttachment, att.Filename, err)
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		msg.AttachReader(att.Filename, bytes.NewReader(content),
			mail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return msg, nil
}

// WriteTo renders m as a MIME message without sending it.
func (t *SMTPTransport) WriteTo(w io.Writer, m Mail) error {
	msg, err := t.build(m)
	if err != nil {
		return err
	}
	_, err = msg.WriteTo(w)
	return err
}
