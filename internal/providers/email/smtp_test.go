package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransport() *SMTPTransport {
	return NewSMTP(Config{Host: "localhost", Port: 2525, From: "billing@example.com", FromName: "Billing"})
}

func TestWriteToIncludesAttachment(t *testing.T) {
	var buf bytes.Buffer
	err := testTransport().WriteTo(&buf, Mail{
		To:      "payer@example.com",
		Subject: "Your receipt",
		HTML:    "<p>Thanks</p>",
		Attachments: []Attachment{{
			Filename:    "invoice-inv-20250501-abc123.pdf",
			Content:     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
			ContentType: "application/pdf",
		}},
	})
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "To: payer@example.com")
	assert.Contains(t, raw, "Subject: Your receipt")
	assert.Contains(t, raw, "invoice-inv-20250501-abc123.pdf")
	assert.Contains(t, raw, "application/pdf")
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := testTransport().build(Mail{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = testTransport().build(Mail{To: "a@example.com", Attachments: []Attachment{{Filename: "f", Content: "%%%"}}})
	assert.ErrorIs(t, err, ErrInvalidAttachment)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := testTransport().Send(ctx, Mail{To: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
