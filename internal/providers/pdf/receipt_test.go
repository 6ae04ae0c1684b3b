package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() Receipt {
	return Receipt{
		InvoiceNumber: "INV-20250501-ABC123",
		IssueDate:     "01 May 2025",
		ServicePeriod: "01 May 2025 - 01 Jun 2025",
		PaymentMethod: "UPI",
		Reference:     "M-991",
		Issuer:        Party{Name: "Ticketflow", Email: "billing@example.com"},
		Payer:         Party{Name: "Acme", Email: "ops@acme.test"},
		Items: []LineItem{{
			Description: "Pro plan",
			Qty:         1,
			UnitPrice:   "INR 1000.00",
			TaxRate:     "18%",
			Amount:      "INR 1180.00",
		}},
		Subtotal:     "INR 1000.00",
		TaxLabel:     "VAT (18%)",
		Tax:          "INR 180.00",
		Total:        "INR 1180.00",
		PrimaryColor: "#1E3A8A",
	}
}

func TestRenderReceiptProducesPDF(t *testing.T) {
	doc, err := New().RenderReceipt(context.Background(), sampleReceipt())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestRenderReceiptValidates(t *testing.T) {
	r := sampleReceipt()
	r.InvoiceNumber = ""
	_, err := New().RenderReceipt(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	r = sampleReceipt()
	r.Items = nil
	_, err = New().RenderReceipt(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestParseHexColor(t *testing.T) {
	c := parseHexColor("#1E3A8A")
	require.NotNil(t, c)
	assert.Equal(t, 0x1E, c.Red)
	assert.Equal(t, 0x3A, c.Green)
	assert.Equal(t, 0x8A, c.Blue)
	assert.Nil(t, parseHexColor("blue"))
}
