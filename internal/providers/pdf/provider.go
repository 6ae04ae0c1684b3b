package pdf

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

var ErrInvalidReceipt = errors.New("invalid_receipt")

type Renderer interface {
	RenderReceipt(ctx context.Context, receipt Receipt) ([]byte, error)
}

type Party struct {
	Name    string
	Address string
	Email   string
	Phone   string
	TaxID   string
}

type LineItem struct {
	Description string
	Qty         int
	UnitPrice   string
	TaxRate     string
	Amount      string
}

// Receipt carries preformatted values; the renderer does no arithmetic.
type Receipt struct {
	Title         string
	InvoiceNumber string
	IssueDate     string
	ServicePeriod string
	PaymentMethod string
	Reference     string

	Issuer Party
	Payer  Party

	Items []LineItem

	Subtotal string
	TaxLabel string
	Tax      string
	Total    string

	PrimaryColor string
	Footer       string
}
