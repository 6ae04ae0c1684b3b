package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) RenderReceipt(ctx context.Context, receipt Receipt) ([]byte, error) {
	if strings.TrimSpace(receipt.InvoiceNumber) == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrInvalidReceipt)
	}
	if len(receipt.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrInvalidReceipt)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	accent := parseHexColor(receipt.PrimaryColor)

	title := receipt.Title
	if title == "" {
		title = "Tax Invoice"
	}
	m.AddRow(20,
		text.NewCol(8, receipt.Issuer.Name, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Color: accent,
		}),
		text.NewCol(4, title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(receipt.Issuer.Address, props.Text{Size: 9}),
			text.New(receipt.Issuer.Email, props.Text{Size: 9, Top: 5}),
			text.New(receipt.Issuer.Phone, props.Text{Size: 9, Top: 10}),
			text.New(taxIDLine(receipt.Issuer.TaxID), props.Text{Size: 9, Top: 15}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+receipt.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+receipt.IssueDate, props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Service period: "+receipt.ServicePeriod, props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Payment: "+receipt.PaymentMethod, props.Text{Size: 9, Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(24,
		col.New(12).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(receipt.Payer.Name, props.Text{Size: 9, Top: 5}),
			text.New(receipt.Payer.Email, props.Text{Size: 9, Top: 10}),
			text.New("Reference: "+receipt.Reference, props.Text{Size: 9, Top: 15}),
		),
	)

	m.AddRow(4, line.NewCol(12))
	m.AddRow(8,
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Tax", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, item := range receipt.Items {
		m.AddRow(8,
			text.NewCol(4, item.Description, props.Text{Size: 9}),
			text.NewCol(1, strconv.Itoa(item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.TaxRate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12))

	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, receipt.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, receipt.TaxLabel, props.Text{Size: 9}),
		text.NewCol(2, receipt.Tax, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, receipt.Total, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	if receipt.Footer != "" {
		m.AddRow(15,
			text.NewCol(12, receipt.Footer, props.Text{Size: 8, Top: 6, Align: align.Center}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate receipt pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func taxIDLine(taxID string) string {
	if taxID == "" {
		return ""
	}
	return "Tax ID: " + taxID
}

// parseHexColor accepts #RRGGBB; anything else renders black.
func parseHexColor(hex string) *props.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return nil
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil
	}
	return &props.Color{
		Red:   int(v >> 16 & 0xff),
		Green: int(v >> 8 & 0xff),
		Blue:  int(v & 0xff),
	}
}
