package render

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/ticketflow/internal/config"
	invoicedomain "github.com/smallbiznis/ticketflow/internal/invoice/domain"
	"github.com/smallbiznis/ticketflow/internal/providers/pdf"
)

// ReceiptDocument maps a receipt onto the PDF layout: one line item priced
// at the taxable base with the gross as its line total.
func ReceiptDocument(policy config.Policy, receipt invoicedomain.Receipt) pdf.Receipt {
	loc := policy.Location()
	currency := receipt.Currency
	if currency == "" {
		currency = policy.Currency
	}

	description := planOrDefault(receipt.PlanName)
	if receipt.CycleLabel != "" {
		description = fmt.Sprintf("%s (%s)", description, receipt.CycleLabel)
	}

	period := ""
	if !receipt.PeriodStart.IsZero() {
		period = fmt.Sprintf("%s - %s", formatDate(receipt.PeriodStart.In(loc)), formatDate(receipt.PeriodEnd.In(loc)))
	}

	return pdf.Receipt{
		Title:         "TAX INVOICE / RECEIPT",
		InvoiceNumber: receipt.Number,
		IssueDate:     formatDate(receipt.IssuedAt.In(loc)),
		ServicePeriod: period,
		PaymentMethod: receipt.PaymentMethod,
		Reference:     receipt.Reference(),
		Issuer: pdf.Party{
			Name:    policy.Company.Name,
			Address: policy.Company.Address,
			Email:   policy.Company.Email,
			Phone:   policy.Company.Phone,
			TaxID:   policy.Company.TaxID,
		},
		Payer: pdf.Party{
			Name:  receipt.PayerName,
			Email: receipt.PayerEmail,
		},
		Items: []pdf.LineItem{{
			Description: description,
			Qty:         1,
			UnitPrice:   formatMoney(receipt.Amounts.Base, currency),
			TaxRate:     receipt.Amounts.RatePercent(),
			Amount:      formatMoney(receipt.Amounts.Total, currency),
		}},
		Subtotal:     formatMoney(receipt.Amounts.Base, currency),
		TaxLabel:     fmt.Sprintf("Tax (%s)", receipt.Amounts.RatePercent()),
		Tax:          formatMoney(receipt.Amounts.Tax, currency),
		Total:        formatMoney(receipt.Amounts.Total, currency),
		PrimaryColor: sanitizeColor(policy.Brand.PrimaryColor, "#1E3A8A"),
		Footer:       footer(policy),
	}
}

// ReceiptFilename is the attachment name for a receipt PDF.
func ReceiptFilename(invoiceNumber string) string {
	name := slug.Make(invoiceNumber)
	if name == "" {
		name = "receipt"
	}
	return name + ".pdf"
}

func footer(policy config.Policy) string {
	parts := []string{"This is a computer generated receipt."}
	if policy.Company.Website != "" {
		parts = append(parts, policy.Company.Website)
	}
	return strings.Join(parts, " ")
}
