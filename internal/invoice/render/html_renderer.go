package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ticketflow/internal/config"
	invoicedomain "github.com/smallbiznis/ticketflow/internal/invoice/domain"
)

var (
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Email is a rendered subject and HTML body.
type Email struct {
	Subject string
	HTML    string
}

type Renderer interface {
	ReceiptEmail(policy config.Policy, receipt invoicedomain.Receipt) (Email, error)
	ExpiryReminderEmail(policy config.Policy, reminder invoicedomain.ExpiryReminder) (Email, error)
	ActiveNoticeEmail(policy config.Policy, notice invoicedomain.ActiveNotice) (Email, error)
	OneTimeCodeEmail(policy config.Policy, code invoicedomain.OneTimeCode) (Email, error)
}

type view struct {
	AppName      string
	Heading      string
	PrimaryColor string
	AccentColor  string
	Company      config.Company
	Data         any
}

type HTMLRenderer struct {
	receipt *template.Template
	expiry  *template.Template
	active  *template.Template
	code    *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"money":    formatMoney,
		"date":     formatDate,
		"datetime": formatDateTime,
	}
	layout := template.Must(template.New("email").Funcs(funcs).Parse(layoutHTML))
	page := func(content string) *template.Template {
		return template.Must(template.Must(layout.Clone()).Parse(content))
	}
	return &HTMLRenderer{
		receipt: page(receiptContentHTML),
		expiry:  page(expiryContentHTML),
		active:  page(activeContentHTML),
		code:    page(codeContentHTML),
	}
}

func (r *HTMLRenderer) ReceiptEmail(policy config.Policy, receipt invoicedomain.Receipt) (Email, error) {
	loc := policy.Location()
	receipt.IssuedAt = receipt.IssuedAt.In(loc)
	receipt.PeriodStart = receipt.PeriodStart.In(loc)
	receipt.PeriodEnd = receipt.PeriodEnd.In(loc)
	if receipt.Currency == "" {
		receipt.Currency = policy.Currency
	}

	subject := fmt.Sprintf("Payment receipt %s", receipt.Number)
	html, err := r.execute(r.receipt, policy, "Payment receipt", receipt)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

func (r *HTMLRenderer) ExpiryReminderEmail(policy config.Policy, reminder invoicedomain.ExpiryReminder) (Email, error) {
	reminder.ExpiresAt = reminder.ExpiresAt.In(policy.Location())

	subject := fmt.Sprintf("Your %s subscription expires in %d days", planOrDefault(reminder.PlanName), reminder.DaysLeft)
	reminder.PlanName = planOrDefault(reminder.PlanName)
	html, err := r.execute(r.expiry, policy, "Subscription expiring soon", reminder)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

func (r *HTMLRenderer) ActiveNoticeEmail(policy config.Policy, notice invoicedomain.ActiveNotice) (Email, error) {
	loc := policy.Location()
	notice.StartedAt = notice.StartedAt.In(loc)
	notice.ExpiresAt = notice.ExpiresAt.In(loc)
	notice.PlanName = planOrDefault(notice.PlanName)

	subject := fmt.Sprintf("Your %s subscription is active", notice.PlanName)
	html, err := r.execute(r.active, policy, "Subscription status", notice)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

func (r *HTMLRenderer) OneTimeCodeEmail(policy config.Policy, code invoicedomain.OneTimeCode) (Email, error) {
	code.ExpiresAt = code.ExpiresAt.In(policy.Location())

	subject := fmt.Sprintf("Your %s verification code", appName(policy))
	html, err := r.execute(r.code, policy, "Verification code", code)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: html}, nil
}

func (r *HTMLRenderer) execute(tpl *template.Template, policy config.Policy, heading string, data any) (string, error) {
	input := view{
		AppName:      appName(policy),
		Heading:      heading,
		PrimaryColor: sanitizeColor(policy.Brand.PrimaryColor, "#1E3A8A"),
		AccentColor:  sanitizeColor(policy.Brand.AccentColor, "#F59E0B"),
		Company:      policy.Company,
		Data:         data,
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", input); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func appName(policy config.Policy) string {
	if name := strings.TrimSpace(policy.Brand.AppName); name != "" {
		return name
	}
	if name := strings.TrimSpace(policy.Company.Name); name != "" {
		return name
	}
	return "Ticketflow"
}

func planOrDefault(plan string) string {
	if plan = strings.TrimSpace(plan); plan != "" {
		return plan
	}
	return "current"
}

func formatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "INR"
	}
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("02 Jan 2006")
}

func formatDateTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("02 Jan 2006 15:04 MST")
}

func sanitizeColor(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return fallback
}
