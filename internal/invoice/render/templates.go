package render

const layoutHTML = `{{define "layout"}}<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Heading}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .card {
      background: #ffffff;
      max-width: 600px;
      margin: 0 auto;
      border-radius: 6px;
      overflow: hidden;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
    }
    .banner {
      background: {{.PrimaryColor}};
      color: #ffffff;
      padding: 24px 32px;
    }
    .banner h1 { margin: 0; font-size: 20px; }
    .banner p { margin: 4px 0 0; opacity: 0.85; font-size: 13px; }
    .content { padding: 32px; font-size: 14px; line-height: 1.6; }
    .accent { color: {{.AccentColor}}; font-weight: 600; }
    table.summary { width: 100%; border-collapse: collapse; margin: 16px 0; }
    table.summary td { padding: 8px 0; border-bottom: 1px solid #e3e8ee; }
    table.summary td.value { text-align: right; font-weight: 600; }
    table.summary tr.total td { border-bottom: none; font-size: 16px; }
    .code {
      font-size: 28px;
      letter-spacing: 8px;
      font-weight: 700;
      text-align: center;
      padding: 16px;
      background: #f7f9fc;
      border-radius: 4px;
    }
    .footer { padding: 16px 32px 24px; color: #8792a2; font-size: 12px; }
  </style>
</head>
<body>
  <div class="card">
    <div class="banner">
      <h1>{{.AppName}}</h1>
      <p>{{.Heading}}</p>
    </div>
    <div class="content">
      {{template "content" .}}
    </div>
    <div class="footer">
      {{.Company.Name}}{{if .Company.Address}} &middot; {{.Company.Address}}{{end}}
      {{if .Company.Email}}<br />Questions? Write to {{.Company.Email}}{{end}}
      {{if .Company.Website}}<br />{{.Company.Website}}{{end}}
    </div>
  </div>
</body>
</html>{{end}}`

const receiptContentHTML = `{{define "content"}}
<p>Hi{{if .Data.PayerName}} {{.Data.PayerName}}{{end}},</p>
<p>Thank you for your payment. Your <span class="accent">{{.Data.PlanName}}</span> plan is active until <strong>{{date .Data.PeriodEnd}}</strong>. Your receipt is attached to this email.</p>
<table class="summary">
  <tr><td>Invoice number</td><td class="value">{{.Data.Number}}</td></tr>
  <tr><td>Invoice date</td><td class="value">{{date .Data.IssuedAt}}</td></tr>
  <tr><td>Billing period</td><td class="value">{{date .Data.PeriodStart}} - {{date .Data.PeriodEnd}}</td></tr>
  {{if .Data.PaymentMethod}}<tr><td>Payment method</td><td class="value">{{.Data.PaymentMethod}}</td></tr>{{end}}
  <tr><td>Reference</td><td class="value">{{.Data.Reference}}</td></tr>
  <tr><td>Subtotal</td><td class="value">{{money .Data.Amounts.Base .Data.Currency}}</td></tr>
  <tr><td>Tax ({{.Data.Amounts.RatePercent}})</td><td class="value">{{money .Data.Amounts.Tax .Data.Currency}}</td></tr>
  <tr class="total"><td>Total paid</td><td class="value">{{money .Data.Amounts.Total .Data.Currency}}</td></tr>
</table>
{{end}}`

const expiryContentHTML = `{{define "content"}}
<p>Hello,</p>
<p>Your <span class="accent">{{.Data.PlanName}}</span> subscription expires in <strong>{{.Data.DaysLeft}} days</strong>, on {{date .Data.ExpiresAt}}.</p>
<p>Renew before then to keep uninterrupted access to {{.AppName}}.</p>
{{end}}`

const activeContentHTML = `{{define "content"}}
<p>Hello,</p>
<p>This is your monthly confirmation that your <span class="accent">{{.Data.PlanName}}</span>{{if .Data.CycleLabel}} ({{.Data.CycleLabel}}){{end}} subscription is active.</p>
<table class="summary">
  <tr><td>Active since</td><td class="value">{{date .Data.StartedAt}}</td></tr>
  <tr class="total"><td>Valid until</td><td class="value">{{date .Data.ExpiresAt}}</td></tr>
</table>
{{end}}`

const codeContentHTML = `{{define "content"}}
<p>Use the code below to continue signing in to {{.AppName}}.</p>
<div class="code">{{.Data.Code}}</div>
<p>The code expires at {{datetime .Data.ExpiresAt}}. If you did not request it, you can ignore this email.</p>
{{end}}`
