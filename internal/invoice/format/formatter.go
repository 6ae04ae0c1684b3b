package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var tokenRe = regexp.MustCompile(`\{([A-Z]+)(\d*)\}`)

const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}{DD}-{TXN6}"

// FormatNumber formats a human-readable invoice number
// based on a template, invoice issue time, and the transaction id.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
//
// Tokens are resolved in a single pass over the template, so braces inside
// the transaction id are copied through as literal text.
func FormatNumber(
	template string,
	issuedAt time.Time,
	txnID string,
) (string, error) {

	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}

	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return "", fmt.Errorf("invoice transaction id is empty")
	}

	// Unresolved tokens and stray braces are template errors
	if rest := tokenRe.ReplaceAllString(template, ""); strings.ContainsAny(rest, "{}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", template)
	}

	var unknown string
	out := tokenRe.ReplaceAllStringFunc(template, func(m string) string {
		match := tokenRe.FindStringSubmatch(m)
		value, ok := resolveToken(match[1], match[2], issuedAt, txnID)
		if !ok && unknown == "" {
			unknown = m
		}
		return value
	})
	if unknown != "" {
		return "", fmt.Errorf("unresolved token in invoice format: %s", unknown)
	}

	return out, nil
}

func resolveToken(name, digits string, issuedAt time.Time, txnID string) (string, bool) {
	if digits == "" {
		switch name {
		case "YYYY":
			return issuedAt.Format("2006"), true
		case "YY":
			return issuedAt.Format("06"), true
		case "MM":
			return issuedAt.Format("01"), true
		case "DD":
			return issuedAt.Format("02"), true
		case "TXN":
			return strings.ToUpper(txnID), true
		}
		return "", false
	}

	// Transaction id suffix
	width, err := strconv.Atoi(digits)
	if name != "TXN" || err != nil || width <= 0 {
		return "", false
	}
	return TxnSuffix(txnID, width), true
}

// TxnSuffix returns the last n characters of txnID uppercased. Ids shorter
// than n are used whole.
func TxnSuffix(txnID string, n int) string {
	runes := []rune(strings.TrimSpace(txnID))
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return strings.ToUpper(string(runes))
}
