package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber_Default(t *testing.T) {
	issuedAt := time.Date(2025, time.March, 7, 15, 4, 0, 0, time.UTC)

	got, err := FormatNumber(DefaultInvoiceNumberTemplate, issuedAt, "pay_abc123xyz789")
	require.NoError(t, err)
	assert.Equal(t, "INV-20250307-XYZ789", got)
}

func TestFormatNumber_Deterministic(t *testing.T) {
	issuedAt := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)

	first, err := FormatNumber(DefaultInvoiceNumberTemplate, issuedAt, "txn-0001-aBcDeF")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := FormatNumber(DefaultInvoiceNumberTemplate, issuedAt.Add(-time.Hour), "txn-0001-aBcDeF")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "INV-20251231-ABCDEF", first)
}

func TestFormatNumber_ShortTxnID(t *testing.T) {
	issuedAt := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

	got, err := FormatNumber(DefaultInvoiceNumberTemplate, issuedAt, "ab1")
	require.NoError(t, err)
	assert.Equal(t, "INV-20240102-AB1", got)
}

func TestFormatNumber_Tokens(t *testing.T) {
	issuedAt := time.Date(2026, time.July, 9, 0, 0, 0, 0, time.UTC)

	got, err := FormatNumber("R/{YY}/{MM}/{TXN}/{TXN3}", issuedAt, "order42")
	require.NoError(t, err)
	assert.Equal(t, "R/26/07/ORDER42/R42", got)
}

func TestFormatNumber_Errors(t *testing.T) {
	issuedAt := time.Now()

	_, err := FormatNumber("", issuedAt, "txn")
	assert.Error(t, err)

	_, err = FormatNumber(DefaultInvoiceNumberTemplate, issuedAt, "  ")
	assert.Error(t, err)

	_, err = FormatNumber("INV-{SEQ}", issuedAt, "txn")
	assert.Error(t, err)

	_, err = FormatNumber("INV-{TXN0}", issuedAt, "txn")
	assert.Error(t, err)

	_, err = FormatNumber("INV-{YYYY", issuedAt, "txn")
	assert.Error(t, err)
}

func TestFormatNumber_BracesInTxnID(t *testing.T) {
	issuedAt := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	got, err := FormatNumber(DefaultInvoiceNumberTemplate, issuedAt, "pay_{ab}cd")
	require.NoError(t, err)
	assert.Equal(t, "INV-20250307-{AB}CD", got)

	got, err = FormatNumber("{TXN}-{DD}", issuedAt, "x{MM}")
	require.NoError(t, err)
	assert.Equal(t, "X{MM}-07", got)
}
