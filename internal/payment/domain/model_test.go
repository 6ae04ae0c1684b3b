package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepReached(t *testing.T) {
	assert.True(t, StepStamped.Reached(StepReceiptEnqueued))
	assert.True(t, StepStamped.Reached(StepStamped))
	assert.False(t, StepInvoiceNumbered.Reached(StepReceiptEnqueued))
	assert.False(t, StepNone.Reached(StepInvoiceNumbered))
	assert.True(t, StepCompleted.Reached(StepInvoiceNumbered))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	_, err = ParseStatus("REFUNDED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
