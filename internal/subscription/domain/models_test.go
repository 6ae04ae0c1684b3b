package domain

import (
	"testing"
	"time"

	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCycleFromFlags(t *testing.T) {
	assert.Equal(t, CycleYearly, CycleFromFlags(true, false))
	assert.Equal(t, CycleYearly, CycleFromFlags(true, true))
	assert.Equal(t, CycleSixMonths, CycleFromFlags(false, true))
	assert.Equal(t, CycleMonthly, CycleFromFlags(false, false))
}

func TestPeriod(t *testing.T) {
	policy := config.DefaultPolicy()
	start := time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

	cases := map[Cycle]time.Time{
		CycleMonthly:   time.Date(2025, time.April, 15, 10, 30, 0, 0, time.UTC),
		CycleSixMonths: time.Date(2025, time.September, 15, 10, 30, 0, 0, time.UTC),
		CycleYearly:    time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC),
	}
	for cycle, want := range cases {
		gotStart, gotEnd := Period(start, cycle, policy)
		assert.True(t, gotStart.Equal(start), cycle)
		assert.True(t, gotEnd.Equal(want), "%s: %s", cycle, gotEnd)
	}
}

func TestPeriodUsesPolicyMonths(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Cycles.Monthly = 2
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, end := Period(start, CycleMonthly, policy)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestCycleLongTerm(t *testing.T) {
	assert.False(t, CycleMonthly.LongTerm())
	assert.True(t, CycleSixMonths.LongTerm())
	assert.True(t, CycleYearly.LongTerm())
}
