package capflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateScenarioEmitsScenarioRunEvent(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	start := mustDate(t, "2026-01-01")
	sale, err := NewSale("Deal", start, 10000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("sale-1", sale))

	manager := NewScenarioManager()
	end := start.AddDate(0, 1, 0)
	_, err = eng.CalculateScenario(t.Context(), start, end, manager, "optimistic")
	require.NoError(t, err)

	events, err := eng.eventStore.GetEvents(start.AddDate(0, 0, -1), start.AddDate(1, 0, 0))
	require.NoError(t, err)

	found := false
	for _, e := range events {
		if e.EventType == EventScenarioRun {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompareScenariosRunsEveryNamed(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	start := mustDate(t, "2026-01-01")
	sale, err := NewSale("Deal", start, 10000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("sale-1", sale))

	manager := NewScenarioManager()
	end := start.AddDate(0, 1, 0)
	frames, err := eng.CompareScenarios(t.Context(), start, end, manager, []string{"baseline", "optimistic"})
	require.NoError(t, err)
	assert.Contains(t, frames, "baseline")
	assert.Contains(t, frames, "optimistic")
}

func TestCompareScenariosPropagatesUnknownName(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	manager := NewScenarioManager()
	start := mustDate(t, "2026-01-01")
	end := start.AddDate(0, 1, 0)
	_, err := eng.CompareScenarios(t.Context(), start, end, manager, []string{"nonexistent"})
	require.Error(t, err)
}

func TestAddEntityClearsCacheForSubsequentCalculate(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	start := mustDate(t, "2026-01-01")
	end := start.AddDate(0, 1, 0)

	first, err := eng.Calculate(t.Context(), start, end, nil)
	require.NoError(t, err)
	assert.Zero(t, first.Rows[0].SalesRevenue)

	sale, err := NewSale("Deal", start, 5000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("sale-1", sale))

	second, err := eng.Calculate(t.Context(), start, end, nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "AddEntity must invalidate the cache")
	assert.InDelta(t, 5000, second.Rows[0].SalesRevenue, 0.01)
}

func TestCalculateAppliesHiringDelayBeforeActivityCheck(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	// Employee starts Jan 31; a -30 day hiring delay shifts start_date back
	// to Jan 1, so they must show up as active in a January-only Calculate
	// window. Checking is_active against the original, unadjusted start
	// date would exclude them entirely (Jan 31 is after the Jan 1 period).
	empStart := mustDate(t, "2026-01-31")
	emp, err := NewEmployee("Early Hire", empStart, 90000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("emp-1", emp))

	scenario := &Scenario{Assumptions: Assumptions{HiringDelayMonths: -1}}
	janStart := mustDate(t, "2026-01-01")
	janEnd := janStart
	frame, err := eng.Calculate(t.Context(), janStart, janEnd, scenario)
	require.NoError(t, err)
	require.Len(t, frame.Rows, 1)
	assert.Equal(t, 1, frame.Rows[0].ActiveEmployees)
}

func TestCalculateCachesFrameByKey(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	start := mustDate(t, "2026-01-01")
	end := start.AddDate(0, 1, 0)
	first, err := eng.Calculate(t.Context(), start, end, nil)
	require.NoError(t, err)

	second, err := eng.Calculate(t.Context(), start, end, nil)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated calls with the same key should hit the cache")
}
