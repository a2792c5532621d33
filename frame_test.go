package capflow

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAggregateEntityBucketsByKind(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Dev", start, 120000)
	require.NoError(t, err)

	var result MonthlyResult
	calc := map[string]float64{"total_cost": 10000}
	aggregateEntity(&result, emp, calc)

	assert.InDelta(t, 10000, result.EmployeeCosts, 0.01)
	assert.Equal(t, 1, result.ActiveEmployees)
}

func TestAddCumulativeCalculations(t *testing.T) {
	frame := &Frame{
		StartingCash: 100000,
		Rows: []MonthlyResult{
			{SalesRevenue: 20000, EmployeeCosts: 15000, ActiveEmployees: 2},
			{SalesRevenue: 10000, EmployeeCosts: 15000, ActiveEmployees: 2},
		},
	}
	frame.AddCumulativeCalculations()

	assert.InDelta(t, 5000, frame.Rows[0].NetCashFlow, 0.01)
	assert.InDelta(t, -5000, frame.Rows[1].NetCashFlow, 0.01)
	assert.InDelta(t, 0, frame.Rows[1].CumulativeCashFlow, 0.01)
	assert.InDelta(t, 100000, frame.Rows[1].CashBalance, 0.01)
	assert.InDelta(t, -50, frame.Rows[1].RevenueGrowthRate, 0.01)
}

func TestAddCumulativeCalculationsEmptyFrame(t *testing.T) {
	frame := &Frame{StartingCash: 500}
	frame.AddCumulativeCalculations()
	assert.Empty(t, frame.Rows)
}

func TestCashFlowEngineCalculate(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{
		store:      store,
		eventStore: NewEventStore(store),
		registry:   NewRegistry(),
		cache:      NewFrameCache(8),
		config:     DefaultEngineConfig(),
	}

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Engineer", start, 120000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("emp-1", emp))

	sale, err := NewSale("Big deal", start, 50000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("sale-1", sale))

	end := start.AddDate(0, 2, 0)
	frame, err := eng.Calculate(t.Context(), start, end, nil)
	require.NoError(t, err)
	require.Len(t, frame.Rows, 3)

	assert.InDelta(t, 50000, frame.Rows[0].SalesRevenue, 0.01)
	assert.InDelta(t, 10000, frame.Rows[0].EmployeeCosts, 0.01)
	assert.InDelta(t, 0, frame.Rows[1].SalesRevenue, 0.01)
}

func TestCashFlowEngineRejectsInvertedRange(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{store: store, eventStore: NewEventStore(store), registry: NewRegistry(), cache: NewFrameCache(8), config: DefaultEngineConfig()}

	start := mustDate(t, "2026-06-01")
	end := mustDate(t, "2026-01-01")
	_, err := eng.Calculate(t.Context(), start, end, nil)
	require.Error(t, err)
	var domainErr DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, BadRange, domainErr.Kind)
}

func TestGenerateMonthlyPeriods(t *testing.T) {
	start := mustDate(t, "2026-01-15")
	end := mustDate(t, "2026-03-01")
	periods := generateMonthlyPeriods(start, end)
	require.Len(t, periods, 3)
	assert.Equal(t, 1, periods[0].Day())
	assert.Equal(t, time.January, periods[0].Month())
	assert.Equal(t, time.March, periods[2].Month())
}
