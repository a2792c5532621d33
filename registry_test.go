package capflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCalculateAllEmployeeTotalCost(t *testing.T) {
	r := NewRegistry()
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Dev", start, 120000)
	require.NoError(t, err)

	results := r.CalculateAll(emp, CalculationContext{AsOf: start})
	require.Contains(t, results, "total_cost")
	assert.InDelta(t, emp.TotalCost(start, true), results["total_cost"], 0.01)
}

func TestRegistryCalculateAllSkipsFailingCalculator(t *testing.T) {
	r := NewRegistry()
	r.Register(KindEmployee, "total_cost", func(e Entity, ctx CalculationContext) (float64, error) {
		return 0, errInternal("deliberate failure")
	})

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Dev", start, 100000)
	require.NoError(t, err)

	results := r.CalculateAll(emp, CalculationContext{AsOf: start})
	assert.NotContains(t, results, "total_cost")
}

func TestRegistryCalculateAllIsolatesPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(KindEmployee, "total_cost", func(e Entity, ctx CalculationContext) (float64, error) {
		panic("boom")
	})

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Dev", start, 100000)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		results := r.CalculateAll(emp, CalculationContext{AsOf: start})
		assert.Empty(t, results)
	})
}

func TestCalculatorNamesPerKind(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"total_cost"}, r.CalculatorNames(KindEmployee))
	assert.Equal(t, []string{"depreciation", "maintenance", "one_time"}, r.CalculatorNames(KindEquipment))
	assert.Nil(t, r.CalculatorNames(KindShareholder))
}

func TestRegistryGetMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get(KindShareClass, "ownership_percentage")
	assert.False(t, ok, "ownership_percentage is intentionally handled by captable.go, not the registry")
}

func TestEquipmentOneTimeRecognizesCostOnlyInPurchaseMonth(t *testing.T) {
	r := NewRegistry()
	start := mustDate(t, "2026-03-01")
	eq, err := NewEquipment("Server Rack", start, 12000, 5)
	require.NoError(t, err)

	calc, ok := r.Get(KindEquipment, "one_time")
	require.True(t, ok)

	purchaseMonth, err := calc(eq, CalculationContext{AsOf: start})
	require.NoError(t, err)
	assert.InDelta(t, 12000, purchaseMonth, 0.01)

	laterMonth, err := calc(eq, CalculationContext{AsOf: mustDate(t, "2026-04-01")})
	require.NoError(t, err)
	assert.InDelta(t, 0, laterMonth, 0.01)
}
