package capflow

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDistributionSampleIsReproducibleWithSameSeed(t *testing.T) {
	d := Distribution{Type: DistNormal, Params: map[string]float64{"mean": 100, "std": 10}}
	a := d.Sample(rand.New(rand.NewSource(42)))
	b := d.Sample(rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestDistributionUniformStaysInBounds(t *testing.T) {
	d := Distribution{Type: DistUniform, Params: map[string]float64{"low": 5, "high": 10}}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		v := d.Sample(rng)
		assert.GreaterOrEqual(t, v, 5.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestDistributionUnknownTypeReturnsZero(t *testing.T) {
	d := Distribution{Type: "unknown"}
	assert.Equal(t, 0.0, d.Sample(rand.New(rand.NewSource(1))))
}

func TestUncertaintyModelApplyToEntityDoesNotMutateOriginal(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	sale, err := NewSale("Deal", start, 1000)
	require.NoError(t, err)

	u := UncertaintyModel{EntityName: "Deal", EntityKind: KindSale, Field: "amount", Distribution: Distribution{Type: DistNormal, Params: map[string]float64{"mean": 1000, "std": 50}}}
	adjusted := u.ApplyToEntity(sale, rand.New(rand.NewSource(7))).(*Sale)

	assert.InDelta(t, 1000, sale.Amount, 0.01)
	assert.NotEqual(t, sale.Amount, adjusted.Amount)
}

func TestUncertaintyModelAppliesSalaryField(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Eng", start, 100000)
	require.NoError(t, err)

	u := UncertaintyModel{EntityName: "Eng", EntityKind: KindEmployee, Field: "salary", Distribution: Distribution{Type: DistNormal, Params: map[string]float64{"mean": 100000, "std": 10000}}}
	a := u.ApplyToEntity(emp, rand.New(rand.NewSource(1))).(*Employee)
	b := u.ApplyToEntity(emp, rand.New(rand.NewSource(2))).(*Employee)

	assert.InDelta(t, 100000, emp.Salary, 0.01, "original must not be mutated")
	assert.NotEqual(t, a.Salary, b.Salary, "different draws must produce different salaries")
}

func TestSetCorrelationMatrixRejectsNonPositiveDefinite(t *testing.T) {
	sim := NewMonteCarloSimulator(nil)
	bad := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	err := sim.SetCorrelationMatrix(bad)
	require.Error(t, err)
}

func TestSetCorrelationMatrixAcceptsPositiveDefinite(t *testing.T) {
	sim := NewMonteCarloSimulator(nil)
	good := mat.NewSymDense(2, []float64{1, 0.3, 0.3, 1})
	err := sim.SetCorrelationMatrix(good)
	require.NoError(t, err)
}

func TestMonteCarloRunAggregatesAcrossIterations(t *testing.T) {
	store := newTestStore(t)
	eng := &CashFlowEngine{
		store:      store,
		eventStore: NewEventStore(store),
		registry:   NewRegistry(),
		cache:      NewFrameCache(8),
		config:     EngineConfig{MaxParallel: 4, CacheCapacity: 8, StartingCash: 100000},
	}
	start := mustDate(t, "2026-01-01")
	sale, err := NewSale("Deal", start, 10000)
	require.NoError(t, err)
	require.NoError(t, eng.AddEntity("sale-1", sale))

	sim := NewMonteCarloSimulator(eng)
	sim.AddUncertainty(UncertaintyModel{
		EntityName:   "Deal",
		EntityKind:   KindSale,
		Field:        "amount",
		Distribution: Distribution{Type: DistNormal, Params: map[string]float64{"mean": 10000, "std": 1000}},
	})

	end := start.AddDate(0, 1, 0)
	out, err := sim.Run(t.Context(), start, end, nil, 20, 4, 99)
	require.NoError(t, err)
	require.Contains(t, out.Metrics, "final_cash_balance")
	assert.NotZero(t, out.Metrics["final_cash_balance"].Mean)
}

func TestPercentileOfSortedValues(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 3, percentileOf(sorted, 50), 0.01)
	assert.InDelta(t, 1, percentileOf(sorted, 0), 0.01)
	assert.InDelta(t, 5, percentileOf(sorted, 100), 0.01)
}
