package capflow

// Monte Carlo simulation driver, grounded on analysis/monte_carlo.py:
// Distribution sampling via gonum's stat/distuv (mapped onto the Python
// original's normal/uniform/triangular/lognormal/beta families),
// uncertainty application onto entity copies, and the percentile/risk
// aggregation the original produces per metric.
//
// Correlation handling deliberately preserves the original's limitation —
// see DESIGN.md Open Question 1: the supplied correlation matrix is
// validated for positive-definiteness via a Cholesky factorization, but
// samples are still drawn independently afterward, exactly like
// _generate_correlated_samples discarding its own correlated draw.

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type DistributionType string

const (
	DistNormal     DistributionType = "normal"
	DistUniform    DistributionType = "uniform"
	DistTriangular DistributionType = "triangular"
	DistLogNormal  DistributionType = "lognormal"
	DistBeta       DistributionType = "beta"
)

// Distribution mirrors the Python Distribution dataclass: a family plus its
// parameters, with a Sample method dispatching to the matching gonum
// distuv type.
type Distribution struct {
	Type   DistributionType
	Params map[string]float64
}

func (d Distribution) Sample(rng *rand.Rand) float64 {
	switch d.Type {
	case DistNormal:
		dist := distuv.Normal{Mu: d.Params["mean"], Sigma: d.Params["std"], Src: rng}
		return dist.Rand()
	case DistUniform:
		dist := distuv.Uniform{Min: d.Params["low"], Max: d.Params["high"], Src: rng}
		return dist.Rand()
	case DistTriangular:
		dist := distuv.Triangle{Min: d.Params["left"], Mode: d.Params["mode"], Max: d.Params["right"], Src: rng}
		return dist.Rand()
	case DistLogNormal:
		dist := distuv.LogNormal{Mu: d.Params["mean"], Sigma: d.Params["sigma"], Src: rng}
		return dist.Rand()
	case DistBeta:
		dist := distuv.Beta{Alpha: d.Params["a"], Beta: d.Params["b"], Src: rng}
		return dist.Rand()
	default:
		return 0
	}
}

// UncertaintyModel mirrors UncertaintyModel: a distribution applied to one
// field of one named entity, optionally grouped for correlation.
type UncertaintyModel struct {
	EntityName       string
	EntityKind       EntityKind
	Field            string
	Distribution     Distribution
	CorrelationGroup string
}

// ApplyToEntity samples the distribution and sets the field on a clone of
// e, mirroring apply_to_entity. Any field setField in scenario.go knows how
// to assign (the full assignField table in fields.go) can be targeted; the
// sampled value replaces the field's value rather than scaling it.
func (u UncertaintyModel) ApplyToEntity(e Entity, rng *rand.Rand) Entity {
	sample := u.Distribution.Sample(rng)
	out := CloneEntity(e)
	setField(out, u.Field, sample)
	return out
}

// MonteCarloSimulator runs repeated Calculate passes over entities with
// sampled uncertainty applied, matching MonteCarloSimulator.run_simulation.
type MonteCarloSimulator struct {
	engine        *CashFlowEngine
	uncertainties []UncertaintyModel
	correlation   *mat.SymDense
}

func NewMonteCarloSimulator(engine *CashFlowEngine) *MonteCarloSimulator {
	return &MonteCarloSimulator{engine: engine}
}

func (m *MonteCarloSimulator) AddUncertainty(u UncertaintyModel) {
	m.uncertainties = append(m.uncertainties, u)
}

// SetCorrelationMatrix validates positive-definiteness via Cholesky and
// stores the matrix for bookkeeping, but — matching the source exactly —
// the matrix is never actually applied to draws. See the file header.
func (m *MonteCarloSimulator) SetCorrelationMatrix(corr *mat.SymDense) error {
	var chol mat.Cholesky
	if ok := chol.Factorize(corr); !ok {
		return errBadState("correlation matrix is not positive definite")
	}
	m.correlation = corr
	return nil
}

type MetricStats struct {
	Percentiles map[int]float64
	Mean        float64
	Std         float64
	Min         float64
	Max         float64
}

type SimulationSummary struct {
	ProbabilityPositiveBalance float64
	ProbabilityRunwayGT12m     float64
	MeanRunwayMonths           float64
	ValueAtRisk5pct            float64
	ExpectedShortfall5pct      float64
}

type RiskMetrics struct {
	ProbabilityOfLoss        float64
	ProbabilityRunwayLT6m    float64
	ProbabilityRunwayLT12m   float64
	ExpectedLossGivenNegative float64
	WorstCase5pct            float64
	BestCase95pct            float64
	Volatility               float64
	SharpeRatio              float64
}

type SimulationOutput struct {
	Metrics map[string]MetricStats
	Summary SimulationSummary
	Risk    RiskMetrics
}

type iterationResult struct {
	finalCashBalance float64
	totalRevenue     float64
	totalExpenses    float64
	netCashFlow      float64
	runwayMonths     float64
	burnRate         float64
}

// Run executes n independent simulation iterations, fanning them out across
// a bounded worker pool (same errgroup+semaphore+recover shape as
// cashflow_engine.go's month fan-out) and aggregating the results. seed
// makes the run reproducible: iteration i draws from a source seeded with
// seed+int64(i).
func (m *MonteCarloSimulator) Run(ctx context.Context, start, end time.Time, scenario *Scenario, n, maxParallel int, seed int64) (*SimulationOutput, error) {
	results := make([]iterationResult, n)
	succeeded := make([]bool, n)

	g, gCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() (err error) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gCtx.Done():
				return gCtx.Err()
			}
			defer func() {
				if p := recover(); p != nil {
					Log.Error().Int("iteration", i).Interface("panic", p).Msg("simulation iteration panicked, skipping")
				}
			}()
			rng := rand.New(rand.NewSource(seed + int64(i)))
			frame, err := m.runOneIteration(start, end, scenario, rng)
			if err != nil {
				Log.Warn().Int("iteration", i).Err(err).Msg("simulation iteration failed, skipping")
				return nil
			}
			results[i] = summarizeFrame(frame)
			succeeded[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]iterationResult, 0, n)
	for i, r := range results {
		if succeeded[i] {
			kept = append(kept, r)
		}
	}
	return aggregateResults(kept), nil
}

// runOneIteration applies every uncertainty model's sampled value onto a
// fresh copy of each active entity, then calculates the frame exactly as
// CashFlowEngine.Calculate would, bypassing its cache (every iteration's
// inputs differ).
func (m *MonteCarloSimulator) runOneIteration(start, end time.Time, scenario *Scenario, rng *rand.Rand) (*Frame, error) {
	entities := m.engine.store.All()
	adjusted := append([]Entity(nil), entities...)
	for _, u := range m.uncertainties {
		for i, e := range adjusted {
			if e.Base().Name != u.EntityName {
				continue
			}
			adjusted[i] = u.ApplyToEntity(e, rng)
		}
	}

	periods := generateMonthlyPeriods(start, end)
	rows := make([]MonthlyResult, len(periods))
	for i, period := range periods {
		result := MonthlyResult{Period: period}
		ctx := CalculationContext{AsOf: period, Scenario: scenario}
		for _, e := range adjusted {
			if scenario != nil && !scenario.ShouldInclude(e) {
				continue
			}
			cur := e
			if scenario != nil {
				cur = scenario.ApplyToEntity(e)
			}
			// Test activity after the scenario transform, not before: a
			// hiring_delay_months assumption shifts start_date, and must be
			// allowed to gate which months an entity is active in, same as
			// cashflow_engine.go's calculateSinglePeriod.
			if !cur.Base().IsActive(period) {
				continue
			}
			calc := m.engine.registry.CalculateAll(cur, ctx)
			aggregateEntity(&result, cur, calc)
		}
		rows[i] = result
	}
	frame := &Frame{StartingCash: m.engine.config.StartingCash, Rows: rows}
	frame.AddCumulativeCalculations()
	return frame, nil
}

func summarizeFrame(f *Frame) iterationResult {
	r := iterationResult{}
	if len(f.Rows) > 0 {
		last := f.Rows[len(f.Rows)-1]
		r.finalCashBalance = last.CashBalance
	}
	for _, row := range f.Rows {
		r.totalRevenue += row.TotalRevenue
		r.totalExpenses += row.TotalExpenses
	}
	r.netCashFlow = r.totalRevenue - r.totalExpenses
	kpis := CalculateKPIs(f)
	r.runwayMonths = kpis.RunwayMonths
	r.burnRate = kpis.BurnRate
	return r
}

// aggregateResults mirrors _aggregate_simulation_results and
// _calculate_risk_metrics: percentile/mean/std/min/max per metric, plus the
// summary and risk-metrics blocks.
func aggregateResults(results []iterationResult) *SimulationOutput {
	finalCash := extract(results, func(r iterationResult) float64 { return r.finalCashBalance })
	totalRevenue := extract(results, func(r iterationResult) float64 { return r.totalRevenue })
	totalExpenses := extract(results, func(r iterationResult) float64 { return r.totalExpenses })
	netCashFlow := extract(results, func(r iterationResult) float64 { return r.netCashFlow })
	burnRate := extract(results, func(r iterationResult) float64 { return r.burnRate })
	runway := extractFinite(results, func(r iterationResult) float64 { return r.runwayMonths })

	percentiles := []int{5, 10, 25, 50, 75, 90, 95}
	metrics := map[string]MetricStats{
		"final_cash_balance": statsOf(finalCash, percentiles),
		"total_revenue":      statsOf(totalRevenue, percentiles),
		"total_expenses":     statsOf(totalExpenses, percentiles),
		"net_cash_flow":      statsOf(netCashFlow, percentiles),
		"burn_rate":          statsOf(burnRate, percentiles),
		"runway_months":      statsOf(runway, percentiles),
	}

	n := float64(len(results))
	probLoss := countWhere(finalCash, func(v float64) bool { return v < 0 }) / n
	probRunwayLT6 := countWhere(runway, func(v float64) bool { return v < 6 }) / math.Max(1, float64(len(runway)))
	probRunwayLT12 := countWhere(runway, func(v float64) bool { return v < 12 }) / math.Max(1, float64(len(runway)))
	probRunwayGT12 := 1 - probRunwayLT12

	negatives := filterWhere(finalCash, func(v float64) bool { return v < 0 })
	expectedLoss := 0.0
	if len(negatives) > 0 {
		expectedLoss = meanFloat(negatives)
	}

	sortedCash := append([]float64(nil), finalCash...)
	sort.Float64s(sortedCash)
	var5 := percentileOf(sortedCash, 5)
	var95 := percentileOf(sortedCash, 95)
	belowVar5 := filterWhere(finalCash, func(v float64) bool { return v <= var5 })
	expectedShortfall := var5
	if len(belowVar5) > 0 {
		expectedShortfall = meanFloat(belowVar5)
	}

	meanCash := meanFloat(finalCash)
	stdCash := stdFloat(finalCash)
	sharpe := 0.0
	if stdCash != 0 {
		sharpe = meanCash / stdCash
	}

	return &SimulationOutput{
		Metrics: metrics,
		Summary: SimulationSummary{
			ProbabilityPositiveBalance: 1 - probLoss,
			ProbabilityRunwayGT12m:     probRunwayGT12,
			MeanRunwayMonths:           meanFloat(runway),
			ValueAtRisk5pct:            var5,
			ExpectedShortfall5pct:      expectedShortfall,
		},
		Risk: RiskMetrics{
			ProbabilityOfLoss:         probLoss,
			ProbabilityRunwayLT6m:     probRunwayLT6,
			ProbabilityRunwayLT12m:    probRunwayLT12,
			ExpectedLossGivenNegative: expectedLoss,
			WorstCase5pct:             var5,
			BestCase95pct:             var95,
			Volatility:                stdCash,
			SharpeRatio:               sharpe,
		},
	}
}

func extract(results []iterationResult, f func(iterationResult) float64) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = f(r)
	}
	return out
}

// extractFinite mirrors the runway-months metric excluding +Inf entries
// before computing percentiles/mean, per the Python original.
func extractFinite(results []iterationResult, f func(iterationResult) float64) []float64 {
	var out []float64
	for _, r := range results {
		v := f(r)
		if !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func statsOf(values []float64, percentiles []int) MetricStats {
	if len(values) == 0 {
		return MetricStats{Percentiles: map[int]float64{}}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pcts := make(map[int]float64, len(percentiles))
	for _, p := range percentiles {
		pcts[p] = percentileOf(sorted, p)
	}
	return MetricStats{
		Percentiles: pcts,
		Mean:        meanFloat(values),
		Std:         stdFloat(values),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
	}
}

func percentileOf(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := meanFloat(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func countWhere(values []float64, pred func(float64) bool) float64 {
	c := 0.0
	for _, v := range values {
		if pred(v) {
			c++
		}
	}
	return c
}

func filterWhere(values []float64, pred func(float64) bool) []float64 {
	var out []float64
	for _, v := range values {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}
