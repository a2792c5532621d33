package capflow

// What-if analysis: single-parameter sensitivity sweeps and breakeven
// bisection, grounded on analysis/whatif.py. There is no multi-parameter
// grid sweep; each run varies one field of one entity.

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Parameter mirrors the Parameter dataclass: a named, steppable field on a
// named entity.
type Parameter struct {
	EntityName string
	Field      string
	BaseValue  float64
}

// GrowthAdjustedRevenue applies the scenario's revenue_growth_rate
// assumption to a base monthly revenue figure — the opt-in consumer of
// Scenario.Assumptions.RevenueGrowthRate referenced in DESIGN.md's
// resolution of Open Question 3. The engine itself never calls this.
func GrowthAdjustedRevenue(base float64, monthsElapsed int, annualGrowthRate float64) float64 {
	monthlyRate := math.Pow(1+annualGrowthRate, 1.0/12) - 1
	return base * math.Pow(1+monthlyRate, float64(monthsElapsed))
}

// MetricExtractor pulls one scalar metric out of a finished Frame, the
// thing a sensitivity sweep or breakeven search is measuring.
type MetricExtractor func(*Frame) float64

var MetricFinalCashBalance MetricExtractor = func(f *Frame) float64 {
	if len(f.Rows) == 0 {
		return 0
	}
	return f.Rows[len(f.Rows)-1].CashBalance
}

var MetricTotalRevenue MetricExtractor = func(f *Frame) float64 {
	total := 0.0
	for _, row := range f.Rows {
		total += row.TotalRevenue
	}
	return total
}

var MetricRunwayMonths MetricExtractor = func(f *Frame) float64 {
	return CalculateKPIs(f).RunwayMonths
}

// SensitivityPoint is one value/metric pair from a sweep.
type SensitivityPoint struct {
	Value  float64
	Metric float64
}

// SensitivityResult mirrors _calculate_sensitivity_metrics: the raw sweep
// points plus the correlation and elasticity summary statistics.
type SensitivityResult struct {
	Points      []SensitivityPoint
	Correlation float64
	Elasticity  float64
}

// WhatIfAnalyzer runs sweeps against a CashFlowEngine's entity store,
// overriding one parameter at a time via the same setField mechanism
// scenario.go uses for overrides.
type WhatIfAnalyzer struct {
	engine *CashFlowEngine
}

func NewWhatIfAnalyzer(engine *CashFlowEngine) *WhatIfAnalyzer {
	return &WhatIfAnalyzer{engine: engine}
}

// RunSensitivity mirrors run_sensitivity_analysis: sweep param.Field on the
// named entity across valueRange, run Calculate once per value, and
// collect the metric. A value that fails to calculate is skipped, matching
// the Python original's try/except-continue.
func (w *WhatIfAnalyzer) RunSensitivity(ctx context.Context, start, end time.Time, param Parameter, valueRange []float64, metric MetricExtractor) SensitivityResult {
	points := make([]SensitivityPoint, 0, len(valueRange))
	for _, v := range valueRange {
		frame, err := w.calculateWithOverride(ctx, start, end, param, v)
		if err != nil {
			Log.Warn().Str("entity", param.EntityName).Float64("value", v).Err(err).Msg("sensitivity point failed, skipping")
			continue
		}
		points = append(points, SensitivityPoint{Value: v, Metric: metric(frame)})
	}
	return SensitivityResult{
		Points:      points,
		Correlation: pointsCorrelation(points),
		Elasticity:  pointsElasticity(points),
	}
}

func (w *WhatIfAnalyzer) calculateWithOverride(ctx context.Context, start, end time.Time, param Parameter, value float64) (*Frame, error) {
	scenario := &Scenario{
		Name: fmt.Sprintf("whatif:%s.%s=%g", param.EntityName, param.Field, value),
		Overrides: []Override{
			{Criteria: OverrideCriteria{Entity: param.EntityName}, Field: param.Field, Value: value},
		},
	}
	return w.engine.Calculate(ctx, start, end, scenario)
}

// pointsCorrelation mirrors the Pearson coefficient np.corrcoef computes
// between swept values and resulting metrics.
func pointsCorrelation(points []SensitivityPoint) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = p.Value
		ys[i] = p.Metric
	}
	meanX, meanY := meanFloat(xs), meanFloat(ys)
	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// pointsElasticity mirrors %Δmetric / %Δparameter, each expressed as
// (max-min)/min with a divide-by-zero guard to 0.
func pointsElasticity(points []SensitivityPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	minV, maxV := points[0].Value, points[0].Value
	minM, maxM := points[0].Metric, points[0].Metric
	for _, p := range points {
		minV = math.Min(minV, p.Value)
		maxV = math.Max(maxV, p.Value)
		minM = math.Min(minM, p.Metric)
		maxM = math.Max(maxM, p.Metric)
	}
	pctParam := pctSpread(minV, maxV)
	pctMetric := pctSpread(minM, maxM)
	if pctParam == 0 {
		return 0
	}
	return pctMetric / pctParam
}

func pctSpread(min, max float64) float64 {
	if min == 0 {
		return 0
	}
	return (max - min) / min
}

// FindBreakeven mirrors find_breakeven_value: bisection search for the
// param value driving metric to target, within tolerance, capped at 50
// iterations, defaulting the search range to [0.1*base, 3*base].
func (w *WhatIfAnalyzer) FindBreakeven(ctx context.Context, start, end time.Time, param Parameter, metric MetricExtractor, target, tolerance float64, searchRange *[2]float64) (float64, error) {
	lo, hi := 0.1*param.BaseValue, 3*param.BaseValue
	if searchRange != nil {
		lo, hi = searchRange[0], searchRange[1]
	}

	const maxIterations = 50
	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		frame, err := w.calculateWithOverride(ctx, start, end, param, mid)
		if err != nil {
			return 0, err
		}
		value := metric(frame)
		if math.Abs(value-target) <= tolerance {
			return mid, nil
		}

		loFrame, err := w.calculateWithOverride(ctx, start, end, param, lo)
		if err != nil {
			return 0, err
		}
		loValue := metric(loFrame)

		// Bisect toward whichever half brackets the target, assuming
		// monotonicity in the swept parameter (same assumption the
		// Python original makes).
		if (loValue < target) == (value < target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, errBadState("breakeven search for %s.%s did not converge within %d iterations", param.EntityName, param.Field, maxIterations)
}
