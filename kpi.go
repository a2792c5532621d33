package capflow

// KPI formulas ported from engine/kpis.py: financial, growth, operational,
// efficiency, and risk metrics computed from a finished Frame. Every
// divide-by-zero guard mirrors the Python original's explicit checks rather
// than relying on Go's NaN/Inf float semantics to "just work".

import (
	"fmt"
	"math"
	"strings"
)

type KPIReport struct {
	RunwayMonths          float64
	MonthsToBreakeven     float64
	BurnRate              float64
	CurrentBurnRate       float64
	CashEfficiency        float64
	CashFlowVolatility    float64
	WorkingCapital        float64

	RevenueGrowthRate     float64
	RevenueTrend          float64
	AverageDealSize       float64
	RevenueDiversification float64

	TeamSize              int
	TeamGrowth            float64
	ProjectCount          int
	ProjectGrowth         float64
	RDPercentage          float64
	FacilityCostPercentage float64
	TechnologyCostPercentage float64

	RevenuePerEmployee    float64
	CostPerEmployee       float64
	EmployeeCostEfficiency float64
	ProjectCostRatio      float64
	OperatingLeverage     float64

	CashFlowRisk          float64
	RevenueConcentrationRisk float64
	CostFlexibility       float64
	FundingDependency     float64
}

// CalculateKPIs mirrors calculate_all_kpis: dispatch to the five
// sub-calculators and merge. Safe to call on a Frame with zero rows.
func CalculateKPIs(f *Frame) KPIReport {
	var r KPIReport
	calculateFinancialKPIs(f, &r)
	calculateGrowthKPIs(f, &r)
	calculateOperationalKPIs(f, &r)
	calculateEfficiencyKPIs(f, &r)
	calculateRiskKPIs(f, &r)
	return r
}

func calculateFinancialKPIs(f *Frame, r *KPIReport) {
	r.RunwayMonths = calculateRunway(f)
	r.MonthsToBreakeven = calculateBreakeven(f)
	r.BurnRate = meanNegativeFlows(f)
	r.CurrentBurnRate = currentBurnRate(f)
	r.CashEfficiency = cashEfficiency(f)
	r.CashFlowVolatility = stdevNetCashFlow(f)
	if len(f.Rows) > 0 {
		last := f.Rows[len(f.Rows)-1]
		r.WorkingCapital = last.CashBalance
	}
}

// calculateRunway mirrors _calculate_runway: walk forward from the starting
// cash balance, interpolating the fractional month the balance first goes
// negative; if it never does, fall back to the trailing 3-month average
// burn (or +Inf if that average is non-negative).
func calculateRunway(f *Frame) float64 {
	if len(f.Rows) == 0 {
		return math.Inf(1)
	}
	prevBalance := f.StartingCash
	for i, row := range f.Rows {
		if row.CashBalance < 0 {
			delta := prevBalance - row.CashBalance
			if delta == 0 {
				return float64(i)
			}
			fraction := prevBalance / delta
			return float64(i) + fraction
		}
		prevBalance = row.CashBalance
	}
	avgBurn := avgOfLastN(f, 3, func(r MonthlyResult) float64 { return r.NetCashFlow })
	if avgBurn >= 0 {
		return math.Inf(1)
	}
	finalCash := f.Rows[len(f.Rows)-1].CashBalance
	return finalCash / math.Abs(avgBurn)
}

// calculateBreakeven mirrors _calculate_breakeven: 1-indexed month of first
// non-negative cumulative cash flow; extrapolated if never reached and the
// average flow is positive, +Inf if the average flow is non-positive.
func calculateBreakeven(f *Frame) float64 {
	if len(f.Rows) == 0 {
		return math.Inf(1)
	}
	for i, row := range f.Rows {
		if row.CumulativeCashFlow >= 0 {
			return float64(i + 1)
		}
	}
	avgFlow := meanOf(f, func(r MonthlyResult) float64 { return r.NetCashFlow })
	if avgFlow <= 0 {
		return math.Inf(1)
	}
	deficit := -f.Rows[len(f.Rows)-1].CumulativeCashFlow
	return float64(len(f.Rows)) + deficit/avgFlow
}

func meanNegativeFlows(f *Frame) float64 {
	sum, n := 0.0, 0
	for _, row := range f.Rows {
		if row.NetCashFlow < 0 {
			sum += row.NetCashFlow
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Abs(sum / float64(n))
}

func currentBurnRate(f *Frame) float64 {
	if len(f.Rows) == 0 {
		return 0
	}
	last := f.Rows[len(f.Rows)-1].NetCashFlow
	return math.Abs(math.Min(0, last))
}

func cashEfficiency(f *Frame) float64 {
	totalRevenue, negativeSum := 0.0, 0.0
	for _, row := range f.Rows {
		totalRevenue += row.TotalRevenue
		if row.NetCashFlow < 0 {
			negativeSum += row.NetCashFlow
		}
	}
	if negativeSum == 0 {
		return math.Inf(1)
	}
	return totalRevenue / math.Abs(negativeSum)
}

func stdevNetCashFlow(f *Frame) float64 {
	return stdevOf(f, func(r MonthlyResult) float64 { return r.NetCashFlow })
}

func calculateGrowthKPIs(f *Frame, r *KPIReport) {
	r.RevenueGrowthRate = geometricRevenueGrowth(f)
	r.RevenueTrend = linearTrend(f, func(row MonthlyResult) float64 { return row.TotalRevenue })
	r.AverageDealSize = averageDealSize(f)
	r.RevenueDiversification = revenueDiversification(f)
}

// geometricRevenueGrowth mirrors the KPI (not the scenario assumption):
// geometric growth between the first-3-month and last-3-month average
// revenue, expressed as a percentage.
func geometricRevenueGrowth(f *Frame) float64 {
	if len(f.Rows) < 6 {
		return 0
	}
	early := avgOfFirstN(f, 3, func(r MonthlyResult) float64 { return r.TotalRevenue })
	recent := avgOfLastN(f, 3, func(r MonthlyResult) float64 { return r.TotalRevenue })
	if early <= 0 {
		return 0
	}
	monthsSpan := float64(len(f.Rows) - 3)
	if monthsSpan <= 0 {
		return 0
	}
	return (math.Pow(recent/early, 1/monthsSpan) - 1) * 100
}

// linearTrend mirrors the np.polyfit slope used for revenue_trend:
// ordinary least-squares slope of value against month index.
func linearTrend(f *Frame, value func(MonthlyResult) float64) float64 {
	n := len(f.Rows)
	if n < 3 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, row := range f.Rows {
		x := float64(i)
		y := value(row)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}

func averageDealSize(f *Frame) float64 {
	total, n := 0.0, 0
	for _, row := range f.Rows {
		if row.SalesRevenue > 0 {
			total += row.SalesRevenue
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// revenueDiversification mirrors 1 - Herfindahl index across the 4 revenue
// sources, summed over the whole frame.
func revenueDiversification(f *Frame) float64 {
	var grants, investments, sales, services float64
	for _, row := range f.Rows {
		grants += row.GrantRevenue
		investments += row.InvestmentRevenue
		sales += row.SalesRevenue
		services += row.ServiceRevenue
	}
	total := grants + investments + sales + services
	if total <= 0 {
		return 0
	}
	herfindahl := 0.0
	for _, v := range []float64{grants, investments, sales, services} {
		share := v / total
		herfindahl += share * share
	}
	return 1 - herfindahl
}

func calculateOperationalKPIs(f *Frame, r *KPIReport) {
	if len(f.Rows) > 0 {
		last := f.Rows[len(f.Rows)-1]
		r.TeamSize = last.ActiveEmployees
		r.ProjectCount = last.ActiveProjects
	}
	r.TeamGrowth = growthRate(f, func(row MonthlyResult) float64 { return float64(row.ActiveEmployees) })
	r.ProjectGrowth = growthRate(f, func(row MonthlyResult) float64 { return float64(row.ActiveProjects) })

	totalExpenses, projectCosts, facilityCosts, softwareCosts := 0.0, 0.0, 0.0, 0.0
	for _, row := range f.Rows {
		totalExpenses += row.TotalExpenses
		projectCosts += row.ProjectCosts
		facilityCosts += row.FacilityCosts
		softwareCosts += row.SoftwareCosts
	}
	expenses := safeDivisor(totalExpenses)
	r.RDPercentage = projectCosts / expenses * 100
	r.FacilityCostPercentage = facilityCosts / expenses * 100
	r.TechnologyCostPercentage = softwareCosts / expenses * 100
}

// growthRate mirrors _calculate_growth_rate: the simple percent change from
// the first to the last value, guarded against zero/negative starting values.
func growthRate(f *Frame, value func(MonthlyResult) float64) float64 {
	if len(f.Rows) < 2 {
		return 0
	}
	first := value(f.Rows[0])
	last := value(f.Rows[len(f.Rows)-1])
	if first <= 0 {
		return 0
	}
	return (last - first) / first * 100
}

func calculateEfficiencyKPIs(f *Frame, r *KPIReport) {
	if len(f.Rows) > 0 {
		last := f.Rows[len(f.Rows)-1]
		r.RevenuePerEmployee = last.RevenuePerEmployee
		r.CostPerEmployee = last.CostPerEmployee
	}

	totalRevenue, employeeCosts, projectCosts, totalExpenses := 0.0, 0.0, 0.0, 0.0
	for _, row := range f.Rows {
		totalRevenue += row.TotalRevenue
		employeeCosts += row.EmployeeCosts
		projectCosts += row.ProjectCosts
		totalExpenses += row.TotalExpenses
	}
	if employeeCosts > 0 {
		r.EmployeeCostEfficiency = totalRevenue / employeeCosts
	}
	r.ProjectCostRatio = projectCosts / safeDivisor(totalExpenses)
	r.OperatingLeverage = operatingLeverage(f)
}

// operatingLeverage mirrors revenue_change/expense_change as pct-change
// means: the mean month-over-month percent change of total revenue over
// that of total expenses (pctChange's zero-prior guard applies per step).
func operatingLeverage(f *Frame) float64 {
	if len(f.Rows) < 2 {
		return 0
	}
	revenueChange, expenseChange := 0.0, 0.0
	for i := 1; i < len(f.Rows); i++ {
		revenueChange += pctChange(f.Rows[i-1].TotalRevenue, f.Rows[i].TotalRevenue)
		expenseChange += pctChange(f.Rows[i-1].TotalExpenses, f.Rows[i].TotalExpenses)
	}
	if expenseChange == 0 {
		return 0
	}
	return revenueChange / expenseChange
}

func calculateRiskKPIs(f *Frame, r *KPIReport) {
	mean := meanOf(f, func(row MonthlyResult) float64 { return row.NetCashFlow })
	stdev := stdevOf(f, func(row MonthlyResult) float64 { return row.NetCashFlow })
	if mean != 0 {
		r.CashFlowRisk = stdev / math.Abs(mean)
	}

	totalRevenue := 0.0
	maxSource := 0.0
	var grants, investments, sales, services float64
	for _, row := range f.Rows {
		totalRevenue += row.TotalRevenue
		grants += row.GrantRevenue
		investments += row.InvestmentRevenue
		sales += row.SalesRevenue
		services += row.ServiceRevenue
	}
	for _, v := range []float64{grants, investments, sales, services} {
		if v > maxSource {
			maxSource = v
		}
	}
	if totalRevenue > 0 {
		r.RevenueConcentrationRisk = maxSource / totalRevenue
		r.FundingDependency = (grants + investments) / totalRevenue
	}

	employeeCosts, facilityCosts, totalExpenses := 0.0, 0.0, 0.0
	for _, row := range f.Rows {
		employeeCosts += row.EmployeeCosts
		facilityCosts += row.FacilityCosts
		totalExpenses += row.TotalExpenses
	}
	if totalExpenses > 0 {
		r.CostFlexibility = 1 - (employeeCosts+facilityCosts)/totalExpenses
	}
}

// ---- shared statistics helpers ----

func meanOf(f *Frame, value func(MonthlyResult) float64) float64 {
	if len(f.Rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range f.Rows {
		sum += value(row)
	}
	return sum / float64(len(f.Rows))
}

func stdevOf(f *Frame, value func(MonthlyResult) float64) float64 {
	n := len(f.Rows)
	if n == 0 {
		return 0
	}
	mean := meanOf(f, value)
	sumSq := 0.0
	for _, row := range f.Rows {
		d := value(row) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

func avgOfLastN(f *Frame, n int, value func(MonthlyResult) float64) float64 {
	rows := f.Rows
	if len(rows) < n {
		n = len(rows)
	}
	if n == 0 {
		return 0
	}
	tail := rows[len(rows)-n:]
	sum := 0.0
	for _, row := range tail {
		sum += value(row)
	}
	return sum / float64(n)
}

func avgOfFirstN(f *Frame, n int, value func(MonthlyResult) float64) float64 {
	rows := f.Rows
	if len(rows) < n {
		n = len(rows)
	}
	if n == 0 {
		return 0
	}
	head := rows[:n]
	sum := 0.0
	for _, row := range head {
		sum += value(row)
	}
	return sum / float64(n)
}

// FormatKPIReport renders a KPI report as aligned text, in the style of
// reporting.go's FormatFinancialStatement.
func FormatKPIReport(r KPIReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-32s %14s\n", "Metric", "Value")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 47))
	row := func(label string, v float64) {
		if math.IsInf(v, 1) {
			fmt.Fprintf(&b, "%-32s %14s\n", label, "infinite")
			return
		}
		fmt.Fprintf(&b, "%-32s %14.2f\n", label, v)
	}
	row("Runway (months)", r.RunwayMonths)
	row("Months to breakeven", r.MonthsToBreakeven)
	row("Burn rate", r.BurnRate)
	row("Current burn rate", r.CurrentBurnRate)
	row("Cash efficiency", r.CashEfficiency)
	row("Cash flow volatility", r.CashFlowVolatility)
	row("Working capital", r.WorkingCapital)
	row("Revenue growth rate %", r.RevenueGrowthRate)
	row("Revenue trend", r.RevenueTrend)
	row("Revenue diversification", r.RevenueDiversification)
	row("Revenue concentration risk", r.RevenueConcentrationRisk)
	row("Cash flow risk", r.CashFlowRisk)
	row("Funding dependency", r.FundingDependency)
	return b.String()
}
