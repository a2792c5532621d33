package capflow

// Frame holds one calculation run's month-by-month results plus the derived
// cumulative/growth/efficiency columns. Grounded directly on
// engine/cashflow.py's _aggregate_entity_calculations (per-type bucket
// mapping) and _add_cumulative_calculations (derived columns) — ported
// formula-for-formula rather than reinvented.

import "time"

// MonthlyResult is one row of a Frame: the aggregated calculator output for
// a single month, plus whatever derived columns have been computed.
type MonthlyResult struct {
	Period time.Time

	EmployeeCosts  float64
	FacilityCosts  float64
	SoftwareCosts  float64
	EquipmentCosts float64
	ProjectCosts   float64
	ActiveProjects int
	ActiveEmployees int

	GrantRevenue      float64
	InvestmentRevenue float64
	SalesRevenue      float64
	ServiceRevenue    float64

	TotalRevenue  float64
	TotalExpenses float64
	NetCashFlow   float64

	// Derived, filled by AddCumulativeCalculations.
	CumulativeCashFlow float64
	CashBalance        float64
	RevenueGrowthRate  float64
	ExpenseGrowthRate  float64
	RevenuePerEmployee float64
	CostPerEmployee    float64

	EmployeeCostPct float64
	FacilityCostPct float64
	SoftwareCostPct float64
	EquipmentCostPct float64
	ProjectCostPct   float64
}

// Frame is a full calculation run: one row per month plus the starting cash
// balance the cumulative column is anchored to.
type Frame struct {
	StartingCash float64
	Rows         []MonthlyResult
}

// aggregateEntity folds one entity's calculator results into the month's
// running totals, mirroring _aggregate_entity_calculations's per-type
// dispatch exactly.
func aggregateEntity(result *MonthlyResult, e Entity, calc map[string]float64) {
	switch e.Base().Kind {
	case KindEmployee:
		result.EmployeeCosts += calc["total_cost"]
		result.ActiveEmployees++
	case KindFacility:
		result.FacilityCosts += calc["recurring"]
	case KindSoftware:
		result.SoftwareCosts += calc["recurring"]
	case KindEquipment:
		result.EquipmentCosts += calc["depreciation"] + calc["maintenance"] + calc["one_time"]
	case KindProject:
		result.ProjectCosts += calc["burn"]
		result.ActiveProjects++
	case KindGrant:
		result.GrantRevenue += calc["disbursement"]
	case KindInvestment:
		result.InvestmentRevenue += calc["disbursement"]
	case KindSale:
		result.SalesRevenue += calc["revenue"]
	case KindService:
		result.ServiceRevenue += calc["revenue"]
	}
}

// finalizeTotals computes total_revenue/total_expenses/net_cash_flow as sums
// of the category buckets, matching calculate_period's final step.
func finalizeTotals(r *MonthlyResult) {
	r.TotalRevenue = r.GrantRevenue + r.InvestmentRevenue + r.SalesRevenue + r.ServiceRevenue
	r.TotalExpenses = r.EmployeeCosts + r.FacilityCosts + r.SoftwareCosts + r.EquipmentCosts + r.ProjectCosts
	r.NetCashFlow = r.TotalRevenue - r.TotalExpenses
}

// pctChange mirrors the period-over-period growth-rate guard: 0 on the
// first period or when the prior value is 0, else percent change.
func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// safeDivisor mirrors the Python pattern of replacing a 0 divisor with 1 so
// percentage columns degrade to 0 instead of NaN/Inf.
func safeDivisor(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// AddCumulativeCalculations fills every derived column across f.Rows,
// mirroring _add_cumulative_calculations. Safe to call on an empty Frame.
func (f *Frame) AddCumulativeCalculations() {
	running := 0.0
	for i := range f.Rows {
		r := &f.Rows[i]
		finalizeTotals(r)

		running += r.NetCashFlow
		r.CumulativeCashFlow = running
		r.CashBalance = f.StartingCash + running

		if i > 0 {
			prev := f.Rows[i-1]
			r.RevenueGrowthRate = pctChange(prev.TotalRevenue, r.TotalRevenue)
			r.ExpenseGrowthRate = pctChange(prev.TotalExpenses, r.TotalExpenses)
		}

		employees := float64(r.ActiveEmployees)
		if employees < 1 {
			employees = 1
		}
		r.RevenuePerEmployee = r.TotalRevenue / employees
		r.CostPerEmployee = r.TotalExpenses / employees

		expenses := safeDivisor(r.TotalExpenses)
		r.EmployeeCostPct = r.EmployeeCosts / expenses
		r.FacilityCostPct = r.FacilityCosts / expenses
		r.SoftwareCostPct = r.SoftwareCosts / expenses
		r.EquipmentCostPct = r.EquipmentCosts / expenses
		r.ProjectCostPct = r.ProjectCosts / expenses
	}
}
