package capflow

// Field assignment: the single place that knows how a wire field name (an
// override's Field, an UncertaintyModel's Field, or a YAML document key)
// maps onto a concrete entity's struct field. scenario.go's setField,
// montecarlo.go's ApplyToEntity, and loader.go's applyYAMLFields all route
// through assignField so none of them needs its own narrower copy of this
// table.

import "time"

func setFloat(dst *float64, value any) bool {
	f, ok := toFloat(value)
	if !ok {
		return false
	}
	*dst = f
	return true
}

func setFloatPtr(dst **float64, value any) bool {
	f, ok := toFloat(value)
	if !ok {
		return false
	}
	*dst = &f
	return true
}

func setInt(dst *int, value any) bool {
	n, ok := toInt(value)
	if !ok {
		return false
	}
	*dst = n
	return true
}

func setIntPtr(dst **int, value any) bool {
	n, ok := toInt(value)
	if !ok {
		return false
	}
	*dst = &n
	return true
}

func setString(dst *string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	*dst = s
	return true
}

func setBool(dst *bool, value any) bool {
	b, ok := value.(bool)
	if !ok {
		return false
	}
	*dst = b
	return true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// assignField sets the named field on e if e's kind has a scalar field by
// that name, reporting whether it recognized the field. Unrecognized
// fields are the caller's responsibility (scenario overrides simply drop
// them; loader.go routes them into Extras).
func assignField(e Entity, field string, value any) bool {
	switch v := e.(type) {
	case *Employee:
		switch field {
		case "salary":
			return setFloat(&v.Salary, value)
		case "position":
			return setString(&v.Position, value)
		case "department":
			return setString(&v.Department, value)
		case "overhead_multiplier":
			return setFloat(&v.OverheadMultiplier, value)
		case "benefits_annual":
			return setFloatPtr(&v.BenefitsAnnual, value)
		case "home_office_stipend":
			return setFloat(&v.HomeOfficeStipend, value)
		case "professional_development_annual":
			return setFloat(&v.ProfessionalDevelopmentAnnual, value)
		case "equipment_budget_annual":
			return setFloat(&v.EquipmentBudgetAnnual, value)
		case "conference_budget_annual":
			return setFloat(&v.ConferenceBudgetAnnual, value)
		case "signing_bonus":
			return setFloat(&v.SigningBonus, value)
		case "relocation_assistance":
			return setFloat(&v.RelocationAssistance, value)
		case "bonus_performance_max":
			return setFloat(&v.BonusPerformanceMax, value)
		case "bonus_milestones_max":
			return setFloat(&v.BonusMilestonesMax, value)
		case "equity_shares":
			return setInt(&v.EquityShares, value)
		case "equity_cliff_months":
			return setInt(&v.EquityCliffMonths, value)
		case "equity_vest_years":
			return setFloat(&v.EquityVestYears, value)
		}
	case *Grant:
		switch field {
		case "amount":
			return setFloat(&v.Amount, value)
		case "agency":
			return setString(&v.Agency, value)
		case "program":
			return setString(&v.Program, value)
		case "indirect_cost_rate":
			return setFloat(&v.IndirectCostRate, value)
		}
	case *Investment:
		switch field {
		case "amount":
			return setFloat(&v.Amount, value)
		case "investor":
			return setString(&v.Investor, value)
		case "round_name":
			return setString(&v.RoundName, value)
		case "pre_money_valuation":
			return setFloatPtr(&v.PreMoneyValuation, value)
		case "post_money_valuation":
			return setFloatPtr(&v.PostMoneyValuation, value)
		case "liquidation_preference":
			return setFloatPtr(&v.LiquidationPreference, value)
		case "board_seats":
			return setInt(&v.BoardSeats, value)
		}
	case *Sale:
		switch field {
		case "amount":
			return setFloat(&v.Amount, value)
		case "customer":
			return setString(&v.Customer, value)
		case "product":
			return setString(&v.Product, value)
		}
	case *Service:
		switch field {
		case "monthly_amount":
			return setFloat(&v.MonthlyAmount, value)
		case "customer":
			return setString(&v.Customer, value)
		case "service_type":
			return setString(&v.ServiceType, value)
		case "hourly_rate":
			return setFloatPtr(&v.HourlyRate, value)
		case "minimum_commitment_months":
			return setInt(&v.MinimumCommitmentMonths, value)
		case "auto_renewal":
			return setBool(&v.AutoRenewal, value)
		}
	case *Facility:
		switch field {
		case "monthly_cost":
			return setFloat(&v.MonthlyCost, value)
		case "utilities_monthly":
			return setFloat(&v.UtilitiesMonthly, value)
		case "internet_monthly":
			return setFloatPtr(&v.InternetMonthly, value)
		case "security_monthly":
			return setFloatPtr(&v.SecurityMonthly, value)
		case "cleaning_monthly":
			return setFloatPtr(&v.CleaningMonthly, value)
		case "maintenance_monthly":
			return setFloatPtr(&v.MaintenanceMonthly, value)
		case "insurance_annual":
			return setFloatPtr(&v.InsuranceAnnual, value)
		case "property_tax_annual":
			return setFloatPtr(&v.PropertyTaxAnnual, value)
		case "maintenance_annual":
			return setFloatPtr(&v.MaintenanceAnnual, value)
		case "maintenance_quarterly":
			return setFloatPtr(&v.MaintenanceQuarterly, value)
		}
	case *Software:
		switch field {
		case "monthly_cost":
			return setFloat(&v.MonthlyCost, value)
		case "annual_cost":
			return setFloatPtr(&v.AnnualCost, value)
		case "per_user_cost":
			return setFloatPtr(&v.PerUserCost, value)
		case "license_count":
			return setIntPtr(&v.LicenseCount, value)
		}
	case *Equipment:
		switch field {
		case "cost":
			return setFloat(&v.Cost, value)
		case "residual_value":
			return setFloat(&v.ResidualValue, value)
		case "depreciation_years":
			return setFloat(&v.DepreciationYears, value)
		case "maintenance_cost_annual":
			return setFloat(&v.MaintenanceCostAnnual, value)
		case "support_contract_annual":
			return setFloat(&v.SupportContractAnnual, value)
		}
	case *Project:
		switch field {
		case "total_budget":
			return setFloat(&v.TotalBudget, value)
		case "budget_spent":
			return setFloat(&v.BudgetSpent, value)
		case "budget_committed":
			return setFloat(&v.BudgetCommitted, value)
		case "completion_percentage":
			return setFloat(&v.CompletionPercentage, value)
		case "status":
			if s, ok := value.(string); ok {
				v.Status = ProjectStatus(s)
				return true
			}
		}
	case *ShareClass:
		switch field {
		case "class_name":
			return setString(&v.ClassName, value)
		case "shares_authorized":
			return setInt(&v.SharesAuthorized, value)
		case "shares_outstanding":
			return setInt(&v.SharesOutstanding, value)
		case "par_value":
			return setFloat(&v.ParValue, value)
		case "liquidation_preference":
			return setFloat(&v.LiquidationPreference, value)
		case "participating":
			return setBool(&v.Participating, value)
		case "voting_rights_per_share":
			return setFloat(&v.VotingRightsPerShare, value)
		case "liquidation_seniority":
			return setInt(&v.LiquidationSeniority, value)
		}
	case *Shareholder:
		switch field {
		case "shareholder_type":
			if s, ok := value.(string); ok {
				v.ShareholderType = ShareholderType(s)
				return true
			}
		case "total_shares":
			return setInt(&v.TotalShares, value)
		case "share_class_name":
			return setString(&v.ShareClassName, value)
		case "cliff_months":
			return setInt(&v.CliffMonths, value)
		case "vesting_months":
			return setInt(&v.VestingMonths, value)
		case "board_seats":
			return setInt(&v.BoardSeats, value)
		}
	case *FundingRound:
		switch field {
		case "round_type":
			return setString(&v.RoundType, value)
		case "amount_raised":
			return setFloat(&v.AmountRaised, value)
		case "pre_money_valuation":
			return setFloatPtr(&v.PreMoneyValuation, value)
		case "post_money_valuation":
			return setFloatPtr(&v.PostMoneyValuation, value)
		case "shares_issued":
			return setIntPtr(&v.SharesIssued, value)
		case "price_per_share":
			return setFloatPtr(&v.PricePerShare, value)
		case "option_pool_increase":
			return setFloat(&v.OptionPoolIncrease, value)
		}
	}
	return false
}

// assignDateField handles the pointer/value date fields beyond start_date
// and end_date (which LoadFile parses directly off the document envelope).
func assignDateField(e Entity, field string, raw string) bool {
	date, err := time.Parse(yamlDateLayout, raw)
	if err != nil {
		return false
	}
	switch v := e.(type) {
	case *Sale:
		if field == "delivery_date" {
			v.DeliveryDate = &date
			return true
		}
	case *Equipment:
		if field == "purchase_date" {
			v.PurchaseDate = date
			return true
		}
	case *Project:
		switch field {
		case "planned_start_date":
			v.PlannedStartDate = &date
			return true
		case "actual_start_date":
			v.ActualStartDate = &date
			return true
		case "planned_end_date":
			v.PlannedEndDate = &date
			return true
		}
	}
	return false
}

// assignPaymentSchedule parses a YAML list of {date, amount} entries into
// []PaymentEntry, covering Grant/Sale's payment_schedule and Investment's
// disbursement_schedule.
func assignPaymentSchedule(e Entity, field string, raw any) bool {
	list, ok := raw.([]any)
	if !ok {
		return false
	}
	entries := make([]PaymentEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		dateStr, _ := m["date"].(string)
		date, err := time.Parse(yamlDateLayout, dateStr)
		if err != nil {
			continue
		}
		amount, ok := toFloat(m["amount"])
		if !ok {
			continue
		}
		entries = append(entries, PaymentEntry{Date: date, Amount: amount})
	}
	switch v := e.(type) {
	case *Grant:
		if field == "payment_schedule" {
			v.PaymentSchedule = entries
			return true
		}
	case *Sale:
		if field == "payment_schedule" {
			v.PaymentSchedule = entries
			return true
		}
	case *Investment:
		if field == "disbursement_schedule" {
			v.DisbursementSchedule = entries
			return true
		}
	}
	return false
}

// assignBudgetCategories parses a YAML map of category->amount into
// Project.BudgetCategories.
func assignBudgetCategories(e Entity, field string, raw any) bool {
	p, ok := e.(*Project)
	if !ok || field != "budget_categories" {
		return false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	cats := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := toFloat(v); ok {
			cats[k] = f
		}
	}
	p.BudgetCategories = cats
	return true
}
