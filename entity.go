package capflow

// Entity model: every row that can appear in the cash-flow engine's input
// set. Mirrors the Python original's one-class-per-entity-type layout
// (models/base.py, models/employee.py, models/expense.py, models/revenue.py,
// models/project.py, models/captable.py) but as plain Go structs validated
// at construction time instead of runtime-checked pydantic models.

import (
	"time"
)

// ----------------------------------------------------------------------------
// 🧱 Base fields shared by every entity kind ----------------------------------
// ----------------------------------------------------------------------------

type EntityKind string

const (
	KindEmployee     EntityKind = "employee"
	KindGrant        EntityKind = "grant"
	KindInvestment   EntityKind = "investment"
	KindSale         EntityKind = "sale"
	KindService      EntityKind = "service"
	KindFacility     EntityKind = "facility"
	KindSoftware     EntityKind = "software"
	KindEquipment    EntityKind = "equipment"
	KindProject      EntityKind = "project"
	KindShareholder  EntityKind = "shareholder"
	KindShareClass   EntityKind = "share_class"
	KindFundingRound EntityKind = "funding_round"
)

// EntityBase holds the fields every entity kind carries regardless of type,
// matching models/base.py's BaseEntity.
type EntityBase struct {
	Kind      EntityKind `json:"type"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Notes     string     `json:"notes,omitempty"`

	// Extras holds any field the loader saw but this model doesn't name
	// explicitly, so an entity file round-trips losslessly through the
	// store even when it carries fields this module doesn't interpret.
	Extras map[string]any `json:"extras,omitempty"`
}

// IsActive mirrors BaseEntity.is_active: before start is never active, no
// end date means perpetually active, otherwise end is inclusive.
func (b EntityBase) IsActive(asOf time.Time) bool {
	if asOf.Before(b.StartDate) {
		return false
	}
	if b.EndDate == nil {
		return true
	}
	return !asOf.After(*b.EndDate)
}

func (b EntityBase) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Entity is implemented by every entity kind. Validate is called once at
// construction; Base gives the registry and engine uniform access to the
// common fields without a type switch at every call site.
type Entity interface {
	Base() *EntityBase
	Validate() error
}

// ----------------------------------------------------------------------------
// 👤 Employee ------------------------------------------------------------------
// ----------------------------------------------------------------------------

type Employee struct {
	EntityBase
	Salary    float64
	Position  string
	Department string

	OverheadMultiplier float64 // 1.0 = no overhead; scenarios scale this
	BenefitsAnnual     *float64

	HomeOfficeStipend           float64
	ProfessionalDevelopmentAnnual float64
	EquipmentBudgetAnnual        float64
	ConferenceBudgetAnnual       float64

	SigningBonus        float64
	RelocationAssistance float64

	BonusPerformanceMax float64 // fraction of salary, annualized
	BonusMilestonesMax  float64

	EquityShares        int
	EquityCliffMonths   int
	EquityVestYears     float64
}

func NewEmployee(name string, start time.Time, salary float64) (*Employee, error) {
	e := &Employee{
		EntityBase:         EntityBase{Kind: KindEmployee, Name: name, StartDate: start},
		Salary:             salary,
		OverheadMultiplier: 1.0,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Employee) Base() *EntityBase { return &e.EntityBase }

func (e *Employee) Validate() error {
	if err := requirePositive("salary", e.Salary); err != nil {
		return err
	}
	if e.OverheadMultiplier < 1.0 {
		return errBadRange("overhead_multiplier", "must be >= 1.0, got %v", e.OverheadMultiplier)
	}
	return nil
}

// BaseMonthlyCost mirrors calculate_base_monthly_cost: salary/12.
func (e *Employee) BaseMonthlyCost() float64 { return e.Salary / 12 }

// OverheadCost mirrors calculate_overhead_cost.
func (e *Employee) OverheadCost() float64 {
	cost := e.BaseMonthlyCost() * (e.OverheadMultiplier - 1.0)
	if e.BenefitsAnnual != nil {
		cost += *e.BenefitsAnnual / 12
	}
	return cost
}

// Allowances mirrors calculate_allowances.
func (e *Employee) Allowances() float64 {
	annualized := e.ProfessionalDevelopmentAnnual + e.EquipmentBudgetAnnual + e.ConferenceBudgetAnnual
	return e.HomeOfficeStipend + annualized/12
}

// OneTimeCosts mirrors calculate_one_time_costs: only in the literal start month.
func (e *Employee) OneTimeCosts(asOf time.Time) float64 {
	if !sameMonth(e.StartDate, asOf) {
		return 0
	}
	return e.SigningBonus + e.RelocationAssistance
}

// BonusPotential mirrors calculate_bonus_potential.
func (e *Employee) BonusPotential() float64 {
	return (e.Salary*e.BonusPerformanceMax)/12 + (e.Salary*e.BonusMilestonesMax)/12
}

// TotalCost mirrors calculate_total_cost; includeBonus toggles bonus potential.
func (e *Employee) TotalCost(asOf time.Time, includeBonus bool) float64 {
	total := e.BaseMonthlyCost() + e.OverheadCost() + e.Allowances() + e.OneTimeCosts(asOf)
	if includeBonus {
		total += e.BonusPotential()
	}
	return total
}

// EquityVestedPercentage mirrors the cliff-then-linear vesting formula.
func (e *Employee) EquityVestedPercentage(asOf time.Time) float64 {
	if e.EquityVestYears <= 0 {
		return 0
	}
	months := monthsBetween(e.StartDate, asOf)
	if months < e.EquityCliffMonths {
		return 0
	}
	vestMonths := e.EquityVestYears * 12
	pct := float64(months) / vestMonths
	if pct > 1.0 {
		pct = 1.0
	}
	return pct
}

func (e *Employee) EquityVestedShares(asOf time.Time) int {
	return int(float64(e.EquityShares) * e.EquityVestedPercentage(asOf))
}

// ----------------------------------------------------------------------------
// 💰 Grant -----------------------------------------------------------------
// ----------------------------------------------------------------------------

type PaymentEntry struct {
	Date   time.Time
	Amount float64
}

type Grant struct {
	EntityBase
	Amount            float64
	Agency            string
	Program           string
	PaymentSchedule   []PaymentEntry
	IndirectCostRate  float64
}

func NewGrant(name string, start time.Time, amount float64) (*Grant, error) {
	g := &Grant{EntityBase: EntityBase{Kind: KindGrant, Name: name, StartDate: start}, Amount: amount}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grant) Base() *EntityBase { return &g.EntityBase }

func (g *Grant) Validate() error {
	if err := requirePositive("amount", g.Amount); err != nil {
		return err
	}
	return requireRange("indirect_cost_rate", g.IndirectCostRate, 0, 1.0)
}

// MonthlyDisbursement mirrors calculate_monthly_disbursement.
func (g *Grant) MonthlyDisbursement(asOf time.Time) float64 {
	if !g.IsActive(asOf) {
		return 0
	}
	if len(g.PaymentSchedule) > 0 {
		total := 0.0
		for _, p := range g.PaymentSchedule {
			if sameMonth(p.Date, asOf) {
				total += p.Amount
			}
		}
		return total
	}
	grantMonths := 24
	if g.EndDate != nil {
		grantMonths = monthsBetween(g.StartDate, *g.EndDate)
	}
	if grantMonths < 1 {
		grantMonths = 1
	}
	return g.Amount / float64(grantMonths)
}

// ----------------------------------------------------------------------------
// 💵 Investment --------------------------------------------------------------
// ----------------------------------------------------------------------------

type Investment struct {
	EntityBase
	Amount                float64
	Investor              string
	RoundName             string
	PreMoneyValuation     *float64
	PostMoneyValuation    *float64
	LiquidationPreference *float64
	BoardSeats            int
	DisbursementSchedule  []PaymentEntry
}

func NewInvestment(name string, start time.Time, amount float64) (*Investment, error) {
	inv := &Investment{EntityBase: EntityBase{Kind: KindInvestment, Name: name, StartDate: start}, Amount: amount}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *Investment) Base() *EntityBase { return &i.EntityBase }

func (i *Investment) Validate() error { return requirePositive("amount", i.Amount) }

// MonthlyDisbursement mirrors calculate_monthly_disbursement (lump sum in
// the start month when no schedule is given).
func (i *Investment) MonthlyDisbursement(asOf time.Time) float64 {
	if !i.IsActive(asOf) {
		return 0
	}
	if len(i.DisbursementSchedule) > 0 {
		total := 0.0
		for _, d := range i.DisbursementSchedule {
			if sameMonth(d.Date, asOf) {
				total += d.Amount
			}
		}
		return total
	}
	if sameMonth(i.StartDate, asOf) {
		return i.Amount
	}
	return 0
}

// ----------------------------------------------------------------------------
// 🛒 Sale --------------------------------------------------------------------
// ----------------------------------------------------------------------------

type Sale struct {
	EntityBase
	Amount          float64
	Customer        string
	Product         string
	DeliveryDate    *time.Time
	PaymentSchedule []PaymentEntry
}

func NewSale(name string, start time.Time, amount float64) (*Sale, error) {
	s := &Sale{EntityBase: EntityBase{Kind: KindSale, Name: name, StartDate: start}, Amount: amount}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sale) Base() *EntityBase { return &s.EntityBase }

func (s *Sale) Validate() error { return requirePositive("amount", s.Amount) }

// MonthlyRevenue mirrors calculate_monthly_revenue.
func (s *Sale) MonthlyRevenue(asOf time.Time) float64 {
	if !s.IsActive(asOf) {
		return 0
	}
	if len(s.PaymentSchedule) > 0 {
		total := 0.0
		for _, p := range s.PaymentSchedule {
			if sameMonth(p.Date, asOf) {
				total += p.Amount
			}
		}
		return total
	}
	revenueDate := s.StartDate
	if s.DeliveryDate != nil {
		revenueDate = *s.DeliveryDate
	}
	if sameMonth(revenueDate, asOf) {
		return s.Amount
	}
	return 0
}

// ----------------------------------------------------------------------------
// 🤝 Service -------------------------------------------------------------------
// ----------------------------------------------------------------------------

type Service struct {
	EntityBase
	MonthlyAmount            float64
	Customer                 string
	ServiceType               string
	HourlyRate               *float64
	MinimumCommitmentMonths  int
	AutoRenewal              bool
}

func NewService(name string, start time.Time, monthlyAmount float64) (*Service, error) {
	s := &Service{EntityBase: EntityBase{Kind: KindService, Name: name, StartDate: start}, MonthlyAmount: monthlyAmount}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Base() *EntityBase { return &s.EntityBase }

func (s *Service) Validate() error { return requirePositive("monthly_amount", s.MonthlyAmount) }

// MonthlyRevenue mirrors calculate_monthly_revenue, including the
// minimum-commitment-then-contract-end check.
func (s *Service) MonthlyRevenue(asOf time.Time) float64 {
	if !s.IsActive(asOf) {
		return 0
	}
	if s.MinimumCommitmentMonths > 0 {
		monthsActive := monthsBetween(s.StartDate, asOf)
		if monthsActive >= s.MinimumCommitmentMonths && s.EndDate != nil {
			if !asOf.Before(*s.EndDate) {
				return 0
			}
		}
	}
	return s.MonthlyAmount
}

// ----------------------------------------------------------------------------
// 🏢 Facility ------------------------------------------------------------------
// ----------------------------------------------------------------------------

type Facility struct {
	EntityBase
	MonthlyCost       float64
	UtilitiesMonthly  float64
	InternetMonthly   *float64
	SecurityMonthly   *float64
	CleaningMonthly   *float64
	MaintenanceMonthly *float64
	InsuranceAnnual   *float64
	PropertyTaxAnnual *float64
	MaintenanceAnnual *float64
	MaintenanceQuarterly *float64
}

func NewFacility(name string, start time.Time, monthlyCost float64) (*Facility, error) {
	f := &Facility{EntityBase: EntityBase{Kind: KindFacility, Name: name, StartDate: start}, MonthlyCost: monthlyCost}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Facility) Base() *EntityBase { return &f.EntityBase }

func (f *Facility) Validate() error { return requireNonNegative("monthly_cost", f.MonthlyCost) }

// TotalMonthlyCost mirrors the facility cost sum in models/expense.py.
func (f *Facility) TotalMonthlyCost() float64 {
	total := f.MonthlyCost + f.UtilitiesMonthly
	if f.InternetMonthly != nil {
		total += *f.InternetMonthly
	}
	if f.SecurityMonthly != nil {
		total += *f.SecurityMonthly
	}
	if f.CleaningMonthly != nil {
		total += *f.CleaningMonthly
	}
	if f.MaintenanceMonthly != nil {
		total += *f.MaintenanceMonthly
	}
	if f.InsuranceAnnual != nil {
		total += *f.InsuranceAnnual / 12
	}
	if f.PropertyTaxAnnual != nil {
		total += *f.PropertyTaxAnnual / 12
	}
	if f.MaintenanceAnnual != nil {
		total += *f.MaintenanceAnnual / 12
	}
	if f.MaintenanceQuarterly != nil {
		total += *f.MaintenanceQuarterly / 3
	}
	return total
}

// ----------------------------------------------------------------------------
// 💻 Software ------------------------------------------------------------------
// ----------------------------------------------------------------------------

type Software struct {
	EntityBase
	MonthlyCost  float64
	AnnualCost   *float64
	PerUserCost  *float64
	LicenseCount *int
}

func NewSoftware(name string, start time.Time) (*Software, error) {
	s := &Software{EntityBase: EntityBase{Kind: KindSoftware, Name: name, StartDate: start}}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Software) Base() *EntityBase { return &s.EntityBase }

func (s *Software) Validate() error { return requireNonNegative("monthly_cost", s.MonthlyCost) }

// RecurringCost mirrors the annual/per-user/flat precedence in models/expense.py.
func (s *Software) RecurringCost() float64 {
	if s.AnnualCost != nil {
		return *s.AnnualCost / 12
	}
	if s.PerUserCost != nil && s.LicenseCount != nil {
		return *s.PerUserCost * float64(*s.LicenseCount)
	}
	return s.MonthlyCost
}

// ----------------------------------------------------------------------------
// 🖥️ Equipment -----------------------------------------------------------------
// ----------------------------------------------------------------------------

type Equipment struct {
	EntityBase
	Cost                 float64
	ResidualValue        float64
	DepreciationYears    float64
	PurchaseDate         time.Time
	MaintenanceCostAnnual float64
	SupportContractAnnual float64
}

func NewEquipment(name string, start time.Time, cost float64, depreciationYears float64) (*Equipment, error) {
	eq := &Equipment{
		EntityBase:        EntityBase{Kind: KindEquipment, Name: name, StartDate: start},
		Cost:              cost,
		DepreciationYears: depreciationYears,
		PurchaseDate:      start,
	}
	if err := eq.Validate(); err != nil {
		return nil, err
	}
	return eq, nil
}

func (eq *Equipment) Base() *EntityBase { return &eq.EntityBase }

func (eq *Equipment) Validate() error {
	if err := requirePositive("cost", eq.Cost); err != nil {
		return err
	}
	return requirePositive("depreciation_years", eq.DepreciationYears)
}

// MonthlyDepreciation mirrors straight-line depreciation, zeroed once fully
// depreciated.
func (eq *Equipment) MonthlyDepreciation(asOf time.Time) float64 {
	fullyDepreciatedAt := eq.PurchaseDate.AddDate(int(eq.DepreciationYears), 0, 0)
	if !asOf.Before(fullyDepreciatedAt) {
		return 0
	}
	return (eq.Cost - eq.ResidualValue) / (eq.DepreciationYears * 12)
}

func (eq *Equipment) MonthlyMaintenance() float64 { return eq.MaintenanceCostAnnual / 12 }
func (eq *Equipment) MonthlySupport() float64     { return eq.SupportContractAnnual / 12 }

// TotalMonthlyCost mirrors depreciation + maintenance + support.
func (eq *Equipment) TotalMonthlyCost(asOf time.Time) float64 {
	return eq.MonthlyDepreciation(asOf) + eq.MonthlyMaintenance() + eq.MonthlySupport()
}

// CurrentBookValue mirrors get_current_book_value.
func (eq *Equipment) CurrentBookValue(asOf time.Time) float64 {
	monthsSince := monthsBetween(eq.PurchaseDate, asOf)
	if monthsSince < 0 {
		monthsSince = 0
	}
	value := eq.Cost - eq.MonthlyDepreciation(eq.PurchaseDate)*float64(monthsSince)
	if value < eq.ResidualValue {
		return eq.ResidualValue
	}
	return value
}

// ----------------------------------------------------------------------------
// 📁 Project -------------------------------------------------------------------
// ----------------------------------------------------------------------------

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type Project struct {
	EntityBase
	TotalBudget       float64
	BudgetCategories  map[string]float64
	BudgetSpent       float64
	BudgetCommitted   float64
	PlannedStartDate  *time.Time
	ActualStartDate   *time.Time
	PlannedEndDate    *time.Time
	Status            ProjectStatus
	CompletionPercentage float64
}

func NewProject(name string, start time.Time, totalBudget float64) (*Project, error) {
	p := &Project{
		EntityBase:  EntityBase{Kind: KindProject, Name: name, StartDate: start},
		TotalBudget: totalBudget,
		Status:      ProjectPlanned,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) Base() *EntityBase { return &p.EntityBase }

func (p *Project) Validate() error {
	if err := requirePositive("total_budget", p.TotalBudget); err != nil {
		return err
	}
	return requireRange("completion_percentage", p.CompletionPercentage, 0, 100)
}

// IsActiveProject mirrors is_active_project: status overrides the base
// date-range check.
func (p *Project) IsActiveProject(asOf time.Time) bool {
	if p.Status == ProjectCancelled || p.Status == ProjectCompleted {
		return false
	}
	return p.IsActive(asOf)
}

// durationMonths mirrors get_project_duration_months.
func (p *Project) durationMonths() int {
	start := p.StartDate
	if p.ActualStartDate != nil {
		start = *p.ActualStartDate
	} else if p.PlannedStartDate != nil {
		start = *p.PlannedStartDate
	}
	end := p.EndDate
	if p.PlannedEndDate != nil {
		end = p.PlannedEndDate
	}
	if end == nil {
		return 12
	}
	return monthsBetween(start, *end)
}

// MonthlyBurnRate mirrors calculate_monthly_burn_rate.
func (p *Project) MonthlyBurnRate(asOf time.Time) float64 {
	if !p.IsActiveProject(asOf) {
		return 0
	}
	if len(p.BudgetCategories) > 0 {
		sum := 0.0
		for _, v := range p.BudgetCategories {
			sum += v
		}
		return sum / 12
	}
	if months := p.durationMonths(); months > 0 {
		return p.TotalBudget / float64(months)
	}
	return 0
}

// ----------------------------------------------------------------------------
// 🧾 Cap table: ShareClass, Shareholder, FundingRound ---------------------------
// ----------------------------------------------------------------------------

type ShareClass struct {
	EntityBase
	ClassName             string
	SharesAuthorized      int
	SharesOutstanding     int
	ParValue              float64
	LiquidationPreference float64
	Participating         bool
	VotingRightsPerShare  float64
	// LiquidationSeniority is a genuine addition beyond the original model
	// (see DESIGN.md Open Question 2): higher sorts first in the waterfall.
	LiquidationSeniority int
}

func NewShareClass(name string, start time.Time, authorized, outstanding int) (*ShareClass, error) {
	sc := &ShareClass{
		EntityBase:            EntityBase{Kind: KindShareClass, Name: name, StartDate: start},
		ClassName:             name,
		SharesAuthorized:      authorized,
		SharesOutstanding:     outstanding,
		ParValue:              0.001,
		LiquidationPreference: 1.0,
		VotingRightsPerShare:  1.0,
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *ShareClass) Base() *EntityBase { return &sc.EntityBase }

func (sc *ShareClass) Validate() error {
	if sc.SharesAuthorized <= 0 {
		return errInvalidField("shares_authorized", "must be positive, got %d", sc.SharesAuthorized)
	}
	if sc.SharesOutstanding < 0 || sc.SharesOutstanding > sc.SharesAuthorized {
		return errBadRange("shares_outstanding", "must be between 0 and shares_authorized (%d), got %d", sc.SharesAuthorized, sc.SharesOutstanding)
	}
	if err := requireRange("liquidation_preference", sc.LiquidationPreference, 0, 10); err != nil {
		return err
	}
	return requireRange("voting_rights_per_share", sc.VotingRightsPerShare, 0, 100)
}

// LiquidationProceeds mirrors calculate_liquidation_proceeds: non-participating
// preferred takes the greater of its preference or its pro-rata share of exit
// value across all classes outstanding; participating preferred takes both.
// totalSharesOutstanding is the fully-diluted share count across the whole
// cap table, not just this class.
func (sc *ShareClass) LiquidationProceeds(exitValue float64, totalSharesOutstanding int) float64 {
	if totalSharesOutstanding == 0 {
		return 0
	}
	totalPreference := sc.LiquidationPreference * sc.ParValue * float64(sc.SharesOutstanding)
	proRata := (float64(sc.SharesOutstanding) / float64(totalSharesOutstanding)) * exitValue
	if !sc.Participating {
		if totalPreference > proRata {
			return totalPreference
		}
		return proRata
	}
	residualExit := exitValue - totalPreference
	if residualExit < 0 {
		residualExit = 0
	}
	residualShare := (float64(sc.SharesOutstanding) / float64(totalSharesOutstanding)) * residualExit
	return totalPreference + residualShare
}

type ShareholderType string

const (
	ShareholderFounder    ShareholderType = "founder"
	ShareholderEmployee   ShareholderType = "employee"
	ShareholderInvestor   ShareholderType = "investor"
	ShareholderAdvisor    ShareholderType = "advisor"
	ShareholderConsultant ShareholderType = "consultant"
	ShareholderOther      ShareholderType = "other"
)

type Shareholder struct {
	EntityBase
	ShareholderType ShareholderType
	TotalShares     int
	ShareClassName  string
	CliffMonths     int
	VestingMonths   int
	BoardSeats      int
}

func NewShareholder(name string, start time.Time, shType ShareholderType, totalShares int) (*Shareholder, error) {
	sh := &Shareholder{
		EntityBase:      EntityBase{Kind: KindShareholder, Name: name, StartDate: start},
		ShareholderType: shType,
		TotalShares:     totalShares,
		ShareClassName:  "common",
	}
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	return sh, nil
}

func (sh *Shareholder) Base() *EntityBase { return &sh.EntityBase }

func (sh *Shareholder) Validate() error {
	switch sh.ShareholderType {
	case ShareholderFounder, ShareholderEmployee, ShareholderInvestor, ShareholderAdvisor, ShareholderConsultant, ShareholderOther:
	default:
		return errInvalidField("shareholder_type", "unrecognized shareholder type %q", sh.ShareholderType)
	}
	return requirePositive("total_shares", float64(sh.TotalShares))
}

// VestedShares mirrors calculate_vested_shares: cliff then linear vest.
func (sh *Shareholder) VestedShares(asOf time.Time) int {
	if sh.VestingMonths <= 0 {
		return sh.TotalShares
	}
	months := monthsBetween(sh.StartDate, asOf)
	if months < sh.CliffMonths {
		return 0
	}
	if months >= sh.VestingMonths {
		return sh.TotalShares
	}
	return int(float64(sh.TotalShares) * (float64(months) / float64(sh.VestingMonths)))
}

type FundingRound struct {
	EntityBase
	RoundType           string
	AmountRaised        float64
	PreMoneyValuation   *float64
	PostMoneyValuation  *float64
	SharesIssued        *int
	PricePerShare       *float64
	OptionPoolIncrease  float64
}

func NewFundingRound(name string, start time.Time, amountRaised float64) (*FundingRound, error) {
	fr := &FundingRound{EntityBase: EntityBase{Kind: KindFundingRound, Name: name, StartDate: start}, AmountRaised: amountRaised}
	if err := fr.Validate(); err != nil {
		return nil, err
	}
	return fr, nil
}

func (fr *FundingRound) Base() *EntityBase { return &fr.EntityBase }

func (fr *FundingRound) Validate() error {
	if err := requirePositive("amount_raised", fr.AmountRaised); err != nil {
		return err
	}
	if fr.PreMoneyValuation == nil && fr.PostMoneyValuation == nil {
		return errValidationFailed("pre_money_valuation", "at least one of pre_money_valuation or post_money_valuation is required")
	}
	return nil
}

// ComputedPostMoney mirrors computed_post_money_valuation.
func (fr *FundingRound) ComputedPostMoney() float64 {
	if fr.PostMoneyValuation != nil {
		return *fr.PostMoneyValuation
	}
	return *fr.PreMoneyValuation + fr.AmountRaised
}

// ComputedPreMoney mirrors computed_pre_money_valuation.
func (fr *FundingRound) ComputedPreMoney() float64 {
	if fr.PreMoneyValuation != nil {
		return *fr.PreMoneyValuation
	}
	return *fr.PostMoneyValuation - fr.AmountRaised
}

// DilutionImpact mirrors calculate_dilution_impact.
func (fr *FundingRound) DilutionImpact(preRoundShares int) (float64, error) {
	if fr.SharesIssued == nil {
		return 0, errBadState("shares_issued not set on funding round %q", fr.Name)
	}
	total := preRoundShares + *fr.SharesIssued
	if total == 0 {
		return 0, nil
	}
	return float64(*fr.SharesIssued) / float64(total), nil
}

// cloneExtras deep-copies an Extras map so a clone's mutations (scenario
// overrides, Monte Carlo sampling) never alias the original entity's map.
func cloneExtras(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneEntity returns a shallow copy of e behind a fresh pointer, so
// scenario overrides can mutate the copy without touching the stored
// original. Extras is deep-copied; every other field is a shallow copy
// (pointer fields like *float64 are still shared with the original, but
// setField/scaleField always assign a fresh value rather than mutate
// through the pointer, so this is safe).
func CloneEntity(e Entity) Entity {
	switch v := e.(type) {
	case *Employee:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Grant:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Investment:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Sale:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Service:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Facility:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Software:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Equipment:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Project:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *Shareholder:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *ShareClass:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	case *FundingRound:
		cp := *v
		cp.Extras = cloneExtras(cp.Extras)
		return &cp
	default:
		return e
	}
}

// NewEntity is a generic construction dispatcher used by the YAML loader: it
// builds a minimally valid entity of the given kind and lets the caller
// populate the remaining fields before calling Validate again.
func NewEntity(kind EntityKind, name string, start time.Time) (Entity, error) {
	switch kind {
	case KindEmployee:
		return NewEmployee(name, start, 1)
	case KindGrant:
		return NewGrant(name, start, 1)
	case KindInvestment:
		return NewInvestment(name, start, 1)
	case KindSale:
		return NewSale(name, start, 1)
	case KindService:
		return NewService(name, start, 1)
	case KindFacility:
		return NewFacility(name, start, 0)
	case KindSoftware:
		return NewSoftware(name, start)
	case KindEquipment:
		return NewEquipment(name, start, 1, 1)
	case KindProject:
		return NewProject(name, start, 1)
	case KindShareholder:
		return NewShareholder(name, start, ShareholderOther, 1)
	case KindShareClass:
		return NewShareClass(name, start, 1, 0)
	case KindFundingRound:
		pre := 1.0
		fr := &FundingRound{EntityBase: EntityBase{Kind: KindFundingRound, Name: name, StartDate: start}, AmountRaised: 1, PreMoneyValuation: &pre}
		return fr, nil
	default:
		return nil, errInvalidField("type", "unrecognized entity kind %q", kind)
	}
}
