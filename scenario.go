package capflow

// Scenario model: override/filter grammar and the four built-in named
// scenarios, ported field-for-field from engine/scenarios.py's Scenario,
// ScenarioManager, and _create_default_scenarios.

import (
	"regexp"
	"time"
)

// OverrideCriteria selects which entities an Override applies to. The first
// criterion that matches wins — entity name, exact type, a case-insensitive
// name pattern, or tag intersection, checked in that priority order, exactly
// like _matches_override_criteria.
type OverrideCriteria struct {
	Entity      string
	EntityType  EntityKind
	NamePattern string
	Tags        []string
}

func (c OverrideCriteria) matches(e Entity) bool {
	b := e.Base()
	if c.Entity != "" && b.Name == c.Entity {
		return true
	}
	if c.EntityType != "" && b.Kind == c.EntityType {
		return true
	}
	if c.NamePattern != "" {
		re, err := regexp.Compile("(?i)" + c.NamePattern)
		if err == nil && re.MatchString(b.Name) {
			return true
		}
	}
	for _, t := range c.Tags {
		if b.HasTag(t) {
			return true
		}
	}
	return false
}

// Override applies to every entity matched by Criteria: either a direct
// field Value assignment, a Multiplier scale (only meaningful for numeric
// fields), or a batch of Changes, mirroring _apply_override's three forms.
type Override struct {
	Criteria   OverrideCriteria
	Field      string
	Value      any
	Multiplier float64
	Changes    map[string]any
}

// Filters mirrors should_include_entity's filter grammar.
type Filters struct {
	IncludeTypes    []EntityKind
	ExcludeTypes    []EntityKind
	IncludePatterns []string
	ExcludePatterns []string
	RequireTags     []string
	ExcludeTags     []string
}

func (f Filters) shouldInclude(e Entity) bool {
	b := e.Base()
	if len(f.IncludeTypes) > 0 && !containsKind(f.IncludeTypes, b.Kind) {
		return false
	}
	if containsKind(f.ExcludeTypes, b.Kind) {
		return false
	}
	if len(f.IncludePatterns) > 0 && !anyPatternMatches(f.IncludePatterns, b.Name) {
		return false
	}
	if anyPatternMatches(f.ExcludePatterns, b.Name) {
		return false
	}
	if len(f.RequireTags) > 0 && !anyTagMatches(b, f.RequireTags) {
		return false
	}
	if anyTagMatches(b, f.ExcludeTags) {
		return false
	}
	return true
}

func containsKind(kinds []EntityKind, k EntityKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func anyPatternMatches(patterns []string, name string) bool {
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func anyTagMatches(b *EntityBase, tags []string) bool {
	for _, t := range tags {
		if b.HasTag(t) {
			return true
		}
	}
	return false
}

// Assumptions mirrors the global-assumption block _apply_global_assumptions
// consumes: only overhead_multiplier and hiring_delay_months have any
// engine-side effect; revenue_growth_rate is carried for callers (e.g.
// whatif.go) to opt into explicitly (see DESIGN.md Open Question 3).
type Assumptions struct {
	RevenueGrowthRate  float64
	OverheadMultiplier float64
	HiringDelayMonths  int
}

// Scenario bundles overrides, filters, and assumptions under a name.
type Scenario struct {
	Name        string
	Description string
	Overrides   []Override
	Filters     Filters
	Assumptions Assumptions
}

// ShouldInclude applies s.Filters, defaulting to true when no filters are
// configured.
func (s *Scenario) ShouldInclude(e Entity) bool {
	if s == nil {
		return true
	}
	return s.Filters.shouldInclude(e)
}

// ApplyToEntity returns a modified copy of e with every matching override
// and global assumption applied. The original entity (and the store behind
// it) is never mutated.
func (s *Scenario) ApplyToEntity(e Entity) Entity {
	if s == nil {
		return e
	}
	out := CloneEntity(e)
	for _, ov := range s.Overrides {
		if ov.Criteria.matches(out) {
			applyOverride(out, ov)
		}
	}
	applyGlobalAssumptions(out, s.Assumptions)
	return out
}

func applyOverride(e Entity, ov Override) {
	if len(ov.Changes) > 0 {
		for field, value := range ov.Changes {
			setField(e, field, value)
		}
		return
	}
	if ov.Multiplier != 0 {
		scaleField(e, ov.Field, ov.Multiplier)
		return
	}
	if ov.Value != nil {
		setField(e, ov.Field, ov.Value)
	}
}

// applyGlobalAssumptions mirrors _apply_global_assumptions: overhead only
// applies to employees and only if the field hasn't already been set away
// from the default; hiring delay shifts the start date by delay*30 days,
// matching the Python original's calendar-day approximation.
func applyGlobalAssumptions(e Entity, a Assumptions) {
	if emp, ok := e.(*Employee); ok {
		if a.OverheadMultiplier != 0 && emp.OverheadMultiplier == 1.0 {
			emp.OverheadMultiplier = a.OverheadMultiplier
		}
	}
	if a.HiringDelayMonths != 0 {
		if emp, ok := e.(*Employee); ok {
			emp.StartDate = emp.StartDate.AddDate(0, 0, a.HiringDelayMonths*30)
		}
	}
}

// setField and scaleField implement the field/multiplier override forms.
// setField defers to assignField (fields.go) — the full wire-name table
// every entity kind exposes — so an override, an UncertaintyModel, or a
// loaded YAML document all resolve field names identically. Unknown fields
// are ignored, matching the Python original's permissive setattr-if-present
// behavior.
func setField(e Entity, field string, value any) {
	assignField(e, field, value)
}

// scaleField covers the numeric fields a Multiplier override actually
// scales; unlike setField it must read the
// current value first, so it keeps its own narrower table rather than
// going through assignField.
func scaleField(e Entity, field string, multiplier float64) {
	switch v := e.(type) {
	case *Sale:
		if field == "amount" {
			v.Amount *= multiplier
		}
	case *Service:
		if field == "monthly_amount" {
			v.MonthlyAmount *= multiplier
		}
	case *Grant:
		if field == "amount" {
			v.Amount *= multiplier
		}
	case *Facility:
		if field == "monthly_cost" {
			v.MonthlyCost *= multiplier
		}
	case *Employee:
		switch field {
		case "overhead_multiplier":
			v.OverheadMultiplier *= multiplier
		case "salary":
			v.Salary *= multiplier
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// DefaultScenarios builds the four built-in named scenarios with the exact
// field values from _create_default_scenarios.
func DefaultScenarios() map[string]*Scenario {
	scenarios := map[string]*Scenario{
		"baseline": {
			Name:        "baseline",
			Description: "Baseline growth assumptions",
			Assumptions: Assumptions{RevenueGrowthRate: 0.10, OverheadMultiplier: 1.3, HiringDelayMonths: 0},
		},
		"optimistic": {
			Name:        "optimistic",
			Description: "Optimistic growth, early hiring",
			Assumptions: Assumptions{RevenueGrowthRate: 0.25, OverheadMultiplier: 1.2, HiringDelayMonths: -1},
			Overrides: []Override{
				{Criteria: OverrideCriteria{EntityType: KindSale}, Field: "amount", Multiplier: 1.5},
				{Criteria: OverrideCriteria{EntityType: KindService}, Field: "monthly_amount", Multiplier: 1.2},
			},
		},
		"conservative": {
			Name:        "conservative",
			Description: "Conservative growth, delayed hiring",
			Assumptions: Assumptions{RevenueGrowthRate: 0.05, OverheadMultiplier: 1.4, HiringDelayMonths: 2},
			Overrides: []Override{
				{Criteria: OverrideCriteria{EntityType: KindSale}, Field: "amount", Multiplier: 0.8},
				{Criteria: OverrideCriteria{EntityType: KindGrant}, Field: "amount", Multiplier: 0.9},
			},
		},
		"cash_preservation": {
			Name:        "cash_preservation",
			Description: "Aggressive cash preservation: delayed hiring, cut discretionary spend",
			Assumptions: Assumptions{OverheadMultiplier: 1.1, HiringDelayMonths: 6},
			Filters: Filters{
				ExcludeTags:     []string{"non_essential"},
				ExcludePatterns: []string{"bonus", "stipend"},
			},
			Overrides: []Override{
				{Criteria: OverrideCriteria{NamePattern: "bonus"}, Field: "bonus_performance_max", Value: 0.0},
				{Criteria: OverrideCriteria{EntityType: KindFacility}, Field: "monthly_cost", Multiplier: 0.9},
			},
		},
	}
	return scenarios
}

// ScenarioManager holds named scenarios and loads/applies them, mirroring
// ScenarioManager in the Python original.
type ScenarioManager struct {
	scenarios map[string]*Scenario
}

func NewScenarioManager() *ScenarioManager {
	return &ScenarioManager{scenarios: DefaultScenarios()}
}

func (m *ScenarioManager) Add(s *Scenario) { m.scenarios[s.Name] = s }

func (m *ScenarioManager) Get(name string) (*Scenario, error) {
	s, ok := m.scenarios[name]
	if !ok {
		return nil, errNotFound("scenario %q not found", name)
	}
	return s, nil
}

func (m *ScenarioManager) List() []string {
	names := make([]string, 0, len(m.scenarios))
	for name := range m.scenarios {
		names = append(names, name)
	}
	return names
}

// hiringDelayDate applies the hiring_delay_months*30-day shift used for
// describing the effective hire date of a scenario-adjusted employee,
// without mutating the underlying entity (useful for reporting).
func hiringDelayDate(start time.Time, delayMonths int) time.Time {
	return start.AddDate(0, 0, delayMonths*30)
}
