package capflow

// Calculator registry: dispatches (entity kind, calculator name) to a
// computation function. Mirrors engine/calculators.py's CalculatorRegistry,
// including its isolation guarantee — one calculator panicking or erroring
// never aborts the rest of the period's calculation, it is logged and
// skipped.

import (
	"fmt"
	"sort"
	"time"
)

// CalculationContext mirrors the Python CalculationContext: the as-of date
// plus whatever scenario is in effect, passed to every calculator.
type CalculationContext struct {
	AsOf     time.Time
	Scenario *Scenario
}

// CalculatorFunc computes one named metric for one entity as of the context
// date. Results are plain float64 because every calculator in this engine
// resolves to a monthly dollar amount or count.
type CalculatorFunc func(e Entity, ctx CalculationContext) (float64, error)

type calculatorKey struct {
	kind EntityKind
	name string
}

// Registry holds the calculator dispatch table. The zero value is usable;
// RegisterBuiltins populates the standard set.
type Registry struct {
	calculators map[calculatorKey]CalculatorFunc
}

func NewRegistry() *Registry {
	r := &Registry{calculators: make(map[calculatorKey]CalculatorFunc)}
	r.RegisterBuiltins()
	return r
}

func (r *Registry) Register(kind EntityKind, name string, fn CalculatorFunc) {
	if r.calculators == nil {
		r.calculators = make(map[calculatorKey]CalculatorFunc)
	}
	r.calculators[calculatorKey{kind, name}] = fn
}

func (r *Registry) Get(kind EntityKind, name string) (CalculatorFunc, bool) {
	fn, ok := r.calculators[calculatorKey{kind, name}]
	return fn, ok
}

// CalculatorNames mirrors the Python registry's per-kind list of built-in
// calculator names. CalculateAll does not consult it; it runs whatever is
// registered for the kind.
func (r *Registry) CalculatorNames(kind EntityKind) []string {
	switch kind {
	case KindEmployee:
		return []string{"total_cost"}
	case KindGrant, KindInvestment:
		return []string{"disbursement"}
	case KindSale, KindService:
		return []string{"revenue"}
	case KindFacility, KindSoftware:
		return []string{"recurring"}
	case KindEquipment:
		return []string{"depreciation", "maintenance", "one_time"}
	case KindProject:
		return []string{"burn"}
	case KindShareClass:
		return []string{"ownership_percentage", "voting_control", "board_control"}
	case KindFundingRound:
		return []string{"dilution_impact"}
	default:
		return nil
	}
}

// CalculateAll runs every calculator registered for e's kind and returns a
// name->value map. A calculator that panics or returns an error is logged
// and simply omitted from the result — it never aborts the caller's frame,
// matching calculate_all's try/except-continue-and-print.
func (r *Registry) CalculateAll(e Entity, ctx CalculationContext) map[string]float64 {
	results := make(map[string]float64)
	var names []string
	for key := range r.calculators {
		if key.kind == e.Base().Kind {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		name := name
		func() {
			defer func() {
				if p := recover(); p != nil {
					Log.Error().
						Str("entity", e.Base().Name).
						Str("calculator", name).
						Interface("panic", p).
						Msg("calculator panicked, skipping")
				}
			}()
			fn, ok := r.Get(e.Base().Kind, name)
			if !ok {
				return
			}
			v, err := fn(e, ctx)
			if err != nil {
				Log.Warn().
					Str("entity", e.Base().Name).
					Str("calculator", name).
					Err(err).
					Msg("calculator failed, skipping")
				return
			}
			results[name] = v
		}()
	}
	return results
}

// RegisterBuiltins wires the standard calculator set, grounded directly on
// each entity's domain methods from entity.go.
func (r *Registry) RegisterBuiltins() {
	r.Register(KindEmployee, "total_cost", func(e Entity, ctx CalculationContext) (float64, error) {
		emp, ok := e.(*Employee)
		if !ok {
			return 0, fmt.Errorf("expected *Employee, got %T", e)
		}
		return emp.TotalCost(ctx.AsOf, true), nil
	})

	r.Register(KindGrant, "disbursement", func(e Entity, ctx CalculationContext) (float64, error) {
		g, ok := e.(*Grant)
		if !ok {
			return 0, fmt.Errorf("expected *Grant, got %T", e)
		}
		return g.MonthlyDisbursement(ctx.AsOf), nil
	})

	r.Register(KindInvestment, "disbursement", func(e Entity, ctx CalculationContext) (float64, error) {
		inv, ok := e.(*Investment)
		if !ok {
			return 0, fmt.Errorf("expected *Investment, got %T", e)
		}
		return inv.MonthlyDisbursement(ctx.AsOf), nil
	})

	r.Register(KindSale, "revenue", func(e Entity, ctx CalculationContext) (float64, error) {
		s, ok := e.(*Sale)
		if !ok {
			return 0, fmt.Errorf("expected *Sale, got %T", e)
		}
		return s.MonthlyRevenue(ctx.AsOf), nil
	})

	r.Register(KindService, "revenue", func(e Entity, ctx CalculationContext) (float64, error) {
		s, ok := e.(*Service)
		if !ok {
			return 0, fmt.Errorf("expected *Service, got %T", e)
		}
		return s.MonthlyRevenue(ctx.AsOf), nil
	})

	r.Register(KindFacility, "recurring", func(e Entity, ctx CalculationContext) (float64, error) {
		f, ok := e.(*Facility)
		if !ok {
			return 0, fmt.Errorf("expected *Facility, got %T", e)
		}
		return f.TotalMonthlyCost(), nil
	})

	r.Register(KindSoftware, "recurring", func(e Entity, ctx CalculationContext) (float64, error) {
		s, ok := e.(*Software)
		if !ok {
			return 0, fmt.Errorf("expected *Software, got %T", e)
		}
		return s.RecurringCost(), nil
	})

	r.Register(KindEquipment, "depreciation", func(e Entity, ctx CalculationContext) (float64, error) {
		eq, ok := e.(*Equipment)
		if !ok {
			return 0, fmt.Errorf("expected *Equipment, got %T", e)
		}
		return eq.MonthlyDepreciation(ctx.AsOf), nil
	})
	r.Register(KindEquipment, "maintenance", func(e Entity, ctx CalculationContext) (float64, error) {
		eq, ok := e.(*Equipment)
		if !ok {
			return 0, fmt.Errorf("expected *Equipment, got %T", e)
		}
		return eq.MonthlyMaintenance() + eq.MonthlySupport(), nil
	})
	r.Register(KindEquipment, "one_time", func(e Entity, ctx CalculationContext) (float64, error) {
		eq, ok := e.(*Equipment)
		if !ok {
			return 0, fmt.Errorf("expected *Equipment, got %T", e)
		}
		if sameMonth(eq.PurchaseDate, ctx.AsOf) {
			return eq.Cost, nil
		}
		return 0, nil
	})

	r.Register(KindProject, "burn", func(e Entity, ctx CalculationContext) (float64, error) {
		p, ok := e.(*Project)
		if !ok {
			return 0, fmt.Errorf("expected *Project, got %T", e)
		}
		return p.MonthlyBurnRate(ctx.AsOf), nil
	})
}
