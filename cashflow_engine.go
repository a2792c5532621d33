package capflow

// CashFlowEngine is the composition root for the whole module, the same
// role AccountingEngine played in engine.go: it owns the store, registry,
// cache, and event log, and exposes the operations callers actually need.
// Month-level fan-out uses an errgroup-backed worker pool with panic
// isolation per goroutine, grounded on Andrew50-peripheral's executor.go
// rather than reinvented.

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type EngineConfig struct {
	MaxParallel   int
	CacheCapacity int
	StartingCash  float64
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{MaxParallel: min(runtime.NumCPU(), 4), CacheCapacity: 32, StartingCash: 0}
}

type CashFlowEngine struct {
	store      *Store
	eventStore *EventStore
	registry   *Registry
	cache      *FrameCache
	config     EngineConfig
}

func NewCashFlowEngine(dbPath string, config EngineConfig) (*CashFlowEngine, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &CashFlowEngine{
		store:      store,
		eventStore: NewEventStore(store),
		registry:   NewRegistry(),
		cache:      NewFrameCache(config.CacheCapacity),
		config:     config,
	}, nil
}

func (eng *CashFlowEngine) Close() error { return eng.store.Close() }

func (eng *CashFlowEngine) Store() *Store { return eng.store }

// ClearCache discards every cached frame, required after any store mutation
// that could change a past Calculate result (SPEC_FULL.md §6's
// Engine: Calculate | ClearCache).
func (eng *CashFlowEngine) ClearCache() { eng.cache.Clear() }

// AddEntity validates and persists an entity, emitting a creation event and
// invalidating any frame cached before this entity existed.
func (eng *CashFlowEngine) AddEntity(id string, e Entity) error {
	if id == "" {
		id = uuid.New().String()
	}
	if err := eng.store.Put(id, e); err != nil {
		return err
	}
	eng.ClearCache()
	_, err := eng.eventStore.CreateEvent(EventEntityCreated,
		EntityCreatedEvent{ID: id, Kind: e.Base().Kind, Name: e.Base().Name},
		time.Now(), "")
	return err
}

// generateMonthlyPeriods mirrors _generate_monthly_periods: normalize to
// day 1, step by calendar month, inclusive of the end month.
func generateMonthlyPeriods(start, end time.Time) []time.Time {
	var periods []time.Time
	cur := firstOfMonth(start)
	last := firstOfMonth(end)
	for !cur.After(last) {
		periods = append(periods, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return periods
}

// Calculate runs the cash-flow engine over [start, end] under the given
// scenario (nil means no scenario), fanning month calculations out across
// a bounded worker pool, then assembling and deriving the Frame in month
// order. Matches calculate_period/calculate_parallel plus
// _add_cumulative_calculations.
func (eng *CashFlowEngine) Calculate(ctx context.Context, start, end time.Time, scenario *Scenario) (*Frame, error) {
	if start.After(end) {
		return nil, errBadRange("end", "end date %s is before start date %s", end, start)
	}

	scenarioName := "none"
	if scenario != nil {
		scenarioName = scenario.Name
	}
	if cached, ok := eng.cache.Get(start, end, scenarioName); ok {
		return cached, nil
	}

	periods := generateMonthlyPeriods(start, end)
	rows := make([]MonthlyResult, len(periods))

	g, gCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, eng.config.MaxParallel)

	for i, period := range periods {
		i, period := i, period
		g.Go(func() (err error) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gCtx.Done():
				return gCtx.Err()
			}
			defer func() {
				if p := recover(); p != nil {
					Log.Error().Time("period", period).Interface("panic", p).Msg("month calculation panicked")
					err = errInternal("calculating period %s: panic: %v", period.Format("2006-01"), p)
				}
			}()
			rows[i] = eng.calculateSinglePeriod(period, scenario)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frame := &Frame{StartingCash: eng.config.StartingCash, Rows: rows}
	frame.AddCumulativeCalculations()
	eng.cache.Put(start, end, scenarioName, frame)
	return frame, nil
}

// calculateSinglePeriod mirrors _calculate_single_period: apply the
// scenario's filter and overrides to every entity first, then test
// is_active against the (possibly scenario-shifted) dates, run every
// calculator, and aggregate. The order matters: hiring_delay_months shifts
// an employee's start_date, so testing activity before applying the
// scenario would make the delay a no-op (every hired-and-delayed employee
// would already have been excluded — or included — based on their
// original, unadjusted start date).
func (eng *CashFlowEngine) calculateSinglePeriod(asOf time.Time, scenario *Scenario) MonthlyResult {
	result := MonthlyResult{Period: asOf}
	entities := eng.store.All()
	ctx := CalculationContext{AsOf: asOf, Scenario: scenario}

	for _, e := range entities {
		if scenario != nil && !scenario.ShouldInclude(e) {
			continue
		}
		adjusted := e
		if scenario != nil {
			adjusted = scenario.ApplyToEntity(e)
		}
		if !adjusted.Base().IsActive(asOf) {
			continue
		}
		calc := eng.registry.CalculateAll(adjusted, ctx)
		aggregateEntity(&result, adjusted, calc)
	}
	return result
}

// CalculateScenario is a convenience wrapper matching calculate_scenario:
// look the named scenario up and run Calculate with it.
func (eng *CashFlowEngine) CalculateScenario(ctx context.Context, start, end time.Time, manager *ScenarioManager, name string) (*Frame, error) {
	scenario, err := manager.Get(name)
	if err != nil {
		return nil, err
	}
	frame, err := eng.Calculate(ctx, start, end, scenario)
	if err != nil {
		return nil, err
	}
	_, _ = eng.eventStore.CreateEvent(EventScenarioRun, ScenarioRunEvent{ScenarioName: name, Start: start, End: end}, time.Now(), "")
	return frame, nil
}

// CompareScenarios runs every named scenario over the same window and
// returns the resulting frames keyed by name, matching compare_scenarios.
func (eng *CashFlowEngine) CompareScenarios(ctx context.Context, start, end time.Time, manager *ScenarioManager, names []string) (map[string]*Frame, error) {
	out := make(map[string]*Frame, len(names))
	for _, name := range names {
		frame, err := eng.CalculateScenario(ctx, start, end, manager, name)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		out[name] = frame
	}
	return out, nil
}
