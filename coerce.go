package capflow

// Shared coercion helpers used by every entity constructor and by the YAML
// loader. Centralizes the date/numeric validation each Python field_validator
// in models/base.py and models/captable.py did separately.

import "time"

// firstOfMonth normalizes t to day 1, matching the monthly-period convention
// used throughout the cash-flow engine (entities are active or inactive on a
// per-month, not per-day, basis for disbursement/revenue calculators).
func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthsBetween returns the whole-month span between two dates, matching the
// (year*12+month) arithmetic used throughout the original engine.
func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
}

// sameMonth reports whether a and b fall in the same calendar month.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func requirePositive(field string, v float64) error {
	if v <= 0 {
		return errInvalidField(field, "must be positive, got %v", v)
	}
	return nil
}

func requireNonNegative(field string, v float64) error {
	if v < 0 {
		return errInvalidField(field, "must be non-negative, got %v", v)
	}
	return nil
}

func requireRange(field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return errBadRange(field, "must be between %v and %v, got %v", lo, hi, v)
	}
	return nil
}
