package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// Clock supplies the current time. Services take a Clock so ledger timestamps
// and age thresholds can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the UTC wall clock
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return Now()
}

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

// Now implements Clock
func (c FixedClock) Now() time.Time {
	return c.T.UTC()
}

// ReportDate formats t as the YYYYMMDD target date used by CyberSource reporting
func ReportDate(t time.Time) string {
	return t.UTC().Format("20060102")
}
