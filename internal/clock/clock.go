// Package clock abstracts time access behind a narrow interface so AuthEngine's
// calendar-day rollover and AuditRecorder's timestamps are deterministically
// testable, in the teacher's injectable-dependency style (every manager takes
// its collaborators as constructor arguments rather than reaching for globals).
package clock

import "time"

// Clock returns the current time and derives the calendar-day key used for
// lazy daily-counter reset (spec §3: "if daily_date ≠ today, stale").
type Clock interface {
	Now() time.Time
	Today() string
}

// Real is the production Clock, backed by time.Now in UTC.
type Real struct{}

// New returns the production Clock.
func New() Real { return Real{} }

func (Real) Now() time.Time { return time.Now().UTC() }

func (r Real) Today() string { return r.Now().Format("2006-01-02") }
