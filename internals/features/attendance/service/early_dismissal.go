package service

import (
	"time"

	"scoda_backend/internals/helpers/dbtime"
)

// IsEarlyDismissal reports whether at, read on the school's wall clock,
// falls strictly before the scheduled end of day. No schedule means false.
func IsEarlyDismissal(end *dbtime.Tod, at time.Time, loc *time.Location) bool {
	if end == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	return dbtime.From(at.In(loc)).Before(*end)
}
