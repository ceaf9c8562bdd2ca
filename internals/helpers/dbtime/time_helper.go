// file: internals/helpers/dbtime/time_helper.go
package dbtime

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	LocSchoolTimezone = "school_timezone" // string, e.g. "America/Santiago"
	LocSchoolLoc      = "school_loc"      // *time.Location

	DayLayout = "2006-01-02"
)

var (
	defaultLocMu sync.RWMutex
	defaultLoc   = time.UTC
)

// SetDefaultLocation sets the fallback used when a request carries no
// school timezone. Called once from main.
func SetDefaultLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	defaultLocMu.Lock()
	defaultLoc = loc
	defaultLocMu.Unlock()
}

func DefaultLocation() *time.Location {
	defaultLocMu.RLock()
	defer defaultLocMu.RUnlock()
	return defaultLoc
}

// GetSchoolLocation resolves the school timezone:
// 1) c.Locals("school_loc") set by middleware
// 2) c.Locals("school_timezone") string, loaded and cached
// 3) configured default
func GetSchoolLocation(c *fiber.Ctx) *time.Location {
	if c == nil {
		return DefaultLocation()
	}
	if v := c.Locals(LocSchoolLoc); v != nil {
		if loc, ok := v.(*time.Location); ok && loc != nil {
			return loc
		}
	}
	if v := c.Locals(LocSchoolTimezone); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			if loc, err := time.LoadLocation(strings.TrimSpace(s)); err == nil {
				c.Locals(LocSchoolLoc, loc)
				return loc
			}
		}
	}
	return DefaultLocation()
}

// DayOf returns the calendar day of t as seen in loc, normalised to
// midnight UTC so DATE columns compare equal across drivers.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeDay drops any clock part of an already-parsed day.
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses "YYYY-MM-DD".
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDay(t), nil
}

// DayParam reads a "YYYY-MM-DD" query value, defaulting to the school day
// containing now.
func DayParam(c *fiber.Ctx, key string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return DayOf(now, GetSchoolLocation(c)), nil
	}
	d, err := ParseDay(raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return d, nil
}
