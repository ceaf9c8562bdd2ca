// internals/features/attendance/model/status.go
package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Status string

const (
	StatusAbsent       Status = "ABSENT"
	StatusPickedUp     Status = "PICKED_UP"
	StatusExtendedStay Status = "EXTENDED_STAY"
	StatusPresent      Status = "PRESENT"
	StatusJustified    Status = "JUSTIFIED"
)

var AllStatuses = []Status{
	StatusAbsent,
	StatusPickedUp,
	StatusExtendedStay,
	StatusPresent,
	StatusJustified,
}

// Spanish labels used by the school staff and older clients.
var statusAliases = map[string]Status{
	"AUSENTE":     StatusAbsent,
	"RETIRADO":    StatusPickedUp,
	"EXTENSION":   StatusExtendedStay,
	"PRESENTE":    StatusPresent,
	"JUSTIFICADO": StatusJustified,
}

func (s Status) Valid() bool {
	switch s {
	case StatusAbsent, StatusPickedUp, StatusExtendedStay, StatusPresent, StatusJustified:
		return true
	}
	return false
}

// Rank orders statuses for the provisional-supersede policy:
// ABSENT < PRESENT < everything that closes the day.
func (s Status) Rank() int {
	switch s {
	case StatusAbsent:
		return 0
	case StatusPresent:
		return 1
	default:
		return 2
	}
}

// CanSupersede reports whether next may replace prev under the
// provisional policy. Only a strictly higher rank wins.
func CanSupersede(prev, next Status) bool {
	return prev.Valid() && next.Valid() && next.Rank() > prev.Rank()
}

// ParseStatus accepts canonical names and Spanish aliases, ignoring case,
// accents and the separator used ("picked up", "picked-up").
func ParseStatus(raw string) (Status, bool) {
	key := foldStatus(raw)
	if key == "" {
		return "", false
	}
	if s := Status(key); s.Valid() {
		return s, true
	}
	if s, ok := statusAliases[key]; ok {
		return s, true
	}
	return "", false
}

func foldStatus(raw string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.TrimSpace(raw)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r == ' ' || r == '-':
			b.WriteRune('_')
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
