package model

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"PICKED_UP", StatusPickedUp, true},
		{"picked up", StatusPickedUp, true},
		{"Picked-Up", StatusPickedUp, true},
		{"retirado", StatusPickedUp, true},
		{" AUSENTE ", StatusAbsent, true},
		{"Extensión", StatusExtendedStay, true},
		{"EXTENSION", StatusExtendedStay, true},
		{"presente", StatusPresent, true},
		{"Justificado", StatusJustified, true},
		{"extended_stay", StatusExtendedStay, true},
		{"LATE", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCanSupersede(t *testing.T) {
	tests := []struct {
		prev, next Status
		want       bool
	}{
		{StatusAbsent, StatusPresent, true},
		{StatusAbsent, StatusPickedUp, true},
		{StatusPresent, StatusExtendedStay, true},
		{StatusPresent, StatusAbsent, false},
		{StatusPickedUp, StatusJustified, false},
		{StatusPresent, StatusPresent, false},
		{StatusAbsent, Status("LATE"), false},
	}
	for _, tt := range tests {
		if got := CanSupersede(tt.prev, tt.next); got != tt.want {
			t.Errorf("CanSupersede(%s, %s) = %v, want %v", tt.prev, tt.next, got, tt.want)
		}
	}
}
