package models

import (
	"testing"
	"time"
)

func TestParseCadence(t *testing.T) {
	tests := []struct {
		in   string
		want Cadence
		ok   bool
	}{
		{"Once a day", CadenceDaily, true},
		{"  twice a WEEK ", CadenceTwiceWeekly, true},
		{"once_weekly", CadenceOnceWeekly, true},
		{"Twice a month", CadenceTwiceMonthly, true},
		{"never", CadenceNone, true},
		{"none", CadenceNone, true},
		{"", CadenceUnrecognized, false},
		{"hourly", CadenceUnrecognized, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCadence(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseCadence(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCadence_Predicates(t *testing.T) {
	tests := []struct {
		c      Cadence
		valid  bool
		isSet  bool
		label  string
		String string
	}{
		{CadenceUnset, false, false, "", "unset"},
		{CadenceDaily, true, true, "Once a day", "daily"},
		{CadenceNone, true, true, "Never", "none"},
		{Cadence(42), false, true, "", "unrecognized"},
		{CadenceUnrecognized, false, true, "", "unrecognized"},
	}
	for _, tt := range tests {
		t.Run(tt.String, func(t *testing.T) {
			if tt.c.Valid() != tt.valid {
				t.Errorf("Valid: got %v", tt.c.Valid())
			}
			if tt.c.IsSet() != tt.isSet {
				t.Errorf("IsSet: got %v", tt.c.IsSet())
			}
			if tt.c.Label() != tt.label {
				t.Errorf("Label: got %q", tt.c.Label())
			}
			if tt.c.String() != tt.String {
				t.Errorf("String: got %q", tt.c.String())
			}
		})
	}
}

func TestCadences_RoundTripLabels(t *testing.T) {
	for _, c := range Cadences {
		got, ok := ParseCadence(c.Label())
		if !ok || got != c {
			t.Errorf("label %q parsed to %v, %v", c.Label(), got, ok)
		}
	}
}

func TestMembership_LastNotifiedBefore(t *testing.T) {
	at := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never notified", nil, true},
		{"earlier", ptr(at.Add(-time.Second)), true},
		{"same instant", ptr(at), false},
		{"later", ptr(at.Add(time.Second)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Membership{LastNotification: tt.last}
			if got := m.LastNotifiedBefore(at); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }
