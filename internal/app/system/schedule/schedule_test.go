package schedule_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/schedule"
	"github.com/dalemusser/groupdigest/internal/domain/models"
)

// 2024-01-01 is a Monday.
func dayOf(wd time.Weekday) time.Time {
	offset := (int(wd) - int(time.Monday) + 7) % 7
	return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func ptr(t time.Time) *time.Time { return &t }

func TestIsScheduledNow_WeekdayTable(t *testing.T) {
	want := map[models.Cadence][]time.Weekday{
		models.CadenceDaily:        {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		models.CadenceTwiceWeekly:  {time.Tuesday, time.Thursday},
		models.CadenceOnceWeekly:   {time.Wednesday},
		models.CadenceTwiceMonthly: {time.Wednesday},
		models.CadenceNone:         nil,
		models.CadenceUnset:        nil,
		models.Cadence(42):         nil,
		models.CadenceUnrecognized: nil,
	}

	for cadence, days := range want {
		allowed := map[time.Weekday]bool{}
		for _, d := range days {
			allowed[d] = true
		}
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			got := schedule.IsScheduledNow(cadence, dayOf(wd), nil)
			if got != allowed[wd] {
				t.Errorf("%s on %s with no last notification: got %v, want %v", cadence, wd, got, allowed[wd])
			}
		}
	}
}

func TestIsScheduledNow_DailyIgnoresLastNotification(t *testing.T) {
	for wd := time.Monday; wd <= time.Friday; wd++ {
		now := dayOf(wd)
		for _, last := range []*time.Time{nil, ptr(now), ptr(now.Add(-time.Minute)), ptr(now.Add(time.Hour))} {
			if !schedule.IsScheduledNow(models.CadenceDaily, now, last) {
				t.Errorf("daily on %s with last=%v: want true", wd, last)
			}
		}
	}
	for _, wd := range []time.Weekday{time.Saturday, time.Sunday} {
		if schedule.IsScheduledNow(models.CadenceDaily, dayOf(wd), nil) {
			t.Errorf("daily on %s: want false", wd)
		}
	}
}

func TestIsScheduledNow_GapBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		cadence models.Cadence
		now     time.Time
		gap     time.Duration
		want    bool
	}{
		{"twice weekly exactly 2 days", models.CadenceTwiceWeekly, dayOf(time.Thursday), 48 * time.Hour, true},
		{"twice weekly just under 2 days", models.CadenceTwiceWeekly, dayOf(time.Thursday), 48*time.Hour - time.Second, false},
		{"twice weekly same day resend", models.CadenceTwiceWeekly, dayOf(time.Tuesday), time.Hour, false},
		{"once weekly exactly 6 days", models.CadenceOnceWeekly, dayOf(time.Wednesday), 6 * 24 * time.Hour, true},
		{"once weekly 5 days", models.CadenceOnceWeekly, dayOf(time.Wednesday), 5 * 24 * time.Hour, false},
		{"twice monthly exactly 13 days", models.CadenceTwiceMonthly, dayOf(time.Wednesday), 13 * 24 * time.Hour, true},
		{"twice monthly one week", models.CadenceTwiceMonthly, dayOf(time.Wednesday), 7 * 24 * time.Hour, false},
		{"twice monthly two weeks", models.CadenceTwiceMonthly, dayOf(time.Wednesday), 14 * 24 * time.Hour, true},
		{"future last notification", models.CadenceOnceWeekly, dayOf(time.Wednesday), -time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := tt.now.Add(-tt.gap)
			got := schedule.IsScheduledNow(tt.cadence, tt.now, &last)
			if got != tt.want {
				t.Errorf("IsScheduledNow(%s, %s, now-%s) = %v, want %v", tt.cadence, tt.now.Weekday(), tt.gap, got, tt.want)
			}
		})
	}
}

func TestIsScheduledNow_OnceWeeklyScenario(t *testing.T) {
	lastWednesday := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	thisWednesday := lastWednesday.AddDate(0, 0, 7)
	thisMonday := lastWednesday.AddDate(0, 0, 5)

	if !schedule.IsScheduledNow(models.CadenceOnceWeekly, thisWednesday, &lastWednesday) {
		t.Error("once weekly, 7 days after last Wednesday: want true")
	}
	if schedule.IsScheduledNow(models.CadenceOnceWeekly, thisMonday, &lastWednesday) {
		t.Error("once weekly on Monday: want false")
	}
}

func TestIsScheduledNow_UsesUTCWeekday(t *testing.T) {
	// Tuesday 23:00 in UTC-5 is Wednesday 04:00 UTC.
	est := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 1, 2, 23, 0, 0, 0, est)

	if !schedule.IsScheduledNow(models.CadenceOnceWeekly, now, nil) {
		t.Error("expected UTC Wednesday to be eligible for once weekly")
	}
	if schedule.IsScheduledNow(models.CadenceTwiceWeekly, now, nil) {
		t.Error("expected UTC Wednesday to be ineligible for twice weekly")
	}
}

func TestIsScheduledNow_Deterministic(t *testing.T) {
	now := dayOf(time.Tuesday)
	last := now.Add(-50 * time.Hour)
	for _, c := range append([]models.Cadence{models.CadenceUnset, models.Cadence(99)}, models.Cadences...) {
		a := schedule.IsScheduledNow(c, now, &last)
		b := schedule.IsScheduledNow(c, now, &last)
		if a != b {
			t.Errorf("%s: results differ between identical calls", c)
		}
	}
}

func TestRuleFor(t *testing.T) {
	if _, ok := schedule.RuleFor(models.CadenceNone); ok {
		t.Error("CadenceNone should have no rule")
	}
	r, ok := schedule.RuleFor(models.CadenceTwiceMonthly)
	if !ok {
		t.Fatal("CadenceTwiceMonthly should have a rule")
	}
	if r.MinGap != 13*24*time.Hour {
		t.Errorf("MinGap: got %s, want 312h", r.MinGap)
	}
}

func TestNextEligibleDay(t *testing.T) {
	from := dayOf(time.Thursday) // 2024-01-04
	got, ok := schedule.NextEligibleDay(models.CadenceOnceWeekly, from)
	if !ok {
		t.Fatal("expected a next eligible day")
	}
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextEligibleDay: got %s, want %s", got, want)
	}

	got, ok = schedule.NextEligibleDay(models.CadenceDaily, dayOf(time.Tuesday))
	if !ok || got.Weekday() != time.Tuesday {
		t.Errorf("daily from Tuesday: got %s (%v), want same Tuesday", got, ok)
	}

	if _, ok := schedule.NextEligibleDay(models.CadenceNone, from); ok {
		t.Error("CadenceNone should never have an eligible day")
	}
}
