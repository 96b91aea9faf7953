package calendar

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func at(t *testing.T, year int, month time.Month, day, hour, minute int) func() time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	ts := time.Date(year, month, day, hour, minute, 0, 0, loc)
	return func() time.Time { return ts }
}

func TestIsMarketHoursWindowBoundaries(t *testing.T) {
	// 2026-02-02 is a Monday.
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{9, 29, false},
		{9, 30, true},
		{11, 30, true},
		{11, 31, false},
		{12, 30, false},
		{13, 0, true},
		{15, 0, true},
		{15, 1, false},
	}
	for _, tc := range cases {
		c := New(zerolog.Nop())
		c.now = at(t, 2026, time.February, 2, tc.hour, tc.minute)
		if got := c.IsMarketHours(); got != tc.want {
			t.Errorf("%02d:%02d: got %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestIsMarketHoursWeekend(t *testing.T) {
	c := New(zerolog.Nop())
	// 2026-02-01 is a Sunday.
	c.now = at(t, 2026, time.February, 1, 10, 0)
	if c.IsMarketHours() {
		t.Errorf("expected market closed on Sunday")
	}
}
