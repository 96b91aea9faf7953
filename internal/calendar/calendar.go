// Package calendar gates scheduler dispatching to Shanghai/Shenzhen
// trading hours: weekdays only, two daily sessions with a lunch break.
package calendar

import (
	"time"

	"github.com/rs/zerolog"
)

// TradingWindow is one open/close span within a trading day, in the
// exchange's local time.
type TradingWindow struct {
	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int
}

// Calendar holds the Asia/Shanghai trading calendar: the morning and
// afternoon sessions A-share exchanges run, inclusive of both endpoints.
type Calendar struct {
	loc     *time.Location
	windows []TradingWindow
	now     func() time.Time
	log     zerolog.Logger
}

// New creates the Shanghai/Shenzhen trading calendar.
func New(log zerolog.Logger) *Calendar {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	return &Calendar{
		loc: loc,
		windows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 15, CloseMinute: 0},
		},
		now: time.Now,
		log: log.With().Str("component", "calendar").Logger(),
	}
}

// IsMarketHours reports whether the current moment falls within a
// Shanghai/Shenzhen trading session on a weekday. Holidays are not
// tracked; a holiday simply sees no qualifying activity during its
// trading windows.
func (c *Calendar) IsMarketHours() bool {
	now := c.now().In(c.loc)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	for _, w := range c.windows {
		open := w.OpenHour*60 + w.OpenMinute
		close := w.CloseHour*60 + w.CloseMinute
		if minutes >= open && minutes <= close {
			return true
		}
	}
	return false
}
