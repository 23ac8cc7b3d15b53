package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Calendar is a weekday trading-session clock: open Monday through Friday
// between the configured session times, closed on listed holidays.
// It implements broker.MarketClock.
type Calendar struct {
	loc      *time.Location
	open     time.Duration // offset from local midnight
	close    time.Duration
	holidays map[string]struct{} // YYYY-MM-DD in the calendar's location
}

// NewCalendar builds a calendar for the given IANA timezone and session
// times in "HH:MM" form, e.g. NewCalendar("America/New_York", "09:30",
// "16:00", "2026-01-01").
func NewCalendar(tz, open, close string, holidays ...string) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	o, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("close %q must be after open %q", close, open)
	}

	hs := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", h, err)
		}
		hs[h] = struct{}{}
	}

	return &Calendar{loc: loc, open: o, close: c, holidays: hs}, nil
}

// IsOpen reports whether the market trades at t.
func (c *Calendar) IsOpen(t time.Time) bool {
	lt := t.In(c.loc)

	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if _, holiday := c.holidays[lt.Format("2006-01-02")]; holiday {
		return false
	}

	since := time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second
	return since >= c.open && since < c.close
}

func parseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
