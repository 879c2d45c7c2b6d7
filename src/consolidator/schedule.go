package consolidator

import (
	"fmt"
	"time"
)

// Schedule holds the daily close time and the two zones it is evaluated in.
// Close boundaries are fixed wall clock times in the close zone, while the
// timestamps fed to a consolidator are wall clock times in the exchange zone.
type Schedule struct {
	closeTimeOfDay   time.Duration
	closeLocation    *time.Location
	exchangeLocation *time.Location
}

func NewSchedule(closeTimeOfDay time.Duration, closeTimeZone, exchangeTimeZone string) (*Schedule, error) {
	if closeTimeOfDay < 0 || closeTimeOfDay >= 24*time.Hour {
		return nil, fmt.Errorf("NewSchedule: %v: %w", closeTimeOfDay, ErrInvalidCloseTimeOfDay)
	}

	closeLocation, err := loadLocation(closeTimeZone)
	if err != nil {
		return nil, fmt.Errorf("NewSchedule: close time zone: %w", err)
	}

	exchangeLocation, err := loadLocation(exchangeTimeZone)
	if err != nil {
		return nil, fmt.Errorf("NewSchedule: exchange time zone: %w", err)
	}

	return &Schedule{
		closeTimeOfDay:   closeTimeOfDay,
		closeLocation:    closeLocation,
		exchangeLocation: exchangeLocation,
	}, nil
}

func loadLocation(name string) (*time.Location, error) {
	// time.LoadLocation maps "" to UTC, which would hide a missing config value
	if name == "" {
		return nil, fmt.Errorf("empty zone name: %w", ErrUnknownTimezone)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", name, err, ErrUnknownTimezone)
	}

	return loc, nil
}

func (s *Schedule) CloseTimeOfDay() time.Duration {
	return s.closeTimeOfDay
}

func (s *Schedule) CloseLocation() *time.Location {
	return s.closeLocation
}

func (s *Schedule) ExchangeLocation() *time.Location {
	return s.exchangeLocation
}

// ToExchangeTime reads the wall clock of t as exchange local time. The
// location attached to t is ignored, except that times already in the
// exchange location are returned unchanged so repeated wall clock hours keep
// their offset.
func (s *Schedule) ToExchangeTime(t time.Time) time.Time {
	if t.Location() == s.exchangeLocation {
		return t
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), s.exchangeLocation)
}

// ToCloseTime converts an instant into the close zone.
func (s *Schedule) ToCloseTime(t time.Time) time.Time {
	return t.In(s.closeLocation)
}

// closeOn composes a calendar date with the close time of day. Dates out of
// range (day 0, day 32) are normalized by time.Date, and wall times that fall
// in a DST gap or overlap resolve to whatever instant time.Date picks, which
// is deterministic for a given zone database.
func (s *Schedule) closeOn(year int, month time.Month, day int) time.Time {
	tod := s.closeTimeOfDay
	hour := int(tod / time.Hour)
	tod -= time.Duration(hour) * time.Hour
	minute := int(tod / time.Minute)
	tod -= time.Duration(minute) * time.Minute
	sec := int(tod / time.Second)
	tod -= time.Duration(sec) * time.Second

	return time.Date(year, month, day, hour, minute, sec, int(tod), s.closeLocation)
}

// BoundaryAtOrBefore returns the latest close boundary that is not after
// instant. The result is expressed in the close zone.
//
// The comparison is made between instants rather than local times of day, so
// a close time that lands in a DST gap or overlap still yields exactly one
// boundary per local calendar day.
func (s *Schedule) BoundaryAtOrBefore(instant time.Time) time.Time {
	year, month, day := s.ToCloseTime(instant).Date()

	boundary := s.closeOn(year, month, day)
	for i := 1; boundary.After(instant); i++ {
		boundary = s.closeOn(year, month, day-i)
	}

	return boundary
}

// NextBoundaryAfter returns the earliest close boundary strictly after instant,
// expressed in the close zone.
func (s *Schedule) NextBoundaryAfter(instant time.Time) time.Time {
	local := s.ToCloseTime(instant)
	year, month, day := local.Date()

	next := s.closeOn(year, month, day)
	for i := 1; !next.After(instant); i++ {
		next = s.closeOn(year, month, day+i)
	}

	return next
}

func localTimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// ParseTimeOfDay parses "15:04" or "15:04:05" into a duration since midnight.
func ParseTimeOfDay(value string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return localTimeOfDay(t), nil
		}
	}

	return 0, fmt.Errorf("ParseTimeOfDay: %q: %w", value, ErrInvalidCloseTimeOfDay)
}
