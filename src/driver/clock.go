package driver

import (
	"time"

	"github.com/jiaming2012/daily-consolidator/src/consolidator"
)

// Clock walks simulated time from CurrentTime towards EndTime. Each step is
// cut short at the next close boundary of Schedule, so boundaries are always
// visited exactly.
type Clock struct {
	CurrentTime time.Time
	EndTime     time.Time
	Step        time.Duration
	Schedule    *consolidator.Schedule
}

// Add moves the clock forward by timeToAdd, or to the next close boundary if
// that comes first. With a non positive timeToAdd it moves to the next
// boundary.
func (c *Clock) Add(timeToAdd time.Duration) {
	next := c.CurrentTime.Add(timeToAdd)

	if c.Schedule != nil {
		boundary := c.Schedule.NextBoundaryAfter(c.CurrentTime)
		if timeToAdd <= 0 || boundary.Before(next) {
			next = boundary.In(c.CurrentTime.Location())
		}
	}

	c.CurrentTime = next
}

func (c *Clock) IsExpired() bool {
	return !c.CurrentTime.Before(c.EndTime)
}

// Next advances by one step and reports whether the clock is still before
// EndTime.
func (c *Clock) Next() bool {
	if c.Step <= 0 && c.Schedule == nil {
		return false
	}

	if c.IsExpired() {
		return false
	}

	c.Add(c.Step)
	return !c.IsExpired()
}

func NewClock(startTime time.Time, endTime time.Time, step time.Duration, schedule *consolidator.Schedule) *Clock {
	return &Clock{
		CurrentTime: startTime,
		EndTime:     endTime,
		Step:        step,
		Schedule:    schedule,
	}
}
