package service

import (
	"time"

	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
)

// computeClosure prices a session ending at `at` with the rate in effect
// now. A clock that went backwards yields a zero-length, flagged session.
func computeClosure(clockIn, at time.Time, hourlyRate int64) timetrackingdomain.Closure {
	durationMs := at.Sub(clockIn).Milliseconds()
	skewed := false
	if durationMs < 0 {
		durationMs = 0
		skewed = true
		at = clockIn
	}
	return timetrackingdomain.Closure{
		ClockOut:   at,
		DurationMs: durationMs,
		Cost:       money.LaborCost(durationMs, hourlyRate),
		HourlyRate: hourlyRate,
		Skewed:     skewed,
	}
}

func applyClosure(log *timetrackingdomain.TimeLog, c timetrackingdomain.Closure) {
	clockOut := c.ClockOut
	duration := c.DurationMs
	cost := c.Cost
	rate := c.HourlyRate
	log.ClockOut = &clockOut
	log.DurationMs = &duration
	log.Cost = &cost
	log.HourlyRate = &rate
	log.ClockSkewed = c.Skewed
}
