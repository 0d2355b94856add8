package etl

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sells-group/cny-realestate-etl/internal/normalize"
)

// clock is the package time source. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// RollPublishMonth is the month the state publishes the new assessment roll.
const RollPublishMonth = time.August

// RollYear returns the roll year to load at now. The new roll becomes
// available in August, so earlier months load the previous year. 2024 is
// the first year loaded and is never rolled back.
func RollYear(now time.Time) int {
	y := now.Year()
	if now.Month() >= RollPublishMonth || y == normalize.MinimumYear {
		return y
	}
	return y - 1
}

// CurrentRollYear is RollYear at the package clock's current time.
func CurrentRollYear() int {
	return RollYear(clock.Now())
}
