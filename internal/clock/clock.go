// Package clock paces the server's fixed-rate tick loop and tracks a
// smoothed per-tick duration for MSPT/TPS reporting.
package clock

import "time"

// Clock measures tick duration and sleeps out the remainder of a fixed tick
// budget. The EMA smoothing factor (0.99 old / 0.01 new) and the "sleep full
// target on timing failure" fallback mirror the reference implementation's
// clock, which this package is a direct port of.
type Clock struct {
	target time.Duration
	ema    float64 // microseconds
	start  time.Time
}

// New returns a Clock targeting one tick every targetMillis milliseconds.
func New(targetMillis int64) *Clock {
	return &Clock{target: time.Duration(targetMillis) * time.Millisecond}
}

// Start marks the beginning of a tick.
func (c *Clock) Start() {
	c.start = time.Now()
}

// FinishTick measures elapsed time since Start, folds it into the EMA, then
// sleeps the remaining tick budget (or the full budget, if the start time
// was never recorded).
func (c *Clock) FinishTick() {
	if c.start.IsZero() {
		time.Sleep(c.target)
		return
	}
	elapsed := time.Since(c.start)
	c.ema = 0.99*c.ema + 0.01*float64(elapsed.Microseconds())
	if elapsed < c.target {
		time.Sleep(c.target - elapsed)
	}
}

// MSPT returns the EMA-smoothed milliseconds-per-tick.
func (c *Clock) MSPT() float64 {
	return c.ema / 1000
}

// MaxTPS returns the theoretical maximum ticks-per-second given the target.
func (c *Clock) MaxTPS() float64 {
	if c.target <= 0 {
		return 0
	}
	return 1000 / float64(c.target.Milliseconds())
}
