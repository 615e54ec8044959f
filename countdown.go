package loginpage

import (
	"fmt"
	"time"
)

const (
	// DefaultCodeExpiration is how long a two-factor code stays valid
	DefaultCodeExpiration = 30 * time.Second
	// CountdownStep is subtracted from the remaining time on every tick
	CountdownStep = time.Second
)

// Countdown tracks the remaining lifetime of a two-factor code. It is not
// safe for concurrent use; TwoFactorForm serializes access to it.
type Countdown struct {
	duration  time.Duration
	remaining time.Duration
	expired   bool
}

// NewCountdown returns a countdown starting at duration. A non positive
// duration is expired from the start.
func NewCountdown(duration time.Duration) Countdown {
	c := Countdown{}
	c.Reset(duration)
	return c
}

// Reset restarts the countdown at duration
func (c *Countdown) Reset(duration time.Duration) {
	c.duration = duration
	c.remaining = duration
	c.expired = false
	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
	}
}

// Tick subtracts one step. It reports whether the countdown should keep
// ticking.
func (c *Countdown) Tick() bool {
	if c.expired {
		return false
	}

	if c.remaining <= CountdownStep {
		c.remaining = 0
		c.expired = true
		return false
	}

	c.remaining -= CountdownStep
	return true
}

// Remaining returns the time left
func (c Countdown) Remaining() time.Duration {
	return c.remaining
}

// Expired reports whether the countdown reached zero
func (c Countdown) Expired() bool {
	return c.expired
}

// Duration returns the configured starting value
func (c Countdown) Duration() time.Duration {
	return c.duration
}

// FormatSeconds renders the remaining seconds of the current minute as two
// digits, e.g. "07".
func FormatSeconds(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d", total%60)
}
