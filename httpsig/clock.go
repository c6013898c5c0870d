package httpsig

import "time"

// Clock abstracts the current time so time-dependent checks can be tested
// deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock implements Clock using the actual system time.
type SystemClock struct{}

// Now returns the current time from the system clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

var _ Clock = SystemClock{}
