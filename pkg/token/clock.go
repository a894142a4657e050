package token

import "time"

// Clock supplies the wall-clock time used for time-based codes.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// GenerateCodeWith returns the code valid at the clock's current time.
func (t Token) GenerateCodeWith(c Clock) (string, error) {
	if c == nil {
		c = SystemClock
	}
	return t.GenerateCodeAt(c.Now())
}
