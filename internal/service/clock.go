package service

import "time"

// Clock supplies the current time. data.FixedTimeProvider satisfies it in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func resolveClock(c Clock) Clock {
	if c == nil {
		return systemClock{}
	}
	return c
}
