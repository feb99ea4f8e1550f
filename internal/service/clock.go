package service

import "time"

// Clock abstracts wall time so schedule and throttle logic is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewClock returns a Clock backed by the system wall clock, in UTC.
func NewClock() Clock { return realClock{} }
