package models

import (
	"fmt"
	"time"
)

// TimeWindow represents the inclusive [start, end] range restricting which
// posts and prices are in scope
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow creates a validated time window
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate checks window ordering
func (w TimeWindow) Validate() error {
	if w.Start.After(w.End) {
		return fmt.Errorf("window start %s is after end %s", w.Start, w.End)
	}
	return nil
}

// Contains reports whether t falls inside the window (inclusive)
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartUnix returns the window start as Unix epoch seconds, truncated toward zero
func (w TimeWindow) StartUnix() int64 {
	return w.Start.Unix()
}

// EndUnix returns the window end as Unix epoch seconds, truncated toward zero
func (w TimeWindow) EndUnix() int64 {
	return w.End.Unix()
}
