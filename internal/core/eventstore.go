package core

// eventstore.go provides the time-ordered event streams used by rule evaluation.
//
// Each stream is sorted once when constructed and then answers two queries by
// binary search:
//   - Range: all events with timestamp in (start, end]
//   - Nearest: the single event closest to a target inside a bounded window
//
// Sorting is stable, so events sharing a timestamp keep their input order and
// the result of every query is deterministic.

import (
	"sort"
	"time"
)

// Timed is implemented by every event type held in a Stream.
type Timed interface {
	Time() time.Time
}

// Stream is an immutable, ascending sequence of timed events.
type Stream[T Timed] struct {
	events []T
}

// NewStream copies and sorts events by timestamp.
func NewStream[T Timed](events []T) Stream[T] {
	sorted := make([]T, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time().Before(sorted[j].Time())
	})
	return Stream[T]{events: sorted}
}

// Len returns the number of events.
func (s Stream[T]) Len() int { return len(s.events) }

// At returns the i-th event in time order.
func (s Stream[T]) At(i int) T { return s.events[i] }

// All returns a copy of the events in time order.
func (s Stream[T]) All() []T {
	out := make([]T, len(s.events))
	copy(out, s.events)
	return out
}

// First returns the earliest event, if any.
func (s Stream[T]) First() (T, bool) {
	var zero T
	if len(s.events) == 0 {
		return zero, false
	}
	return s.events[0], true
}

// Last returns the latest event, if any.
func (s Stream[T]) Last() (T, bool) {
	var zero T
	if len(s.events) == 0 {
		return zero, false
	}
	return s.events[len(s.events)-1], true
}

// upperBound returns the index of the first event strictly after t.
func (s Stream[T]) upperBound(t time.Time) int {
	return sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Time().After(t)
	})
}

// lowerBound returns the index of the first event at or after t.
func (s Stream[T]) lowerBound(t time.Time) int {
	return sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Time().Before(t)
	})
}

// Range returns the events with start < timestamp <= end.
func (s Stream[T]) Range(start, end time.Time) []T {
	if end.Before(start) {
		return nil
	}
	lo := s.upperBound(start)
	hi := s.upperBound(end)
	if lo >= hi {
		return nil
	}
	out := make([]T, hi-lo)
	copy(out, s.events[lo:hi])
	return out
}

// Nearest returns the event closest to target with timestamp in
// [target-lookback, target+lookahead] that satisfies match (nil matches all).
// On equal distance the earlier event wins.
func (s Stream[T]) Nearest(target time.Time, lookback, lookahead time.Duration, match func(T) bool) (T, bool) {
	var best T
	found := false
	var bestDist time.Duration

	from := target.Add(-lookback)
	to := target.Add(lookahead)

	for i := s.lowerBound(from); i < len(s.events); i++ {
		ev := s.events[i]
		t := ev.Time()
		if t.After(to) {
			break
		}
		if match != nil && !match(ev) {
			continue
		}
		dist := t.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			best, bestDist, found = ev, dist, true
		}
	}
	return best, found
}
