// Package metrics holds the backend-neutral instrumentation types shared by
// the core packages. Concrete backends live under adapters/.
package metrics

import "time"

// Timer measures one operation. Call ObserveDuration when it completes:
//
//	defer m.FlushDuration("memory").ObserveDuration()
type Timer interface {
	ObserveDuration()
}

// Stopwatch is a Timer that records into a callback, handy for tests and
// for backends that only expose a plain observe function.
type Stopwatch struct {
	start   time.Time
	observe func(time.Duration)
}

func StartStopwatch(observe func(time.Duration)) *Stopwatch {
	return &Stopwatch{start: time.Now(), observe: observe}
}

func (s *Stopwatch) Elapsed() time.Duration { return time.Since(s.start) }

func (s *Stopwatch) ObserveDuration() {
	if s.observe != nil {
		s.observe(s.Elapsed())
	}
}
