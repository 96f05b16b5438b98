package poll

import "time"

// Clock abstracts ticker creation to keep scheduler behaviour deterministic
// in tests.
type Clock interface {
	Ticker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the production Clock backed by time.NewTicker.
type SystemClock struct{}

func (SystemClock) Ticker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }

func (s systemTicker) Stop() { s.t.Stop() }
