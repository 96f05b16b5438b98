package view

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cryptodash/internal/api"
	"cryptodash/internal/domain"
	"cryptodash/internal/poll"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualClock implements poll.Clock with ticks fired by the test.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) Ticker(time.Duration) poll.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tickers {
		if t.stopped.Load() {
			continue
		}
		select {
		case t.ch <- time.Now():
		case <-time.After(time.Second):
		}
	}
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// priceStub serves the three data endpoints; failing can be toggled to
// exercise the error path.
type priceStub struct {
	srv     *httptest.Server
	failing atomic.Bool
}

func newPriceStub(t *testing.T) *priceStub {
	t.Helper()
	stub := &priceStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices/{symbol}/latest", func(w http.ResponseWriter, r *http.Request) {
		if stub.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"upstream unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"symbol":%q,"price":100,"priceChangePercent24h":1.5,"timestamp":"2024-06-15T12:00:00Z"}`,
			r.PathValue("symbol"))
	})
	mux.HandleFunc("GET /api/prices/{symbol}/recent", func(w http.ResponseWriter, r *http.Request) {
		if stub.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// Newest first, as the real endpoint serves them.
		fmt.Fprintf(w, `[
			{"symbol":%[1]q,"price":102,"timestamp":"2024-06-15T12:00:00Z"},
			{"symbol":%[1]q,"price":101,"timestamp":"2024-06-15T11:00:00Z"},
			{"symbol":%[1]q,"price":100,"timestamp":"2024-06-15T10:00:00Z"}
		]`, r.PathValue("symbol"))
	})
	mux.HandleFunc("GET /api/predictions/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		if stub.failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[
			{"symbol":%[1]q,"predictedPrice":105,"confidenceInterval":2,"targetDate":"2024-06-16T00:00:00Z"},
			{"symbol":%[1]q,"predictedPrice":107,"confidenceInterval":3,"targetDate":"2024-06-17T00:00:00Z"}
		]`, r.PathValue("symbol"))
	})

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func TestDashboardPollsAndKeepsLastKnownGood(t *testing.T) {
	stub := newPriceStub(t)
	client := api.NewClient(stub.srv.URL, 5*time.Second)
	clock := &manualClock{}
	sched := poll.NewScheduler(clock, testLogger())

	m := NewDashboardModel(client, sched, []string{"BTCUSDT", "ETHUSDT"}, 30*time.Second, testLogger())
	defer m.Close()

	if s := m.Snapshot(); !s.Loading {
		t.Error("dashboard should report Loading before the first tick")
	}

	m.Start()
	waitFor(t, "first dashboard tick", func() bool {
		s := m.Snapshot()
		return !s.Loading && len(s.Prices) == 2
	})

	s := m.Snapshot()
	if s.Err != nil {
		t.Errorf("Err = %v after successful tick", s.Err)
	}
	if s.Prices[0].Symbol != "BTCUSDT" || s.Prices[1].Symbol != "ETHUSDT" {
		t.Errorf("prices out of configured order: %+v", s.Prices)
	}

	// A failed tick surfaces the error but keeps the previous prices.
	stub.failing.Store(true)
	clock.Tick()
	waitFor(t, "failed tick to surface", func() bool {
		return m.Snapshot().Err != nil
	})
	s = m.Snapshot()
	if len(s.Prices) != 2 {
		t.Errorf("failed tick dropped last-known-good prices: %+v", s.Prices)
	}
	if s.Loading {
		t.Error("Loading must stay false on failed ticks")
	}

	// The next tick recovers without intervention.
	stub.failing.Store(false)
	clock.Tick()
	waitFor(t, "recovery tick", func() bool {
		return m.Snapshot().Err == nil
	})
}

func TestDashboardLastCompletedWins(t *testing.T) {
	m := NewDashboardModel(nil, nil, nil, time.Second, testLogger())

	m.mu.Lock()
	m.generation = 1
	m.mu.Unlock()

	newer := []domain.PricePoint{{Symbol: "BTCUSDT", Price: 200}}
	older := []domain.PricePoint{{Symbol: "BTCUSDT", Price: 100}}

	// Tick 2 completes first; tick 1's slow response lands afterwards and
	// must be discarded.
	m.commit(1, 2, newer, nil)
	m.commit(1, 1, older, nil)

	s := m.Snapshot()
	if len(s.Prices) != 1 || s.Prices[0].Price != 200 {
		t.Errorf("stale tick overwrote newer state: %+v", s.Prices)
	}

	// A stale error must not mask newer data either.
	m.commit(1, 3, nil, errors.New("slow failure"))
	m.commit(1, 4, []domain.PricePoint{{Symbol: "BTCUSDT", Price: 300}}, nil)
	s = m.Snapshot()
	if s.Err != nil || s.Prices[0].Price != 300 {
		t.Errorf("state after recovery = %+v (err %v)", s.Prices, s.Err)
	}
}

func TestDashboardDiscardsTicksFromStoppedCycle(t *testing.T) {
	m := NewDashboardModel(nil, nil, nil, time.Second, testLogger())

	m.mu.Lock()
	m.generation = 2
	m.mu.Unlock()

	// A leftover in-flight result from the previous cycle (generation 1,
	// high sequence number) lands after a restart.
	m.commit(1, 7, []domain.PricePoint{{Symbol: "BTCUSDT", Price: 999}}, nil)

	s := m.Snapshot()
	if len(s.Prices) != 0 {
		t.Errorf("stale-generation result was committed: %+v", s.Prices)
	}

	// The new cycle's first tick starts over at sequence 1 and must commit.
	m.commit(2, 1, []domain.PricePoint{{Symbol: "BTCUSDT", Price: 100}}, nil)
	s = m.Snapshot()
	if len(s.Prices) != 1 || s.Prices[0].Price != 100 {
		t.Errorf("fresh cycle's first tick rejected: %+v", s.Prices)
	}
}

func TestDashboardRestartResumesCommitting(t *testing.T) {
	stub := newPriceStub(t)
	client := api.NewClient(stub.srv.URL, 5*time.Second)
	clock := &manualClock{}
	sched := poll.NewScheduler(clock, testLogger())

	m := NewDashboardModel(client, sched, []string{"BTCUSDT"}, 30*time.Second, testLogger())
	defer m.Close()

	// First cycle commits a few ticks, advancing the staleness guard.
	m.Start()
	waitFor(t, "first tick", func() bool { return !m.Snapshot().UpdatedAt.IsZero() })
	first := m.Snapshot().UpdatedAt
	clock.Tick()
	waitFor(t, "second tick", func() bool { return m.Snapshot().UpdatedAt.After(first) })

	// Stop and start again, as a logout/login does. The new subscription's
	// sequence numbers restart at 1; its immediate tick must still commit.
	m.Close()
	stopped := m.Snapshot().UpdatedAt
	m.Start()
	waitFor(t, "first tick after restart", func() bool {
		return m.Snapshot().UpdatedAt.After(stopped)
	})
}

func TestDetailFetchesAndMerges(t *testing.T) {
	stub := newPriceStub(t)
	client := api.NewClient(stub.srv.URL, 5*time.Second)
	clock := &manualClock{}
	sched := poll.NewScheduler(clock, testLogger())

	m := NewDetailModel(client, sched, time.Minute, 100, 20, testLogger())
	defer m.Close()

	m.SetSymbol("BTCUSDT")
	waitFor(t, "first detail tick", func() bool {
		return !m.Snapshot().Loading
	})

	s := m.Snapshot()
	if s.Err != nil {
		t.Fatalf("Err = %v", s.Err)
	}
	if s.Latest == nil || s.Latest.Price != 100 {
		t.Errorf("Latest = %+v", s.Latest)
	}
	if len(s.History) != 3 || len(s.Predictions) != 2 {
		t.Errorf("history %d predictions %d, want 3 and 2", len(s.History), len(s.Predictions))
	}

	// Merged = 3 history points (inside the window) + 2 forecasts, sorted,
	// with the seam after the last actual.
	if len(s.Merged) != 5 {
		t.Fatalf("merged length = %d, want 5", len(s.Merged))
	}
	for i := 1; i < len(s.Merged); i++ {
		if s.Merged[i].Timestamp.Before(s.Merged[i-1].Timestamp) {
			t.Fatal("merged series not sorted")
		}
	}
	if s.Merged[2].Actual == nil || s.Merged[3].Predicted == nil {
		t.Errorf("seam misplaced: %+v", s.Merged)
	}
}

func TestDetailSymbolSwitchResetsState(t *testing.T) {
	stub := newPriceStub(t)
	client := api.NewClient(stub.srv.URL, 5*time.Second)
	clock := &manualClock{}
	sched := poll.NewScheduler(clock, testLogger())

	m := NewDetailModel(client, sched, time.Minute, 100, 20, testLogger())
	defer m.Close()

	m.SetSymbol("BTCUSDT")
	waitFor(t, "first symbol", func() bool { return !m.Snapshot().Loading })

	m.SetSymbol("ETHUSDT")
	s := m.Snapshot()
	if s.Symbol != "ETHUSDT" {
		t.Errorf("Symbol = %q, want ETHUSDT", s.Symbol)
	}

	waitFor(t, "second symbol", func() bool {
		s := m.Snapshot()
		return !s.Loading && s.Latest != nil && s.Latest.Symbol == "ETHUSDT"
	})

	// Setting the same symbol again must not restart the cycle.
	m.SetSymbol("ETHUSDT")
	if m.Snapshot().Loading {
		t.Error("SetSymbol with unchanged symbol should be a no-op")
	}
}

func TestDetailDiscardsTicksFromReplacedSubscription(t *testing.T) {
	m := NewDetailModel(nil, nil, time.Minute, 100, 20, testLogger())

	m.mu.Lock()
	m.state = DetailState{Symbol: "ETHUSDT", Loading: true}
	m.generation = 2
	m.mu.Unlock()

	// A leftover in-flight result from the previous symbol's subscription
	// (generation 1) lands after the switch.
	stale := domain.PricePoint{Symbol: "BTCUSDT", Price: 999}
	m.commit(1, 1, stale, nil, nil, nil)

	s := m.Snapshot()
	if !s.Loading || s.Latest != nil {
		t.Errorf("stale-generation result was committed: %+v", s)
	}

	// The current generation commits normally.
	fresh := domain.PricePoint{Symbol: "ETHUSDT", Price: 3000}
	m.commit(2, 1, fresh, nil, nil, nil)
	s = m.Snapshot()
	if s.Latest == nil || s.Latest.Symbol != "ETHUSDT" {
		t.Errorf("current-generation result rejected: %+v", s)
	}
}
