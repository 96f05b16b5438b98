// Package view holds the data models behind the dashboard and detail
// screens. Each model owns one poll subscription and commits fetch results
// under a per-subscription sequence guard, so a stale slow response landing
// after a fresher one never overwrites newer state. Rendering reads the
// models only through Snapshot copies.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptodash/internal/api"
	"cryptodash/internal/domain"
	"cryptodash/internal/poll"
)

// DashboardState is a snapshot of the multi-symbol dashboard data. Err
// holds the last tick's failure; the price list keeps the last known good
// tick so the view degrades instead of blanking.
type DashboardState struct {
	Prices    []domain.PricePoint
	Err       error
	Loading   bool
	UpdatedAt time.Time
}

// DashboardModel polls the latest snapshot for every configured symbol.
type DashboardModel struct {
	client   *api.Client
	sched    *poll.Scheduler
	symbols  []string
	interval time.Duration
	log      *slog.Logger

	mu         sync.Mutex
	state      DashboardState
	generation uint64
	lastSeq    uint64
	sub        *poll.Subscription
}

// NewDashboardModel creates the model without starting its poll cycle.
func NewDashboardModel(client *api.Client, sched *poll.Scheduler, symbols []string, interval time.Duration, log *slog.Logger) *DashboardModel {
	return &DashboardModel{
		client:   client,
		sched:    sched,
		symbols:  symbols,
		interval: interval,
		log:      log,
		state:    DashboardState{Loading: true},
	}
}

// Start begins polling: one immediate tick, then one per interval. Calling
// Start on a running model is a no-op. Sequence numbers are per
// subscription and restart at 1, so the staleness guard is reset here with
// the new generation.
func (m *DashboardModel) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return
	}
	m.generation++
	gen := m.generation
	m.lastSeq = 0
	m.sub = m.sched.Subscribe("dashboard", m.interval, func(ctx context.Context, seq uint64) {
		m.tick(ctx, gen, seq)
	})
}

// Close tears the poll cycle down. In-flight ticks settle against a
// cancelled context and are discarded by the generation guard.
func (m *DashboardModel) Close() {
	m.mu.Lock()
	m.generation++
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Snapshot returns a copy of the current dashboard state.
func (m *DashboardModel) Snapshot() DashboardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.state
	out.Prices = make([]domain.PricePoint, len(m.state.Prices))
	copy(out.Prices, m.state.Prices)
	return out
}

func (m *DashboardModel) tick(ctx context.Context, gen, seq uint64) {
	prices, err := m.fetchAll(ctx)
	m.commit(gen, seq, prices, err)
}

// fetchAll fans out one snapshot request per symbol. A tick succeeds only
// when every symbol does; any failure fails the whole tick and the previous
// prices stay on screen.
func (m *DashboardModel) fetchAll(ctx context.Context) ([]domain.PricePoint, error) {
	g, ctx := errgroup.WithContext(ctx)
	out := make([]domain.PricePoint, len(m.symbols))
	for i, sym := range m.symbols {
		g.Go(func() error {
			p, err := m.client.LatestPrice(ctx, sym)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", sym, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// commit applies a tick result unless the cycle restarted since the fetch
// was issued (generation guard) or a tick with a higher sequence number
// already committed.
func (m *DashboardModel) commit(gen, seq uint64, prices []domain.PricePoint, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.log.Debug("discarding tick for stopped dashboard cycle", "seq", seq)
		return
	}
	if seq <= m.lastSeq {
		m.log.Debug("discarding stale dashboard tick", "seq", seq, "latest", m.lastSeq)
		return
	}
	m.lastSeq = seq

	m.state.Loading = false
	if err != nil {
		m.state.Err = err
		return
	}
	m.state.Err = nil
	m.state.Prices = prices
	m.state.UpdatedAt = time.Now()
}
