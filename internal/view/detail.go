package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptodash/internal/api"
	"cryptodash/internal/domain"
	"cryptodash/internal/poll"
	"cryptodash/internal/series"
)

// DetailState is a snapshot of the single-symbol detail data: the live
// snapshot, the historical series, the forecast series, and the merged
// chart series produced from the latter two.
type DetailState struct {
	Symbol      string
	Latest      *domain.PricePoint
	History     []domain.PricePoint
	Predictions []domain.PredictionPoint
	Merged      []series.MergedPoint
	Err         error
	Loading     bool
	UpdatedAt   time.Time
}

// DetailModel polls latest + recent + predictions for one symbol at a time.
// Switching symbols cancels the old subscription before starting the new
// one; results from the old symbol still in flight are discarded by the
// generation guard.
type DetailModel struct {
	client       *api.Client
	sched        *poll.Scheduler
	interval     time.Duration
	historyLimit int
	window       int
	log          *slog.Logger

	mu         sync.Mutex
	state      DetailState
	generation uint64
	lastSeq    uint64
	sub        *poll.Subscription
}

// NewDetailModel creates the model; no polling starts until SetSymbol.
func NewDetailModel(client *api.Client, sched *poll.Scheduler, interval time.Duration, historyLimit, window int, log *slog.Logger) *DetailModel {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &DetailModel{
		client:       client,
		sched:        sched,
		interval:     interval,
		historyLimit: historyLimit,
		window:       window,
		log:          log,
	}
}

// SetSymbol points the model at a symbol, restarting the poll cycle. The
// previous subscription is cancelled before the new one starts. Setting the
// symbol it already shows is a no-op.
func (m *DetailModel) SetSymbol(symbol string) {
	m.mu.Lock()
	if m.state.Symbol == symbol && m.sub != nil {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.lastSeq = 0
	m.state = DetailState{Symbol: symbol, Loading: true}
	old := m.sub
	m.sub = nil
	m.mu.Unlock()

	sub := m.sched.Rotate(old, symbol, m.interval, func(ctx context.Context, seq uint64) {
		m.tick(ctx, gen, seq, symbol)
	})

	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()
}

// Close cancels the active subscription, if any.
func (m *DetailModel) Close() {
	m.mu.Lock()
	m.generation++
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Snapshot returns a copy of the current detail state.
func (m *DetailModel) Snapshot() DetailState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.state
	if m.state.Latest != nil {
		p := *m.state.Latest
		out.Latest = &p
	}
	out.History = append([]domain.PricePoint(nil), m.state.History...)
	out.Predictions = append([]domain.PredictionPoint(nil), m.state.Predictions...)
	out.Merged = append([]series.MergedPoint(nil), m.state.Merged...)
	return out
}

func (m *DetailModel) tick(ctx context.Context, gen, seq uint64, symbol string) {
	latest, hist, preds, err := m.fetch(ctx, symbol)
	m.commit(gen, seq, latest, hist, preds, err)
}

// fetch issues the three endpoint calls concurrently. Like the dashboard
// tick, any one failing fails the tick as a whole.
func (m *DetailModel) fetch(ctx context.Context, symbol string) (domain.PricePoint, []domain.PricePoint, []domain.PredictionPoint, error) {
	var (
		latest domain.PricePoint
		hist   []domain.PricePoint
		preds  []domain.PredictionPoint
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := m.client.LatestPrice(ctx, symbol)
		if err == nil {
			latest = p
		}
		return err
	})
	g.Go(func() error {
		h, err := m.client.RecentPrices(ctx, symbol, m.historyLimit)
		if err == nil {
			hist = h
		}
		return err
	})
	g.Go(func() error {
		p, err := m.client.Predictions(ctx, symbol)
		if err == nil {
			preds = p
		}
		return err
	})

	err := g.Wait()
	return latest, hist, preds, err
}

// commit applies a tick result unless the symbol changed since the fetch
// was issued (generation guard) or a higher-sequence tick already committed
// (staleness guard).
func (m *DetailModel) commit(gen, seq uint64, latest domain.PricePoint, hist []domain.PricePoint, preds []domain.PredictionPoint, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.log.Debug("discarding tick for replaced subscription", "symbol", m.state.Symbol)
		return
	}
	if seq <= m.lastSeq {
		m.log.Debug("discarding stale detail tick", "seq", seq, "latest", m.lastSeq)
		return
	}
	m.lastSeq = seq

	m.state.Loading = false
	if err != nil {
		m.state.Err = err
		return
	}
	m.state.Err = nil
	m.state.Latest = &latest
	m.state.History = hist
	m.state.Predictions = preds
	m.state.Merged = series.Reconcile(hist, preds, m.window)
	m.state.UpdatedAt = time.Now()
}
