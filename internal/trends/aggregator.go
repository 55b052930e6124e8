package trends

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/termscope/pkg/models"
)

const (
	defaultConcurrency = 8
	defaultCallTimeout = 10 * time.Second
)

type Option func(*Aggregator)

func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.fetchOpts.Concurrency = n }
}

func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.fetchOpts.CallTimeout = d }
}

// WithObserver registers fn to receive committed datasets in generation
// order. A dataset superseded before it could be delivered is skipped. fn is
// called one at a time and must not call back into the Aggregator.
func WithObserver(fn func(models.SeriesDataset)) Option {
	return func(a *Aggregator) { a.observer = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// Aggregator keeps the dataset for the most recent query. Each query change
// bumps a generation counter; a fan-out commits only if its generation is
// still current when it settles, so a superseded query never overwrites a
// newer one regardless of completion order.
type Aggregator struct {
	fetcher   Fetcher
	fetchOpts FetchOptions
	observer  func(models.SeriesDataset)
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	gen      uint64
	query    models.SeriesQuery
	hasQuery bool
	dataset  models.SeriesDataset
	pending  bool
	inflight context.CancelFunc
	changed  chan struct{}
	closed   bool

	pubMu     sync.Mutex
	published uint64
}

func NewAggregator(fetcher Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		fetchOpts: FetchOptions{
			Concurrency: defaultConcurrency,
			CallTimeout: defaultCallTimeout,
		},
		logger:  slog.Default(),
		changed: make(chan struct{}),
		dataset: models.SeriesDataset{Series: map[string][]models.Point{}},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

// SetQuery replaces the current query and returns the generation that will
// answer it. An unchanged query is a no-op.
func (a *Aggregator) SetQuery(q models.SeriesQuery) (uint64, error) {
	q, err := normalize(q)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrClosed
	}
	if a.hasQuery && a.query.Equal(q) {
		gen := a.gen
		a.mu.Unlock()
		return gen, nil
	}
	gen, published := a.launchLocked(q)
	a.mu.Unlock()

	a.publish(published)
	return gen, nil
}

// Refresh re-runs the current query, e.g. after documents changed.
func (a *Aggregator) Refresh() (uint64, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrClosed
	}
	if !a.hasQuery {
		gen := a.gen
		a.mu.Unlock()
		return gen, nil
	}
	gen, published := a.launchLocked(a.query)
	a.mu.Unlock()

	a.publish(published)
	return gen, nil
}

// Dataset returns the last committed dataset.
func (a *Aggregator) Dataset() models.SeriesDataset {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dataset
}

// Query returns the current query and whether one was set.
func (a *Aggregator) Query() (models.SeriesQuery, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query, a.hasQuery
}

// Pending reports whether a fan-out for the current generation is outstanding.
func (a *Aggregator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Wait blocks until no fan-out is outstanding and returns the dataset.
func (a *Aggregator) Wait(ctx context.Context) (models.SeriesDataset, error) {
	for {
		a.mu.Lock()
		if !a.pending {
			ds := a.dataset
			a.mu.Unlock()
			return ds, nil
		}
		ch := a.changed
		a.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return a.Dataset(), ctx.Err()
		}
	}
}

// Close cancels outstanding fan-outs and waits for them to return. The last
// committed dataset stays visible; cancelled fan-outs never replace it.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	if a.pending {
		a.pending = false
		a.broadcastLocked()
	}
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
}

// launchLocked starts a new generation. An empty term list is answered
// immediately and the resulting dataset returned for publishing.
func (a *Aggregator) launchLocked(q models.SeriesQuery) (uint64, *models.SeriesDataset) {
	a.gen++
	gen := a.gen
	a.query = q
	a.hasQuery = true

	if a.inflight != nil {
		a.inflight()
		a.inflight = nil
	}

	if len(q.Terms) == 0 {
		ds := models.SeriesDataset{
			Generation: gen,
			Query:      q,
			Series:     map[string][]models.Point{},
		}
		a.commitLocked(ds)
		return gen, &ds
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.inflight = cancel
	a.pending = true
	a.broadcastLocked()

	a.wg.Add(1)
	go a.run(ctx, gen, q)
	return gen, nil
}

func (a *Aggregator) run(ctx context.Context, gen uint64, q models.SeriesQuery) {
	defer a.wg.Done()

	ds := Fetch(ctx, a.fetcher, q, a.fetchOpts)
	ds.Generation = gen

	a.mu.Lock()
	if gen != a.gen || a.closed {
		a.mu.Unlock()
		a.logger.Debug("discarding stale trend dataset", "generation", gen)
		return
	}
	if a.inflight != nil {
		a.inflight()
		a.inflight = nil
	}
	a.commitLocked(ds)
	a.mu.Unlock()

	for term, msg := range ds.Failures {
		a.logger.Warn("trend series fetch failed", "term", term, "generation", gen, "error", msg)
	}
	a.publish(&ds)
}

func (a *Aggregator) commitLocked(ds models.SeriesDataset) {
	a.dataset = ds
	a.pending = false
	a.broadcastLocked()
}

func (a *Aggregator) broadcastLocked() {
	close(a.changed)
	a.changed = make(chan struct{})
}

// publish delivers ds unless a newer generation already reached the observer.
func (a *Aggregator) publish(ds *models.SeriesDataset) {
	if ds == nil || a.observer == nil {
		return
	}
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	if ds.Generation <= a.published {
		a.logger.Debug("skipping superseded trend dataset", "generation", ds.Generation)
		return
	}
	a.published = ds.Generation
	a.observer(*ds)
}
