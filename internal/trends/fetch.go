package trends

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/termscope/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves one term's raw series.
type Fetcher interface {
	TrendSeries(ctx context.Context, granularity models.Granularity, term string, bin models.Bin) (map[string]int, error)
}

// FetchOptions bounds a fan-out. Zero values mean unbounded.
type FetchOptions struct {
	Concurrency int
	CallTimeout time.Duration
}

// Fetch issues one request per term concurrently and waits for all of them.
// A failing term is reported in Failures and never affects its siblings.
func Fetch(ctx context.Context, f Fetcher, q models.SeriesQuery, opts FetchOptions) models.SeriesDataset {
	ds := models.SeriesDataset{
		Query:  q,
		Series: make(map[string][]models.Point, len(q.Terms)),
	}
	if len(q.Terms) == 0 {
		return ds
	}

	var (
		mu       sync.Mutex
		failures = map[string]string{}
	)

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for _, term := range q.Terms {
		g.Go(func() error {
			points, err := fetchTerm(ctx, f, q, term, opts.CallTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[term] = err.Error()
				return nil
			}
			ds.Series[term] = points
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		ds.Failures = failures
	}
	return ds
}

func fetchTerm(ctx context.Context, f Fetcher, q models.SeriesQuery, term string, timeout time.Duration) ([]models.Point, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	data, err := f.TrendSeries(ctx, q.Granularity, term, q.Bin)
	if err != nil {
		return nil, err
	}
	return toSeries(data)
}
