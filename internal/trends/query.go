// Package trends fetches per-term time series from the backend and merges
// them into a chart dataset.
package trends

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/termscope/pkg/models"
)

var (
	ErrInvalidQuery = errors.New("invalid trend query")
	ErrClosed       = errors.New("aggregator closed")
)

var palette = []string{"red", "orange", "yellow", "green", "blue", "indigo", "violet"}

// Color returns the line colour of the i-th term. Colours cycle.
func Color(i int) string {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// ParseTerms splits a comma separated term list such as "cost,event".
// Blank and repeated terms are dropped; first-seen order is kept.
func ParseTerms(s string) []string {
	return normalizeTerms(strings.Split(s, ","))
}

func normalizeTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NewQuery builds a query with the console defaults for empty fields.
func NewQuery(terms string, granularity models.Granularity, bin models.Bin) models.SeriesQuery {
	if granularity == "" {
		granularity = models.GranularityDocument
	}
	if bin == "" {
		bin = models.BinDay
	}
	return models.SeriesQuery{
		Terms:       ParseTerms(terms),
		Granularity: granularity,
		Bin:         bin,
	}
}

// normalize cleans the term list and validates the query.
func normalize(q models.SeriesQuery) (models.SeriesQuery, error) {
	q.Terms = normalizeTerms(q.Terms)
	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return q, nil
}
