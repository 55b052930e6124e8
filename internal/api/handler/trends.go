package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"github.com/kiranshivaraju/termscope/internal/trends"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// Trends defines the aggregator operations the trend handlers depend on.
type Trends interface {
	SetQuery(q models.SeriesQuery) (uint64, error)
	Refresh() (uint64, error)
	Dataset() models.SeriesDataset
	Query() (models.SeriesQuery, bool)
	Pending() bool
}

// TrendLine is one term of the chart, in query order.
type TrendLine struct {
	Term   string         `json:"term"`
	Color  string         `json:"color"`
	Points []models.Point `json:"points"`
	Error  string         `json:"error,omitempty"`
}

// TrendView is the chart as last committed, plus the query currently in effect.
type TrendView struct {
	Generation  uint64              `json:"generation"`
	Pending     bool                `json:"pending"`
	Query       *models.SeriesQuery `json:"query,omitempty"`
	Granularity models.Granularity  `json:"granularity,omitempty"`
	Bin         models.Bin          `json:"bin,omitempty"`
	Lines       []TrendLine         `json:"lines"`
}

// NewSetTrendsHandler returns an http.HandlerFunc for PUT /api/v1/trends.
// The body is {"terms":"a,b","granularity":"document","bin":"day"}; the
// response carries the generation that will answer the query.
func NewSetTrendsHandler(t Trends) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Terms       string             `json:"terms"`
			Granularity models.Granularity `json:"granularity"`
			Bin         models.Bin         `json:"bin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		gen, err := t.SetQuery(trends.NewQuery(req.Terms, req.Granularity, req.Bin))
		if err != nil {
			writeTrendsError(w, err)
			return
		}
		response.Accepted(w, map[string]any{"generation": gen})
	}
}

// NewRefreshTrendsHandler returns an http.HandlerFunc for POST /api/v1/trends/refresh.
func NewRefreshTrendsHandler(t Trends) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		gen, err := t.Refresh()
		if err != nil {
			writeTrendsError(w, err)
			return
		}
		response.Accepted(w, map[string]any{"generation": gen})
	}
}

// NewGetTrendsHandler returns an http.HandlerFunc for GET /api/v1/trends.
func NewGetTrendsHandler(t Trends) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ds := t.Dataset()
		view := TrendView{
			Generation:  ds.Generation,
			Pending:     t.Pending(),
			Granularity: ds.Query.Granularity,
			Bin:         ds.Query.Bin,
			Lines:       Lines(ds),
		}
		if q, ok := t.Query(); ok {
			view.Query = &q
		}
		response.JSON(w, view)
	}
}

// Lines orders a dataset by its query's terms and assigns each its colour.
func Lines(ds models.SeriesDataset) []TrendLine {
	lines := make([]TrendLine, 0, len(ds.Query.Terms))
	for i, term := range ds.Query.Terms {
		line := TrendLine{Term: term, Color: trends.Color(i), Points: ds.Series[term]}
		if line.Points == nil {
			line.Points = []models.Point{}
		}
		if msg, failed := ds.Failures[term]; failed {
			line.Error = msg
		}
		lines = append(lines, line)
	}
	return lines
}

func writeTrendsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trends.ErrInvalidQuery):
		response.Error(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
	case errors.Is(err, trends.ErrClosed):
		writeClosed(w)
	default:
		writeBackendError(w, err)
	}
}
