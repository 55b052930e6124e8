package models

import (
	"fmt"
	"time"
)

// Granularity is the textual unit over which a trend term is counted.
type Granularity string

const (
	GranularityDocument  Granularity = "document"
	GranularityParagraph Granularity = "paragraph"
	GranularitySentence  Granularity = "sentence"
)

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDocument, GranularityParagraph, GranularitySentence:
		return true
	}
	return false
}

// Bin is the width of the time bucket a series point aggregates.
type Bin string

const (
	BinDay   Bin = "day"
	BinMonth Bin = "month"
	BinYear  Bin = "year"
)

// Valid reports whether b is one of the known bins.
func (b Bin) Valid() bool {
	switch b {
	case BinDay, BinMonth, BinYear:
		return true
	}
	return false
}

// Layout returns the time layout the backend uses for date keys of this bin.
// It doubles as the axis label format.
func (b Bin) Layout() string {
	switch b {
	case BinMonth:
		return "2006-01"
	case BinYear:
		return "2006"
	default:
		return "2006-01-02"
	}
}

// SeriesQuery configures a trend chart. Term order determines colour assignment.
type SeriesQuery struct {
	Terms       []string    `json:"terms"`
	Granularity Granularity `json:"granularity"`
	Bin         Bin         `json:"bin"`
}

// Validate checks granularity and bin. An empty term list is valid.
func (q SeriesQuery) Validate() error {
	if !q.Granularity.Valid() {
		return fmt.Errorf("unknown granularity %q", q.Granularity)
	}
	if !q.Bin.Valid() {
		return fmt.Errorf("unknown bin %q", q.Bin)
	}
	return nil
}

// Equal reports whether two queries would produce the same dataset.
func (q SeriesQuery) Equal(o SeriesQuery) bool {
	if q.Granularity != o.Granularity || q.Bin != o.Bin || len(q.Terms) != len(o.Terms) {
		return false
	}
	for i := range q.Terms {
		if q.Terms[i] != o.Terms[i] {
			return false
		}
	}
	return true
}

// Point is one bucket of a term's series.
type Point struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// SeriesDataset maps each resolved term to its time-ascending series.
// Terms whose fetch failed are absent from Series and present in Failures.
type SeriesDataset struct {
	Generation uint64             `json:"generation"`
	Query      SeriesQuery        `json:"query"`
	Series     map[string][]Point `json:"series"`
	Failures   map[string]string  `json:"failures,omitempty"`
}
