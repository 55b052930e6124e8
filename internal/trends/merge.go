package trends

import (
	"fmt"
	"sort"
	"time"

	"github.com/kiranshivaraju/termscope/pkg/models"
)

// keyLayouts are the date key formats the backend emits, most specific first.
var keyLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseKey(key string) (time.Time, error) {
	for _, layout := range keyLayouts {
		if t, err := time.Parse(layout, key); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date key %q", key)
}

// toSeries converts one backend response into points sorted ascending by
// time. Every key yields exactly one point.
func toSeries(data map[string]int) ([]models.Point, error) {
	type keyed struct {
		key string
		models.Point
	}
	rows := make([]keyed, 0, len(data))
	for k, v := range data {
		t, err := parseKey(k)
		if err != nil {
			return nil, err
		}
		rows = append(rows, keyed{key: k, Point: models.Point{Time: t, Count: v}})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Time.Equal(rows[j].Time) {
			return rows[i].Time.Before(rows[j].Time)
		}
		return rows[i].key < rows[j].key
	})

	points := make([]models.Point, len(rows))
	for i, r := range rows {
		points[i] = r.Point
	}
	return points, nil
}
