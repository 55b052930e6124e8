package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/termscope/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// DefaultListLimit caps history listings when the caller passes no limit.
const DefaultListLimit = 20

// Store is the run history interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	RecordBatch(ctx context.Context, rec models.BatchRecord) error
	ListBatches(ctx context.Context, limit int) ([]models.BatchRecord, error)

	RecordTopicRun(ctx context.Context, run models.TopicRun) error
	ListTopicRuns(ctx context.Context, limit int) ([]models.TopicRun, error)
	LatestTopicRun(ctx context.Context, phase models.JobPhase) (*models.TopicRun, error)
}
