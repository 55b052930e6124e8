package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Upload batches ---

func (s *PostgresStore) RecordBatch(ctx context.Context, rec models.BatchRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO upload_batches (id, total, completed, status, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Total, rec.Completed, string(rec.Status), rec.Error, rec.StartedAt, rec.FinishedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("record upload batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]models.BatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, total, completed, status, error, started_at, finished_at
		 FROM upload_batches ORDER BY started_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list upload batches: %w", err)
	}
	defer rows.Close()

	batches := []models.BatchRecord{}
	for rows.Next() {
		var (
			b      models.BatchRecord
			status string
		)
		if err := rows.Scan(&b.ID, &b.Total, &b.Completed, &status, &b.Error, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan upload batch: %w", err)
		}
		b.Status = models.UploadStatus(status)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// --- Topic runs ---

func (s *PostgresStore) RecordTopicRun(ctx context.Context, run models.TopicRun) error {
	if run.Phase != models.JobPhaseDone && run.Phase != models.JobPhaseCancelled {
		return fmt.Errorf("record topic run: phase %s is not terminal", run.Phase)
	}

	var result any
	if run.Phase == models.JobPhaseDone {
		topics := run.Result
		if topics == nil {
			topics = []models.Topic{}
		}
		result = topics
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO topic_runs (id, phase, result, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Phase.String(), result, run.StartedAt, run.FinishedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("record topic run: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTopicRuns(ctx context.Context, limit int) ([]models.TopicRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, phase, result, started_at, finished_at
		 FROM topic_runs ORDER BY finished_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list topic runs: %w", err)
	}
	defer rows.Close()

	runs := []models.TopicRun{}
	for rows.Next() {
		run, err := scanTopicRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LatestTopicRun returns the most recently finished run in the given phase.
func (s *PostgresStore) LatestTopicRun(ctx context.Context, phase models.JobPhase) (*models.TopicRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, phase, result, started_at, finished_at
		 FROM topic_runs WHERE phase = $1 ORDER BY finished_at DESC LIMIT 1`, phase.String())
	run, err := scanTopicRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func scanTopicRun(row pgx.Row) (*models.TopicRun, error) {
	var (
		run   models.TopicRun
		phase string
	)
	if err := row.Scan(&run.ID, &phase, &run.Result, &run.StartedAt, &run.FinishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan topic run: %w", err)
	}
	p, err := models.ParseJobPhase(phase)
	if err != nil {
		return nil, fmt.Errorf("scan topic run: %w", err)
	}
	run.Phase = p
	return &run, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
