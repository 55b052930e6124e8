// Package ingest uploads batches of documents with index recomputation
// deferred to a single trailing call.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

var (
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrEmptyBatch       = errors.New("no files to upload")
	ErrClosed           = errors.New("ingestor closed")
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultClearDelay  = 5 * time.Second
)

// Uploader is the part of the backend the ingestor drives.
type Uploader interface {
	CreateDocument(ctx context.Context, content string, skipRecompute bool) (string, error)
	RecomputeIndex(ctx context.Context) error
}

// Recorder persists the outcome of finished batches.
type Recorder interface {
	RecordBatch(ctx context.Context, rec models.BatchRecord) error
}

type Option func(*Ingestor)

// WithCallTimeout bounds each create and recompute call.
func WithCallTimeout(d time.Duration) Option {
	return func(in *Ingestor) { in.callTimeout = d }
}

// WithClearDelay sets how long a succeeded/failed status stays visible.
func WithClearDelay(d time.Duration) Option {
	return func(in *Ingestor) { in.clearDelay = d }
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn is called without internal locks held.
func WithObserver(fn func(models.UploadProgress)) Option {
	return func(in *Ingestor) { in.observer = fn }
}

func WithRecorder(r Recorder) Option {
	return func(in *Ingestor) { in.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

type batch struct {
	id        uuid.UUID
	files     []File
	completed int
	startedAt time.Time
}

// Ingestor uploads one batch at a time. Files are submitted strictly in order,
// each create call suppressing index recomputation; once every file is in,
// exactly one recompute call is issued.
type Ingestor struct {
	uploader    Uploader
	callTimeout time.Duration
	clearDelay  time.Duration
	observer    func(models.UploadProgress)
	recorder    Recorder
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	active     *batch
	progress   models.UploadProgress
	clearTimer *time.Timer
	closed     bool
}

// New creates an Ingestor. Close must be called to release background work.
func New(uploader Uploader, opts ...Option) *Ingestor {
	in := &Ingestor{
		uploader:    uploader,
		callTimeout: defaultCallTimeout,
		clearDelay:  defaultClearDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.ctx, in.cancel = context.WithCancel(context.Background())
	return in
}

// Start begins uploading files in the background and returns immediately.
// Progress is observable through Progress and the registered observer.
func (in *Ingestor) Start(files []File) error {
	b, err := in.begin(files)
	if err != nil {
		return err
	}
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		_, _ = in.run(in.ctx, b)
	}()
	return nil
}

// Upload runs a batch to completion and returns its final snapshot.
// Documents created before a failure are not rolled back.
func (in *Ingestor) Upload(ctx context.Context, files []File) (models.UploadProgress, error) {
	b, err := in.begin(files)
	if err != nil {
		return in.Progress(), err
	}
	return in.run(ctx, b)
}

// Progress returns the current snapshot.
func (in *Ingestor) Progress() models.UploadProgress {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.progress
}

// Close stops the status clear timer and cancels a background batch.
func (in *Ingestor) Close() {
	in.mu.Lock()
	in.closed = true
	if in.clearTimer != nil {
		in.clearTimer.Stop()
	}
	in.mu.Unlock()

	in.cancel()
	in.wg.Wait()
}

// begin claims the single batch slot.
func (in *Ingestor) begin(files []File) (*batch, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil, ErrClosed
	}
	if len(files) == 0 {
		in.mu.Unlock()
		return nil, ErrEmptyBatch
	}
	if in.active != nil {
		in.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if in.clearTimer != nil {
		in.clearTimer.Stop()
		in.clearTimer = nil
	}

	b := &batch{
		id:        uuid.New(),
		files:     append([]File(nil), files...),
		startedAt: time.Now().UTC(),
	}
	in.active = b
	in.progress = models.UploadProgress{
		BatchID: b.id,
		Total:   len(b.files),
		Active:  true,
	}
	snap := in.progress
	in.mu.Unlock()

	in.logger.Info("upload batch started", "batch_id", b.id, "files", len(b.files))
	in.notify(snap)
	return b, nil
}

// run submits files from the cursor onward, then recomputes the index.
func (in *Ingestor) run(ctx context.Context, b *batch) (models.UploadProgress, error) {
	for b.completed < len(b.files) {
		f := b.files[b.completed]

		content, err := readText(f)
		if err != nil {
			return in.finish(b, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, in.callTimeout)
		_, err = in.uploader.CreateDocument(callCtx, content, true)
		cancel()
		if err != nil {
			return in.finish(b, fmt.Errorf("uploading %s: %w", f.Name(), err))
		}

		in.advance(b)
	}

	callCtx, cancel := context.WithTimeout(ctx, in.callTimeout)
	err := in.uploader.RecomputeIndex(callCtx)
	cancel()
	if err != nil {
		return in.finish(b, fmt.Errorf("recomputing index: %w", err))
	}
	return in.finish(b, nil)
}

func (in *Ingestor) advance(b *batch) {
	in.mu.Lock()
	b.completed++
	in.progress.Completed = b.completed
	snap := in.progress
	in.mu.Unlock()

	in.notify(snap)
}

// finish releases the batch slot, publishes the terminal status and arms
// the timer that clears it.
func (in *Ingestor) finish(b *batch, batchErr error) (models.UploadProgress, error) {
	in.mu.Lock()
	in.active = nil
	in.progress.Active = false
	in.progress.Completed = b.completed
	if batchErr != nil {
		in.progress.Status = models.UploadStatusFailed
		in.progress.Error = batchErr.Error()
	} else {
		in.progress.Status = models.UploadStatusSucceeded
	}
	if !in.closed {
		in.clearTimer = time.AfterFunc(in.clearDelay, func() { in.clearStatus(b.id) })
	}
	snap := in.progress
	in.mu.Unlock()

	if batchErr != nil {
		in.logger.Warn("upload batch failed",
			"batch_id", b.id, "completed", b.completed, "total", len(b.files), "error", batchErr)
	} else {
		in.logger.Info("upload batch succeeded", "batch_id", b.id, "total", len(b.files))
	}

	in.record(b, snap)
	in.notify(snap)
	return snap, batchErr
}

// clearStatus resets the snapshot unless a newer batch has taken over.
func (in *Ingestor) clearStatus(id uuid.UUID) {
	in.mu.Lock()
	if in.progress.BatchID != id || in.progress.Active {
		in.mu.Unlock()
		return
	}
	in.progress = models.UploadProgress{}
	in.clearTimer = nil
	snap := in.progress
	in.mu.Unlock()

	in.notify(snap)
}

func (in *Ingestor) record(b *batch, snap models.UploadProgress) {
	if in.recorder == nil {
		return
	}
	rec := models.BatchRecord{
		ID:         b.id,
		Total:      len(b.files),
		Completed:  b.completed,
		Status:     snap.Status,
		StartedAt:  b.startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if snap.Error != "" {
		msg := snap.Error
		rec.Error = &msg
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(in.ctx), in.callTimeout)
	defer cancel()
	if err := in.recorder.RecordBatch(ctx, rec); err != nil {
		in.logger.Warn("recording upload batch", "batch_id", b.id, "error", err)
	}
}

func (in *Ingestor) notify(snap models.UploadProgress) {
	if in.observer != nil {
		in.observer(snap)
	}
}
