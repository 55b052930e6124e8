// Package topics drives the backend's singleton topic generation job:
// starting it, polling its progress, and cancelling it.
package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/termscope/pkg/models"
)

var (
	ErrNotRunning         = errors.New("topic job is not running")
	ErrCancelNotConfirmed = errors.New("cancel not confirmed by backend")
	ErrClosed             = errors.New("controller closed")
)

const (
	defaultPollInterval = time.Second
	defaultCallTimeout  = 10 * time.Second
)

// Backend is the part of the backend client the controller drives.
type Backend interface {
	StartTopicJob(ctx context.Context) error
	PollTopicJob(ctx context.Context) (models.TopicPoll, error)
	CancelTopicJob(ctx context.Context) (string, error)
}

// Recorder persists runs that reached done or cancelled.
type Recorder interface {
	RecordTopicRun(ctx context.Context, run models.TopicRun) error
}

type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) { c.callTimeout = d }
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn is called without internal locks held, possibly from the poll goroutine.
func WithObserver(fn func(models.JobSnapshot)) Option {
	return func(c *Controller) { c.observer = fn }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// poller is the handle of the single poll goroutine.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the goroutine and waits for it to exit.
func (p *poller) stop() {
	p.cancel()
	<-p.done
}

// Controller owns the topic job lifecycle. At most one poll goroutine is
// alive per Controller; it is joined on every exit from running and on Close.
type Controller struct {
	backend     Backend
	interval    time.Duration
	callTimeout time.Duration
	observer    func(models.JobSnapshot)
	recorder    Recorder
	logger      *slog.Logger

	// opMu serialises Start, Cancel and Close.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	poller  *poller
	changed chan struct{}
	closed  bool

	live atomic.Int32
}

func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:     backend,
		interval:    defaultPollInterval,
		callTimeout: defaultCallTimeout,
		logger:      slog.Default(),
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches a new run, discarding any previous one. If the backend
// rejects the start the controller is left idle and the error is returned.
func (c *Controller) Start(ctx context.Context) (models.JobSnapshot, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.JobSnapshot{}, ErrClosed
	}
	old := c.poller
	c.poller = nil
	c.mu.Unlock()

	if old != nil {
		old.stop()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	err := c.backend.StartTopicJob(callCtx)
	cancel()

	c.mu.Lock()
	if err != nil {
		snap := c.commitLocked(c.state.startFailed(err))
		c.mu.Unlock()

		c.logger.Warn("topic job start failed", "error", err)
		c.notify(snap)
		return snap, fmt.Errorf("starting topic job: %w", err)
	}

	snap := c.commitLocked(c.state.started(uuid.New(), time.Now().UTC()))
	c.poller = c.spawn()
	c.mu.Unlock()

	c.logger.Info("topic job started", "run_id", snap.RunID)
	c.notify(snap)
	return snap, nil
}

// Cancel asks the backend to cancel the running job. The state moves to
// cancelled only when the backend confirms; otherwise polling continues and
// the caller may retry.
func (c *Controller) Cancel(ctx context.Context) (models.JobSnapshot, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.JobSnapshot{}, ErrClosed
	}
	if c.state.Phase != models.JobPhaseRunning {
		snap := c.state.Snapshot()
		c.mu.Unlock()
		return snap, ErrNotRunning
	}
	runID := c.state.RunID
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	status, err := c.backend.CancelTopicJob(callCtx)
	cancel()

	if err == nil && status != models.TopicStatusCancelled {
		err = fmt.Errorf("%w: backend reported %q", ErrCancelNotConfirmed, status)
	}
	if err != nil {
		c.mu.Lock()
		snap := c.commitLocked(c.state.withError(err))
		c.mu.Unlock()

		c.logger.Warn("topic job cancel failed", "run_id", runID, "error", err)
		c.notify(snap)
		if errors.Is(err, ErrCancelNotConfirmed) {
			return snap, err
		}
		return snap, fmt.Errorf("cancelling topic job: %w", err)
	}

	c.mu.Lock()
	if c.state.Phase != models.JobPhaseRunning {
		// The job finished while the cancel was in flight.
		snap := c.state.Snapshot()
		c.mu.Unlock()
		return snap, nil
	}
	next := c.state.cancelConfirmed(time.Now().UTC()).withError(nil)
	snap := c.commitLocked(next)
	p := c.poller
	c.poller = nil
	c.mu.Unlock()

	if p != nil {
		p.stop()
	}

	c.logger.Info("topic job cancelled", "run_id", runID)
	c.record(next)
	c.notify(snap)
	return snap, nil
}

// Snapshot returns the current job view.
func (c *Controller) Snapshot() models.JobSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Wait blocks until the job is not running or ctx is done.
func (c *Controller) Wait(ctx context.Context) (models.JobSnapshot, error) {
	for {
		c.mu.Lock()
		if c.state.Phase != models.JobPhaseRunning {
			snap := c.state.Snapshot()
			c.mu.Unlock()
			return snap, nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close tears down the poll goroutine. A job still running on the backend is
// left alone; its result can be picked up by a later controller.
func (c *Controller) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	p := c.poller
	c.poller = nil
	c.mu.Unlock()

	if p != nil {
		p.stop()
	}
}

// spawn starts a poll goroutine. Callers hold c.mu.
func (c *Controller) spawn() *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	c.live.Add(1)
	go c.poll(ctx, p)
	return p
}

func (c *Controller) poll(ctx context.Context, p *poller) {
	defer close(p.done)
	defer c.live.Add(-1)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if c.pollOnce(ctx, p) {
			return
		}
	}
}

// pollOnce issues one status request and reports whether polling is over.
func (c *Controller) pollOnce(ctx context.Context, p *poller) bool {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	resp, err := c.backend.PollTopicJob(callCtx)
	cancel()

	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		c.logger.Warn("topic job poll failed", "error", err)
		return false
	}

	c.mu.Lock()
	if c.poller != p {
		c.mu.Unlock()
		return true
	}

	var (
		next     State
		finished bool
	)
	switch resp.Status {
	case models.TopicStatusRunning:
		next = c.state.progressed(resp.Progress)
	case models.TopicStatusDone:
		next = c.state.completed(resp.Result, time.Now().UTC())
		finished = true
	default:
		c.mu.Unlock()
		c.logger.Debug("ignoring topic job status", "status", resp.Status)
		return false
	}
	snap := c.commitLocked(next)
	c.mu.Unlock()

	if finished {
		c.logger.Info("topic job done", "run_id", snap.RunID, "topics", len(snap.Result))
		c.record(next)
	}
	c.notify(snap)
	return finished
}

// commitLocked installs s and wakes waiters. Callers hold c.mu.
func (c *Controller) commitLocked(s State) models.JobSnapshot {
	c.state = s
	close(c.changed)
	c.changed = make(chan struct{})
	return s.Snapshot()
}

func (c *Controller) record(s State) {
	if c.recorder == nil {
		return
	}
	run := models.TopicRun{
		ID:         s.RunID,
		Phase:      s.Phase,
		Result:     s.Result,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()
	if err := c.recorder.RecordTopicRun(ctx, run); err != nil {
		c.logger.Warn("recording topic run", "run_id", s.RunID, "error", err)
	}
}

func (c *Controller) notify(snap models.JobSnapshot) {
	if c.observer != nil {
		c.observer(snap)
	}
}
