// Package poller tracks one remote job at a time, re-fetching it on a fixed
// delay until a terminal status is observed.
package poller

import (
	"context"
	"sync"
	"time"

	"colorold/internal/domain"
	"colorold/internal/infra"
	"colorold/internal/progress"
)

// DefaultInterval is the delay between the end of one fetch and the start of the next.
const DefaultInterval = 3 * time.Second

// State is the engine's lifecycle over the bound job.
type State string

const (
	StateIdle     State = "idle"
	StatePolling  State = "polling"
	StateTerminal State = "terminal"
)

// Fetcher reads the current job resource.
type Fetcher interface {
	Fetch(ctx context.Context, jobID string) (*domain.Job, error)
}

// Snapshot is the externally visible state of the engine.
type Snapshot struct {
	JobID    string
	State    State
	Status   domain.JobStatus
	Progress int
	Output   string
	Error    string
	// LastErr holds the most recent fetch failure; a successful fetch clears it.
	LastErr error
}

// Options configures an Engine.
type Options struct {
	Fetcher  Fetcher
	Interval time.Duration
	Logger   *infra.Logger
	// OnUpdate receives every applied snapshot. It must not call back into
	// the Engine.
	OnUpdate func(Snapshot)
}

// Engine polls a single bound job. Rebinding or unbinding bumps a generation
// counter; results fetched under an older generation are dropped.
type Engine struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *infra.Logger
	onUpdate func(Snapshot)

	// notifyMu serialises generation changes with OnUpdate delivery so no
	// callback for a previous binding runs after Bind or Unbind returns.
	notifyMu sync.Mutex
	mu       sync.Mutex
	gen      uint64
	snap     Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
}

// New builds an idle Engine.
func New(opts Options) *Engine {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Engine{
		fetcher:  opts.Fetcher,
		interval: interval,
		logger:   logger,
		onUpdate: opts.OnUpdate,
		snap:     Snapshot{State: StateIdle},
	}
}

// Bind starts polling jobID, replacing any previous binding. The first fetch
// is issued immediately. Polling stops when ctx ends, on a terminal status,
// or on Unbind.
func (e *Engine) Bind(ctx context.Context, jobID string) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	e.stopLocked()
	gen := e.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.snap = Snapshot{JobID: jobID, State: StatePolling, Status: domain.JobStatusStarting}
	snap := e.snap
	e.mu.Unlock()

	e.logger.Debug().Str("job_id", jobID).Msg("poller bound")
	e.notify(snap)
	go e.run(runCtx, cancel, gen, jobID, done)
}

// Unbind cancels any pending fetch and returns to Idle.
func (e *Engine) Unbind() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	e.stopLocked()
	e.snap = Snapshot{State: StateIdle}
	e.mu.Unlock()
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Wait blocks until the current binding stops polling or ctx ends.
func (e *Engine) Wait(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return e.Snapshot(), nil
	}
	select {
	case <-done:
		return e.Snapshot(), nil
	case <-ctx.Done():
		return e.Snapshot(), ctx.Err()
	}
}

func (e *Engine) stopLocked() {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.done = nil
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, gen uint64, jobID string, done chan struct{}) {
	defer close(done)
	defer cancel()
	for {
		job, err := e.fetcher.Fetch(ctx, jobID)
		if ctx.Err() != nil {
			return
		}
		if !e.apply(gen, jobID, job, err) {
			return
		}

		timer := time.NewTimer(e.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// apply folds one fetch result into the snapshot. It reports whether polling
// should continue.
func (e *Engine) apply(gen uint64, jobID string, job *domain.Job, fetchErr error) bool {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return false
	}

	if fetchErr != nil {
		e.snap.LastErr = fetchErr
		snap := e.snap
		e.mu.Unlock()
		e.logger.Warn().Err(fetchErr).Str("job_id", jobID).Msg("poll fetch failed")
		e.notify(snap)
		return true
	}

	e.snap.LastErr = nil
	e.snap.Status = job.Status
	if p, ok := progress.Parse(job.Logs); ok {
		e.snap.Progress = p
	}
	terminal := job.Status.Terminal()
	if terminal {
		e.snap.State = StateTerminal
		e.snap.Output = job.Output
		e.snap.Error = job.Error
		if job.Status == domain.JobStatusSucceeded {
			e.snap.Progress = 100
		}
	}
	snap := e.snap
	e.mu.Unlock()

	e.logger.Debug().
		Str("job_id", jobID).
		Str("status", string(snap.Status)).
		Int("progress", snap.Progress).
		Msg("poll applied")
	e.notify(snap)
	return !terminal
}

func (e *Engine) notify(snap Snapshot) {
	if e.onUpdate != nil {
		e.onUpdate(snap)
	}
}
