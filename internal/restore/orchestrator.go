// Package restore drives one photo from local file to restored result:
// quota and file checks, upload, job submission and progress tracking.
package restore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"colorold/internal/domain"
	"colorold/internal/i18n"
	"colorold/internal/imaging"
	"colorold/internal/infra"
	"colorold/internal/poller"
	"colorold/internal/storage"
)

// DefaultTimeout bounds how long a job may stay in processing.
const DefaultTimeout = 10 * time.Minute

// JobClient submits and reads remote jobs.
type JobClient interface {
	Submit(ctx context.Context, imageRef string) (*domain.Job, error)
	Fetch(ctx context.Context, jobID string) (*domain.Job, error)
}

// Quota gates new sessions.
type Quota interface {
	CanUse(ctx context.Context, key string) (bool, error)
	RecordUse(ctx context.Context, key string) error
}

// Options configures an Orchestrator.
type Options struct {
	Jobs     JobClient
	Uploader storage.Uploader
	// Quota may be nil when no allowance applies.
	Quota    Quota
	QuotaKey string
	// MonthlyQuota selects the monthly wording for exhausted allowances.
	MonthlyQuota bool
	Locale       string
	MaxBytes     int64
	MaxEdge      int
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *infra.Logger
	OnChange     func(Session)
}

// Orchestrator owns exactly one session at a time.
type Orchestrator struct {
	jobs         JobClient
	uploader     storage.Uploader
	quota        Quota
	quotaKey     string
	monthlyQuota bool
	locale       string
	maxBytes     int64
	maxEdge      int
	timeout      time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
	onChange     func(Session)
	engine       *poller.Engine

	mu      sync.Mutex
	session Session
	seq     uint64
	running bool
	last    *imaging.Image
	// abort cancels the running session's context.
	abort context.CancelFunc
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	uploader := opts.Uploader
	if uploader == nil {
		uploader = storage.InlineUploader{}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	o := &Orchestrator{
		jobs:         opts.Jobs,
		uploader:     uploader,
		quota:        opts.Quota,
		quotaKey:     opts.QuotaKey,
		monthlyQuota: opts.MonthlyQuota,
		locale:       i18n.Normalize(opts.Locale),
		maxBytes:     maxBytes,
		maxEdge:      opts.MaxEdge,
		timeout:      timeout,
		httpClient:   httpClient,
		logger:       logger,
		onChange:     opts.OnChange,
		session:      Session{State: StateIdle},
	}
	o.engine = poller.New(poller.Options{
		Fetcher:  opts.Jobs,
		Interval: opts.PollInterval,
		Logger:   logger,
		OnUpdate: o.mirror,
	})
	return o
}

// Session returns a copy of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Process runs img through the whole flow and blocks until the session
// reaches Success, Error, or is rejected back to Idle. The returned error is
// the typed cause; the session carries the user-facing message.
func (o *Orchestrator) Process(ctx context.Context, img *imaging.Image) (Session, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return o.Session(), ErrBusy
	}
	ctx, abort := context.WithCancel(ctx)
	o.running = true
	o.seq++
	seq := o.seq
	o.last = img
	o.abort = abort
	o.session = Session{State: StateIdle}
	o.mu.Unlock()

	defer func() {
		abort()
		o.mu.Lock()
		o.running = false
		o.abort = nil
		o.mu.Unlock()
	}()

	if err := o.admit(ctx, img); err != nil {
		o.logger.Info().Err(err).Str("identity", o.quotaKey).Msg("upload rejected")
		return o.reject(seq, err), err
	}

	if !o.update(seq, func(s *Session) { s.State = StateUploading }) {
		return o.Session(), ErrAborted
	}
	ref, err := o.upload(ctx, img)
	if err != nil {
		return o.fail(seq, err, i18n.KeyUploadFailed)
	}
	if !o.update(seq, func(s *Session) { s.OriginalRef = ref }) {
		return o.Session(), ErrAborted
	}

	job, err := o.jobs.Submit(ctx, ref)
	if err != nil {
		return o.fail(seq, err, i18n.KeyProcessingFailed)
	}
	ok := o.update(seq, func(s *Session) {
		s.State = StateProcessing
		s.JobID = job.ID
		s.Status = job.Status
		s.Progress = 0
	})
	if !ok {
		return o.Session(), ErrAborted
	}
	o.logger.Info().Str("job_id", job.ID).Msg("job submitted")
	return o.await(ctx, seq, job.ID)
}

// Retry starts a fresh session with the last photo. It is only allowed once
// the previous session has finished.
func (o *Orchestrator) Retry(ctx context.Context) (Session, error) {
	o.mu.Lock()
	img, running := o.last, o.running
	o.mu.Unlock()
	if running {
		return o.Session(), ErrBusy
	}
	if img == nil {
		return o.Session(), ErrNoPhoto
	}
	o.Reset()
	return o.Process(ctx, img)
}

// Reset abandons the current session and returns to Idle. Any in-flight
// poll result for the abandoned job is discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.seq++
	o.session = Session{State: StateIdle}
	s := o.session
	abort := o.abort
	o.abort = nil
	o.mu.Unlock()

	if abort != nil {
		abort()
	}
	o.engine.Unbind()
	o.emit(s)
}

func (o *Orchestrator) admit(ctx context.Context, img *imaging.Image) error {
	if o.quota != nil {
		ok, err := o.quota.CanUse(ctx, o.quotaKey)
		if err != nil {
			return fmt.Errorf("restore: check quota: %w", err)
		}
		if !ok {
			return domain.ErrQuotaExceeded
		}
	}
	if img == nil {
		return domain.NewValidationError(domain.CodeFileEmpty, "")
	}
	file := imaging.File{Name: img.Name, MIME: img.MIME, Size: int64(len(img.Data))}
	if err := imaging.Validate(file, o.maxBytes); err != nil {
		return err
	}
	if o.quota != nil {
		if err := o.quota.RecordUse(ctx, o.quotaKey); err != nil {
			return fmt.Errorf("restore: record quota: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) upload(ctx context.Context, img *imaging.Image) (string, error) {
	scaled, err := imaging.Downscale(img, o.maxEdge)
	if err != nil {
		return "", domain.NewValidationError(domain.CodeUnsupportedFormat, "%s", err)
	}
	ref, err := o.uploader.Upload(ctx, scaled.Name, imaging.ContentType(scaled.Name, scaled.MIME), scaled.Data)
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (o *Orchestrator) await(ctx context.Context, seq uint64, jobID string) (Session, error) {
	pollCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	o.engine.Bind(pollCtx, jobID)
	if !o.current(seq) {
		// Reset ran before the binding existed to be undone.
		o.engine.Unbind()
		return o.Session(), ErrAborted
	}
	snap, _ := o.engine.Wait(pollCtx)

	if snap.JobID != jobID || snap.State != poller.StateTerminal {
		o.engine.Unbind()
		switch {
		case !o.current(seq):
			return o.Session(), ErrAborted
		case ctx.Err() != nil:
			return o.fail(seq, ctx.Err(), i18n.KeyProcessingCanceled)
		case pollCtx.Err() != nil:
			cause := fmt.Errorf("restore: job %s: %w", jobID, domain.ErrTimeout)
			if errors.Is(snap.LastErr, domain.ErrNotFound) {
				cause = fmt.Errorf("restore: job %s: %w", jobID, snap.LastErr)
			}
			o.logger.Warn().Str("job_id", jobID).Err(cause).Msg("polling gave up")
			return o.fail(seq, cause, "")
		default:
			return o.Session(), ErrAborted
		}
	}

	if snap.Status != domain.JobStatusSucceeded {
		return o.fail(seq, &JobError{JobID: jobID, Status: snap.Status, Reason: strings.TrimSpace(snap.Error)}, "")
	}

	job, err := o.jobs.Fetch(ctx, jobID)
	if err != nil {
		return o.fail(seq, err, i18n.KeyGetStatusFailed)
	}
	output := strings.TrimSpace(job.Output)
	if output == "" {
		return o.fail(seq, fmt.Errorf("restore: job %s succeeded without output: %w", jobID, domain.ErrProtocol), "")
	}
	ok := o.update(seq, func(s *Session) {
		s.State = StateSuccess
		s.Status = domain.JobStatusSucceeded
		s.ResultRef = output
		s.Progress = 100
	})
	if !ok {
		return o.Session(), ErrAborted
	}
	o.logger.Info().Str("job_id", jobID).Msg("job succeeded")
	return o.Session(), nil
}

// mirror copies poller progress into the session while it is processing
// the same job.
func (o *Orchestrator) mirror(snap poller.Snapshot) {
	o.mu.Lock()
	if o.session.State != StateProcessing || snap.JobID == "" || o.session.JobID != snap.JobID {
		o.mu.Unlock()
		return
	}
	o.session.Progress = snap.Progress
	o.session.Status = snap.Status
	s := o.session
	o.mu.Unlock()
	o.emit(s)
}

func (o *Orchestrator) current(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq == seq
}

// update applies fn if seq still names the current session.
func (o *Orchestrator) update(seq uint64, fn func(*Session)) bool {
	o.mu.Lock()
	if o.seq != seq {
		o.mu.Unlock()
		return false
	}
	fn(&o.session)
	s := o.session
	o.mu.Unlock()
	o.emit(s)
	return true
}

func (o *Orchestrator) reject(seq uint64, err error) Session {
	o.update(seq, func(s *Session) {
		s.State = StateIdle
		s.ErrorMessage = o.message(err, "")
		s.Err = err
	})
	return o.Session()
}

func (o *Orchestrator) fail(seq uint64, err error, fallback string) (Session, error) {
	ok := o.update(seq, func(s *Session) {
		s.State = StateError
		if s.Status == domain.JobStatusSucceeded {
			s.Status = ""
			s.Progress = 0
		}
		s.ErrorMessage = o.message(err, fallback)
		s.Err = err
	})
	if !ok {
		return o.Session(), ErrAborted
	}
	o.logger.Warn().Err(err).Msg("session failed")
	return o.Session(), err
}

func (o *Orchestrator) emit(s Session) {
	if o.onChange != nil {
		o.onChange(s)
	}
}
