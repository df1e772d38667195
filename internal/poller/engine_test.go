package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"colorold/internal/domain"
)

type step struct {
	job *domain.Job
	err error
}

// scriptedFetcher replays a fixed sequence per job id, repeating the last entry.
type scriptedFetcher struct {
	mu     sync.Mutex
	steps  map[string][]step
	calls  map[string]int
	gate   map[string]chan struct{}
	active atomic.Int32
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		steps: map[string][]step{},
		calls: map[string]int{},
		gate:  map[string]chan struct{}{},
	}
}

func (f *scriptedFetcher) script(id string, steps ...step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[id] = steps
}

// block makes the next fetches of id wait until the returned func is called.
func (f *scriptedFetcher) block(id string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[id] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *scriptedFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *scriptedFetcher) Fetch(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	n := f.calls[id]
	f.calls[id] = n + 1
	steps := f.steps[id]
	gate := f.gate[id]
	f.mu.Unlock()

	if gate != nil {
		f.active.Add(1)
		<-gate
		f.active.Add(-1)
	}
	if len(steps) == 0 {
		return nil, domain.ErrNotFound
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	s := steps[n]
	if s.err != nil {
		return nil, s.err
	}
	job := *s.job
	job.ID = id
	return &job, nil
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func processing(logs string) step {
	return step{job: &domain.Job{Status: domain.JobStatusProcessing, Logs: logs}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestEngineProgressThenSuccess(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A",
		processing("12/100"),
		processing("54/100"),
		step{job: &domain.Job{Status: domain.JobStatusSucceeded, Output: "https://cdn/x.jpg", Logs: "54/100"}},
	)
	rec := &recorder{}
	e := New(Options{Fetcher: f, Interval: 5 * time.Millisecond, OnUpdate: rec.record})

	e.Bind(context.Background(), "A")
	snap, err := e.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if snap.State != StateTerminal || snap.Status != domain.JobStatusSucceeded {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Progress != 100 || snap.Output != "https://cdn/x.jpg" {
		t.Fatalf("progress=%d output=%q", snap.Progress, snap.Output)
	}

	var seen []int
	for _, s := range rec.all() {
		seen = append(seen, s.Progress)
	}
	want := []int{0, 12, 54, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress sequence = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress sequence = %v, want %v", seen, want)
		}
	}
}

func TestEngineStopsFetchingAfterTerminal(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", processing("1/2"), step{job: &domain.Job{Status: domain.JobStatusFailed, Error: "NSFW content"}})
	e := New(Options{Fetcher: f, Interval: 2 * time.Millisecond})

	e.Bind(context.Background(), "A")
	snap, _ := e.Wait(context.Background())
	if snap.State != StateTerminal || snap.Error != "NSFW content" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Progress != 50 {
		t.Fatalf("failed job should keep last progress, got %d", snap.Progress)
	}

	time.Sleep(20 * time.Millisecond)
	if got := f.count("A"); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}
}

func TestEngineRetainsProgressWithoutData(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", processing("40/100"), processing("Loading weights..."))
	rec := &recorder{}
	e := New(Options{Fetcher: f, Interval: time.Millisecond, OnUpdate: rec.record})
	defer e.Unbind()

	e.Bind(context.Background(), "A")
	waitFor(t, func() bool { return f.count("A") >= 3 })
	if got := e.Snapshot().Progress; got != 40 {
		t.Fatalf("progress = %d, want 40", got)
	}
}

func TestEngineFetchErrorKeepsPolling(t *testing.T) {
	boom := errors.New("connection reset")
	f := newScriptedFetcher()
	f.script("A",
		step{err: boom},
		step{job: &domain.Job{Status: domain.JobStatusSucceeded, Output: "u"}},
	)
	rec := &recorder{}
	e := New(Options{Fetcher: f, Interval: time.Millisecond, OnUpdate: rec.record})

	e.Bind(context.Background(), "A")
	snap, _ := e.Wait(context.Background())
	if snap.State != StateTerminal || snap.LastErr != nil {
		t.Fatalf("snapshot = %+v", snap)
	}
	var sawErr bool
	for _, s := range rec.all() {
		if errors.Is(s.LastErr, boom) && s.State == StatePolling {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatalf("expected an update carrying the fetch error")
	}
}

func TestEngineRebindDropsLateResult(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", step{job: &domain.Job{Status: domain.JobStatusSucceeded, Logs: "99/100", Output: "late"}})
	f.script("B", processing("10/100"))
	releaseA := f.block("A")

	rec := &recorder{}
	e := New(Options{Fetcher: f, Interval: time.Hour, OnUpdate: rec.record})
	defer e.Unbind()

	e.Bind(context.Background(), "A")
	waitFor(t, func() bool { return f.active.Load() == 1 })

	e.Bind(context.Background(), "B")
	waitFor(t, func() bool { return e.Snapshot().Progress == 10 })
	mark := len(rec.all())

	releaseA()
	waitFor(t, func() bool { return f.active.Load() == 0 })
	time.Sleep(10 * time.Millisecond)

	snap := e.Snapshot()
	if snap.JobID != "B" || snap.State != StatePolling || snap.Progress != 10 || snap.Output != "" {
		t.Fatalf("late result leaked into B: %+v", snap)
	}
	for _, s := range rec.all()[mark:] {
		if s.JobID == "A" {
			t.Fatalf("update for A delivered after rebind: %+v", s)
		}
	}
}

func TestEngineRebindResetsState(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", step{job: &domain.Job{Status: domain.JobStatusSucceeded, Output: "u"}})
	releaseB := f.block("B")
	f.script("B", processing("5/100"))
	e := New(Options{Fetcher: f, Interval: time.Hour})
	defer e.Unbind()

	e.Bind(context.Background(), "A")
	_, _ = e.Wait(context.Background())

	e.Bind(context.Background(), "B")
	snap := e.Snapshot()
	if snap.JobID != "B" || snap.Progress != 0 || snap.Status != domain.JobStatusStarting || snap.Output != "" {
		t.Fatalf("state carried over from A: %+v", snap)
	}
	releaseB()
}

func TestEngineUnbindCancelsPolling(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", processing("30/100"))
	release := f.block("A")
	rec := &recorder{}
	e := New(Options{Fetcher: f, Interval: time.Millisecond, OnUpdate: rec.record})

	e.Bind(context.Background(), "A")
	waitFor(t, func() bool { return f.active.Load() == 1 })
	e.Unbind()
	mark := len(rec.all())
	release()
	time.Sleep(10 * time.Millisecond)

	if snap := e.Snapshot(); snap.State != StateIdle || snap.JobID != "" || snap.Progress != 0 {
		t.Fatalf("snapshot after unbind = %+v", snap)
	}
	if got := len(rec.all()); got != mark {
		t.Fatalf("updates after unbind: %d", got-mark)
	}
	if got := f.count("A"); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestEngineWaitHonoursContext(t *testing.T) {
	f := newScriptedFetcher()
	f.script("A", processing("1/100"))
	e := New(Options{Fetcher: f, Interval: time.Millisecond})
	defer e.Unbind()

	e.Bind(context.Background(), "A")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap, err := e.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if snap.State != StatePolling {
		t.Fatalf("engine should still be polling, got %+v", snap)
	}
}
