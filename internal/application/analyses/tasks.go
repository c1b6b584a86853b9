package analyses

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

// Progress is a point-in-time view of a processing task.
type Progress struct {
	AnalysisID domain.AnalysisID `json:"analysis_id"`
	Percent    int               `json:"progress"`
	Status     domain.Status     `json:"status"`
	Error      string            `json:"error,omitempty"`
}

// Task is the cancellable handle of one pseudo-analysis run.
type Task struct {
	id     domain.AnalysisID
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress Progress
	err      error
	subs     map[int]chan Progress
	nextSub  int
	finished bool
}

func newTask(id domain.AnalysisID, cancel context.CancelFunc) *Task {
	return &Task{
		id:       id,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: Progress{AnalysisID: id, Status: domain.StatusPending},
		subs:     make(map[int]chan Progress),
	}
}

func (t *Task) ID() domain.AnalysisID { return t.id }

// Cancel stops the run. The record is marked failed, no result is written.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the run has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the run error; only meaningful after Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the run finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Subscribe returns a channel carrying the latest progress. Slow readers
// skip intermediate values. The channel is closed when the run finishes.
func (t *Task) Subscribe() (<-chan Progress, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Progress, 1)
	ch <- t.progress
	if t.finished {
		close(ch)
		return ch, func() {}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
}

func (t *Task) publish(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	p.AnalysisID = t.id
	t.progress = p
	for _, ch := range t.subs {
		offer(ch, p)
	}
}

func (t *Task) finish(p Progress, err error) {
	t.mu.Lock()
	p.AnalysisID = t.id
	t.progress = p
	t.err = err
	t.finished = true
	for id, ch := range t.subs {
		offer(ch, p)
		close(ch)
		delete(t.subs, id)
	}
	t.mu.Unlock()
	close(t.done)
}

// offer replaces a stale buffered value with p.
func offer(ch chan Progress, p Progress) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}

type runFunc func(ctx context.Context, t *Task) (Progress, error)

// registry holds at most one running task per analysis.
type registry struct {
	mu    sync.Mutex
	tasks map[domain.AnalysisID]*Task
	wg    sync.WaitGroup
}

func newRegistry() *registry {
	return &registry{tasks: make(map[domain.AnalysisID]*Task)}
}

// start launches run unless a task for id is already running, in which
// case the existing task is returned with started=false.
func (r *registry) start(base context.Context, id domain.AnalysisID, run runFunc) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		return t, false
	}

	ctx, cancel := context.WithCancel(base)
	t := newTask(id, cancel)
	r.tasks[id] = t
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer cancel()
		p, err := run(ctx, t)

		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()
		t.finish(p, err)
	}()
	return t, true
}

func (r *registry) get(id domain.AnalysisID) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return t, ok
}

func (r *registry) cancel(id domain.AnalysisID) bool {
	t, ok := r.get(id)
	if ok {
		t.Cancel()
	}
	return ok
}

// shutdown cancels every task and waits for them to finish writing.
func (r *registry) shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, t := range r.tasks {
		t.Cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
