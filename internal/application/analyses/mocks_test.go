package analyses

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

// fakeRepo keeps analyses in a map. The func fields override single methods.
type fakeRepo struct {
	mu    sync.Mutex
	items map[domain.AnalysisID]*domain.Analysis

	CompleteFn func(ctx context.Context, id domain.AnalysisID, r domain.Result) error
	ApplyFn    func(ctx context.Context, id domain.AnalysisID, from domain.Status, ev domain.Event) error
}

func newFakeRepo(seed ...*domain.Analysis) *fakeRepo {
	r := &fakeRepo{items: make(map[domain.AnalysisID]*domain.Analysis)}
	for _, a := range seed {
		r.items[a.ID] = a
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, q domain.ListQuery) ([]*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Analysis{}
	for _, a := range r.items {
		if q.UserID != "" && a.UserID != q.UserID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *fakeRepo) Count(_ context.Context, userID string) (int64, error) {
	list, _ := r.List(context.Background(), domain.ListQuery{UserID: userID})
	return int64(len(list)), nil
}

func (r *fakeRepo) Apply(ctx context.Context, id domain.AnalysisID, from domain.Status, ev domain.Event) error {
	if r.ApplyFn != nil {
		if err := r.ApplyFn(ctx, id, from, ev); err != nil {
			return err
		}
	}
	to, err := domain.Transition(from, ev)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != from {
		return domain.ErrConflict
	}
	a.Status = to
	return nil
}

func (r *fakeRepo) Complete(ctx context.Context, id domain.AnalysisID, res domain.Result) error {
	if r.CompleteFn != nil {
		if err := r.CompleteFn(ctx, id, res); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != domain.StatusProcessing {
		return domain.ErrConflict
	}
	return a.Complete(res)
}

func (r *fakeRepo) status(id domain.AnalysisID) domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Status
}

type fakeBlobs struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
}

func (b *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string][]byte)
	}
	b.keys = append(b.keys, key)
	b.data[key] = buf.Bytes()
	return "http://blobs.local/" + key, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type countingObserver struct {
	mu                                    sync.Mutex
	started, completed, failed, cancelled int
}

func (o *countingObserver) ProcessingStarted() {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *countingObserver) ProcessingCompleted(time.Duration) {
	o.mu.Lock()
	o.completed++
	o.mu.Unlock()
}

func (o *countingObserver) ProcessingFailed() {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

func (o *countingObserver) ProcessingCancelled() {
	o.mu.Lock()
	o.cancelled++
	o.mu.Unlock()
}
