package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/endoscan/internal/application"
	domain "github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

const (
	progressStep     = 10
	dashboardRecent  = 5
	failWriteTimeout = 5 * time.Second
)

// ErrMissingFile is returned when an upload carries no file name.
var ErrMissingFile = errors.New("file is required")

// Observer receives processing lifecycle events (metrics).
type Observer interface {
	ProcessingStarted()
	ProcessingCompleted(d time.Duration)
	ProcessingFailed()
	ProcessingCancelled()
}

type nopObserver struct{}

func (nopObserver) ProcessingStarted()                {}
func (nopObserver) ProcessingCompleted(time.Duration) {}
func (nopObserver) ProcessingFailed()                 {}
func (nopObserver) ProcessingCancelled()              {}

// Service implements use-cases untuk Analysis.
// Safe for concurrent use; construct with & and do not copy.
type Service struct {
	Repo         domain.Repository
	Blobs        domain.BlobStore
	Clock        application.Clock
	Rand         domain.Rand
	Observer     Observer
	Logger       *slog.Logger
	StepInterval time.Duration
	// BaseContext is the parent of every processing task. Cancelling it
	// stops all running tasks.
	BaseContext context.Context

	once  sync.Once
	tasks *registry
}

func (s *Service) init() {
	s.once.Do(func() {
		s.tasks = newRegistry()
		if s.Clock == nil {
			s.Clock = application.SystemClock{}
		}
		if s.Rand == nil {
			s.Rand = application.NewLockedRand(time.Now().UnixNano())
		}
		if s.Observer == nil {
			s.Observer = nopObserver{}
		}
		if s.Logger == nil {
			s.Logger = slog.Default()
		}
		if s.BaseContext == nil {
			s.BaseContext = context.Background()
		}
	})
}

//
// ==== USE CASES ====
//

// UploadCommand untuk upload file endoskopi
type UploadCommand struct {
	UserID           string
	FileName         string
	ContentType      string
	Size             int64
	Body             io.Reader
	PatientID        string
	RegionOfInterest string
	DeviceModel      string
	Notes            string
}

// Upload stores the file and inserts a pending analysis.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Analysis, error) {
	s.init()
	if strings.TrimSpace(cmd.FileName) == "" || cmd.Body == nil {
		return nil, ErrMissingFile
	}
	if err := domain.CheckUpload(cmd.ContentType, cmd.Size); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	key := domain.BlobKey(cmd.UserID, cmd.FileName, now)
	url, err := s.Blobs.Put(ctx, key, cmd.Body, cmd.Size, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	a := &domain.Analysis{
		ID:               domain.AnalysisID(uuid.NewString()),
		UserID:           cmd.UserID,
		PatientID:        optional(cmd.PatientID),
		FileName:         cmd.FileName,
		FileURL:          url,
		FileType:         cmd.ContentType,
		Status:           domain.StatusPending,
		RegionOfInterest: optional(cmd.RegionOfInterest),
		DeviceModel:      optional(cmd.DeviceModel),
		Notes:            optional(cmd.Notes),
		CreatedAt:        now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	s.Logger.InfoContext(ctx, "analysis uploaded",
		slog.String("analysis_id", string(a.ID)),
		slog.String("user_id", a.UserID),
		slog.String("file_type", a.FileType),
		slog.Int64("size", cmd.Size))
	return a, nil
}

// Get returns the analysis when userID owns it.
func (s *Service) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.OwnedBy(userID) {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// Load fetches an analysis and starts processing it if it is still pending.
// The returned task is nil when nothing is running.
func (s *Service) Load(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, *Task, error) {
	s.init()
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	switch a.Status {
	case domain.StatusPending:
		return a, s.start(id), nil
	case domain.StatusProcessing:
		t, _ := s.tasks.get(id)
		return a, t, nil
	}
	return a, nil, nil
}

// StartProcessing starts the pseudo-analysis of a pending analysis owned by userID.
// A second call while a run is active returns the running task.
func (s *Service) StartProcessing(ctx context.Context, userID string, id domain.AnalysisID) (*Task, error) {
	s.init()
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t, ok := s.tasks.get(id); ok {
		return t, nil
	}
	if a.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: start on %s", domain.ErrInvalidTransition, a.Status)
	}
	return s.start(id), nil
}

func (s *Service) start(id domain.AnalysisID) *Task {
	t, started := s.tasks.start(s.BaseContext, id, s.process)
	if !started {
		s.Logger.Debug("processing already running", slog.String("analysis_id", string(id)))
	}
	return t
}

// Task returns the running task of id, if any.
func (s *Service) Task(id domain.AnalysisID) (*Task, bool) {
	s.init()
	return s.tasks.get(id)
}

// Cancel stops processing of an analysis owned by userID. It reports
// whether a running task was found.
func (s *Service) Cancel(ctx context.Context, userID string, id domain.AnalysisID) (bool, error) {
	s.init()
	if _, err := s.Get(ctx, userID, id); err != nil {
		return false, err
	}
	return s.tasks.cancel(id), nil
}

func (s *Service) process(ctx context.Context, t *Task) (Progress, error) {
	id := t.ID()
	log := s.Logger.With(slog.String("analysis_id", string(id)))
	began := time.Now()

	if err := s.Repo.Apply(ctx, id, domain.StatusPending, domain.EventStart); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// someone else moved the record, report where it is now
			log.Warn("start processing", slog.Any("err", err))
			return s.current(ctx, id, err), err
		}
		s.markFailed(ctx, log, id, domain.StatusPending, err)
		s.Observer.ProcessingFailed()
		log.Error("start processing", slog.Any("err", err))
		return Progress{Status: domain.StatusFailed, Error: err.Error()}, err
	}
	s.Observer.ProcessingStarted()
	log.Info("processing started")

	outcome := domain.GenerateOutcome(s.Rand)
	for pct := 0; ; pct += progressStep {
		t.publish(Progress{Percent: pct, Status: domain.StatusProcessing})
		if pct >= 100 {
			break
		}
		if err := application.Sleep(ctx, s.StepInterval); err != nil {
			return s.abort(ctx, log, id, pct, err)
		}
	}

	if err := s.Repo.Complete(ctx, id, outcome.Result(s.Clock.Now())); err != nil {
		return s.abort(ctx, log, id, 100, err)
	}
	s.Observer.ProcessingCompleted(time.Since(began))
	log.Info("processing completed",
		slog.String("severity", string(outcome.Severity)),
		slog.Int("total_frames", outcome.TotalFrames),
		slog.Int("abnormal_frames", outcome.AbnormalFrames))
	return Progress{Percent: 100, Status: domain.StatusCompleted}, nil
}

// current reads the stored status of id for a run that lost the claim.
func (s *Service) current(ctx context.Context, id domain.AnalysisID, cause error) Progress {
	a, err := s.Repo.Get(context.WithoutCancel(ctx), id)
	if err != nil {
		return Progress{Status: domain.StatusFailed, Error: cause.Error()}
	}
	p := Progress{Status: a.Status, Error: cause.Error()}
	if a.Status == domain.StatusCompleted {
		p.Percent = 100
	}
	return p
}

// markFailed fires the fail event on id. The write outlives ctx so a
// cancelled run never leaves the record behind.
func (s *Service) markFailed(ctx context.Context, log *slog.Logger, id domain.AnalysisID, from domain.Status, cause error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()

	if err := s.Repo.Apply(wctx, id, from, domain.EventFail); err != nil {
		log.Error("mark failed", slog.Any("err", err), slog.Any("cause", cause))
	}
}

// abort marks a claimed analysis failed.
func (s *Service) abort(ctx context.Context, log *slog.Logger, id domain.AnalysisID, pct int, cause error) (Progress, error) {
	s.markFailed(ctx, log, id, domain.StatusProcessing, cause)
	if errors.Is(cause, context.Canceled) {
		s.Observer.ProcessingCancelled()
		log.Info("processing cancelled", slog.Int("progress", pct))
	} else {
		s.Observer.ProcessingFailed()
		log.Error("processing failed", slog.Int("progress", pct), slog.Any("err", cause))
	}
	return Progress{Percent: pct, Status: domain.StatusFailed, Error: cause.Error()}, cause
}

// Results returns the caller's analyses, newest first, narrowed by f.
func (s *Service) Results(ctx context.Context, userID string, f domain.Filter) ([]*domain.Analysis, error) {
	list, err := s.Repo.List(ctx, domain.ListQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	return f.Apply(list), nil
}

// Dashboard is the recent-activity view of one user.
type Dashboard struct {
	Recent []*domain.Analysis `json:"recent_analyses"`
	Stats  domain.Stats       `json:"stats"`
}

// Dashboard loads the latest analyses and summarises that same snapshot.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	list, err := s.Repo.List(ctx, domain.ListQuery{UserID: userID, Limit: dashboardRecent})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Recent: list, Stats: domain.Summarize(list)}, nil
}

// Shutdown cancels running tasks and waits until their final writes are done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.init()
	return s.tasks.shutdown(ctx)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
