package analyses

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisID tipe untuk Analysis
type AnalysisID string

// Status lifecycle: pending -> processing -> completed | failed
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus validates a raw status value against the closed set.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Severity is the ordinal clinical-risk classification of an outcome.
type Severity string

const (
	SeverityHealthy  Severity = "healthy"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ParseSeverity validates a raw severity value against the closed set.
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityHealthy, SeverityMild, SeverityModerate, SeveritySevere:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
}

// Abnormal is true for every severity except healthy.
func (s Severity) Abnormal() bool { return s != SeverityHealthy }

// Aggregate Root: Analysis
//
// Nullable columns are pointers so they encode as JSON null.
type Analysis struct {
	ID                    AnalysisID `json:"id"`
	UserID                string     `json:"user_id"`
	PatientID             *string    `json:"patient_id"`
	FileName              string     `json:"file_name"`
	FileURL               string     `json:"file_url"`
	FileType              string     `json:"file_type"`
	Status                Status     `json:"status"`
	Severity              *Severity  `json:"severity"`
	Condition             *string    `json:"condition"`
	Confidence            *float64   `json:"confidence"`
	TotalFrames           *int       `json:"total_frames"`
	AbnormalFrames        *int       `json:"abnormal_frames"`
	RegionOfInterest      *string    `json:"region_of_interest"`
	DeviceModel           *string    `json:"device_model"`
	Notes                 *string    `json:"notes"`
	AIInsights            []string   `json:"ai_insights"`
	ProcessingTimeSeconds *float64   `json:"processing_time_seconds"`
	CreatedAt             time.Time  `json:"created_at"`
	CompletedAt           *time.Time `json:"completed_at"`
}

// Result holds every field written when an analysis completes.
type Result struct {
	Severity              Severity
	Condition             string
	Confidence            float64
	TotalFrames           int
	AbnormalFrames        int
	AIInsights            []string
	ProcessingTimeSeconds float64
	CompletedAt           time.Time
}

// Complete applies r and moves the analysis to completed.
func (a *Analysis) Complete(r Result) error {
	next, err := Transition(a.Status, EventComplete)
	if err != nil {
		return err
	}
	sev := r.Severity
	cond := r.Condition
	conf := r.Confidence
	total := r.TotalFrames
	abnormal := r.AbnormalFrames
	pt := r.ProcessingTimeSeconds
	done := r.CompletedAt

	a.Status = next
	a.Severity = &sev
	a.Condition = &cond
	a.Confidence = &conf
	a.TotalFrames = &total
	a.AbnormalFrames = &abnormal
	a.AIInsights = append([]string(nil), r.AIInsights...)
	a.ProcessingTimeSeconds = &pt
	a.CompletedAt = &done
	return nil
}

// Validate checks that outcome fields are set only on completed analyses.
func (a *Analysis) Validate() error {
	if _, err := ParseStatus(string(a.Status)); err != nil {
		return err
	}
	if a.Severity != nil {
		if _, err := ParseSeverity(string(*a.Severity)); err != nil {
			return err
		}
	}
	hasOutcome := a.Severity != nil || a.Condition != nil || a.Confidence != nil ||
		a.TotalFrames != nil || a.AbnormalFrames != nil || a.AIInsights != nil
	if a.Status != StatusCompleted {
		if hasOutcome {
			return fmt.Errorf("%w: outcome fields set on %s analysis", ErrInvalidAnalysis, a.Status)
		}
		return nil
	}
	if a.Severity == nil || a.Condition == nil || a.Confidence == nil || a.AIInsights == nil || a.CompletedAt == nil {
		return fmt.Errorf("%w: completed analysis missing outcome fields", ErrInvalidAnalysis)
	}
	return nil
}

// OwnedBy reports whether userID owns the analysis.
func (a *Analysis) OwnedBy(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}
