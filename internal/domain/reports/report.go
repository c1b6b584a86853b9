package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

const Disclaimer = "This report is generated by an AI-powered diagnostic system. All findings should be reviewed " +
	"by a qualified medical professional before making treatment decisions."

const (
	recommendUrgent  = "Immediate follow-up examination recommended. Consult with gastroenterology specialist for treatment planning."
	recommendFollow  = "Schedule routine follow-up in 3-6 months. Monitor symptoms and maintain regular screening protocol."
	recommendRoutine = "Continue routine monitoring. Maintain healthy lifestyle and dietary habits. No immediate intervention required."
)

// Report is the clinical report for one completed analysis.
type Report struct {
	ReportID              string              `json:"report_id"`
	AnalysisID            analyses.AnalysisID `json:"analysis_id"`
	Date                  string              `json:"date"`
	FileName              string              `json:"file_name"`
	PatientID             *string             `json:"patient_id"`
	Severity              analyses.Severity   `json:"severity"`
	Condition             string              `json:"condition"`
	Confidence            float64             `json:"confidence"`
	TotalFrames           *int                `json:"total_frames"`
	AbnormalFrames        *int                `json:"abnormal_frames"`
	ProcessingTimeSeconds *float64            `json:"processing_time_seconds"`
	Insights              []string            `json:"insights"`
	Recommendation        string              `json:"recommendation"`
	Disclaimer            string              `json:"disclaimer"`
	Narrative             string              `json:"narrative,omitempty"`
}

// Recommendation picks the follow-up advice for a severity.
func Recommendation(s analyses.Severity) string {
	switch s {
	case analyses.SeveritySevere, analyses.SeverityModerate:
		return recommendUrgent
	case analyses.SeverityMild:
		return recommendFollow
	default:
		return recommendRoutine
	}
}

// ReportID is the first 8 characters of the analysis id, upper-cased.
func ReportID(id analyses.AnalysisID) string {
	s := string(id)
	if len(s) > 8 {
		s = s[:8]
	}
	return strings.ToUpper(s)
}

// Build creates the report of a completed analysis.
func Build(a *analyses.Analysis) (*Report, error) {
	if a.Status != analyses.StatusCompleted || a.Severity == nil {
		return nil, fmt.Errorf("%w: %s", analyses.ErrNotCompleted, a.ID)
	}
	r := &Report{
		ReportID:              ReportID(a.ID),
		AnalysisID:            a.ID,
		Date:                  FormatDate(a.CreatedAt),
		FileName:              a.FileName,
		PatientID:             a.PatientID,
		Severity:              *a.Severity,
		TotalFrames:           a.TotalFrames,
		AbnormalFrames:        a.AbnormalFrames,
		ProcessingTimeSeconds: a.ProcessingTimeSeconds,
		Insights:              append([]string(nil), a.AIInsights...),
		Recommendation:        Recommendation(*a.Severity),
		Disclaimer:            Disclaimer,
	}
	if a.Condition != nil {
		r.Condition = *a.Condition
	}
	if a.Confidence != nil {
		r.Confidence = *a.Confidence
	}
	return r, nil
}

// FormatDate renders t like "March 4, 2025".
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// Text renders the report as plain text.
func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CLINICAL REPORT %s\n", r.ReportID)
	fmt.Fprintf(&b, "Date: %s\n", r.Date)
	fmt.Fprintf(&b, "File: %s\n", r.FileName)
	patient := "No patient ID"
	if r.PatientID != nil && *r.PatientID != "" {
		patient = *r.PatientID
	}
	fmt.Fprintf(&b, "Patient: %s\n\n", patient)

	fmt.Fprintf(&b, "Severity: %s\n", titleCase(string(r.Severity)))
	fmt.Fprintf(&b, "Condition: %s\n", r.Condition)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", r.Confidence)
	if r.TotalFrames != nil {
		fmt.Fprintf(&b, "Total frames: %d\n", *r.TotalFrames)
	}
	if r.AbnormalFrames != nil {
		fmt.Fprintf(&b, "Abnormal frames: %d\n", *r.AbnormalFrames)
	}

	if len(r.Insights) > 0 {
		b.WriteString("\nFindings:\n")
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "  - %s\n", in)
		}
	}
	if r.Narrative != "" {
		fmt.Fprintf(&b, "\nSummary:\n%s\n", r.Narrative)
	}
	fmt.Fprintf(&b, "\nRecommendation:\n%s\n\n%s\n", r.Recommendation, r.Disclaimer)
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
