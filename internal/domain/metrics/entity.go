package metrics

import (
	"time"

	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

// SystemMetrics is a daily aggregate snapshot.
type SystemMetrics struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	TotalAnalyses     int       `json:"total_analyses"`
	NormalCases       int       `json:"normal_cases"`
	AbnormalCases     int       `json:"abnormal_cases"`
	AvgConfidence     *float64  `json:"avg_confidence"`
	AvgProcessingTime *float64  `json:"avg_processing_time"`
	ActiveUsers       int       `json:"active_users"`
	CreatedAt         time.Time `json:"created_at"`
}

// Overview is what the admin page shows.
type Overview struct {
	TotalAnalyses int64   `json:"total_analyses"`
	ActiveUsers   int64   `json:"active_users"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Snapshot aggregates the analyses created on day. Averages only consider
// completed analyses and stay nil when there are none.
func Snapshot(day time.Time, list []*analyses.Analysis, activeUsers int) SystemMetrics {
	m := SystemMetrics{Date: Day(day), ActiveUsers: activeUsers}

	var confSum, timeSum float64
	var confN, timeN int
	for _, a := range list {
		m.TotalAnalyses++
		if a.Severity != nil {
			if a.Severity.Abnormal() {
				m.AbnormalCases++
			} else {
				m.NormalCases++
			}
		}
		if a.Status != analyses.StatusCompleted {
			continue
		}
		if a.Confidence != nil {
			confSum += *a.Confidence
			confN++
		}
		if a.ProcessingTimeSeconds != nil {
			timeSum += *a.ProcessingTimeSeconds
			timeN++
		}
	}
	if confN > 0 {
		v := confSum / float64(confN)
		m.AvgConfidence = &v
	}
	if timeN > 0 {
		v := timeSum / float64(timeN)
		m.AvgProcessingTime = &v
	}
	return m
}
