package simulation

import "github.com/bryanwahyu/endoscan/internal/domain/analyses"

// Detection is one flagged moment of the demonstration scan.
type Detection struct {
	Timestamp string            `json:"timestamp"`
	Frame     int               `json:"frame"`
	Condition string            `json:"condition"`
	Severity  analyses.Severity `json:"severity"`
}

// Abnormality is a condition with the number of frames it appears in.
type Abnormality struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Timeline is the fixed 3-hour scan demonstration, compressed to 3 minutes.
type Timeline struct {
	TotalFrames         int           `json:"total_frames"`
	AbnormalFrames      int           `json:"abnormal_frames"`
	AvgAnalysisTime     float64       `json:"avg_analysis_time"`
	Accuracy            float64       `json:"accuracy"`
	DurationSeconds     int           `json:"duration_seconds"`
	PlaybackSeconds     int           `json:"playback_seconds"`
	CommonAbnormalities []Abnormality `json:"common_abnormalities"`
	Detections          []Detection   `json:"detections"`
}

// Demo returns a fresh copy of the demonstration timeline.
func Demo() Timeline {
	return Timeline{
		TotalFrames:     108000,
		AbnormalFrames:  847,
		AvgAnalysisTime: 0.017,
		Accuracy:        analyses.ReportedAccuracy,
		DurationSeconds: 3 * 60 * 60,
		PlaybackSeconds: 3 * 60,
		CommonAbnormalities: []Abnormality{
			{Name: "Ulceration", Count: 324},
			{Name: "Polyps", Count: 213},
			{Name: "Inflammation", Count: 189},
			{Name: "Lesions", Count: 121},
		},
		Detections: []Detection{
			{Timestamp: "00:12:34", Frame: 11234, Condition: "Mucosal ulcer", Severity: analyses.SeverityModerate},
			{Timestamp: "00:45:23", Frame: 40523, Condition: "Polyp detected", Severity: analyses.SeverityMild},
			{Timestamp: "01:23:45", Frame: 75345, Condition: "Inflammation", Severity: analyses.SeverityMild},
			{Timestamp: "02:11:09", Frame: 94869, Condition: "Tissue lesion", Severity: analyses.SeveritySevere},
		},
	}
}

// At returns the detections visible once playback reaches progress percent.
func (t Timeline) At(progress float64) []Detection {
	if progress <= 0 {
		return nil
	}
	if progress > 100 {
		progress = 100
	}
	cutoff := int(float64(t.TotalFrames) * progress / 100)
	var out []Detection
	for _, d := range t.Detections {
		if d.Frame <= cutoff {
			out = append(out, d)
		}
	}
	return out
}
