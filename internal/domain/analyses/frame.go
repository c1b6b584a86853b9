package analyses

import (
	"encoding/json"
	"time"
)

// Frame is a per-frame annotation of one Analysis. It is stored but no
// operation produces frames yet.
type Frame struct {
	ID                 string          `json:"id"`
	AnalysisID         AnalysisID      `json:"analysis_id"`
	FrameNumber        int             `json:"frame_number"`
	TimestampMS        *int64          `json:"timestamp_ms"`
	IsAbnormal         bool            `json:"is_abnormal"`
	Severity           *Severity       `json:"severity"`
	Confidence         *float64        `json:"confidence"`
	DetectedConditions []string        `json:"detected_conditions"`
	OverlayData        json.RawMessage `json:"overlay_data,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
