package analyses

import (
	"math"
	"time"
)

// Bounds of the simulated model output.
const (
	MinTotalFrames        = 1000
	MaxTotalFrames        = 6000 // exclusive
	MaxAbnormalRatio      = 0.3  // abnormal_frames < 0.3 * total_frames
	AbnormalSeverityRatio = 0.2  // above this ratio the outcome is not healthy
	MinConfidence         = 95.0
	MaxConfidence         = 99.7 // exclusive
	ProcessingTimeSeconds = 18.5
)

const (
	conditionAbnormal = "Mucosal inflammation, Tissue irregularity"
	conditionHealthy  = "Healthy tissue"
)

var (
	abnormalSeverities = [...]Severity{SeverityMild, SeverityModerate, SeveritySevere}

	insightsAbnormal = []string{
		"Detected mucosal break indicating potential ulcer formation",
		"Tissue irregularity observed in multiple frames",
		"Recommend follow-up examination",
	}
	insightsHealthy = []string{
		"Tissue appears healthy with normal mucosal patterns",
		"No abnormalities detected",
		"Routine monitoring recommended",
	}
)

// Rand is the subset of *math/rand.Rand the generator needs.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Outcome is the fabricated result of a pseudo-analysis.
type Outcome struct {
	TotalFrames    int
	AbnormalFrames int
	Severity       Severity
	Confidence     float64
}

// GenerateOutcome draws a random outcome within the model bounds.
func GenerateOutcome(r Rand) Outcome {
	total := MinTotalFrames + r.Intn(MaxTotalFrames-MinTotalFrames)
	abnormal := int(math.Floor(r.Float64() * float64(total) * MaxAbnormalRatio))

	sev := SeverityHealthy
	if float64(abnormal) > float64(total)*AbnormalSeverityRatio {
		sev = abnormalSeverities[r.Intn(len(abnormalSeverities))]
	}

	conf := MinConfidence + r.Float64()*(MaxConfidence-MinConfidence)
	if conf >= MaxConfidence {
		// float rounding at the top of the range
		conf = math.Nextafter(MaxConfidence, MinConfidence)
	}

	return Outcome{
		TotalFrames:    total,
		AbnormalFrames: abnormal,
		Severity:       sev,
		Confidence:     conf,
	}
}

// Interpret derives the fixed condition text and insight template.
func (o Outcome) Interpret() (string, []string) {
	condition := conditionHealthy
	if o.AbnormalFrames > 0 {
		condition = conditionAbnormal
	}
	insights := insightsHealthy
	if o.Severity.Abnormal() {
		insights = insightsAbnormal
	}
	return condition, append([]string(nil), insights...)
}

// Result converts the outcome into the fields persisted on completion.
func (o Outcome) Result(completedAt time.Time) Result {
	condition, insights := o.Interpret()
	return Result{
		Severity:              o.Severity,
		Condition:             condition,
		Confidence:            o.Confidence,
		TotalFrames:           o.TotalFrames,
		AbnormalFrames:        o.AbnormalFrames,
		AIInsights:            insights,
		ProcessingTimeSeconds: ProcessingTimeSeconds,
		CompletedAt:           completedAt,
	}
}
