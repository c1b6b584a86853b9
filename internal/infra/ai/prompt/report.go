package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/endoscan/internal/domain/reports"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are assisting a gastroenterologist who reads capsule-endoscopy reports. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- summary is at most three sentences in plain language for the referring doctor.
- Only restate what the report contains. Do not add diagnoses, drugs or numbers that are not in the report.
- Do not contradict the recommendation.

Schema:
{
  "summary": "<string>"
}`
}

// reportFacts is the subset of the report sent to the model. Patient id is left out.
type reportFacts struct {
	Severity       string   `json:"severity"`
	Condition      string   `json:"condition"`
	Confidence     float64  `json:"confidence"`
	TotalFrames    *int     `json:"total_frames,omitempty"`
	AbnormalFrames *int     `json:"abnormal_frames,omitempty"`
	Insights       []string `json:"insights"`
	Recommendation string   `json:"recommendation"`
}

// GetUserPrompt embeds the report facts as JSON.
func GetUserPrompt(r *reports.Report) (string, error) {
	b, err := json.Marshal(reportFacts{
		Severity:       string(r.Severity),
		Condition:      r.Condition,
		Confidence:     r.Confidence,
		TotalFrames:    r.TotalFrames,
		AbnormalFrames: r.AbnormalFrames,
		Insights:       r.Insights,
		Recommendation: r.Recommendation,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal report facts: %w", err)
	}
	return fmt.Sprintf("Summarize this report and respond with the JSON per schema. Report: %s", b), nil
}

// Narrative is the response schema of the system prompt.
type Narrative struct {
	Summary string `json:"summary"`
}

// ParseNarrative decodes the model output.
func ParseNarrative(content string) (string, error) {
	var n Narrative
	if err := json.Unmarshal([]byte(content), &n); err != nil {
		return "", fmt.Errorf("failed to decode narrative: %w", err)
	}
	if n.Summary == "" {
		return "", fmt.Errorf("empty narrative")
	}
	return n.Summary, nil
}
