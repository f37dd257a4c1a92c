package usecase

import (
	"time"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

// AnalysisResponse is the JSON shape of an analysis.
type AnalysisResponse struct {
	ID             string             `json:"id"`
	Method         string             `json:"method"`
	Score          float64            `json:"score"`
	Display        string             `json:"display"`
	Threshold      float64            `json:"threshold"`
	Verdict        string             `json:"verdict"`
	Color          string             `json:"color"`
	Scores         map[string]float64 `json:"scores"`
	CommonKeywords domain.Keywords    `json:"common_keywords"`
	CVKeywords     domain.Keywords    `json:"cv_keywords"`
	JobKeywords    domain.Keywords    `json:"job_keywords"`
	Radar          domain.RadarChart  `json:"radar"`
	Sources        map[string]string  `json:"sources"`
	CreatedAt      time.Time          `json:"created_at"`
}

// BuildAnalysisResponse shapes an analysis for JSON output. The HTTP API and
// the CLI --json flag share it.
func BuildAnalysisResponse(a domain.Analysis) AnalysisResponse {
	scores := make(map[string]float64, len(a.Scores))
	for m, v := range a.Scores {
		scores[string(m)] = v
	}
	return AnalysisResponse{
		ID:             a.ID,
		Method:         string(a.Method),
		Score:          a.Score,
		Display:        a.Display,
		Threshold:      a.Threshold,
		Verdict:        string(a.Verdict),
		Color:          a.Verdict.Color(),
		Scores:         scores,
		CommonKeywords: a.Common,
		CVKeywords:     a.CVKeywords,
		JobKeywords:    a.JobKeywords,
		Radar:          a.Radar,
		Sources:        map[string]string{"cv": string(a.CVSource), "job_description": string(a.JobSource)},
		CreatedAt:      a.CreatedAt,
	}
}
