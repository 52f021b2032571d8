// Package trust aggregates clause evidence into a 0-100 trust score.
//
// Each category's score is the weighted share of its clauses that passed:
// a proven clause counts 1, a failed clause 0 and a not-proven clause the
// policy's partial credit. A category with no clauses scores 100. The
// overall score weights the four categories by the policy's weights.
//
// Confidence is reported separately as the share of clauses that resolved
// to true or false, so a run that executed nothing (overall 100,
// confidence 0) is never mistaken for a confident pass.
package trust

import (
	"math"

	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/evidence"
)

// Recommendation is the deployment advice derived from a score.
type Recommendation string

const (
	ProductionReady    Recommendation = "production_ready"
	StagingRecommended Recommendation = "staging_recommended"
	ShadowMode         Recommendation = "shadow_mode"
	NotReady           Recommendation = "not_ready"
	CriticalIssues     Recommendation = "critical_issues"
)

// CategoryScore is the result for one category.
type CategoryScore struct {
	Category  contract.Category `json:"category"`
	Passed    int               `json:"passed"`
	NotProven int               `json:"not_proven"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
	ScorePct  float64           `json:"score_pct"`
}

// Score is the aggregate trust score of a run.
type Score struct {
	Overall        uint8            `json:"overall"`
	Confidence     uint8            `json:"confidence"`
	Breakdown      [4]CategoryScore `json:"breakdown"`
	Recommendation Recommendation   `json:"recommendation"`
	// Exact is the unrounded overall score.
	Exact    float64 `json:"exact"`
	Total    int     `json:"total"`
	Resolved int     `json:"resolved"`
}

// Category returns the breakdown entry for c.
func (s Score) Category(c contract.Category) CategoryScore {
	for _, cs := range s.Breakdown {
		if cs.Category == c {
			return cs
		}
	}
	return CategoryScore{Category: c}
}

// HasFailures reports whether any clause failed.
func (s Score) HasFailures() bool {
	for _, cs := range s.Breakdown {
		if cs.Failed > 0 {
			return true
		}
	}
	return false
}

// Calculator computes trust scores under a policy.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a calculator. The policy is used as given; call
// Policy.Validate first for untrusted input.
func NewCalculator(p Policy) *Calculator {
	return &Calculator{policy: p}
}

// Calculate computes the default-policy score of evidences.
func Calculate(evidences []evidence.ClauseEvidence) Score {
	return NewCalculator(DefaultPolicy()).Calculate(evidences)
}

// Calculate computes the score of evidences. Evidence with an unknown
// category counts towards the default category of its kind.
func (c *Calculator) Calculate(evidences []evidence.ClauseEvidence) Score {
	var s Score
	for i, cat := range contract.Categories {
		s.Breakdown[i].Category = cat
	}

	for _, ev := range evidences {
		cs := &s.Breakdown[categoryIndex(ev)]
		cs.Total++
		switch ev.Status {
		case evidence.Proven:
			cs.Passed++
		case evidence.Failed:
			cs.Failed++
		default:
			cs.NotProven++
		}
	}

	var overall float64
	for i := range s.Breakdown {
		cs := &s.Breakdown[i]
		cs.ScorePct = c.categoryPct(*cs)
		overall += c.policy.Weights.Of(cs.Category) * cs.ScorePct / 100
		s.Total += cs.Total
		s.Resolved += cs.Passed + cs.Failed
	}

	s.Exact = overall
	s.Overall = clampPct(overall)
	if s.Total > 0 {
		s.Confidence = clampPct(float64(s.Resolved) / float64(s.Total) * 100)
	}
	s.Recommendation = c.recommend(s)
	return s
}

func (c *Calculator) categoryPct(cs CategoryScore) float64 {
	if cs.Total == 0 {
		return 100
	}
	weighted := float64(cs.Passed) + c.policy.PartialCredit*float64(cs.NotProven)
	return weighted / float64(cs.Total) * 100
}

func (c *Calculator) recommend(s Score) Recommendation {
	t := c.policy.Thresholds
	var r Recommendation
	switch {
	case s.Exact >= t.ProductionReady:
		r = ProductionReady
	case s.Exact >= t.Staging:
		r = StagingRecommended
	case s.Exact >= t.Shadow:
		r = ShadowMode
	case s.HasFailures():
		r = CriticalIssues
	default:
		r = NotReady
	}

	if int(s.Confidence) < c.policy.MinConfidence && (r == ProductionReady || r == StagingRecommended) {
		r = ShadowMode
	}
	return r
}

func categoryIndex(ev evidence.ClauseEvidence) int {
	cat := ev.Category
	if !cat.Valid() {
		cat = contract.DefaultCategory(ev.Kind)
	}
	for i, c := range contract.Categories {
		if c == cat {
			return i
		}
	}
	return 2
}

func clampPct(f float64) uint8 {
	return uint8(math.Max(0, math.Min(100, math.Round(f))))
}
