package trust

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/islproof/internal/contract"
)

// Weights are the per-category shares of the overall score, in percent.
type Weights struct {
	Postconditions float64 `json:"postconditions" koanf:"postconditions"`
	Invariants     float64 `json:"invariants" koanf:"invariants"`
	Scenarios      float64 `json:"scenarios" koanf:"scenarios"`
	Temporal       float64 `json:"temporal" koanf:"temporal"`
}

// Of returns the weight of category c.
func (w Weights) Of(c contract.Category) float64 {
	switch c {
	case contract.Postconditions:
		return w.Postconditions
	case contract.Invariants:
		return w.Invariants
	case contract.Scenarios:
		return w.Scenarios
	case contract.Temporal:
		return w.Temporal
	}
	return 0
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Postconditions + w.Invariants + w.Scenarios + w.Temporal
}

// Thresholds are the minimum overall scores for each recommendation.
type Thresholds struct {
	ProductionReady float64 `json:"production_ready" koanf:"production_ready"`
	Staging         float64 `json:"staging" koanf:"staging"`
	Shadow          float64 `json:"shadow" koanf:"shadow"`
}

// Policy holds the tunable constants of the trust score.
type Policy struct {
	Weights Weights `json:"weights" koanf:"weights"`
	// PartialCredit is the weight of a not-proven clause, between a failed
	// clause (0) and a proven one (1).
	PartialCredit float64    `json:"partial_credit" koanf:"partial_credit"`
	Thresholds    Thresholds `json:"thresholds" koanf:"thresholds"`
	// MinConfidence is the confidence below which the recommendation is
	// capped at shadow mode.
	MinConfidence int `json:"min_confidence" koanf:"min_confidence"`
}

// DefaultPolicy returns the standard weighting: 40/30/20/10 category
// weights, 0.4 partial credit and 95/85/70 thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			Postconditions: 40,
			Invariants:     30,
			Scenarios:      20,
			Temporal:       10,
		},
		PartialCredit: 0.4,
		Thresholds: Thresholds{
			ProductionReady: 95,
			Staging:         85,
			Shadow:          70,
		},
		MinConfidence: 50,
	}
}

// Validate reports every inconsistency in p.
func (p Policy) Validate() error {
	var errs []error
	for _, c := range contract.Categories {
		if p.Weights.Of(c) < 0 {
			errs = append(errs, fmt.Errorf("weight for %s is negative", c))
		}
	}
	if math.Abs(p.Weights.Sum()-100) > 1e-9 {
		errs = append(errs, fmt.Errorf("weights sum to %g, want 100", p.Weights.Sum()))
	}
	if p.PartialCredit < 0 || p.PartialCredit > 1 {
		errs = append(errs, fmt.Errorf("partial credit %g is outside [0, 1]", p.PartialCredit))
	}
	t := p.Thresholds
	if !(t.ProductionReady > t.Staging && t.Staging > t.Shadow && t.Shadow > 0 && t.ProductionReady <= 100) {
		errs = append(errs, fmt.Errorf("thresholds %g/%g/%g must descend within (0, 100]",
			t.ProductionReady, t.Staging, t.Shadow))
	}
	if p.MinConfidence < 0 || p.MinConfidence > 100 {
		errs = append(errs, fmt.Errorf("min confidence %d is outside [0, 100]", p.MinConfidence))
	}
	return errors.Join(errs...)
}
