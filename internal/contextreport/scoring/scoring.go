// Package scoring computes category scores and the weighted composite score.
package scoring

import (
	"fmt"
	"math"
	"os"

	"livability_backend/internal/contextreport/transport"

	"gopkg.in/yaml.v3"
)

// Default composite weights. They sum to 1.0 when every category is present.
const (
	WeightSocial       = 0.20
	WeightSafety       = 0.20
	WeightDemographics = 0.10
	WeightHousing      = 0.15
	WeightMobility     = 0.10
	WeightAmenities    = 0.15
	WeightEnvironment  = 0.10
)

// Policy is the weight table used for the composite score.
type Policy struct {
	Weights map[transport.Category]float64 `yaml:"weights"`
}

// DefaultPolicy returns the built-in weight table.
func DefaultPolicy() Policy {
	return Policy{Weights: map[transport.Category]float64{
		transport.CategorySocial:       WeightSocial,
		transport.CategorySafety:       WeightSafety,
		transport.CategoryDemographics: WeightDemographics,
		transport.CategoryHousing:      WeightHousing,
		transport.CategoryMobility:     WeightMobility,
		transport.CategoryAmenities:    WeightAmenities,
		transport.CategoryEnvironment:  WeightEnvironment,
	}}
}

// LoadPolicy reads a YAML weight table. Categories the file omits keep their
// default weight. An empty path returns the default policy.
//
//	weights:
//	  Social: 0.25
//	  Environment: 0.05
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read scoring policy: %w", err)
	}

	var file Policy
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Policy{}, fmt.Errorf("parse scoring policy: %w", err)
	}
	for category, weight := range file.Weights {
		policy.Weights[category] = weight
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate rejects unknown categories, negative weights and an all-zero table.
func (p Policy) Validate() error {
	known := make(map[transport.Category]bool, len(transport.Categories))
	for _, c := range transport.Categories {
		known[c] = true
	}

	var total float64
	for category, weight := range p.Weights {
		if !known[category] {
			return fmt.Errorf("scoring policy: unknown category %q", category)
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("scoring policy: invalid weight %v for %s", weight, category)
		}
		total += weight
	}
	if total <= 0 {
		return fmt.Errorf("scoring policy: weights must not all be zero")
	}
	return nil
}

// CategoryScore is the mean of the scored metrics, rounded to one decimal.
// It returns nil when no metric carries a score.
func CategoryScore(metrics []transport.ContextMetric) *float64 {
	var sum float64
	var n int
	for _, m := range metrics {
		if m.Score == nil {
			continue
		}
		sum += *m.Score
		n++
	}
	if n == 0 {
		return nil
	}
	score := roundScore(sum / float64(n))
	return &score
}

// CategoryScores scores every category of the report that has at least one
// scored metric.
func CategoryScores(report *transport.ContextReportDto) map[transport.Category]float64 {
	scores := make(map[transport.Category]float64, len(transport.Categories))
	for _, category := range transport.Categories {
		if score := CategoryScore(report.MetricsFor(category)); score != nil {
			scores[category] = *score
		}
	}
	return scores
}

// CompositeScore is the weighted mean over the categories present in scores,
// re-normalized so missing categories do not count against the total.
// It returns nil when no present category carries weight.
func (p Policy) CompositeScore(scores map[transport.Category]float64) *float64 {
	var weighted, weights float64
	for _, category := range transport.Categories {
		score, ok := scores[category]
		weight := p.Weights[category]
		if !ok || weight <= 0 {
			continue
		}
		weighted += score * weight
		weights += weight
	}
	if weights == 0 {
		return nil
	}
	composite := roundScore(weighted / weights)
	return &composite
}

func roundScore(v float64) float64 {
	v = math.Max(0, math.Min(100, v))
	return math.Round(v*10) / 10
}
