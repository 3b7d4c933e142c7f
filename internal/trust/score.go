package trust

import (
	"fmt"
	"math"
)

// Weights for the overall trust score.
const (
	weightExtraction   = 0.35
	weightConnection   = 0.25
	weightCompleteness = 0.25
	weightConsistency  = 0.15
)

// Confidence bands for factor counting.
const (
	highConfidenceFloor = 0.8
	lowConfidenceCeil   = 0.5
)

// Factors itemizes what moved the trust score.
type Factors struct {
	HighConfidenceItems int `json:"high_confidence_items"`
	LowConfidenceItems  int `json:"low_confidence_items"`
	MissingFields       int `json:"missing_fields"`
	Inconsistencies     int `json:"inconsistencies"`
	Warnings            int `json:"warnings"`
}

// TrustScore is the aggregate verdict on one extraction. Derived, not a
// source of truth; callers may persist a copy for audit.
type TrustScore struct {
	Overall           int     `json:"overall"`
	ExtractionQuality int     `json:"extraction_quality"`
	ConnectionQuality int     `json:"connection_quality"`
	DataCompleteness  int     `json:"data_completeness"`
	ConsistencyScore  int     `json:"consistency_score"`
	Factors           Factors `json:"factors"`
}

// CalculateTrustScore rolls a preview into the weighted trust score.
//
// Connection quality defaults to 100 when no connections were proposed;
// the absence of links is not a defect. Completeness loses 10 points per
// per-item warning, consistency loses 15 per cross-entry inconsistency and
// 5 per per-item warning, both floored at zero.
func CalculateTrustScore(p Preview) TrustScore {
	all := p.All()

	var factors Factors
	warningCount := 0
	for _, ep := range all {
		warningCount += len(ep.Warnings)
		if ep.Confidence >= highConfidenceFloor {
			factors.HighConfidenceItems++
		}
		if ep.Confidence < lowConfidenceCeil {
			factors.LowConfidenceItems++
		}
	}
	factors.MissingFields = warningCount
	factors.Warnings = warningCount
	factors.Inconsistencies = len(p.Warnings)

	extraction := meanConfidence(all) * 100

	connection := 100.0
	if len(p.Connections) > 0 {
		sum := 0.0
		for _, c := range p.Connections {
			sum += c.Confidence
		}
		connection = sum / float64(len(p.Connections)) * 100
	}

	completeness := math.Max(0, 100-10*float64(warningCount))
	consistency := math.Max(0, 100-15*float64(factors.Inconsistencies)-5*float64(warningCount))

	overall := weightExtraction*extraction +
		weightConnection*connection +
		weightCompleteness*completeness +
		weightConsistency*consistency

	return TrustScore{
		Overall:           int(math.Round(overall)),
		ExtractionQuality: int(math.Round(extraction)),
		ConnectionQuality: int(math.Round(connection)),
		DataCompleteness:  int(math.Round(completeness)),
		ConsistencyScore:  int(math.Round(consistency)),
		Factors:           factors,
	}
}

// ExplainTrustScore renders a qualitative band plus factor call-outs.
func ExplainTrustScore(score TrustScore) []string {
	var out []string
	switch {
	case score.Overall >= 90:
		out = append(out, fmt.Sprintf("Excellent extraction (%d/100). Safe to auto-apply eligible items.", score.Overall))
	case score.Overall >= 75:
		out = append(out, fmt.Sprintf("Good extraction (%d/100). A quick review is enough.", score.Overall))
	case score.Overall >= 60:
		out = append(out, fmt.Sprintf("Moderate extraction (%d/100). Review before applying.", score.Overall))
	default:
		out = append(out, fmt.Sprintf("Low-trust extraction (%d/100). Apply items manually.", score.Overall))
	}

	f := score.Factors
	if f.HighConfidenceItems > 0 {
		out = append(out, fmt.Sprintf("%d item(s) extracted with high confidence.", f.HighConfidenceItems))
	}
	if f.LowConfidenceItems > 0 {
		out = append(out, fmt.Sprintf("%d item(s) have low confidence and deserve a closer look.", f.LowConfidenceItems))
	}
	if f.MissingFields > 0 {
		out = append(out, fmt.Sprintf("%d missing field(s) detected across the extraction.", f.MissingFields))
	}
	if f.Inconsistencies > 0 {
		out = append(out, fmt.Sprintf("%d inconsistency(ies) between extraction entries.", f.Inconsistencies))
	}
	return out
}
