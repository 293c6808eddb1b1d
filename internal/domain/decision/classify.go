package decision

import "fmt"

// Policy holds the classification rule sets and confidence floors that drive
// review-level assignment, plus per-type auto-approval rules. Loaded from
// configuration; the zero value classifies everything to StaffReview.
type Policy struct {
	// CriticalTypes require director approval regardless of confidence.
	CriticalTypes []string `json:"critical_types" yaml:"critical_types"`
	// HighImpactTypes require supervisor review regardless of confidence.
	HighImpactTypes []string `json:"high_impact_types" yaml:"high_impact_types"`
	// RoutineTypes are eligible for the automatic level at high confidence.
	RoutineTypes []string `json:"routine_types" yaml:"routine_types"`

	// CriticalValueUSD marks any decision with a financial impact at or
	// above this amount as critical. Zero disables the check.
	CriticalValueUSD float64 `json:"critical_value_usd" yaml:"critical_value_usd"`

	// LowConfidenceFloor routes everything below it to staff review.
	LowConfidenceFloor float64 `json:"low_confidence_floor" yaml:"low_confidence_floor"`
	// AutomaticFloor is the minimum confidence for the automatic level.
	AutomaticFloor float64 `json:"automatic_floor" yaml:"automatic_floor"`

	// AutoApproveRules holds per-decision-type auto-approval rules.
	AutoApproveRules map[string]AutoApproveRule `json:"auto_approve_rules" yaml:"auto_approve_rules"`
	// AutoApproveThreshold is the default confidence threshold applied when
	// a decision type has no specific rule.
	AutoApproveThreshold float64 `json:"auto_approve_threshold" yaml:"auto_approve_threshold"`
}

// AutoApproveRule tunes auto-approval for one decision type.
type AutoApproveRule struct {
	// Threshold overrides the default auto-approve confidence threshold.
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// MaxFinancialImpact caps the financial impact eligible for
	// auto-approval. Zero means no cap.
	MaxFinancialImpact float64 `json:"max_financial_impact" yaml:"max_financial_impact"`
}

// DefaultPolicy returns the assessment-office rule sets used when no
// configuration overrides them.
func DefaultPolicy() Policy {
	return Policy{
		CriticalTypes:        []string{"fraud_detection", "large_exemption_change", "value_adjustment"},
		HighImpactTypes:      []string{"exemption_qualification", "reclassification"},
		RoutineTypes:         []string{"routine_exemption", "routine_renewal", "data_correction"},
		CriticalValueUSD:     50000,
		LowConfidenceFloor:   0.70,
		AutomaticFloor:       0.95,
		AutoApproveThreshold: 0.95,
	}
}

// Classification explains a review-level assignment: which rule matched and
// why. The reason feeds the queued_for_review audit entry.
type Classification struct {
	Level  ReviewLevel `json:"level"`
	Rule   string      `json:"rule"`
	Reason string      `json:"reason"`
}

// Classify assigns the required review level for a decision. Rules are
// evaluated in fixed priority order, first match wins: categorical rules
// dominate confidence rules so a high-confidence fraud flag can never bypass
// director review. The function is total: every input yields exactly one
// level.
func (p *Policy) Classify(decisionType string, confidence, financialImpact float64) Classification {
	if containsType(p.CriticalTypes, decisionType) {
		return Classification{
			Level:  LevelDirectorApproval,
			Rule:   "critical_type",
			Reason: fmt.Sprintf("decision type %q is in the critical set", decisionType),
		}
	}
	if p.CriticalValueUSD > 0 && financialImpact >= p.CriticalValueUSD {
		return Classification{
			Level:  LevelDirectorApproval,
			Rule:   "critical_value",
			Reason: fmt.Sprintf("financial impact %.2f meets the critical value threshold %.2f", financialImpact, p.CriticalValueUSD),
		}
	}
	if containsType(p.HighImpactTypes, decisionType) {
		return Classification{
			Level:  LevelSupervisorReview,
			Rule:   "high_impact_type",
			Reason: fmt.Sprintf("decision type %q is in the high-impact set", decisionType),
		}
	}
	if confidence < p.LowConfidenceFloor {
		return Classification{
			Level:  LevelStaffReview,
			Rule:   "low_confidence",
			Reason: fmt.Sprintf("confidence %.2f is below the floor %.2f", confidence, p.LowConfidenceFloor),
		}
	}
	if confidence >= p.AutomaticFloor && containsType(p.RoutineTypes, decisionType) {
		return Classification{
			Level:  LevelAutomatic,
			Rule:   "routine_high_confidence",
			Reason: fmt.Sprintf("routine type %q at confidence %.2f", decisionType, confidence),
		}
	}
	return Classification{
		Level:  LevelStaffReview,
		Rule:   "default",
		Reason: "no categorical or automatic rule matched",
	}
}

func containsType(set []string, decisionType string) bool {
	for _, t := range set {
		if t == decisionType {
			return true
		}
	}
	return false
}
