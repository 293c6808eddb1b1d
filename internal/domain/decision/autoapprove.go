package decision

import "fmt"

// AutoApprove reports whether a freshly classified record may be approved
// without human review, and the reason recorded in the audit trail.
//
// Elevated review levels are an absolute gate: a record classified to
// supervisor review or director approval is never auto-approved, whatever
// the per-type rule says. Otherwise approval requires the automatic level,
// confidence at or above the type's threshold (default
// Policy.AutoApproveThreshold), and a financial impact within the type's
// cap when one is set.
func (p *Policy) AutoApprove(rec *Record) (bool, string) {
	switch rec.RequiredReviewLevel {
	case LevelSupervisorReview, LevelDirectorApproval:
		return false, fmt.Sprintf("review level %s requires human review", rec.RequiredReviewLevel)
	}
	if rec.RequiredReviewLevel != LevelAutomatic {
		return false, fmt.Sprintf("review level %s is not eligible for auto-approval", rec.RequiredReviewLevel)
	}

	rule, hasRule := p.AutoApproveRules[rec.DecisionType]
	threshold := p.AutoApproveThreshold
	if hasRule && rule.Threshold > 0 {
		threshold = rule.Threshold
	}
	if rec.ConfidenceScore < threshold {
		return false, fmt.Sprintf("confidence %.2f below auto-approve threshold %.2f for %s", rec.ConfidenceScore, threshold, rec.DecisionType)
	}
	if hasRule && rule.MaxFinancialImpact > 0 && rec.FinancialImpact > rule.MaxFinancialImpact {
		return false, fmt.Sprintf("financial impact %.2f exceeds auto-approve cap %.2f for %s", rec.FinancialImpact, rule.MaxFinancialImpact, rec.DecisionType)
	}
	return true, fmt.Sprintf("confidence %.2f meets auto-approve threshold %.2f for %s", rec.ConfidenceScore, threshold, rec.DecisionType)
}
