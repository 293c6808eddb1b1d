package decision

// ReviewLevel is the minimum reviewer authority required before a decision's
// outcome can be finalized. Levels are ordered; escalation may raise a
// record's level but nothing lowers it.
type ReviewLevel string

const (
	LevelAutomatic        ReviewLevel = "automatic"
	LevelStaffReview      ReviewLevel = "staff_review"
	LevelSupervisorReview ReviewLevel = "supervisor_review"
	LevelDirectorApproval ReviewLevel = "director_approval"
)

// levelRank orders review levels from lowest to highest.
var levelRank = map[ReviewLevel]int{
	LevelAutomatic:        0,
	LevelStaffReview:      1,
	LevelSupervisorReview: 2,
	LevelDirectorApproval: 3,
}

// Valid reports whether the level is a known value.
func (l ReviewLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l is the same as or higher than other.
func (l ReviewLevel) AtLeast(other ReviewLevel) bool {
	return levelRank[l] >= levelRank[other]
}

// AuthorityTier is a reviewer's rank, determining which review levels the
// reviewer may act on.
type AuthorityTier string

const (
	TierStaff      AuthorityTier = "staff"
	TierSupervisor AuthorityTier = "supervisor"
	TierDirector   AuthorityTier = "director"
)

// tierCeiling maps each tier to the highest review level it covers.
// Unknown tiers are absent and therefore cover nothing.
var tierCeiling = map[AuthorityTier]ReviewLevel{
	TierStaff:      LevelStaffReview,
	TierSupervisor: LevelSupervisorReview,
	TierDirector:   LevelDirectorApproval,
}

// Valid reports whether the tier is a known value.
func (t AuthorityTier) Valid() bool {
	_, ok := tierCeiling[t]
	return ok
}

// Covers reports whether the tier may act on the given review level.
// Unknown tiers cover no level at all.
func (t AuthorityTier) Covers(level ReviewLevel) bool {
	ceiling, ok := tierCeiling[t]
	if !ok {
		return false
	}
	return levelRank[ceiling] >= levelRank[level]
}

// CoveredLevels returns every review level the tier may act on, lowest
// first. Used to filter the pending-review queue for a reviewer.
func (t AuthorityTier) CoveredLevels() []ReviewLevel {
	ceiling, ok := tierCeiling[t]
	if !ok {
		return nil
	}
	all := []ReviewLevel{LevelAutomatic, LevelStaffReview, LevelSupervisorReview, LevelDirectorApproval}
	out := make([]ReviewLevel, 0, len(all))
	for _, l := range all {
		if levelRank[l] <= levelRank[ceiling] {
			out = append(out, l)
		}
	}
	return out
}

// ValidateAuthority reports whether a reviewer of the given tier may act on
// a decision at the given required review level.
func ValidateAuthority(required ReviewLevel, tier AuthorityTier) bool {
	return tier.Covers(required)
}
