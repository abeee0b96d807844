package matches

// Shared confidence thresholds. The classifier and the bander must agree on
// these, with inclusive lower bounds, or matches drift between buckets at the
// boundaries.
const (
	ReviewableThreshold = 0.50
	StrongThreshold     = 0.70
	VeryStrongThreshold = 0.85
)

// Band is the discrete strength classification of a composite score.
type Band string

const (
	BandStrong  Band = "strong"
	BandPartial Band = "partial"
	BandWeak    Band = "weak"
	BandMinimal Band = "minimal"
)

// BandForScore maps a composite score to its band. The four bands partition
// [0,1] with no gap or overlap at 0.50, 0.70 and 0.85.
func BandForScore(score float64) Band {
	switch {
	case score >= VeryStrongThreshold:
		return BandStrong
	case score >= StrongThreshold:
		return BandPartial
	case score >= ReviewableThreshold:
		return BandWeak
	default:
		return BandMinimal
	}
}
