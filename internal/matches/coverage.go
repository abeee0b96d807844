package matches

import "math"

// QuestionState is the per-question evidence status shown to reviewers.
// A queued suggestion beats a bare gap: someone who already has a suggestion
// to review should not also be nagged about missing evidence.
type QuestionState string

const (
	QuestionCovered           QuestionState = "covered"
	QuestionSuggestionPending QuestionState = "suggestion_pending"
	QuestionGap               QuestionState = "gap"
)

// Summary is the coverage roll-up for one control. CoveragePercent is nil for
// a control with zero questions, where no percentage is meaningful.
type Summary struct {
	TotalQuestions         int  `json:"totalQuestions"`
	CoveredCount           int  `json:"coveredCount"`
	CoveragePercent        *int `json:"coveragePercent"`
	GapCount               int  `json:"gapCount"`
	PendingSuggestionCount int  `json:"pendingSuggestionCount"`
}

// Summarize reduces a covered-question set and a strong-pending count into a
// Summary. covered entries not present in questionIDs are ignored so a stale
// snapshot cannot report more than 100%.
func Summarize(questionIDs []string, covered map[string]bool, pendingSuggestions int) Summary {
	total := len(questionIDs)
	coveredCount := 0
	for _, id := range questionIDs {
		if covered[id] {
			coveredCount++
		}
	}

	summary := Summary{
		TotalQuestions:         total,
		CoveredCount:           coveredCount,
		GapCount:               total - coveredCount,
		PendingSuggestionCount: pendingSuggestions,
	}
	if total > 0 {
		percent := int(math.Round(100 * float64(coveredCount) / float64(total)))
		summary.CoveragePercent = &percent
	}
	return summary
}

// ComputeSummary derives the coverage roll-up for a control directly from the
// latest match snapshot. It always recomputes from scratch: concurrent
// transitions on different matches make incremental patching of a stale
// summary unsound.
func ComputeSummary(questionIDs []string, all []Match) Summary {
	covered := make(map[string]bool)
	pendingSuggestions := 0
	for _, id := range questionIDs {
		buckets := ClassifyForQuestion(all, id)
		if len(buckets.Accepted) > 0 {
			covered[id] = true
		}
		pendingSuggestions += len(buckets.StrongPending)
	}
	return Summarize(questionIDs, covered, pendingSuggestions)
}

// StateForQuestion resolves the per-question display state from its buckets.
func StateForQuestion(buckets QuestionBuckets) QuestionState {
	switch {
	case len(buckets.Accepted) > 0:
		return QuestionCovered
	case len(buckets.StrongPending) > 0:
		return QuestionSuggestionPending
	default:
		return QuestionGap
	}
}
