package matches

// QuestionBuckets is the partition of a control's matches for one question.
// Dismissed matches appear in no bucket; neither do inactive ones.
type QuestionBuckets struct {
	Pending       []Match
	StrongPending []Match
	WeakPending   []Match
	Accepted      []Match
}

// ClassifyForQuestion partitions the full match collection of a control for a
// single target question. Scope is active matches of that question; pending
// matches below the reviewable threshold are never surfaced as actionable.
func ClassifyForQuestion(all []Match, questionID string) QuestionBuckets {
	var buckets QuestionBuckets
	for _, m := range all {
		if m.QuestionID != questionID || !m.Active {
			continue
		}
		switch m.Acceptance {
		case AcceptanceAccepted:
			buckets.Accepted = append(buckets.Accepted, m)
		case AcceptancePending:
			if m.CompositeScore < ReviewableThreshold {
				continue
			}
			buckets.Pending = append(buckets.Pending, m)
			if m.CompositeScore >= StrongThreshold {
				buckets.StrongPending = append(buckets.StrongPending, m)
			} else {
				buckets.WeakPending = append(buckets.WeakPending, m)
			}
		}
	}
	return buckets
}

// QuestionIDs collects the distinct question ids present in a match set,
// preserving first-seen order.
func QuestionIDs(all []Match) []string {
	seen := make(map[string]bool, len(all))
	var ids []string
	for _, m := range all {
		if !seen[m.QuestionID] {
			seen[m.QuestionID] = true
			ids = append(ids, m.QuestionID)
		}
	}
	return ids
}
