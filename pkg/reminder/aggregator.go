package reminder

import "github.com/codeGROOVE-dev/review-reminder/pkg/types"

// Aggregate groups merge requests by pending reviewer.
//
// Reviewers appear in the order they are first seen and each reviewer's merge
// requests keep discovery order. A merge request with several pending reviewers
// is listed under every one of them.
func Aggregate(mrs []types.MergeRequest) []types.Obligation {
	var obligations []types.Obligation
	index := make(map[string]int)

	for _, mr := range mrs {
		seen := make(map[string]bool, len(mr.Reviewers))
		for _, r := range mr.Reviewers {
			if r.Username == "" || seen[r.Username] {
				continue
			}
			seen[r.Username] = true

			i, ok := index[r.Username]
			if !ok {
				i = len(obligations)
				index[r.Username] = i
				obligations = append(obligations, types.Obligation{Reviewer: r})
			}
			obligations[i].MergeRequests = append(obligations[i].MergeRequests, mr)
		}
	}

	return obligations
}
