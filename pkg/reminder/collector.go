package reminder

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// MergeRequestSource is the slice of the GitLab API the collector reads from.
type MergeRequestSource interface {
	ProjectID(ctx context.Context, project string) (int, error)
	OpenMergeRequests(ctx context.Context, projectID int) ([]types.MergeRequest, error)
	ApprovedBy(ctx context.Context, projectID, iid int) ([]int, error)
}

// Collector gathers open merge requests that still wait on at least one reviewer.
type Collector struct {
	source      MergeRequestSource
	log         *slog.Logger
	concurrency int
}

// NewCollector creates a collector that scans up to concurrency projects at once.
func NewCollector(source MergeRequestSource, concurrency int, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		source:      source,
		log:         log,
		concurrency: max(concurrency, 1),
	}
}

type projectResult struct {
	err *ProjectFetchError
	mrs []types.MergeRequest
}

// Collect returns merge requests with pending reviewers across projects,
// in project order then GitLab's listing order. A project that cannot be read
// is reported in the returned failures and does not affect the others.
func (c *Collector) Collect(ctx context.Context, projects []string) ([]types.MergeRequest, []*ProjectFetchError) {
	results := make([]projectResult, len(projects))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, project := range projects {
		g.Go(func() error {
			mrs, err := c.collectProject(ctx, project)
			if err != nil {
				c.log.Warn("Skipping project", "project", project, "error", err)
				results[i].err = &ProjectFetchError{Project: project, Err: err}
				return nil
			}
			results[i].mrs = mrs
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // units record their own failures

	var all []types.MergeRequest
	var failures []*ProjectFetchError
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, r.err)
			continue
		}
		all = append(all, r.mrs...)
	}
	return all, failures
}

func (c *Collector) collectProject(ctx context.Context, project string) ([]types.MergeRequest, error) {
	projectID, err := c.source.ProjectID(ctx, project)
	if err != nil {
		return nil, err
	}

	open, err := c.source.OpenMergeRequests(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var pending []types.MergeRequest
	for _, mr := range open {
		if mr.Draft {
			c.log.Debug("Skipping draft merge request", "project", project, "iid", mr.IID)
			continue
		}
		if len(mr.Reviewers) == 0 {
			continue
		}

		approved, err := c.source.ApprovedBy(ctx, projectID, mr.IID)
		if err != nil {
			// Without approvals every assigned reviewer is treated as pending.
			c.log.Warn("Failed to fetch approvals; treating all reviewers as pending",
				"project", project, "iid", mr.IID, "error", err)
		}

		mr.Project = project
		mr.Reviewers = pendingReviewers(mr.Reviewers, approved)
		if len(mr.Reviewers) == 0 {
			continue
		}
		pending = append(pending, mr)
	}

	c.log.Info("Collected merge requests", "project", project, "open", len(open), "awaiting_review", len(pending))
	return pending, nil
}

// pendingReviewers returns reviewers who have not approved, deduplicated and in order.
func pendingReviewers(reviewers []types.Reviewer, approvedIDs []int) []types.Reviewer {
	approved := make(map[int]bool, len(approvedIDs))
	for _, id := range approvedIDs {
		approved[id] = true
	}

	seen := make(map[string]bool, len(reviewers))
	var pending []types.Reviewer
	for _, r := range reviewers {
		if approved[r.ID] || seen[r.Username] {
			continue
		}
		seen[r.Username] = true
		pending = append(pending, r)
	}
	return pending
}
