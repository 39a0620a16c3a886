package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// perPageLimit is GitLab's per_page maximum.
const perPageLimit = 100

// maxPages bounds pagination so a misbehaving X-Next-Page header cannot loop forever.
const maxPages = 50

type apiUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	ID       int    `json:"id"`
}

type apiMergeRequest struct {
	Title     string    `json:"title"`
	WebURL    string    `json:"web_url"`
	Author    apiUser   `json:"author"`
	Reviewers []apiUser `json:"reviewers"`
	IID       int       `json:"iid"`
	ProjectID int       `json:"project_id"`
	Draft     bool      `json:"draft"`
	WIP       bool      `json:"work_in_progress"`
}

// OpenMergeRequests fetches all opened merge requests for a project, following pagination.
// Reviewers are every assigned reviewer; approval filtering is left to the caller.
func (c *Client) OpenMergeRequests(ctx context.Context, projectID int) ([]types.MergeRequest, error) {
	slog.Debug("Fetching open merge requests", "component", "gitlab", "project_id", projectID)

	var all []types.MergeRequest
	page := 1
	for range maxPages {
		q := url.Values{}
		q.Set("state", "opened")
		q.Set("per_page", strconv.Itoa(perPageLimit))
		q.Set("page", strconv.Itoa(page))

		var mrs []apiMergeRequest
		header, err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/projects/%d/merge_requests", projectID), q), &mrs)
		if err != nil {
			return nil, fmt.Errorf("list merge requests for project %d: %w", projectID, err)
		}

		for _, mr := range mrs {
			all = append(all, convertMergeRequest(mr, projectID))
		}

		next, err := strconv.Atoi(header.Get("X-Next-Page"))
		if err != nil || next <= page || len(mrs) == 0 {
			return all, nil
		}
		page = next
	}

	slog.Warn("Stopped paginating merge requests at page limit", "component", "gitlab", "project_id", projectID, "pages", maxPages)
	return all, nil
}

func convertMergeRequest(mr apiMergeRequest, projectID int) types.MergeRequest {
	pid := mr.ProjectID
	if pid == 0 {
		pid = projectID
	}
	reviewers := make([]types.Reviewer, 0, len(mr.Reviewers))
	for _, r := range mr.Reviewers {
		reviewers = append(reviewers, types.Reviewer{ID: r.ID, Username: r.Username, Name: r.Name})
	}
	return types.MergeRequest{
		IID:       mr.IID,
		ProjectID: pid,
		Title:     mr.Title,
		WebURL:    mr.WebURL,
		Author:    mr.Author.Username,
		Draft:     mr.Draft || mr.WIP,
		Reviewers: reviewers,
	}
}

// ApprovedBy returns the user IDs that have approved a merge request.
func (c *Client) ApprovedBy(ctx context.Context, projectID, iid int) ([]int, error) {
	var approvals struct {
		ApprovedBy []struct {
			User apiUser `json:"user"`
		} `json:"approved_by"`
	}
	apiURL := c.endpoint(fmt.Sprintf("/projects/%d/merge_requests/%d/approvals", projectID, iid), nil)
	if _, err := c.getJSON(ctx, apiURL, &approvals); err != nil {
		return nil, fmt.Errorf("approvals for !%d in project %d: %w", iid, projectID, err)
	}

	ids := make([]int, 0, len(approvals.ApprovedBy))
	for _, a := range approvals.ApprovedBy {
		ids = append(ids, a.User.ID)
	}
	return ids, nil
}
