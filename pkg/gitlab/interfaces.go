package gitlab

import (
	"context"
	"net/http"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// HTTPDoer provides an interface for making HTTP requests.
// This allows us to mock HTTP calls in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// API defines the read-only GitLab operations the reminder needs.
type API interface {
	// ProjectID resolves a numeric ID, a "group/project" path, or a bare project name.
	ProjectID(ctx context.Context, project string) (int, error)
	// OpenMergeRequests lists opened merge requests with every assigned reviewer.
	OpenMergeRequests(ctx context.Context, projectID int) ([]types.MergeRequest, error)
	// ApprovedBy returns the IDs of users who approved the merge request.
	ApprovedBy(ctx context.Context, projectID, iid int) ([]int, error)
	// UserProfile fetches a user's public profile by username.
	UserProfile(ctx context.Context, username string) (*types.UserProfile, error)
}

var _ API = (*Client)(nil)
