// Package testutil provides mock implementations and testing utilities for the review-reminder project.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeGROOVE-dev/review-reminder/pkg/gitlab"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// MockGitLabClient implements gitlab.API for testing.
// Projects, merge requests, approvals and profiles are configured up front;
// errors can be injected per operation and key.
type MockGitLabClient struct {
	projectIDs    map[string]int
	mergeRequests map[int][]types.MergeRequest
	approvals     map[string][]int
	profiles      map[string]*types.UserProfile
	errors        map[string]error
	profileCalls  map[string]int
	mu            sync.RWMutex
}

var _ gitlab.API = (*MockGitLabClient)(nil)

// NewMockGitLabClient creates a new MockGitLabClient.
func NewMockGitLabClient() *MockGitLabClient {
	return &MockGitLabClient{
		projectIDs:    make(map[string]int),
		mergeRequests: make(map[int][]types.MergeRequest),
		approvals:     make(map[string][]int),
		profiles:      make(map[string]*types.UserProfile),
		errors:        make(map[string]error),
		profileCalls:  make(map[string]int),
	}
}

// AddProject registers a project identifier and its open merge requests.
func (m *MockGitLabClient) AddProject(project string, id int, mrs ...types.MergeRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectIDs[project] = id
	for i := range mrs {
		if mrs[i].ProjectID == 0 {
			mrs[i].ProjectID = id
		}
	}
	m.mergeRequests[id] = append(m.mergeRequests[id], mrs...)
}

// SetApprovals configures the user IDs that approved a merge request.
func (m *MockGitLabClient) SetApprovals(projectID, iid int, userIDs ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals[fmt.Sprintf("%d!%d", projectID, iid)] = userIDs
}

// SetProfile configures a user profile.
func (m *MockGitLabClient) SetProfile(username, publicEmail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[username] = &types.UserProfile{Username: username, Name: username, PublicEmail: publicEmail}
}

// SetError injects an error, keyed like "ProjectID:infra", "OpenMergeRequests:7",
// "ApprovedBy:7!1" or "UserProfile:alice".
func (m *MockGitLabClient) SetError(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key] = err
}

// ProfileCalls returns how many times UserProfile was called for username.
func (m *MockGitLabClient) ProfileCalls(username string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profileCalls[username]
}

// ProjectID returns the configured project ID.
func (m *MockGitLabClient) ProjectID(_ context.Context, project string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["ProjectID:"+project]; err != nil {
		return 0, err
	}
	id, ok := m.projectIDs[project]
	if !ok {
		return 0, fmt.Errorf("project %q not found", project)
	}
	return id, nil
}

// OpenMergeRequests returns copies of the configured merge requests.
func (m *MockGitLabClient) OpenMergeRequests(_ context.Context, projectID int) ([]types.MergeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors[fmt.Sprintf("OpenMergeRequests:%d", projectID)]; err != nil {
		return nil, err
	}
	mrs := make([]types.MergeRequest, len(m.mergeRequests[projectID]))
	copy(mrs, m.mergeRequests[projectID])
	return mrs, nil
}

// ApprovedBy returns configured approvals.
func (m *MockGitLabClient) ApprovedBy(_ context.Context, projectID, iid int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := fmt.Sprintf("%d!%d", projectID, iid)
	if err := m.errors["ApprovedBy:"+key]; err != nil {
		return nil, err
	}
	return m.approvals[key], nil
}

// UserProfile returns a configured profile.
func (m *MockGitLabClient) UserProfile(_ context.Context, username string) (*types.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profileCalls[username]++
	if err := m.errors["UserProfile:"+username]; err != nil {
		return nil, err
	}
	p, ok := m.profiles[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, gitlab.ErrUserNotFound)
	}
	return p, nil
}
