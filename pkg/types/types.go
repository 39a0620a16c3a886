// Package types contains shared data structures used across the reminder system.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

// MergeRequest represents an open GitLab merge request with its pending reviewers.
type MergeRequest struct {
	Title     string
	WebURL    string
	Project   string // Project identifier as configured (ID, path, or name)
	ProjectID int
	Author    string
	Reviewers []Reviewer // Pending reviewers only, in the order GitLab lists them
	IID       int        // Project-scoped merge request number
	Draft     bool
}

// Reviewer identifies a GitLab user assigned to review a merge request.
type Reviewer struct {
	Username string
	Name     string
	ID       int
}

// DisplayName returns the reviewer's name, falling back to the username.
func (r Reviewer) DisplayName() string {
	if r.Name == "" {
		return r.Username
	}
	return r.Name
}

// UserProfile holds the public profile fields of a GitLab user.
type UserProfile struct {
	Username    string
	Name        string
	PublicEmail string // Empty when the user has not set one
	ID          int
}

// Obligation pairs a reviewer with the merge requests they still owe a review on.
type Obligation struct {
	Reviewer      Reviewer
	MergeRequests []MergeRequest // Discovery order
}
