package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// ErrUserNotFound is returned when no GitLab user has the requested username.
var ErrUserNotFound = errors.New("user not found")

// UserProfile fetches a user's public profile by username.
// The user list endpoint omits public_email, so a second call fetches the full record.
// Profiles are memoized for the lifetime of the client.
func (c *Client) UserProfile(ctx context.Context, username string) (*types.UserProfile, error) {
	if username == "" {
		return nil, errors.New("empty username")
	}
	if p, found := c.users.Get(username); found {
		return p, nil
	}

	slog.Debug("Fetching user profile", "component", "gitlab", "username", username)
	q := url.Values{}
	q.Set("username", username)

	var matches []apiUser
	if _, err := c.getJSON(ctx, c.endpoint("/users", q), &matches); err != nil {
		return nil, fmt.Errorf("look up user %q: %w", username, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("look up user %q: %w", username, ErrUserNotFound)
	}

	var user struct {
		Username    string `json:"username"`
		Name        string `json:"name"`
		PublicEmail string `json:"public_email"`
		ID          int    `json:"id"`
	}
	if _, err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/users/%d", matches[0].ID), nil), &user); err != nil {
		return nil, fmt.Errorf("fetch user %q: %w", username, err)
	}

	p := &types.UserProfile{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.Name,
		PublicEmail: strings.TrimSpace(user.PublicEmail),
	}
	if p.Name == "" {
		p.Name = p.Username
	}
	c.users.Set(username, p)
	return p, nil
}
