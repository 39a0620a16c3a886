package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// ProjectID resolves a configured project identifier to GitLab's numeric ID.
// Numeric identifiers are returned as is. "group/project" paths are looked up
// directly; bare names go through project search and the first hit wins.
func (c *Client) ProjectID(ctx context.Context, project string) (int, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return 0, fmt.Errorf("empty project identifier")
	}
	if id, err := strconv.Atoi(project); err == nil && id > 0 {
		return id, nil
	}
	if id, found := c.projects.Get(project); found {
		return id, nil
	}

	var id int
	var err error
	if strings.Contains(project, "/") {
		id, err = c.projectByPath(ctx, project)
	} else {
		id, err = c.projectBySearch(ctx, project)
	}
	if err != nil {
		return 0, err
	}

	c.projects.Set(project, id)
	return id, nil
}

func (c *Client) projectByPath(ctx context.Context, path string) (int, error) {
	slog.Debug("Looking up project by path", "component", "gitlab", "project", path)
	var p struct {
		ID int `json:"id"`
	}
	if _, err := c.getJSON(ctx, c.endpoint("/projects/"+url.PathEscape(path), nil), &p); err != nil {
		return 0, fmt.Errorf("project %q: %w", path, err)
	}
	if p.ID == 0 {
		return 0, fmt.Errorf("project %q: response carried no id", path)
	}
	return p.ID, nil
}

func (c *Client) projectBySearch(ctx context.Context, name string) (int, error) {
	slog.Debug("Searching for project by name", "component", "gitlab", "project", name)
	q := url.Values{}
	q.Set("scope", "projects")
	q.Set("search", name)

	var hits []struct {
		PathWithNamespace string `json:"path_with_namespace"`
		ID                int    `json:"id"`
	}
	if _, err := c.getJSON(ctx, c.endpoint("/search", q), &hits); err != nil {
		return 0, fmt.Errorf("search for project %q: %w", name, err)
	}
	if len(hits) == 0 {
		return 0, fmt.Errorf("project %q not found", name)
	}
	if len(hits) > 1 {
		slog.Warn("Project search returned several matches; using the first",
			"component", "gitlab", "project", name, "matches", len(hits), "chosen", hits[0].PathWithNamespace)
	}
	return hits[0].ID, nil
}
