package gitlab

import (
	"errors"
	"net/http"
	"strings"
)

// Token length bounds for personal, project and group access tokens.
const (
	minTokenLength = 20
	maxTokenLength = 128
)

// validateToken validates a GitLab private token.
func validateToken(token string) error {
	if token == "" {
		return errors.New("no GitLab private token found")
	}
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return errors.New("invalid token length")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return errors.New("token contains whitespace")
	}
	return nil
}

// authorize attaches the private token to a request.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("PRIVATE-TOKEN", c.token)
}
