// Package config loads review-reminder settings from the environment and an optional YAML file.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
)

// Overrides maps GitLab usernames to chat addresses.
// From the environment it is a JSON object, e.g. {"alice":"alice@chat.example"}.
type Overrides map[string]string

// SetValue implements cleanenv.Setter.
func (o *Overrides) SetValue(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*o = Overrides{}
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return fmt.Errorf("USER_EMAILS must be a JSON object of username to email: %w", err)
	}
	*o = m
	return nil
}

// Config holds every setting a run consumes.
type Config struct {
	Overrides         Overrides     `yaml:"user_emails" env:"USER_EMAILS" env-description:"JSON object mapping GitLab usernames to chat addresses"`
	GitLabURL         string        `yaml:"gitlab_api_url" env:"GITLAB_API_URL" env-description:"GitLab API root, e.g. https://gitlab.example.com/api/v4"`
	GitLabToken       string        `yaml:"gitlab_private_token" env:"GITLAB_PRIVATE_TOKEN" env-description:"GitLab private token with read_api scope"`
	WebhookURL        string        `yaml:"teams_webhook_url" env:"TEAMS_WEBHOOK_URL" env-description:"Microsoft Teams incoming webhook URL"`
	Port              string        `yaml:"port" env:"PORT" env-default:"8080" env-description:"HTTP port for -serve mode"`
	Projects          []string      `yaml:"projects" env:"GITLAB_PROJECT" env-separator:"," env-description:"Comma-separated project IDs, paths, or names"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT" env-default:"30s" env-description:"Timeout for each GitLab or Teams request"`
	Concurrency       int           `yaml:"concurrency" env:"CONCURRENCY" env-default:"4" env-description:"Projects or reviewers processed at once"`
	MaxAttempts       int           `yaml:"max_attempts" env:"MAX_ATTEMPTS" env-default:"1" env-description:"Attempts per HTTP request; 1 disables retries"`
	RequestsPerSecond int           `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND" env-default:"10" env-description:"GitLab request rate limit; 0 disables pacing"`
}

// Load reads configuration from path (if non-empty) and then the environment,
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, &reminder.ConfigurationError{Field: "config", Reason: "cannot read settings", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings. It returns a *reminder.ConfigurationError.
func (c *Config) Validate() error {
	if err := requireURL("GITLAB_API_URL", c.GitLabURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.GitLabToken) == "" {
		return &reminder.ConfigurationError{Field: "GITLAB_PRIVATE_TOKEN", Reason: "required"}
	}
	if err := requireURL("TEAMS_WEBHOOK_URL", c.WebhookURL); err != nil {
		return err
	}

	var projects []string
	for _, p := range c.Projects {
		if p = strings.TrimSpace(p); p != "" {
			projects = append(projects, p)
		}
	}
	if len(projects) == 0 {
		return &reminder.ConfigurationError{Field: "GITLAB_PROJECT", Reason: "at least one project is required"}
	}
	c.Projects = projects

	if c.Concurrency < 1 {
		return &reminder.ConfigurationError{Field: "CONCURRENCY", Reason: "must be at least 1"}
	}
	if c.MaxAttempts < 1 {
		return &reminder.ConfigurationError{Field: "MAX_ATTEMPTS", Reason: "must be at least 1"}
	}
	if c.RequestsPerSecond < 0 {
		return &reminder.ConfigurationError{Field: "REQUESTS_PER_SECOND", Reason: "must not be negative"}
	}
	if c.HTTPTimeout <= 0 {
		return &reminder.ConfigurationError{Field: "HTTP_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}

func requireURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &reminder.ConfigurationError{Field: field, Reason: "required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &reminder.ConfigurationError{Field: field, Reason: "must be an absolute http(s) URL"}
	}
	return nil
}

// Usage returns a function that prints the environment variable table.
func Usage(header string) func() {
	var cfg Config
	return cleanenv.Usage(&cfg, &header)
}
