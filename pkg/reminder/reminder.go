// Package reminder finds merge requests waiting on review and reminds each
// pending reviewer once, listing everything they owe.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// Source is everything a run reads from the code-hosting platform.
type Source interface {
	MergeRequestSource
	ProfileLookup
}

// Config controls a reminder run.
type Config struct {
	Concurrency int // Maximum projects or reviewers processed at once
}

// Reminder runs the collect, aggregate, resolve and notify pipeline.
type Reminder struct {
	source   Source
	notifier Notifier
	now      func() time.Time
	cfg      Config
}

// New creates a Reminder.
func New(source Source, notifier Notifier, cfg Config) *Reminder {
	return &Reminder{
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Report summarizes what a run achieved and what it skipped.
type Report struct {
	StartedAt        time.Time                    `json:"started_at"`
	FinishedAt       time.Time                    `json:"finished_at"`
	RunID            string                       `json:"run_id"`
	Notified         []string                     `json:"notified"`
	Unresolvable     []*UnresolvableIdentityError `json:"unresolvable"`
	FetchFailures    []*ProjectFetchError         `json:"fetch_failures"`
	DeliveryFailures []*DeliveryError             `json:"delivery_failures"`
	Projects         int                          `json:"projects"`
	MergeRequests    int                          `json:"merge_requests"`
}

// Err joins every per-unit failure, or returns nil when the run was clean.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, e := range r.FetchFailures {
		result = multierror.Append(result, e)
	}
	for _, e := range r.Unresolvable {
		result = multierror.Append(result, e)
	}
	for _, e := range r.DeliveryFailures {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// HasFailures reports whether anything was skipped or failed.
func (r *Report) HasFailures() bool {
	return len(r.FetchFailures)+len(r.Unresolvable)+len(r.DeliveryFailures) > 0
}

type reviewerOutcome struct {
	unresolvable *UnresolvableIdentityError
	delivery     *DeliveryError
	notified     bool
}

// RunOnce scans projects and notifies every reviewer with outstanding merge requests.
// Per-project, per-reviewer and per-delivery failures are recorded in the report;
// the returned error is reserved for configuration problems.
func (r *Reminder) RunOnce(ctx context.Context, projects []string, overrides map[string]string) (*Report, error) {
	projects = cleanProjects(projects)
	if len(projects) == 0 {
		return nil, &ConfigurationError{Field: "projects", Reason: "at least one project is required"}
	}
	if r.source == nil {
		return nil, &ConfigurationError{Field: "source", Reason: "no code-hosting client configured"}
	}
	if r.notifier == nil {
		return nil, &ConfigurationError{Field: "notifier", Reason: "no chat notifier configured"}
	}

	report := &Report{
		RunID:            uuid.NewString(),
		StartedAt:        r.now(),
		Projects:         len(projects),
		Notified:         []string{},
		Unresolvable:     []*UnresolvableIdentityError{},
		FetchFailures:    []*ProjectFetchError{},
		DeliveryFailures: []*DeliveryError{},
	}
	log := slog.With("component", "reminder", "run_id", report.RunID)
	log.Info("Starting review reminder run", "projects", len(projects), "overrides", len(overrides))

	collector := NewCollector(r.source, r.cfg.Concurrency, log)
	mrs, failures := collector.Collect(ctx, projects)
	report.FetchFailures = append(report.FetchFailures, failures...)
	report.MergeRequests = len(mrs)

	obligations := Aggregate(mrs)
	resolver := NewResolver(r.source, overrides, log)

	outcomes := make([]reviewerOutcome, len(obligations))
	var g errgroup.Group
	g.SetLimit(max(r.cfg.Concurrency, 1))
	for i, ob := range obligations {
		g.Go(func() error {
			outcomes[i] = r.remind(ctx, log, resolver, ob)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // outcomes carry per-reviewer failures

	for i, o := range outcomes {
		switch {
		case o.notified:
			report.Notified = append(report.Notified, obligations[i].Reviewer.Username)
		case o.unresolvable != nil:
			report.Unresolvable = append(report.Unresolvable, o.unresolvable)
		case o.delivery != nil:
			report.DeliveryFailures = append(report.DeliveryFailures, o.delivery)
		}
	}
	report.FinishedAt = r.now()

	log.Info("Review reminder run finished",
		"notified", len(report.Notified),
		"merge_requests", report.MergeRequests,
		"unresolvable", len(report.Unresolvable),
		"fetch_failures", len(report.FetchFailures),
		"delivery_failures", len(report.DeliveryFailures),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// remind resolves one reviewer and delivers their consolidated message.
func (r *Reminder) remind(ctx context.Context, log *slog.Logger, resolver *Resolver, ob types.Obligation) reviewerOutcome {
	username := ob.Reviewer.Username
	address, err := resolver.Resolve(ctx, username)
	if err != nil {
		var unresolvable *UnresolvableIdentityError
		if !errors.As(err, &unresolvable) {
			unresolvable = &UnresolvableIdentityError{Username: username, Err: err}
		}
		log.Warn("Skipping reviewer without chat address", "username", username, "merge_requests", len(ob.MergeRequests), "error", err)
		return reviewerOutcome{unresolvable: unresolvable}
	}

	to := Recipient{Username: username, Name: ob.Reviewer.DisplayName(), Address: address}
	if err := r.notifier.Notify(ctx, to, ob.MergeRequests); err != nil {
		log.Error("Failed to deliver reminder", "username", username, "error", err)
		return reviewerOutcome{delivery: &DeliveryError{Username: username, Address: address, Err: err}}
	}

	log.Info("Reminded reviewer", "username", username, "merge_requests", len(ob.MergeRequests))
	return reviewerOutcome{notified: true}
}

// cleanProjects trims identifiers and drops blanks and duplicates, keeping order.
func cleanProjects(projects []string) []string {
	seen := make(map[string]bool, len(projects))
	var out []string
	for _, p := range projects {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
