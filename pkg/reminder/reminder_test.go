package reminder_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/review-reminder/internal/testutil"
	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

func fixLogging() types.MergeRequest {
	return types.MergeRequest{
		IID:    1,
		Title:  "Fix logging",
		WebURL: "https://gitlab.example.com/infra/-/merge_requests/1",
		Reviewers: []types.Reviewer{
			{ID: 1, Username: "alice", Name: "Alice"},
			{ID: 2, Username: "bob", Name: "Bob"},
		},
	}
}

func TestRunOnce_EndToEnd(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("infra", 10, fixLogging())
	client.SetProfile("alice", "alice@platform.example")
	client.SetProfile("bob", "bob@chat.example")
	notifier := testutil.NewRecordingNotifier()

	r := reminder.New(client, notifier, reminder.Config{Concurrency: 4})
	report, err := r.RunOnce(context.Background(), []string{"infra"}, map[string]string{"alice": "alice@chat.example"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deliveries := notifier.Deliveries()
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	for _, addr := range []string{"alice@chat.example", "bob@chat.example"} {
		d, ok := deliveries[addr]
		if !ok {
			t.Errorf("no delivery to %s", addr)
			continue
		}
		if len(d.MergeRequests) != 1 || d.MergeRequests[0].Title != "Fix logging" {
			t.Errorf("delivery to %s = %+v, want Fix logging", addr, d.MergeRequests)
		}
		if d.MergeRequests[0].Project != "infra" {
			t.Errorf("expected project to be recorded, got %q", d.MergeRequests[0].Project)
		}
	}
	if client.ProfileCalls("alice") != 0 {
		t.Error("override should prevent a profile lookup for alice")
	}

	if len(report.Notified) != 2 || len(report.Unresolvable) != 0 || len(report.FetchFailures) != 0 {
		t.Errorf("unexpected report: notified=%v unresolvable=%v failures=%v",
			report.Notified, report.Unresolvable, report.FetchFailures)
	}
	if report.Notified[0] != "alice" || report.Notified[1] != "bob" {
		t.Errorf("expected notified in discovery order, got %v", report.Notified)
	}
	if report.MergeRequests != 1 || report.Projects != 1 {
		t.Errorf("MergeRequests = %d, Projects = %d; want 1, 1", report.MergeRequests, report.Projects)
	}
	if report.RunID == "" {
		t.Error("expected a run ID")
	}
	if report.HasFailures() || report.Err() != nil {
		t.Errorf("expected clean run, got %v", report.Err())
	}
}

func TestRunOnce_UnresolvableReviewerSkipped(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	m := fixLogging()
	m.Reviewers = append(m.Reviewers, types.Reviewer{ID: 3, Username: "carol"})
	client.AddProject("infra", 10, m)
	client.SetProfile("alice", "alice@chat.example")
	client.SetProfile("bob", "bob@chat.example")
	client.SetProfile("carol", "")
	notifier := testutil.NewRecordingNotifier()

	report, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notifier.Count() != 2 {
		t.Errorf("expected 2 deliveries, got %d", notifier.Count())
	}
	if len(report.Unresolvable) != 1 || report.Unresolvable[0].Username != "carol" {
		t.Fatalf("expected carol to be unresolvable, got %v", report.Unresolvable)
	}
	if len(report.Notified) != 2 {
		t.Errorf("expected 2 notified, got %v", report.Notified)
	}
	if !strings.Contains(report.Err().Error(), "carol") {
		t.Errorf("expected joined error to mention carol, got %v", report.Err())
	}
}

func TestRunOnce_PartialProjectFailure(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("p1", 1, types.MergeRequest{IID: 1, Title: "one", Reviewers: []types.Reviewer{{ID: 1, Username: "alice"}}})
	client.AddProject("p2", 2)
	client.AddProject("p3", 3, types.MergeRequest{IID: 1, Title: "three", Reviewers: []types.Reviewer{{ID: 1, Username: "alice"}}})
	client.SetError("OpenMergeRequests:2", errors.New("403 Forbidden"))
	client.SetProfile("alice", "alice@chat.example")
	notifier := testutil.NewRecordingNotifier()

	report, err := reminder.New(client, notifier, reminder.Config{Concurrency: 3}).
		RunOnce(context.Background(), []string{"p1", "p2", "p3"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.FetchFailures) != 1 || report.FetchFailures[0].Project != "p2" {
		t.Fatalf("expected p2 fetch failure, got %v", report.FetchFailures)
	}
	d, ok := notifier.Deliveries()["alice@chat.example"]
	if !ok {
		t.Fatal("expected alice to be notified")
	}
	if len(d.MergeRequests) != 2 || d.MergeRequests[0].Title != "one" || d.MergeRequests[1].Title != "three" {
		t.Errorf("expected one consolidated message with both MRs in project order, got %+v", d.MergeRequests)
	}
}

func TestRunOnce_OneMessagePerReviewer(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	var mrs []types.MergeRequest
	for i := 1; i <= 5; i++ {
		mrs = append(mrs, types.MergeRequest{IID: i, Title: "change", Reviewers: []types.Reviewer{{ID: 1, Username: "alice"}}})
	}
	client.AddProject("infra", 10, mrs...)
	client.SetProfile("alice", "alice@chat.example")
	notifier := testutil.NewRecordingNotifier()

	if _, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier.Count() != 1 {
		t.Errorf("expected a single consolidated delivery, got %d", notifier.Count())
	}
	if got := len(notifier.Deliveries()["alice@chat.example"].MergeRequests); got != 5 {
		t.Errorf("expected 5 merge requests in the message, got %d", got)
	}
}

func TestRunOnce_FiltersApprovedAndDrafts(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("infra", 10,
		fixLogging(),
		types.MergeRequest{IID: 2, Title: "Draft work", Draft: true, Reviewers: []types.Reviewer{{ID: 2, Username: "bob"}}},
		types.MergeRequest{IID: 3, Title: "Unassigned"},
	)
	client.SetApprovals(10, 1, 1) // alice approved
	client.SetProfile("bob", "bob@chat.example")
	notifier := testutil.NewRecordingNotifier()

	report, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Notified) != 1 || report.Notified[0] != "bob" {
		t.Fatalf("expected only bob to be notified, got %v", report.Notified)
	}
	d := notifier.Deliveries()["bob@chat.example"]
	if len(d.MergeRequests) != 1 || d.MergeRequests[0].IID != 1 {
		t.Errorf("draft merge request should be skipped, got %+v", d.MergeRequests)
	}
	if report.MergeRequests != 1 {
		t.Errorf("MergeRequests = %d, want 1", report.MergeRequests)
	}
}

func TestRunOnce_ApprovalsFailureKeepsReviewersPending(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("infra", 10, fixLogging())
	client.SetError("ApprovedBy:10!1", errors.New("timeout"))
	client.SetProfile("alice", "alice@chat.example")
	client.SetProfile("bob", "bob@chat.example")
	notifier := testutil.NewRecordingNotifier()

	report, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Notified) != 2 {
		t.Errorf("expected both reviewers notified, got %v", report.Notified)
	}
	if len(report.FetchFailures) != 0 {
		t.Errorf("approvals failure should not fail the project, got %v", report.FetchFailures)
	}
}

func TestRunOnce_DeliveryFailureDoesNotBlockOthers(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("infra", 10, fixLogging())
	client.SetProfile("alice", "alice@chat.example")
	client.SetProfile("bob", "bob@chat.example")
	notifier := testutil.NewRecordingNotifier()
	notifier.FailFor("alice@chat.example", errors.New("webhook returned status 400"))

	report, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.DeliveryFailures) != 1 || report.DeliveryFailures[0].Username != "alice" {
		t.Fatalf("expected alice delivery failure, got %v", report.DeliveryFailures)
	}
	if len(report.Notified) != 1 || report.Notified[0] != "bob" {
		t.Errorf("expected bob to be notified, got %v", report.Notified)
	}
	var deliveryErr *reminder.DeliveryError
	if !errors.As(report.Err(), &deliveryErr) {
		t.Errorf("expected joined error to contain a DeliveryError, got %v", report.Err())
	}
}

func TestRunOnce_ConfigurationErrors(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	notifier := testutil.NewRecordingNotifier()

	tests := []struct {
		name      string
		reminder  *reminder.Reminder
		projects  []string
		wantField string
	}{
		{"no projects", reminder.New(client, notifier, reminder.Config{}), nil, "projects"},
		{"blank projects", reminder.New(client, notifier, reminder.Config{}), []string{" ", ""}, "projects"},
		{"no source", reminder.New(nil, notifier, reminder.Config{}), []string{"infra"}, "source"},
		{"no notifier", reminder.New(client, nil, reminder.Config{}), []string{"infra"}, "notifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := tt.reminder.RunOnce(context.Background(), tt.projects, nil)
			var cfgErr *reminder.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if report != nil {
				t.Error("expected no report on configuration error")
			}
		})
	}
}

func TestReport_JSON(t *testing.T) {
	report := &reminder.Report{
		RunID:         "run-1",
		Notified:      []string{"bob"},
		Unresolvable:  []*reminder.UnresolvableIdentityError{{Username: "carol"}},
		FetchFailures: []*reminder.ProjectFetchError{{Project: "p2", Err: errors.New("forbidden")}},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Unresolvable []struct {
			Username string `json:"username"`
		} `json:"unresolvable"`
		FetchFailures []struct {
			Project string `json:"project"`
			Error   string `json:"error"`
		} `json:"fetch_failures"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Unresolvable) != 1 || decoded.Unresolvable[0].Username != "carol" {
		t.Errorf("unexpected unresolvable: %s", data)
	}
	if len(decoded.FetchFailures) != 1 || decoded.FetchFailures[0].Error != "forbidden" {
		t.Errorf("unexpected fetch failures: %s", data)
	}
}

func TestRunOnce_QuietRunReportsEmptyLists(t *testing.T) {
	client := testutil.NewMockGitLabClient()
	client.AddProject("infra", 10)
	notifier := testutil.NewRecordingNotifier()

	report, err := reminder.New(client, notifier, reminder.Config{}).RunOnce(context.Background(), []string{"infra"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HasFailures() || notifier.Count() != 0 {
		t.Fatalf("expected a quiet run, got %+v", report)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"notified", "unresolvable", "fetch_failures", "delivery_failures"} {
		if want := `"` + field + `":[]`; !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
}
