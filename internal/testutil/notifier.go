package testutil

import (
	"context"
	"sync"

	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// Delivery records a single Notify call.
type Delivery struct {
	To            reminder.Recipient
	MergeRequests []types.MergeRequest
}

// RecordingNotifier implements reminder.Notifier and records every delivery.
type RecordingNotifier struct {
	failFor    map[string]error
	deliveries []Delivery
	mu         sync.Mutex
}

var _ reminder.Notifier = (*RecordingNotifier)(nil)

// NewRecordingNotifier creates a new RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{failFor: make(map[string]error)}
}

// FailFor makes deliveries to address fail with err.
func (n *RecordingNotifier) FailFor(address string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failFor[address] = err
}

// Notify records the delivery, or returns the configured failure.
func (n *RecordingNotifier) Notify(_ context.Context, to reminder.Recipient, mrs []types.MergeRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failFor[to.Address]; err != nil {
		return err
	}
	n.deliveries = append(n.deliveries, Delivery{To: to, MergeRequests: mrs})
	return nil
}

// Deliveries returns successful deliveries keyed by address.
func (n *RecordingNotifier) Deliveries() map[string]Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]Delivery, len(n.deliveries))
	for _, d := range n.deliveries {
		out[d.To.Address] = d
	}
	return out
}

// Count returns the number of successful deliveries.
func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}
