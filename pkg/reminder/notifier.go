package reminder

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// Recipient is a reviewer with a resolved chat address.
type Recipient struct {
	Username string
	Name     string
	Address  string
}

// Notifier delivers one consolidated message to a reviewer.
type Notifier interface {
	Notify(ctx context.Context, to Recipient, mrs []types.MergeRequest) error
}

// LogNotifier logs what would be sent instead of delivering it.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, to Recipient, mrs []types.MergeRequest) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	titles := make([]string, 0, len(mrs))
	for _, mr := range mrs {
		titles = append(titles, mr.Title)
	}
	log.Info("Dry run: would notify reviewer", "username", to.Username, "address", to.Address, "merge_requests", titles)
	return nil
}
