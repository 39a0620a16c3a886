package reminder

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// ProfileLookup fetches a platform user's public profile.
type ProfileLookup interface {
	UserProfile(ctx context.Context, username string) (*types.UserProfile, error)
}

// Resolver maps platform usernames to chat addresses.
// Explicit overrides win; otherwise the user's public email is looked up once
// and remembered for the rest of the run.
type Resolver struct {
	lookup    ProfileLookup
	log       *slog.Logger
	overrides map[string]string
	derived   map[string]string
	mu        sync.Mutex
}

// NewResolver creates a resolver with the given override table.
// Blank override values are ignored so they fall through to the profile lookup.
func NewResolver(lookup ProfileLookup, overrides map[string]string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	clean := make(map[string]string, len(overrides))
	for username, address := range overrides {
		if address = strings.TrimSpace(address); address != "" {
			clean[username] = address
		}
	}
	return &Resolver{
		lookup:    lookup,
		log:       log,
		overrides: clean,
		derived:   make(map[string]string),
	}
}

// Resolve returns the chat address for username, or an *UnresolvableIdentityError.
func (r *Resolver) Resolve(ctx context.Context, username string) (string, error) {
	if address, ok := r.overrides[username]; ok {
		r.log.Debug("Resolved chat address from override", "username", username)
		return address, nil
	}

	r.mu.Lock()
	address, ok := r.derived[username]
	r.mu.Unlock()
	if ok {
		return address, nil
	}

	if r.lookup == nil {
		return "", &UnresolvableIdentityError{Username: username}
	}
	profile, err := r.lookup.UserProfile(ctx, username)
	if err != nil {
		return "", &UnresolvableIdentityError{Username: username, Err: err}
	}
	if profile == nil || profile.PublicEmail == "" {
		return "", &UnresolvableIdentityError{Username: username}
	}

	r.mu.Lock()
	r.derived[username] = profile.PublicEmail
	r.mu.Unlock()

	r.log.Debug("Resolved chat address from public email", "username", username)
	return profile.PublicEmail, nil
}
