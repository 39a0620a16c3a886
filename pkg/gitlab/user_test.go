package gitlab

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/review-reminder/pkg/cache"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

func userHandler(t *testing.T, calls *atomic.Int32) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/users", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("username") {
		case "bob":
			writeJSON(t, w, []map[string]any{{"id": 2, "username": "bob"}})
		case "carol":
			writeJSON(t, w, []map[string]any{{"id": 3, "username": "carol"}})
		default:
			writeJSON(t, w, []map[string]any{})
		}
	})
	mux.HandleFunc("/api/v4/users/2", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{"id": 2, "username": "bob", "name": "Bob", "public_email": " bob@chat.example "})
	})
	mux.HandleFunc("/api/v4/users/3", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{"id": 3, "username": "carol", "name": "", "public_email": ""})
	})
	return mux
}

func TestClient_UserProfile(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, userHandler(t, &calls))

	p, err := c.UserProfile(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PublicEmail != "bob@chat.example" {
		t.Errorf("PublicEmail = %q, want trimmed address", p.PublicEmail)
	}
	if p.Name != "Bob" || p.ID != 2 {
		t.Errorf("unexpected profile: %+v", p)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 API calls, got %d", calls.Load())
	}

	// Second lookup is served from the memo.
	if _, err := c.UserProfile(context.Background(), "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected cached lookup, got %d calls", calls.Load())
	}
}

func TestClient_UserProfile_NoPublicEmail(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, userHandler(t, &calls))

	p, err := c.UserProfile(context.Background(), "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PublicEmail != "" {
		t.Errorf("expected empty email, got %q", p.PublicEmail)
	}
	if p.Name != "carol" {
		t.Errorf("expected name to fall back to username, got %q", p.Name)
	}
}

func TestClient_UserProfile_NotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, userHandler(t, &calls))

	_, err := c.UserProfile(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestClient_UserProfile_EmptyUsername(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, userHandler(t, &calls))

	if _, err := c.UserProfile(context.Background(), ""); err == nil {
		t.Error("expected error for empty username")
	}
	if calls.Load() != 0 {
		t.Errorf("expected no API calls, got %d", calls.Load())
	}
}

func TestClient_UserProfile_SharedCache(t *testing.T) {
	var calls atomic.Int32
	profiles := cache.New[*types.UserProfile](time.Hour)
	profiles.Set("dana", &types.UserProfile{Username: "dana", Name: "Dana", PublicEmail: "dana@chat.example"})

	c := newTestClient(t, userHandler(t, &calls), func(cfg *Config) { cfg.ProfileCache = profiles })

	p, err := c.UserProfile(context.Background(), "dana")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PublicEmail != "dana@chat.example" {
		t.Errorf("expected seeded profile, got %+v", p)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no API calls for a seeded profile, got %d", calls.Load())
	}

	if _, err := c.UserProfile(context.Background(), "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found := profiles.Get("bob"); !found {
		t.Error("expected lookup to be stored in the supplied cache")
	}
}
