// Package main implements a CLI that reminds GitLab reviewers about merge requests
// waiting on them, with one Microsoft Teams message per reviewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/review-reminder/pkg/config"
	"github.com/codeGROOVE-dev/review-reminder/pkg/gitlab"
	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
	"github.com/codeGROOVE-dev/review-reminder/pkg/teams"
)

// Exit codes.
const (
	exitOK          = 0
	exitConfigError = 1
	exitPartial     = 2
)

var (
	configPath = flag.String("config", "", "Optional YAML config file; environment variables override it")
	serve      = flag.Bool("serve", false, "Serve POST /run and GET /healthz instead of running once")
	dryRun     = flag.Bool("dry-run", false, "Log reminders instead of posting them to Teams")
	verbose    = flag.Bool("v", false, "Verbose output with detailed diagnostics")
	jsonLogs   = flag.Bool("json-logs", false, "Emit logs as JSON")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reminds each GitLab reviewer, once, about every merge request waiting on them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		config.Usage("Environment Variables:")()
	}
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(exitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := newRunner(cfg, *dryRun)

	if *serve {
		if err := serveHTTP(ctx, cfg.Port, run); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(exitConfigError)
		}
		return
	}

	report, err := run(ctx)
	if err != nil {
		slog.Error("Run aborted", "error", err)
		os.Exit(exitConfigError)
	}
	if report.HasFailures() {
		slog.Warn("Run completed with failures", "error", report.Err())
		os.Exit(exitPartial)
	}
	os.Exit(exitOK)
}

// runFunc performs a single reminder run.
type runFunc func(ctx context.Context) (*reminder.Report, error)

// newRunner returns a runFunc that builds fresh clients for every run,
// so nothing carries over between invocations.
func newRunner(cfg *config.Config, dryRun bool) runFunc {
	return func(ctx context.Context) (*reminder.Report, error) {
		gl, err := gitlab.New(gitlab.Config{
			BaseURL:           cfg.GitLabURL,
			Token:             cfg.GitLabToken,
			HTTPTimeout:       cfg.HTTPTimeout,
			MaxAttempts:       cfg.MaxAttempts,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, &reminder.ConfigurationError{Field: "gitlab", Err: err}
		}

		var notifier reminder.Notifier = reminder.LogNotifier{}
		if !dryRun {
			tc, err := teams.New(teams.Config{
				WebhookURL:  cfg.WebhookURL,
				HTTPTimeout: cfg.HTTPTimeout,
				MaxAttempts: cfg.MaxAttempts,
			})
			if err != nil {
				return nil, &reminder.ConfigurationError{Field: "TEAMS_WEBHOOK_URL", Err: err}
			}
			notifier = tc
		}

		r := reminder.New(gl, notifier, reminder.Config{Concurrency: cfg.Concurrency})
		return r.RunOnce(ctx, cfg.Projects, cfg.Overrides)
	}
}

// serveHTTP runs the trigger server until ctx is cancelled.
func serveHTTP(ctx context.Context, port string, run runFunc) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(run).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
