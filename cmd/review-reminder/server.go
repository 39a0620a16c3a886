package main

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
)

// MetricsCollector tracks run statistics for the health endpoint.
type MetricsCollector struct {
	lastRun      time.Time
	lastRunID    string
	mu           sync.RWMutex
	totalRuns    int64
	notified     int64
	failedRuns   int64
	lastNotified int
	lastFailures int
}

// RecordRun records the outcome of a completed run.
func (m *MetricsCollector) RecordRun(report *reminder.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRuns++
	m.lastRun = report.FinishedAt
	m.lastRunID = report.RunID
	m.lastNotified = len(report.Notified)
	m.lastFailures = len(report.FetchFailures) + len(report.Unresolvable) + len(report.DeliveryFailures)
	m.notified += int64(len(report.Notified))
	if report.HasFailures() {
		m.failedRuns++
	}
}

// Stats represents collected metrics.
type Stats struct {
	LastRun       time.Time `json:"last_run"`
	LastRunID     string    `json:"last_run_id"`
	TotalRuns     int64     `json:"total_runs"`
	RunsWithFails int64     `json:"runs_with_failures"`
	Notified      int64     `json:"reviewers_notified"`
	LastNotified  int       `json:"last_notified"`
	LastFailures  int       `json:"last_failures"`
}

// GetStats returns the current statistics.
func (m *MetricsCollector) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		LastRun:       m.lastRun,
		LastRunID:     m.lastRunID,
		TotalRuns:     m.totalRuns,
		RunsWithFails: m.failedRuns,
		Notified:      m.notified,
		LastNotified:  m.lastNotified,
		LastFailures:  m.lastFailures,
	}
}

// server exposes a run trigger for external schedulers.
type server struct {
	run     runFunc
	metrics *MetricsCollector
	running atomic.Bool
}

func newServer(run runFunc) *server {
	return &server{run: run, metrics: &MetricsCollector{}}
}

func (s *server) routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.POST("/run", s.handleRun)
	return r
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": s.running.Load(),
		"stats":   s.metrics.GetStats(),
	})
}

func (s *server) handleRun(c *gin.Context) {
	if !s.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	defer s.running.Store(false)

	report, err := s.run(c.Request.Context())
	if err != nil {
		var cfgErr *reminder.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Run failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.metrics.RecordRun(report)
	c.JSON(http.StatusOK, report)
}
