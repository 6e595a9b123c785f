package main

import (
	"log/slog"
	"sync"

	"batchrun/internal/executor"
)

// runReporter logs lifecycle events and tallies outcomes so the process can
// pick its exit code once every job is terminal.
type runReporter struct {
	logger *slog.Logger

	mu        sync.Mutex
	succeeded int
	failed    int
}

func newRunReporter() *runReporter {
	return &runReporter{logger: slog.Default()}
}

func (r *runReporter) ReportSubmission(rec *executor.Record) {
	r.logger.Info("Job submitted",
		"job", rec.Job.Name,
		"remoteId", rec.RemoteID,
		"submittedName", rec.SubmittedName,
	)
}

func (r *runReporter) ReportSuccess(rec *executor.Record) {
	r.mu.Lock()
	r.succeeded++
	r.mu.Unlock()

	r.logger.Info("Job succeeded", "job", rec.Job.Name, "remoteId", rec.RemoteID)
}

func (r *runReporter) ReportFailure(rec *executor.Record, message string) {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()

	r.logger.Error("Job failed",
		"job", rec.Job.Name,
		"remoteId", rec.RemoteID,
		"message", message,
	)
}

func (r *runReporter) counts() (succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded, r.failed
}
