package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"batchrun/internal/apperrors"
)

// Submit sends one scheduler-ready job to the remote queue and registers the
// resulting record for reconciliation.
//
// On gateway failure nothing is registered and the error wraps
// apperrors.ErrSubmission, so the scheduler may retry the job as a fresh
// logical attempt. On success the record is registered and
// Reporter.ReportSubmission fires exactly once.
func (e *Executor) Submit(ctx context.Context, job *Job) (*Record, error) {
	if job == nil || job.Name == "" {
		return nil, apperrors.Validation("name", "job name is required")
	}
	if job.Command == "" {
		return nil, apperrors.Validation("command", "job command is required")
	}

	name := jobName(e.cfg.NamePrefix, job.Name, uuid.NewString())
	logger := e.logger.With("job", job.Name, "submittedName", name)

	env := make([]EnvVar, 0, len(job.Env))
	for k, v := range job.Env {
		env = append(env, EnvVar{Name: k, Value: v})
	}

	start := time.Now()
	remoteID, err := e.gateway.SubmitJob(ctx, SubmitInput{
		Name:       name,
		Queue:      e.cfg.JobQueue,
		Definition: e.cfg.JobDefinition,
		Command:    job.Command,
		Env:        env,
	})
	if err != nil {
		logger.Error("Job submission failed", "error", err)
		e.metrics.RecordTransportError(ctx, "submitJob")
		return nil, apperrors.Submission(name, err)
	}

	rec := &Record{
		Job:           job,
		RemoteID:      remoteID,
		SubmittedName: name,
	}
	if err := e.registry.Add(rec); err != nil {
		return nil, err
	}

	e.metrics.RecordSubmitted(ctx, e.cfg.JobQueue, time.Since(start).Seconds())
	logger.Debug("Batch job submitted", "remoteId", remoteID)

	e.reporter.ReportSubmission(rec)
	return rec, nil
}
