package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PollActive runs one reconciliation pass over the given records and returns
// the subset still active afterwards.
//
// Each record is checked in its own goroutine gated by the shared rate
// limiter, so query concurrency never exceeds the configured call rate
// regardless of how many jobs are in flight. Classification is independent
// and failure-isolated per record: a transport fault while querying one job
// is logged and treated as still-running, never as job failure, and never
// aborts the pass for the others.
//
// Terminal records are removed from the registry and reported exactly once;
// the registry removal is the deduplication point. No ordering is guaranteed
// between records within a pass.
func (e *Executor) PollActive(ctx context.Context, active []*Record) []*Record {
	e.logger.Debug("Monitoring active batch jobs", "count", len(active))
	e.metrics.RecordPollPass(ctx)

	var (
		mu    sync.Mutex
		still []*Record
		wg    sync.WaitGroup
	)

	keep := func(rec *Record) {
		mu.Lock()
		still = append(still, rec)
		mu.Unlock()
	}

	for _, rec := range active {
		wg.Add(1)
		go func(rec *Record) {
			defer wg.Done()

			if err := e.limiter.Wait(ctx); err != nil {
				// Shutdown mid-pass: the job stays active for the caller.
				keep(rec)
				return
			}

			res := e.checkStatus(ctx, rec)
			if !res.terminal {
				keep(rec)
				return
			}

			// Whoever removes the record from the registry owns the report.
			if _, owned := e.registry.Remove(rec.RemoteID); !owned {
				return
			}

			e.metrics.RecordResolved(ctx, e.cfg.JobQueue, res.success)

			if res.success {
				e.reporter.ReportSuccess(rec)
				return
			}
			e.reporter.ReportFailure(rec, fmt.Sprintf(
				"batch job failed. Code: %d, Msg: %s.", res.exitCode, res.reason))
		}(rec)
	}

	wg.Wait()
	return still
}

// checkStatus queries and classifies the remote status of one record.
func (e *Executor) checkStatus(ctx context.Context, rec *Record) resolution {
	logger := e.logger.With("remoteId", rec.RemoteID)

	start := time.Now()
	details, err := e.gateway.DescribeJobs(ctx, []string{rec.RemoteID})
	e.metrics.RecordDescribe(ctx, time.Since(start).Seconds(), err)
	if err != nil {
		// Transient API fault: re-polled next pass.
		logger.Debug("Status query failed", "error", err)
		return resolution{reason: err.Error()}
	}

	detail, found := details[rec.RemoteID]
	if !found {
		// An eventually-consistent status API may briefly not know the job.
		// Absence is advisory, not proof of non-existence.
		e.metrics.RecordNotFound(ctx)
		logger.Debug("Job missing from describe response")
		return resolution{reason: fmt.Sprintf("no job found with ID %s", rec.RemoteID)}
	}

	switch detail.Status {
	case StatusSucceeded:
		// The status marker is authoritative; the exit code field is ignored.
		return resolution{terminal: true, success: true}

	case StatusFailed:
		code := 1
		if detail.ExitCode != nil && *detail.ExitCode != 0 {
			code = *detail.ExitCode
		}
		reason := detail.StatusReason
		if reason == "" {
			reason = "Unknown reason"
		}
		return resolution{terminal: true, exitCode: code, reason: reason}

	default:
		logger.Debug("Job still in progress", "status", detail.Status)
		return resolution{}
	}
}
