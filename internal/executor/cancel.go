package executor

import "context"

// cancelReason is the fixed human-readable reason attached to shutdown
// terminations.
const cancelReason = "Terminated by batchrun"

// CancelAll issues a best-effort terminate for every given record. A failure
// terminating one job is logged as a warning and never prevents attempting
// the rest; there is no verification that termination took effect remotely.
//
// Cancelled records leave the registry without a success/failure report:
// cancellation is its own terminal path. Safe to call while a polling pass is
// in flight; racing terminate/describe calls against the same job are left to
// the remote API's idempotence.
func (e *Executor) CancelAll(ctx context.Context, active []*Record) {
	e.logger.Info("Shutting down, cancelling active jobs", "count", len(active))

	for _, rec := range active {
		logger := e.logger.With("remoteId", rec.RemoteID, "job", rec.Job.Name)
		logger.Debug("Terminating job")

		if err := e.gateway.TerminateJob(ctx, rec.RemoteID, cancelReason); err != nil {
			logger.Warn("Failed to terminate job", "error", err)
			e.metrics.RecordTransportError(ctx, "terminateJob")
		}

		if _, removed := e.registry.Remove(rec.RemoteID); removed {
			e.metrics.RecordCancelled(ctx, e.cfg.JobQueue)
		}
	}
}
