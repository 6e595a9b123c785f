package executor

// Reporter receives lifecycle notifications for the scheduler. For any record,
// the executor invokes at most one of ReportSuccess/ReportFailure, exactly
// once, after ReportSubmission.
//
// Implementations are called from the reconciler's polling goroutines and must
// be safe for concurrent use.
type Reporter interface {
	// ReportSubmission is invoked once per successfully submitted job.
	ReportSubmission(rec *Record)

	// ReportSuccess is invoked once when a job reaches its terminal-success status.
	ReportSuccess(rec *Record)

	// ReportFailure is invoked once when a job reaches its terminal-failure
	// status. The message embeds the numeric exit code and the remote reason.
	ReportFailure(rec *Record, message string)
}
