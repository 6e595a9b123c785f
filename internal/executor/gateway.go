package executor

import "context"

// EnvVar is one environment variable entry in a submit request.
type EnvVar struct {
	Name  string
	Value string
}

// SubmitInput describes one remote job submission.
type SubmitInput struct {
	Name       string // Unique job name
	Queue      string // Job queue ARN or name
	Definition string // Pre-provisioned job definition ARN or name
	Command    string // Shell command; the gateway wraps it in its shell invocation
	Env        []EnvVar
}

// JobDetail is the remote view of one job returned by DescribeJobs.
type JobDetail struct {
	ID           string
	Status       string // One of the Status* constants
	ExitCode     *int   // Container exit code, if reported
	StatusReason string // Service-provided failure reason, if any
}

// Gateway is the transport boundary to the remote batch-compute service.
//
// Implementations are typed pass-throughs: no retries, no interpretation of
// status semantics, remote identifiers preserved verbatim. Transport-level
// faults wrap apperrors.ErrTransport. A describe response may legitimately
// omit some requested IDs; the returned map simply lacks those keys, which is
// meaningful to the caller, not an error.
type Gateway interface {
	// SubmitJob submits a job and returns the remote job identifier.
	SubmitJob(ctx context.Context, in SubmitInput) (string, error)

	// DescribeJobs returns details for the given remote IDs, keyed by ID.
	// IDs unknown to the service are absent from the result.
	DescribeJobs(ctx context.Context, ids []string) (map[string]JobDetail, error)

	// TerminateJob requests termination of a job. Terminating an
	// already-finished job is a no-op on the remote side.
	TerminateJob(ctx context.Context, id, reason string) error

	// Ready checks if the remote service is reachable.
	Ready(ctx context.Context) error

	// Close releases resources held by the gateway.
	Close() error
}
