package executor

// Job is one scheduler-ready unit of work. The Handle is whatever the
// scheduler uses to identify the job; it is carried through untouched and
// handed back on every report.
type Job struct {
	Name    string            // Display name, also embedded in the remote job name
	Command string            // Fully-formed shell command string
	Env     map[string]string // Environment variables for the remote container
	Handle  any               // Opaque scheduler handle, passed through untouched
}

// Record is one submitted job being tracked by the reconciler.
// RemoteID is immutable once set: it is assigned by the remote service at
// submission time and used for every subsequent describe/terminate call.
type Record struct {
	Job           *Job
	RemoteID      string
	SubmittedName string // Unique name used at submission (prefix-name-token)
}

// Remote status values as reported by the batch service. Only Succeeded and
// Failed are terminal; everything else loops the job back into the active set.
const (
	StatusSubmitted = "SUBMITTED"
	StatusPending   = "PENDING"
	StatusRunnable  = "RUNNABLE"
	StatusStarting  = "STARTING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// resolution is the transient classification of one polled job. It is
// consumed immediately by the reconciler and never persisted.
type resolution struct {
	terminal bool
	success  bool
	exitCode int
	reason   string
}
