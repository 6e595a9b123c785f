// Package executor tracks remote batch jobs from submission to terminal status.
//
// The Executor owns the full view of in-flight jobs in a single process: it
// submits scheduler-ready work through a Gateway, keeps every submitted job in
// a Registry, reconciles the active set against the remote service with
// PollActive, and drains everything with CancelAll on shutdown. Terminal
// outcomes are pushed to the scheduler through the Reporter callbacks.
package executor

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"batchrun/internal/apperrors"
	"batchrun/internal/config"
	"batchrun/internal/observability"
)

// Remote services constrain job names to alphanumerics, hyphens and
// underscores; anything else in a scheduler name is mapped to a hyphen.
var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// maxNameLength matches the AWS Batch job name limit.
const maxNameLength = 128

// Executor submits jobs to a remote batch service and tracks their lifecycle.
type Executor struct {
	gateway  Gateway
	reporter Reporter
	registry *Registry
	limiter  *rate.Limiter
	cfg      *config.ExecutorConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Options configures a new Executor.
type Options struct {
	Gateway  Gateway
	Reporter Reporter
	Config   *config.ExecutorConfig
	Metrics  *observability.Metrics // optional
}

// New creates an Executor. The rate limiter built from Config.PollRate is the
// sole throttle on outbound status queries; no backoff is layered on top.
func New(opts Options) (*Executor, error) {
	if opts.Gateway == nil {
		return nil, apperrors.Validation("gateway", "gateway is required")
	}
	if opts.Reporter == nil {
		return nil, apperrors.Validation("reporter", "reporter is required")
	}
	if opts.Config == nil {
		return nil, apperrors.Validation("config", "config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	burst := opts.Config.PollBurst
	if burst < 1 {
		burst = 1
	}

	return &Executor{
		gateway:  opts.Gateway,
		reporter: opts.Reporter,
		registry: NewRegistry(),
		limiter:  rate.NewLimiter(rate.Limit(opts.Config.PollRate), burst),
		cfg:      opts.Config,
		metrics:  opts.Metrics,
		logger:   slog.With("component", "executor"),
	}, nil
}

// Registry exposes the tracked set, primarily for the run loop and tests.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Active returns a snapshot of all currently tracked records.
func (e *Executor) Active() []*Record {
	return e.registry.Snapshot()
}

// jobName builds the unique remote job name for one submission attempt. The
// random token keeps resubmissions of the same logical job from colliding.
func jobName(prefix, name, token string) string {
	sanitized := invalidNameChars.ReplaceAllString(name, "-")
	full := fmt.Sprintf("%s-%s-%s", prefix, sanitized, token)
	if len(full) > maxNameLength {
		// Keep the token; it carries the uniqueness.
		keep := maxNameLength - len(token) - 1
		full = full[:keep] + "-" + token
	}
	return strings.Trim(full, "-")
}
