// Package config provides configuration loading from environment variables.
package config

import (
	"time"

	"batchrun/internal/apperrors"
)

// CoordinatorContextEnv is the reserved flag that marks a process as running
// inside a coordinator job. It is the only guard against recursive
// self-submission, so its name is part of the external contract.
const CoordinatorContextEnv = "BATCHRUN_COORDINATOR_CONTEXT"

// ExecutorConfig holds configuration for the batch executor.
type ExecutorConfig struct {
	Region        string // AWS region
	JobQueue      string // Batch job queue ARN or name
	JobDefinition string // Pre-provisioned job definition ARN or name
	Endpoint      string // Optional endpoint override (e.g., localstack)
	NamePrefix    string // Prefix for generated job names

	PollRate     float64       // Status queries per second across all jobs
	PollBurst    int           // Rate limiter burst
	PollInterval time.Duration // Delay between polling passes

	// Coordinator mode: re-submit this whole process as a remote job.
	Coordinator              bool
	CoordinatorQueue         string // Defaults to JobQueue
	CoordinatorJobDefinition string // Defaults to JobDefinition
	CoordinatorContext       bool   // True when running inside a coordinator job
	LockDir                  string // Workflow lock state removed before coordinator handoff
}

// ServiceConfig holds configuration for the batchrund process itself.
type ServiceConfig struct {
	MetricsPort  string
	StartupWait  time.Duration // How long to wait for the gateway to become reachable
	DrainTimeout time.Duration // Budget for cancelling jobs on shutdown
}

// LoadExecutorConfig loads executor configuration from environment variables.
func LoadExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		Region:        GetEnv("BATCHRUN_REGION", ""),
		JobQueue:      GetEnv("BATCHRUN_JOB_QUEUE", ""),
		JobDefinition: GetEnv("BATCHRUN_JOB_DEFINITION", ""),
		Endpoint:      GetEnv("BATCHRUN_ENDPOINT", ""),
		NamePrefix:    GetEnv("BATCHRUN_NAME_PREFIX", "batchjob"),

		PollRate:     GetFloatEnv("BATCHRUN_POLL_RATE", 2),
		PollBurst:    GetIntEnv("BATCHRUN_POLL_BURST", 1),
		PollInterval: GetDurationEnv("BATCHRUN_POLL_INTERVAL", 5*time.Second),

		Coordinator:              GetBoolEnv("BATCHRUN_COORDINATOR", false),
		CoordinatorQueue:         GetEnv("BATCHRUN_COORDINATOR_QUEUE", ""),
		CoordinatorJobDefinition: GetEnv("BATCHRUN_COORDINATOR_JOB_DEFINITION", ""),
		CoordinatorContext:       GetEnv(CoordinatorContextEnv, "") == "1",
		LockDir:                  GetEnv("BATCHRUN_LOCK_DIR", ".batchrun/locks"),
	}
}

// LoadServiceConfig loads process configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MetricsPort:  GetEnv("BATCHRUN_METRICS_PORT", "9090"),
		StartupWait:  GetDurationEnv("BATCHRUN_STARTUP_WAIT", 30*time.Second),
		DrainTimeout: GetDurationEnv("BATCHRUN_DRAIN_TIMEOUT", 30*time.Second),
	}
}

// Validate checks that the fields required for remote submission are set.
func (c *ExecutorConfig) Validate() error {
	if c.JobQueue == "" {
		return apperrors.Validation("jobQueue", "job queue is required")
	}
	if c.JobDefinition == "" {
		return apperrors.Validation("jobDefinition", "job definition is required")
	}
	if c.PollRate <= 0 {
		return apperrors.Validation("pollRate", "poll rate must be positive")
	}
	return nil
}

// EffectiveCoordinatorQueue returns the queue for the coordinator job.
func (c *ExecutorConfig) EffectiveCoordinatorQueue() string {
	if c.CoordinatorQueue != "" {
		return c.CoordinatorQueue
	}
	return c.JobQueue
}

// EffectiveCoordinatorJobDefinition returns the job definition for the coordinator job.
func (c *ExecutorConfig) EffectiveCoordinatorJobDefinition() string {
	if c.CoordinatorJobDefinition != "" {
		return c.CoordinatorJobDefinition
	}
	return c.JobDefinition
}
