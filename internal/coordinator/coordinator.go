// Package coordinator submits the whole batchrun invocation as a single
// remote job, so the run — scheduling included — executes in the cloud and
// the local terminal can disconnect.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"batchrun/internal/apperrors"
	"batchrun/internal/config"
	"batchrun/internal/executor"
)

// Bootstrap hands the current invocation off to a remote coordinator job.
type Bootstrap struct {
	gateway executor.Gateway
	cfg     *config.ExecutorConfig
	logger  *slog.Logger

	// Injectable for tests; default to the real process state.
	args []string
	exit func(code int)
}

// New creates a Bootstrap for the current process invocation.
func New(gateway executor.Gateway, cfg *config.ExecutorConfig) *Bootstrap {
	return &Bootstrap{
		gateway: gateway,
		cfg:     cfg,
		logger:  slog.With("component", "coordinator"),
		args:    os.Args,
		exit:    os.Exit,
	}
}

// Pending reports whether a coordinator handoff should happen: coordinator
// mode is on and this process is NOT already the remote coordinator job. The
// context env flag is the only guard against recursive self-submission.
func Pending(cfg *config.ExecutorConfig) bool {
	return cfg.Coordinator && !cfg.CoordinatorContext
}

// Run submits the coordinator job and then terminates the process.
//
// On success this function does NOT return: after removing the local workflow
// lock state it calls os.Exit(0), deliberately bypassing deferred cleanup and
// signal handling — the normal shutdown path would try to cancel jobs this
// process no longer owns. Any cleanup required before termination (the lock
// removal) happens synchronously first.
func (b *Bootstrap) Run(ctx context.Context) error {
	name := fmt.Sprintf("batchrun-coordinator-%s", uuid.NewString())
	command := buildCommand(b.args)
	b.logger.Debug("Coordinator command", "command", command)

	remoteID, err := b.gateway.SubmitJob(ctx, executor.SubmitInput{
		Name:       name,
		Queue:      b.cfg.EffectiveCoordinatorQueue(),
		Definition: b.cfg.EffectiveCoordinatorJobDefinition(),
		Command:    command,
		Env:        environment(b.cfg),
	})
	if err != nil {
		return apperrors.Submission(name, err)
	}

	b.logger.Info("Coordinator job submitted, you can now safely disconnect",
		"remoteId", remoteID,
		"console", consoleURL(b.cfg.Region, remoteID),
	)

	// Clean up the workflow lock before exiting: the hard exit below skips
	// every deferred unlock, and a stale lock would block the remote run.
	if err := removeLocks(b.cfg.LockDir); err != nil {
		b.logger.Warn("Failed to remove lock state", "dir", b.cfg.LockDir, "error", err)
	}

	b.exit(0)
	return nil
}

// buildCommand rebuilds the original invocation for the remote container.
// All original arguments are forwarded; the coordinator context env flag
// prevents recursion even if the coordinator flag is passed again.
func buildCommand(args []string) string {
	parts := []string{"batchrund"}
	for _, arg := range args[1:] {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// environment forwards the executor configuration to the remote coordinator
// so it can reconstruct an equivalent client, plus the context flag.
func environment(cfg *config.ExecutorConfig) []executor.EnvVar {
	return []executor.EnvVar{
		{Name: config.CoordinatorContextEnv, Value: "1"},
		{Name: "BATCHRUN_REGION", Value: cfg.Region},
		{Name: "BATCHRUN_JOB_QUEUE", Value: cfg.JobQueue},
		{Name: "BATCHRUN_JOB_DEFINITION", Value: cfg.JobDefinition},
	}
}

func removeLocks(lockDir string) error {
	if lockDir == "" {
		return nil
	}
	if _, err := os.Stat(lockDir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(lockDir)
}

func consoleURL(region, remoteID string) string {
	return fmt.Sprintf(
		"https://console.aws.amazon.com/batch/home?region=%s#jobs/detail/%s",
		region, remoteID,
	)
}

var safeArg = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// quoteArg single-quotes an argument for the remote shell unless it is
// trivially safe.
func quoteArg(arg string) string {
	if arg != "" && safeArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
