package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"batchrun/internal/config"
	"batchrun/internal/coordinator"
	"batchrun/internal/executor"
	"batchrun/internal/gateway/awsbatch"
	"batchrun/internal/gateway/dockerlocal"
	"batchrun/internal/health"
	"batchrun/internal/manifest"
	"batchrun/internal/observability"
	"batchrun/pkg/backoff"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Submit the manifest's jobs and track them until every one is terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"m"},
				Usage:    "Path to the JSON job manifest",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Compute backend (aws, docker)",
				Value:   "aws",
				Sources: cli.EnvVars("BATCHRUN_BACKEND"),
			},
			&cli.BoolFlag{
				Name:  "coordinator",
				Usage: "Hand the whole run off to a remote coordinator job and disconnect",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.LoadExecutorConfig()
	svcCfg := config.LoadServiceConfig()
	if cmd.Bool("coordinator") {
		cfg.Coordinator = true
	}

	jobs, err := manifest.Load(cmd.String("manifest"))
	if err != nil {
		return err
	}

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	gateway, err := newGateway(ctx, cmd.String("backend"), cfg)
	if err != nil {
		return err
	}
	defer gateway.Close()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := waitForGateway(sigCtx, gateway, svcCfg.StartupWait); err != nil {
		return err
	}

	healthChecker := health.NewChecker(gateway)
	metricsServer := startMetricsServer(svcCfg.MetricsPort, metricsHandler, healthChecker)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}()

	// Coordinator handoff: on success this hard-exits the process after
	// removing lock state, so none of the deferred teardown above runs.
	if coordinator.Pending(cfg) {
		return coordinator.New(gateway, cfg).Run(sigCtx)
	}

	reporter := newRunReporter()
	exec, err := executor.New(executor.Options{
		Gateway:  gateway,
		Reporter: reporter,
		Config:   cfg,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if _, err := exec.Submit(sigCtx, job); err != nil {
			slog.Error("Submission failed, cancelling run", "job", job.Name, "error", err)
			drainJobs(sigCtx, exec, svcCfg.DrainTimeout, healthChecker)
			return err
		}
	}

	active := exec.Active()
	for len(active) > 0 {
		if sigCtx.Err() != nil {
			slog.Info("Interrupt received, cancelling active jobs")
			drainJobs(sigCtx, exec, svcCfg.DrainTimeout, healthChecker)
			return sigCtx.Err()
		}

		active = exec.PollActive(sigCtx, active)
		if len(active) == 0 {
			break
		}

		if err := sleepInterval(sigCtx, cfg.PollInterval); err != nil {
			slog.Info("Interrupt received, cancelling active jobs")
			drainJobs(sigCtx, exec, svcCfg.DrainTimeout, healthChecker)
			return err
		}
	}

	healthChecker.SetShuttingDown()
	succeeded, failed := reporter.counts()
	slog.Info("Run complete", "succeeded", succeeded, "failed", failed)

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d job(s) failed", failed), 1)
	}
	return nil
}

func newGateway(ctx context.Context, backend string, cfg *config.ExecutorConfig) (executor.Gateway, error) {
	switch backend {
	case "aws":
		return awsbatch.New(ctx, cfg)
	case "docker":
		return dockerlocal.New(dockerlocal.LoadConfigFromEnv())
	default:
		return nil, fmt.Errorf("unknown backend %q (want aws or docker)", backend)
	}
}

// waitForGateway blocks until the backend is reachable, backing off between
// probes. This is startup-only; the reconciliation loop itself is throttled
// solely by its rate limiter.
func waitForGateway(ctx context.Context, gateway executor.Gateway, startupWait time.Duration) error {
	deadline := time.Now().Add(startupWait)
	cfg := &backoff.Config{Initial: 500 * time.Millisecond, Max: 5 * time.Second}

	for attempt := 1; ; attempt++ {
		err := gateway.Ready(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("backend not reachable after %s: %w", startupWait, err)
		}
		slog.Debug("Backend not ready, retrying", "attempt", attempt, "error", err)
		if err := backoff.Wait(ctx, attempt, cfg); err != nil {
			return err
		}
	}
}

func startMetricsServer(port string, metricsHandler http.Handler, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("GET /healthz/live", checker.LivenessHandler())
	mux.Handle("GET /healthz/ready", checker.ReadinessHandler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting metrics server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return server
}

// drainJobs cancels everything still tracked, on a context detached from the
// interrupt so the terminate calls get a chance to go out.
func drainJobs(ctx context.Context, exec *executor.Executor, timeout time.Duration, checker *health.Checker) {
	checker.SetShuttingDown()
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	exec.CancelAll(drainCtx, exec.Active())
}

func sleepInterval(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
