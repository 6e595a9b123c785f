package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func submitOne(t *testing.T, exec *Executor, name string) *Record {
	t.Helper()
	rec, err := exec.Submit(context.Background(), &Job{Name: name, Command: "echo " + name})
	if err != nil {
		t.Fatalf("Submit(%s) failed: %v", name, err)
	}
	return rec
}

func TestPollActiveEmptySet(t *testing.T) {
	t.Parallel()
	exec := newTestExecutor(t, newFakeGateway(), newFakeReporter())

	still := exec.PollActive(context.Background(), nil)
	if len(still) != 0 {
		t.Errorf("Expected empty result for empty pass, got %d", len(still))
	}
}

func TestPollActiveRunningThenSucceeded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	rec := submitOne(t, exec, "alpha")
	if rec.RemoteID != "batch-1" {
		t.Fatalf("Unexpected remote ID %q", rec.RemoteID)
	}

	// First pass: still running, job stays active, no report.
	gw.setStatus("batch-1", StatusRunning, nil, "")
	still := exec.PollActive(ctx, exec.Active())

	if len(still) != 1 {
		t.Fatalf("Expected 1 still-active job, got %d", len(still))
	}
	if len(rep.successes) != 0 || len(rep.failures) != 0 {
		t.Fatal("Expected no reports while running")
	}

	// Second pass: succeeded with no exit code field.
	gw.setStatus("batch-1", StatusSucceeded, nil, "")
	still = exec.PollActive(ctx, still)

	if len(still) != 0 {
		t.Errorf("Expected no still-active jobs, got %d", len(still))
	}
	if rep.successCount("batch-1") != 1 {
		t.Errorf("Expected exactly one success report, got %d", rep.successCount("batch-1"))
	}
	if exec.Registry().Len() != 0 {
		t.Errorf("Expected record removed from registry, got %d left", exec.Registry().Len())
	}
}

func TestPollActiveSuccessIgnoresExitCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	rec := submitOne(t, exec, "alpha")

	// A nonzero exit code field must not override the terminal-success marker.
	code := 137
	gw.setStatus(rec.RemoteID, StatusSucceeded, &code, "")
	exec.PollActive(ctx, exec.Active())

	if rep.successCount(rec.RemoteID) != 1 {
		t.Errorf("Expected success report despite exit code, got %d", rep.successCount(rec.RemoteID))
	}
	if len(rep.failures) != 0 {
		t.Errorf("Expected no failure reports, got %v", rep.failures)
	}
}

func TestPollActiveFailureWithCodeAndReason(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	rec := submitOne(t, exec, "beta")

	code := 137
	gw.setStatus(rec.RemoteID, StatusFailed, &code, "OutOfMemory")
	still := exec.PollActive(ctx, exec.Active())

	if len(still) != 0 {
		t.Fatalf("Expected failed job removed from active set, got %d", len(still))
	}
	msg, ok := rep.failures[rec.RemoteID]
	if !ok {
		t.Fatal("Expected a failure report")
	}
	if !strings.Contains(msg, "137") || !strings.Contains(msg, "OutOfMemory") {
		t.Errorf("Failure message missing code or reason: %q", msg)
	}
}

func TestPollActiveFailureDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name       string
		exitCode   *int
		reason     string
		wantCode   string
		wantReason string
	}{
		{
			name:       "no exit code, no reason",
			wantCode:   "Code: 1",
			wantReason: "Unknown reason",
		},
		{
			name:       "zero exit code defaults to 1",
			exitCode:   new(int),
			reason:     "Essential container in task exited",
			wantCode:   "Code: 1",
			wantReason: "Essential container in task exited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := newFakeGateway()
			rep := newFakeReporter()
			exec := newTestExecutor(t, gw, rep)

			rec := submitOne(t, exec, "beta")
			gw.setStatus(rec.RemoteID, StatusFailed, tt.exitCode, tt.reason)
			exec.PollActive(ctx, exec.Active())

			msg := rep.failures[rec.RemoteID]
			if !strings.Contains(msg, tt.wantCode) {
				t.Errorf("Expected %q in message %q", tt.wantCode, msg)
			}
			if !strings.Contains(msg, tt.wantReason) {
				t.Errorf("Expected %q in message %q", tt.wantReason, msg)
			}
		})
	}
}

func TestPollActivePartialDescribeResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	recX := submitOne(t, exec, "x")
	recY := submitOne(t, exec, "y")

	// Only x is visible; y is transiently unknown to the status API.
	gw.setStatus(recX.RemoteID, StatusSucceeded, nil, "")
	still := exec.PollActive(ctx, exec.Active())

	if len(still) != 1 || still[0].RemoteID != recY.RemoteID {
		t.Fatalf("Expected only %s still active, got %v", recY.RemoteID, still)
	}
	if _, failed := rep.failures[recY.RemoteID]; failed {
		t.Error("Invisible job must not be reported as failed")
	}
	if rep.successCount(recX.RemoteID) != 1 {
		t.Errorf("Expected success for visible job, got %d", rep.successCount(recX.RemoteID))
	}
}

func TestPollActiveTransportErrorIsContained(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.describeErr = errors.New("RequestError: send request failed")
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	rec := submitOne(t, exec, "alpha")
	still := exec.PollActive(ctx, exec.Active())

	if len(still) != 1 || still[0].RemoteID != rec.RemoteID {
		t.Fatalf("Expected job to stay active through transport error, got %v", still)
	}
	if len(rep.successes) != 0 || len(rep.failures) != 0 {
		t.Error("Transport error must never be reported as a job outcome")
	}
	if exec.Registry().Len() != 1 {
		t.Errorf("Expected record still registered, got %d", exec.Registry().Len())
	}
}

func TestPollActiveIdempotentWhileNonTerminal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	rec := submitOne(t, exec, "alpha")
	gw.setStatus(rec.RemoteID, StatusRunnable, nil, "")

	active := exec.Active()
	for range 5 {
		active = exec.PollActive(ctx, active)
		if len(active) != 1 {
			t.Fatalf("Expected job to stay active, got %d", len(active))
		}
	}
	if len(rep.successes) != 0 || len(rep.failures) != 0 {
		t.Fatal("Non-terminal polls must not emit reports")
	}

	gw.setStatus(rec.RemoteID, StatusSucceeded, nil, "")
	active = exec.PollActive(ctx, active)
	if len(active) != 0 {
		t.Fatalf("Expected terminal job removed, got %d", len(active))
	}
	if rep.successCount(rec.RemoteID) != 1 {
		t.Errorf("Expected exactly one success report, got %d", rep.successCount(rec.RemoteID))
	}

	// A stale caller re-polling the already-resolved record must not re-report.
	exec.PollActive(ctx, []*Record{rec})
	if rep.successCount(rec.RemoteID) != 1 {
		t.Errorf("Duplicate report after re-poll: %d", rep.successCount(rec.RemoteID))
	}
}

func TestPollActiveMixedBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	recA := submitOne(t, exec, "a")
	recB := submitOne(t, exec, "b")
	recC := submitOne(t, exec, "c")

	code := 2
	gw.setStatus(recA.RemoteID, StatusSucceeded, nil, "")
	gw.setStatus(recB.RemoteID, StatusFailed, &code, "Task failed to start")
	gw.setStatus(recC.RemoteID, StatusRunning, nil, "")

	still := exec.PollActive(ctx, exec.Active())

	if len(still) != 1 || still[0].RemoteID != recC.RemoteID {
		t.Fatalf("Expected only %s still active, got %v", recC.RemoteID, still)
	}
	if rep.successCount(recA.RemoteID) != 1 {
		t.Error("Expected success for job a")
	}
	if _, ok := rep.failures[recB.RemoteID]; !ok {
		t.Error("Expected failure for job b")
	}
	if exec.Registry().Len() != 1 {
		t.Errorf("Expected 1 record left in registry, got %d", exec.Registry().Len())
	}
}

func TestCancelAllDrainsEveryJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	rep := newFakeReporter()
	exec := newTestExecutor(t, gw, rep)

	recA := submitOne(t, exec, "a")
	recB := submitOne(t, exec, "b")
	recC := submitOne(t, exec, "c")

	// One injected failure must not skip the remaining jobs.
	gw.terminateErr[recA.RemoteID] = errors.New("ClientException: cannot terminate")

	exec.CancelAll(ctx, exec.Active())

	terminated := gw.terminatedIDs()
	if len(terminated) != 3 {
		t.Fatalf("Expected 3 terminate attempts, got %d", len(terminated))
	}
	seen := make(map[string]bool)
	for _, id := range terminated {
		seen[id] = true
	}
	for _, rec := range []*Record{recA, recB, recC} {
		if !seen[rec.RemoteID] {
			t.Errorf("Job %s was never terminated", rec.RemoteID)
		}
	}

	if exec.Registry().Len() != 0 {
		t.Errorf("Expected registry drained, got %d", exec.Registry().Len())
	}
	// Cancellation is its own terminal path: no success/failure reports.
	if len(rep.successes) != 0 || len(rep.failures) != 0 {
		t.Error("CancelAll must not emit outcome reports")
	}
}
