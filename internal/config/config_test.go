package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"batchrun/internal/apperrors"
)

func TestLoadExecutorConfigDefaults(t *testing.T) {
	cfg := LoadExecutorConfig()

	if cfg.NamePrefix != "batchjob" {
		t.Errorf("Expected default name prefix 'batchjob', got %q", cfg.NamePrefix)
	}
	if cfg.PollRate != 2 {
		t.Errorf("Expected default poll rate 2, got %v", cfg.PollRate)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("Expected default poll interval 5s, got %v", cfg.PollInterval)
	}
	if cfg.Coordinator {
		t.Error("Expected coordinator mode off by default")
	}
	if cfg.CoordinatorContext {
		t.Error("Expected coordinator context off by default")
	}
}

func TestLoadExecutorConfigFromEnv(t *testing.T) {
	os.Setenv("BATCHRUN_REGION", "us-west-2")
	os.Setenv("BATCHRUN_JOB_QUEUE", "main-queue")
	os.Setenv("BATCHRUN_JOB_DEFINITION", "workflow-jobdef")
	os.Setenv(CoordinatorContextEnv, "1")
	defer func() {
		os.Unsetenv("BATCHRUN_REGION")
		os.Unsetenv("BATCHRUN_JOB_QUEUE")
		os.Unsetenv("BATCHRUN_JOB_DEFINITION")
		os.Unsetenv(CoordinatorContextEnv)
	}()

	cfg := LoadExecutorConfig()

	if cfg.Region != "us-west-2" {
		t.Errorf("Expected region 'us-west-2', got %q", cfg.Region)
	}
	if cfg.JobQueue != "main-queue" {
		t.Errorf("Expected queue 'main-queue', got %q", cfg.JobQueue)
	}
	if cfg.JobDefinition != "workflow-jobdef" {
		t.Errorf("Expected job definition 'workflow-jobdef', got %q", cfg.JobDefinition)
	}
	if !cfg.CoordinatorContext {
		t.Error("Expected coordinator context to be detected")
	}
}

func TestExecutorConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ExecutorConfig
		wantErr bool
	}{
		{
			name:    "valid",
			cfg:     ExecutorConfig{JobQueue: "q", JobDefinition: "d", PollRate: 2},
			wantErr: false,
		},
		{
			name:    "missing queue",
			cfg:     ExecutorConfig{JobDefinition: "d", PollRate: 2},
			wantErr: true,
		},
		{
			name:    "missing job definition",
			cfg:     ExecutorConfig{JobQueue: "q", PollRate: 2},
			wantErr: true,
		},
		{
			name:    "zero poll rate",
			cfg:     ExecutorConfig{JobQueue: "q", JobDefinition: "d"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, apperrors.ErrValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

func TestCoordinatorFallbacks(t *testing.T) {
	cfg := ExecutorConfig{JobQueue: "main-queue", JobDefinition: "main-def"}

	if got := cfg.EffectiveCoordinatorQueue(); got != "main-queue" {
		t.Errorf("Expected fallback to main queue, got %q", got)
	}
	if got := cfg.EffectiveCoordinatorJobDefinition(); got != "main-def" {
		t.Errorf("Expected fallback to main job definition, got %q", got)
	}

	cfg.CoordinatorQueue = "coord-queue"
	cfg.CoordinatorJobDefinition = "coord-def"

	if got := cfg.EffectiveCoordinatorQueue(); got != "coord-queue" {
		t.Errorf("Expected coordinator queue, got %q", got)
	}
	if got := cfg.EffectiveCoordinatorJobDefinition(); got != "coord-def" {
		t.Errorf("Expected coordinator job definition, got %q", got)
	}
}
