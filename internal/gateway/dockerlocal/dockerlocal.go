// Package dockerlocal implements executor.Gateway against the local Docker
// daemon, so workflows can be exercised without an AWS account. Each
// submission becomes one container running the job command; the container ID
// doubles as the remote job identifier.
package dockerlocal

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"batchrun/internal/apperrors"
	"batchrun/internal/config"
	"batchrun/internal/executor"
)

const (
	managedByLabel = "managed-by"
	managedByValue = "batchrun"
)

// Config holds configuration for the local gateway.
type Config struct {
	Image string // Container image jobs run in (stands in for the job definition)
	Shell string // Shell used to wrap commands
}

// LoadConfigFromEnv loads local gateway configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Image: config.GetEnv("BATCHRUN_LOCAL_IMAGE", "ubuntu:24.04"),
		Shell: config.GetEnv("BATCHRUN_LOCAL_SHELL", "/bin/sh"),
	}
}

// Gateway runs jobs as containers on the host Docker daemon.
type Gateway struct {
	client *client.Client
	cfg    Config
}

// New creates a Gateway connected to the local Docker daemon.
func New(cfg Config) (*Gateway, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, apperrors.Internal("dockerlocal.newClient", err)
	}
	return &Gateway{client: dockerClient, cfg: cfg}, nil
}

// SubmitJob creates and starts one job container. The container ID is the
// remote job identifier for all subsequent describe/terminate calls.
func (g *Gateway) SubmitJob(ctx context.Context, in executor.SubmitInput) (string, error) {
	if err := g.pullImageIfNeeded(ctx, g.cfg.Image); err != nil {
		return "", apperrors.Transport("docker.pullImage", err)
	}

	env := make([]string, 0, len(in.Env))
	for _, ev := range in.Env {
		env = append(env, fmt.Sprintf("%s=%s", ev.Name, ev.Value))
	}

	containerConfig := &container.Config{
		Image: g.cfg.Image,
		Cmd:   []string{g.cfg.Shell, "-c", in.Command},
		Env:   env,
		Labels: map[string]string{
			managedByLabel: managedByValue,
			"job.name":     in.Name,
			"job.queue":    in.Queue,
		},
	}

	resp, err := g.client.ContainerCreate(ctx, containerConfig, &container.HostConfig{}, nil, nil, in.Name)
	if err != nil {
		return "", apperrors.Transport("docker.createContainer", err)
	}

	if err := g.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Never leave a half-submitted container behind.
		_ = g.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", apperrors.Transport("docker.startContainer", err)
	}

	return resp.ID, nil
}

// DescribeJobs inspects each container and maps its state onto the batch
// status vocabulary. Removed or unknown containers are absent from the
// result, mirroring how the remote service drops unknown IDs.
func (g *Gateway) DescribeJobs(ctx context.Context, ids []string) (map[string]executor.JobDetail, error) {
	result := make(map[string]executor.JobDetail, len(ids))

	for _, id := range ids {
		inspect, err := g.client.ContainerInspect(ctx, id)
		if err != nil {
			if client.IsErrNotFound(err) {
				continue
			}
			return nil, apperrors.Transport("docker.inspectContainer", err)
		}
		if inspect.State == nil {
			continue
		}
		result[id] = mapContainerState(id, inspect.State)
	}

	return result, nil
}

// mapContainerState translates one container state into a JobDetail.
func mapContainerState(id string, state *container.State) executor.JobDetail {
	detail := executor.JobDetail{ID: id}

	switch {
	case state.Running || state.Restarting:
		detail.Status = executor.StatusRunning

	case state.Status == "created":
		detail.Status = executor.StatusStarting

	default:
		exitCode := state.ExitCode
		detail.ExitCode = &exitCode
		if exitCode == 0 {
			detail.Status = executor.StatusSucceeded
		} else {
			detail.Status = executor.StatusFailed
			detail.StatusReason = state.Error
		}
	}

	return detail
}

// TerminateJob force-removes the job container. Removing an already-gone
// container is a no-op, matching the remote API's idempotence.
func (g *Gateway) TerminateJob(ctx context.Context, id, _ string) error {
	err := g.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return apperrors.Transport("docker.removeContainer", err)
	}
	return nil
}

// Ready checks if the Docker daemon is reachable and responsive.
func (g *Gateway) Ready(ctx context.Context) error {
	if _, err := g.client.Ping(ctx); err != nil {
		return apperrors.Transport("docker.ping", err)
	}
	return nil
}

// Close releases the client connection. Running containers are unaffected.
func (g *Gateway) Close() error {
	return g.client.Close()
}

func (g *Gateway) pullImageIfNeeded(ctx context.Context, imageName string) error {
	_, err := g.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	reader, err := g.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}
