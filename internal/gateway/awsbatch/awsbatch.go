// Package awsbatch implements executor.Gateway over the AWS Batch API.
// Jobs run against pre-provisioned job queues and job definitions; the
// gateway is a typed pass-through with no retries and no status
// interpretation.
package awsbatch

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/aws/aws-sdk-go-v2/service/batch/types"

	"batchrun/internal/apperrors"
	"batchrun/internal/config"
	"batchrun/internal/executor"
)

// shell wraps every submitted command, matching the container images the job
// definitions are built from.
const shell = "/bin/bash"

// describeBatchSize is the AWS DescribeJobs limit per call.
const describeBatchSize = 100

// batchAPI is the slice of the AWS Batch client the gateway uses.
type batchAPI interface {
	SubmitJob(ctx context.Context, params *batch.SubmitJobInput, optFns ...func(*batch.Options)) (*batch.SubmitJobOutput, error)
	DescribeJobs(ctx context.Context, params *batch.DescribeJobsInput, optFns ...func(*batch.Options)) (*batch.DescribeJobsOutput, error)
	TerminateJob(ctx context.Context, params *batch.TerminateJobInput, optFns ...func(*batch.Options)) (*batch.TerminateJobOutput, error)
	DescribeJobQueues(ctx context.Context, params *batch.DescribeJobQueuesInput, optFns ...func(*batch.Options)) (*batch.DescribeJobQueuesOutput, error)
}

// Gateway talks to AWS Batch.
type Gateway struct {
	client batchAPI
	queue  string // readiness probes describe this queue
}

// New creates a Gateway using the default AWS credential chain.
func New(ctx context.Context, cfg *config.ExecutorConfig) (*Gateway, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.Internal("awsbatch.loadConfig", err)
	}

	var clientOpts []func(*batch.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *batch.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Gateway{
		client: batch.NewFromConfig(awsCfg, clientOpts...),
		queue:  cfg.JobQueue,
	}, nil
}

// SubmitJob submits one job and returns the remote job ID assigned by Batch.
func (g *Gateway) SubmitJob(ctx context.Context, in executor.SubmitInput) (string, error) {
	env := make([]types.KeyValuePair, 0, len(in.Env))
	for _, ev := range in.Env {
		env = append(env, types.KeyValuePair{
			Name:  aws.String(ev.Name),
			Value: aws.String(ev.Value),
		})
	}

	out, err := g.client.SubmitJob(ctx, &batch.SubmitJobInput{
		JobName:       aws.String(in.Name),
		JobQueue:      aws.String(in.Queue),
		JobDefinition: aws.String(in.Definition),
		ContainerOverrides: &types.ContainerOverrides{
			Command:     []string{shell, "-c", in.Command},
			Environment: env,
		},
	})
	if err != nil {
		return "", apperrors.Transport("batch.submitJob", err)
	}

	return aws.ToString(out.JobId), nil
}

// DescribeJobs returns details for the given IDs, keyed by ID. Jobs the
// service does not report are simply absent from the result; that absence is
// the caller's signal, not an error. Requests are chunked to the API limit.
func (g *Gateway) DescribeJobs(ctx context.Context, ids []string) (map[string]executor.JobDetail, error) {
	result := make(map[string]executor.JobDetail, len(ids))

	for chunk := range slices.Chunk(ids, describeBatchSize) {
		out, err := g.client.DescribeJobs(ctx, &batch.DescribeJobsInput{Jobs: chunk})
		if err != nil {
			return nil, apperrors.Transport("batch.describeJobs", err)
		}

		for _, j := range out.Jobs {
			detail := executor.JobDetail{
				ID:           aws.ToString(j.JobId),
				Status:       string(j.Status),
				StatusReason: aws.ToString(j.StatusReason),
			}
			if j.Container != nil && j.Container.ExitCode != nil {
				code := int(*j.Container.ExitCode)
				detail.ExitCode = &code
			}
			result[detail.ID] = detail
		}
	}

	return result, nil
}

// TerminateJob requests termination of a job. Batch treats terminating an
// already-finished job as a no-op, which the reconciler relies on.
func (g *Gateway) TerminateJob(ctx context.Context, id, reason string) error {
	_, err := g.client.TerminateJob(ctx, &batch.TerminateJobInput{
		JobId:  aws.String(id),
		Reason: aws.String(reason),
	})
	if err != nil {
		return apperrors.Transport("batch.terminateJob", err)
	}
	return nil
}

// Ready verifies the Batch API is reachable by describing the configured queue.
func (g *Gateway) Ready(ctx context.Context) error {
	in := &batch.DescribeJobQueuesInput{}
	if g.queue != "" {
		in.JobQueues = []string{g.queue}
	}
	if _, err := g.client.DescribeJobQueues(ctx, in); err != nil {
		return apperrors.Transport("batch.describeJobQueues", err)
	}
	return nil
}

// Close releases resources. The AWS client holds none beyond its HTTP pool.
func (g *Gateway) Close() error {
	return nil
}
