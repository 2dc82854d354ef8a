package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// dryRunOperation is the EC2 error code for a dry run that would have succeeded
const dryRunOperation = "DryRunOperation"

// EC2API is the subset of the EC2 client used by EC2Controller
type EC2API interface {
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2Controller implements Controller on top of the AWS EC2 API
type EC2Controller struct {
	client EC2API
}

// NewEC2Controller wraps an existing EC2 client
func NewEC2Controller(client EC2API) *EC2Controller {
	return &EC2Controller{client: client}
}

// NewEC2ControllerFromEnv builds a client from the shared AWS config and environment.
// Empty region or profile leave the SDK defaults in place.
func NewEC2ControllerFromEnv(ctx context.Context, region, profile string) (*EC2Controller, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewEC2Controller(ec2.NewFromConfig(cfg)), nil
}

// StartInstances implements Controller
func (c *EC2Controller) StartInstances(ctx context.Context, ids []string, dryRun bool) ([]StateChange, error) {
	out, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dryRun),
	})
	if err != nil {
		return nil, classify("StartInstances", dryRun, err)
	}
	return stateChanges(out.StartingInstances), nil
}

// StopInstances implements Controller
func (c *EC2Controller) StopInstances(ctx context.Context, ids []string, dryRun bool) ([]StateChange, error) {
	out, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dryRun),
	})
	if err != nil {
		return nil, classify("StopInstances", dryRun, err)
	}
	return stateChanges(out.StoppingInstances), nil
}

// DescribeInstances implements Controller. Every instance of every reservation is reported.
func (c *EC2Controller) DescribeInstances(ctx context.Context, ids []string, dryRun bool) ([]Description, error) {
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: ids,
		DryRun:      aws.Bool(dryRun),
	})
	if err != nil {
		return nil, classify("DescribeInstances", dryRun, err)
	}

	var descriptions []Description
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			d := Description{
				InstanceID:    aws.ToString(inst.InstanceId),
				PublicAddress: aws.ToString(inst.PublicIpAddress),
			}
			if inst.State != nil {
				d.State = string(inst.State.Name)
			}
			descriptions = append(descriptions, d)
		}
	}
	return descriptions, nil
}

func stateChanges(in []ec2types.InstanceStateChange) []StateChange {
	changes := make([]StateChange, 0, len(in))
	for _, sc := range in {
		change := StateChange{InstanceID: aws.ToString(sc.InstanceId)}
		if sc.PreviousState != nil {
			change.Previous = string(sc.PreviousState.Name)
		}
		if sc.CurrentState != nil {
			change.Current = string(sc.CurrentState.Name)
		}
		changes = append(changes, change)
	}
	return changes
}

// classify turns an SDK error into ErrDryRunOK or a *RejectionError
func classify(op string, dryRun bool, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if dryRun && apiErr.ErrorCode() == dryRunOperation {
			return fmt.Errorf("%s: %w", op, ErrDryRunOK)
		}
		return &RejectionError{
			Op:      op,
			DryRun:  dryRun,
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return &RejectionError{Op: op, DryRun: dryRun, Message: err.Error(), Err: err}
}
