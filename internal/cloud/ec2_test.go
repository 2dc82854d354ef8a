package cloud_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegde-atri/ec2-burrow/internal/cloud"
)

// fakeEC2 answers dry runs with DryRunOperation unless dryRunErr is set
type fakeEC2 struct {
	dryRunErr error
	starting  []ec2types.InstanceStateChange
	stopping  []ec2types.InstanceStateChange
	described []ec2types.Reservation
	inputs    []any
}

func (f *fakeEC2) dryRun(flag *bool) error {
	if !aws.ToBool(flag) {
		return nil
	}
	if f.dryRunErr != nil {
		return f.dryRunErr
	}
	return &smithy.GenericAPIError{Code: "DryRunOperation", Message: "Request would have succeeded, but DryRun flag is set."}
}

func (f *fakeEC2) StartInstances(_ context.Context, in *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if err := f.dryRun(in.DryRun); err != nil {
		return nil, err
	}
	return &ec2.StartInstancesOutput{StartingInstances: f.starting}, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, in *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if err := f.dryRun(in.DryRun); err != nil {
		return nil, err
	}
	return &ec2.StopInstancesOutput{StoppingInstances: f.stopping}, nil
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if err := f.dryRun(in.DryRun); err != nil {
		return nil, err
	}
	return &ec2.DescribeInstancesOutput{Reservations: f.described}, nil
}

func stateChange(id string, prev, curr ec2types.InstanceStateName) ec2types.InstanceStateChange {
	return ec2types.InstanceStateChange{
		InstanceId:    aws.String(id),
		PreviousState: &ec2types.InstanceState{Name: prev},
		CurrentState:  &ec2types.InstanceState{Name: curr},
	}
}

func TestEC2Controller_DryRunOperationMapsToSignal(t *testing.T) {
	ctrl := cloud.NewEC2Controller(&fakeEC2{})

	_, err := ctrl.StartInstances(context.Background(), []string{"i-1"}, true)
	assert.True(t, errors.Is(err, cloud.ErrDryRunOK))
}

func TestEC2Controller_RejectionKeepsProviderMessage(t *testing.T) {
	fake := &fakeEC2{dryRunErr: &smithy.GenericAPIError{
		Code:    "UnauthorizedOperation",
		Message: "You are not authorized to perform this operation.",
	}}
	ctrl := cloud.NewEC2Controller(fake)

	_, err := ctrl.StopInstances(context.Background(), []string{"i-1"}, true)
	require.Error(t, err)
	assert.False(t, errors.Is(err, cloud.ErrDryRunOK))

	var rejection *cloud.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "StopInstances", rejection.Op)
	assert.True(t, rejection.DryRun)
	assert.Equal(t, "UnauthorizedOperation", rejection.Code)
	assert.Equal(t, "You are not authorized to perform this operation.", rejection.Message)
}

func TestEC2Controller_NonAPIErrorIsRejection(t *testing.T) {
	fake := &fakeEC2{dryRunErr: errors.New("dial tcp: no route to host")}
	_, err := cloud.NewEC2Controller(fake).DescribeInstances(context.Background(), []string{"i-1"}, true)

	var rejection *cloud.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Empty(t, rejection.Code)
	assert.Contains(t, err.Error(), "no route to host")
}

func TestEC2Controller_StartStopParseStateNames(t *testing.T) {
	fake := &fakeEC2{
		starting: []ec2types.InstanceStateChange{stateChange("i-1", ec2types.InstanceStateNameStopped, ec2types.InstanceStateNamePending)},
		stopping: []ec2types.InstanceStateChange{stateChange("i-1", ec2types.InstanceStateNameRunning, ec2types.InstanceStateNameStopping)},
	}
	ctrl := cloud.NewEC2Controller(fake)

	started, err := ctrl.StartInstances(context.Background(), []string{"i-1"}, false)
	require.NoError(t, err)
	assert.Equal(t, []cloud.StateChange{{InstanceID: "i-1", Previous: "stopped", Current: "pending"}}, started)

	stopped, err := ctrl.StopInstances(context.Background(), []string{"i-1"}, false)
	require.NoError(t, err)
	assert.Equal(t, []cloud.StateChange{{InstanceID: "i-1", Previous: "running", Current: "stopping"}}, stopped)

	require.Len(t, fake.inputs, 2)
	in := fake.inputs[0].(*ec2.StartInstancesInput)
	assert.Equal(t, []string{"i-1"}, in.InstanceIds)
	assert.False(t, aws.ToBool(in.DryRun))
}

func TestEC2Controller_DescribeFlattensReservations(t *testing.T) {
	fake := &fakeEC2{described: []ec2types.Reservation{
		{Instances: []ec2types.Instance{
			{InstanceId: aws.String("i-1"), PublicIpAddress: aws.String("198.51.100.4"), State: &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning}},
			{InstanceId: aws.String("i-2"), State: &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped}},
		}},
		{Instances: []ec2types.Instance{
			{InstanceId: aws.String("i-3")},
		}},
	}}

	got, err := cloud.NewEC2Controller(fake).DescribeInstances(context.Background(), []string{"i-1", "i-2", "i-3"}, false)
	require.NoError(t, err)
	assert.Equal(t, []cloud.Description{
		{InstanceID: "i-1", PublicAddress: "198.51.100.4", State: "running"},
		{InstanceID: "i-2", State: "stopped"},
		{InstanceID: "i-3"},
	}, got)
}

func TestEC2Controller_WithDispatch(t *testing.T) {
	fake := &fakeEC2{starting: []ec2types.InstanceStateChange{stateChange("i-1", ec2types.InstanceStateNameStopped, ec2types.InstanceStateNamePending)}}
	inst := cloud.NewInstance("web", "i-1", cloud.NewEC2Controller(fake), discardLogger())

	tr, err := inst.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stopped", tr.Previous)
	assert.Equal(t, "pending", tr.Current)

	require.Len(t, fake.inputs, 2)
	assert.True(t, aws.ToBool(fake.inputs[0].(*ec2.StartInstancesInput).DryRun))
	assert.False(t, aws.ToBool(fake.inputs[1].(*ec2.StartInstancesInput).DryRun))
}
