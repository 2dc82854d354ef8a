package cloud_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegde-atri/ec2-burrow/internal/cloud"
	"github.com/hegde-atri/ec2-burrow/internal/cloud/cloudtest"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRun_RejectedDryRunNeverCommits(t *testing.T) {
	ctrl := cloudtest.New()
	ctrl.DryRunErr = &cloud.RejectionError{Op: "StartInstances", DryRun: true, Code: "UnauthorizedOperation", Message: "not allowed"}

	_, err := cloud.Run(context.Background(), discardLogger(), "StartInstances", cloud.StartRequest(ctrl, []string{"i-1"}))
	require.Error(t, err)

	var rejection *cloud.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "UnauthorizedOperation", rejection.Code)
	assert.Contains(t, err.Error(), "not allowed")

	calls := ctrl.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].DryRun)
}

func TestRun_ValidatedDryRunCommitsOnce(t *testing.T) {
	ctrl := cloudtest.New()
	ctrl.Changes["i-1"] = cloud.StateChange{Previous: "stopped", Current: "pending"}

	changes, err := cloud.Run(context.Background(), discardLogger(), "StartInstances", cloud.StartRequest(ctrl, []string{"i-1"}))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "pending", changes[0].Current)

	assert.Equal(t, []cloudtest.Call{
		{Op: "StartInstances", IDs: []string{"i-1"}, DryRun: true},
		{Op: "StartInstances", IDs: []string{"i-1"}, DryRun: false},
	}, ctrl.Calls())
}

func TestRun_CommitFailureIsNotRetried(t *testing.T) {
	ctrl := cloudtest.New()
	ctrl.RealErr = &cloud.RejectionError{Op: "StopInstances", Code: "IncorrectInstanceState", Message: "instance is pending"}

	_, err := cloud.Run(context.Background(), discardLogger(), "StopInstances", cloud.StopRequest(ctrl, []string{"i-1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IncorrectInstanceState")
	assert.Len(t, ctrl.CallsTo("StopInstances"), 2)
}

func TestRun_DryRunWithoutSignalIsAnError(t *testing.T) {
	committed := false
	req := func(_ context.Context, dryRun bool) (string, error) {
		if !dryRun {
			committed = true
		}
		return "done", nil
	}

	_, err := cloud.Run(context.Background(), discardLogger(), "Custom", cloud.Request[string](req))
	require.Error(t, err)
	assert.False(t, committed)
}
