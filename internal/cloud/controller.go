package cloud

import "context"

// Controller is the provider control plane for a set of instance ids.
//
// Every call takes a dry-run flag. When dryRun is true and the provider would have
// accepted the request, the call returns an error matching ErrDryRunOK; any other
// error is a rejection and should be a *RejectionError.
type Controller interface {
	StartInstances(ctx context.Context, ids []string, dryRun bool) ([]StateChange, error)
	StopInstances(ctx context.Context, ids []string, dryRun bool) ([]StateChange, error)
	DescribeInstances(ctx context.Context, ids []string, dryRun bool) ([]Description, error)
}

// StateChange is one entry of a start or stop response
type StateChange struct {
	InstanceID string
	Previous   string
	Current    string
}

// Description is one entry of a describe response
type Description struct {
	InstanceID    string
	PublicAddress string // empty when the instance has no public address
	State         string
}

// Request is a provider call with everything but the dry-run flag bound
type Request[T any] func(ctx context.Context, dryRun bool) (T, error)

// StartRequest builds a start request for ids
func StartRequest(c Controller, ids []string) Request[[]StateChange] {
	return func(ctx context.Context, dryRun bool) ([]StateChange, error) {
		return c.StartInstances(ctx, ids, dryRun)
	}
}

// StopRequest builds a stop request for ids
func StopRequest(c Controller, ids []string) Request[[]StateChange] {
	return func(ctx context.Context, dryRun bool) ([]StateChange, error) {
		return c.StopInstances(ctx, ids, dryRun)
	}
}

// DescribeRequest builds a describe request for ids
func DescribeRequest(c Controller, ids []string) Request[[]Description] {
	return func(ctx context.Context, dryRun bool) ([]Description, error) {
		return c.DescribeInstances(ctx, ids, dryRun)
	}
}

// Describe runs a describe query directly; read-only queries skip the dry-run gate
func Describe(ctx context.Context, c Controller, ids []string) ([]Description, error) {
	return DescribeRequest(c, ids)(ctx, false)
}
