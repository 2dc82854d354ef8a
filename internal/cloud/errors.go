package cloud

import (
	"errors"
	"fmt"
)

// ErrDryRunOK is the provider's "request would have succeeded" answer to a dry run
var ErrDryRunOK = errors.New("dry run would have succeeded")

// ErrNoStateChange is returned when a start/stop response has no entry for the instance
var ErrNoStateChange = errors.New("no state change reported")

// RejectionError is a request the provider refused, keeping the provider's own code and message
type RejectionError struct {
	Op      string // "StartInstances", "StopInstances", "DescribeInstances"
	DryRun  bool
	Code    string
	Message string
	Err     error
}

func (e *RejectionError) Error() string {
	phase := ""
	if e.DryRun {
		phase = " (dry run)"
	}
	if e.Code == "" {
		return fmt.Sprintf("%s%s rejected: %s", e.Op, phase, e.Message)
	}
	return fmt.Sprintf("%s%s rejected: %s: %s", e.Op, phase, e.Code, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// AddressUnavailableError means the instance has no public address, e.g. it is stopped
type AddressUnavailableError struct {
	Name       string
	InstanceID string
	State      string // empty if the provider did not report the instance at all
}

func (e *AddressUnavailableError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("%s (%s): not reported by provider, no address available", e.Name, e.InstanceID)
	}
	return fmt.Sprintf("%s (%s): no public address while %s", e.Name, e.InstanceID, e.State)
}
