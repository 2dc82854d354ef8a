// Package cloudtest provides an in-memory cloud.Controller that records every call.
package cloudtest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hegde-atri/ec2-burrow/internal/cloud"
)

// Call is one recorded controller invocation
type Call struct {
	Op     string
	IDs    []string
	DryRun bool
}

// Controller answers from canned data. Dry runs succeed with cloud.ErrDryRunOK
// unless DryRunErr is set; RealErr fails every committing call.
type Controller struct {
	// Changes maps an instance id to the (previous, current) pair returned by start/stop
	Changes map[string]cloud.StateChange
	// Descriptions maps an instance id to its describe entry; ids not present are omitted
	Descriptions map[string]cloud.Description

	DryRunErr error
	RealErr   error

	mu    sync.Mutex
	calls []Call
}

// New returns an empty controller
func New() *Controller {
	return &Controller{
		Changes:      make(map[string]cloud.StateChange),
		Descriptions: make(map[string]cloud.Description),
	}
}

// Calls returns a copy of the recorded calls
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallsTo returns the recorded calls for one operation
func (c *Controller) CallsTo(op string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *Controller) record(op string, ids []string, dryRun bool) error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Op: op, IDs: slices.Clone(ids), DryRun: dryRun})
	c.mu.Unlock()

	if dryRun {
		if c.DryRunErr != nil {
			return c.DryRunErr
		}
		return fmt.Errorf("%s: %w", op, cloud.ErrDryRunOK)
	}
	return c.RealErr
}

func (c *Controller) changes(op string, ids []string, dryRun bool) ([]cloud.StateChange, error) {
	if err := c.record(op, ids, dryRun); err != nil {
		return nil, err
	}
	var out []cloud.StateChange
	for _, id := range ids {
		if sc, ok := c.Changes[id]; ok {
			sc.InstanceID = id
			out = append(out, sc)
		}
	}
	return out, nil
}

// StartInstances implements cloud.Controller
func (c *Controller) StartInstances(_ context.Context, ids []string, dryRun bool) ([]cloud.StateChange, error) {
	return c.changes("StartInstances", ids, dryRun)
}

// StopInstances implements cloud.Controller
func (c *Controller) StopInstances(_ context.Context, ids []string, dryRun bool) ([]cloud.StateChange, error) {
	return c.changes("StopInstances", ids, dryRun)
}

// DescribeInstances implements cloud.Controller
func (c *Controller) DescribeInstances(_ context.Context, ids []string, dryRun bool) ([]cloud.Description, error) {
	if err := c.record("DescribeInstances", ids, dryRun); err != nil {
		return nil, err
	}
	var out []cloud.Description
	for _, id := range ids {
		if d, ok := c.Descriptions[id]; ok {
			d.InstanceID = id
			out = append(out, d)
		}
	}
	return out, nil
}
