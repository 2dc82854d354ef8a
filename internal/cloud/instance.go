package cloud

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/hegde-atri/ec2-burrow/internal/types"
)

// Instance is a handle on one named EC2 instance. It caches nothing: every
// method asks the provider again.
type Instance struct {
	Name string
	ID   string

	controller Controller
	logger     *log.Logger
}

// NewInstance binds a name/id pair to a controller
func NewInstance(name, id string, controller Controller, logger *log.Logger) *Instance {
	return &Instance{Name: name, ID: id, controller: controller, logger: logger}
}

// Address returns the public address of the instance.
// It fails with *AddressUnavailableError when no address is assigned.
func (i *Instance) Address(ctx context.Context) (string, error) {
	descriptions, err := Describe(ctx, i.controller, []string{i.ID})
	if err != nil {
		return "", err
	}

	for _, d := range descriptions {
		if d.InstanceID != i.ID {
			continue
		}
		if d.PublicAddress == "" {
			return "", &AddressUnavailableError{Name: i.Name, InstanceID: i.ID, State: d.State}
		}
		return d.PublicAddress, nil
	}
	return "", &AddressUnavailableError{Name: i.Name, InstanceID: i.ID}
}

// Start starts the instance after a successful dry run
func (i *Instance) Start(ctx context.Context) (types.Transition, error) {
	changes, err := Run(ctx, i.logger.With("instance", i.Name), "StartInstances", StartRequest(i.controller, []string{i.ID}))
	if err != nil {
		return types.Transition{}, err
	}
	return i.transition(changes)
}

// Stop stops the instance after a successful dry run
func (i *Instance) Stop(ctx context.Context) (types.Transition, error) {
	changes, err := Run(ctx, i.logger.With("instance", i.Name), "StopInstances", StopRequest(i.controller, []string{i.ID}))
	if err != nil {
		return types.Transition{}, err
	}
	return i.transition(changes)
}

func (i *Instance) transition(changes []StateChange) (types.Transition, error) {
	for _, c := range changes {
		if c.InstanceID == i.ID {
			return types.Transition{Previous: c.Previous, Current: c.Current}, nil
		}
	}
	return types.Transition{}, fmt.Errorf("%s (%s): %w", i.Name, i.ID, ErrNoStateChange)
}
