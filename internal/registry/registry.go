package registry

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/hegde-atri/ec2-burrow/internal/cloud"
	"github.com/hegde-atri/ec2-burrow/internal/config"
	"github.com/hegde-atri/ec2-burrow/internal/remote"
	"github.com/hegde-atri/ec2-burrow/internal/types"
)

// UnknownInstanceError is returned for a name that is not in the config
type UnknownInstanceError struct {
	Name  string
	Known []string
}

func (e *UnknownInstanceError) Error() string {
	return fmt.Sprintf("unknown instance %q (configured: %v)", e.Name, e.Known)
}

// Registry gives access to the configured instances by name. Only names
// from the config can be resolved, so no other instance id is ever used.
type Registry struct {
	cfg        *config.Config
	controller cloud.Controller
	shell      remote.Shell
	logger     *log.Logger
}

// New composes a registry from a loaded config and its collaborators
func New(cfg *config.Config, controller cloud.Controller, shell remote.Shell, logger *log.Logger) *Registry {
	return &Registry{
		cfg:        cfg,
		controller: controller,
		shell:      shell,
		logger:     logger,
	}
}

// Names returns the configured names in declaration order
func (r *Registry) Names() []string {
	return r.cfg.Names()
}

// IDs returns the configured instance ids, aligned with Names
func (r *Registry) IDs() []string {
	return r.cfg.IDs()
}

// Contains reports whether name is configured
func (r *Registry) Contains(name string) bool {
	return r.cfg.Contains(name)
}

// DefaultPort is the tunnel port used when none is given
func (r *Registry) DefaultPort() int {
	return r.cfg.DefaultPort
}

// Resolve returns the handle for a configured name
func (r *Registry) Resolve(name string) (*cloud.Instance, error) {
	id, ok := r.cfg.Lookup(name)
	if !ok {
		return nil, &UnknownInstanceError{Name: name, Known: r.cfg.Names()}
	}
	return cloud.NewInstance(name, id, r.controller, r.logger), nil
}

// States describes every configured instance in a single provider call.
// Instances the provider does not report are left out of the result.
func (r *Registry) States(ctx context.Context) ([]types.InstanceStatus, error) {
	descriptions, err := cloud.Describe(ctx, r.controller, r.cfg.IDs())
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(descriptions, func(d cloud.Description) string {
		return d.InstanceID
	})

	statuses := lo.FilterMap(r.cfg.Instances, func(inst config.Instance, _ int) (types.InstanceStatus, bool) {
		d, ok := byID[inst.ID]
		if !ok {
			r.logger.Debug("instance not reported by provider", "instance", inst.Name, "id", inst.ID)
			return types.InstanceStatus{}, false
		}
		return types.InstanceStatus{Name: inst.Name, InstanceID: inst.ID, State: d.State}, true
	})
	return statuses, nil
}

// Start starts the named instance
func (r *Registry) Start(ctx context.Context, name string) (types.Transition, error) {
	inst, err := r.Resolve(name)
	if err != nil {
		return types.Transition{}, err
	}
	return inst.Start(ctx)
}

// Stop stops the named instance
func (r *Registry) Stop(ctx context.Context, name string) (types.Transition, error) {
	inst, err := r.Resolve(name)
	if err != nil {
		return types.Transition{}, err
	}
	return inst.Stop(ctx)
}

// Address returns the public address of the named instance
func (r *Registry) Address(ctx context.Context, name string) (string, error) {
	inst, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	return inst.Address(ctx)
}

// Shell opens an interactive session on the named instance and blocks until it ends
func (r *Registry) Shell(ctx context.Context, name string) error {
	t, err := r.target(ctx, name)
	if err != nil {
		return err
	}
	r.logger.Debug("opening shell", "instance", name, "login", t.Login())
	return r.shell.Open(ctx, t)
}

// Tunnel forwards local port to localhost:port on the named instance and blocks until it ends
func (r *Registry) Tunnel(ctx context.Context, name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	t, err := r.target(ctx, name)
	if err != nil {
		return err
	}
	r.logger.Info("opening tunnel", "instance", name, "port", port, "login", t.Login())
	return r.shell.Forward(ctx, t, port)
}

func (r *Registry) target(ctx context.Context, name string) (remote.Target, error) {
	addr, err := r.Address(ctx, name)
	if err != nil {
		return remote.Target{}, err
	}
	return remote.Target{User: r.cfg.Username, Address: addr, KeyPath: r.cfg.Ident}, nil
}
