package registry

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/hegde-atri/ec2-burrow/internal/cloud"
	"github.com/hegde-atri/ec2-burrow/internal/config"
	"github.com/hegde-atri/ec2-burrow/internal/remote"
)

// Open loads the config at path and wires the EC2 controller and the
// configured SSH backend behind a Registry
func Open(ctx context.Context, path string, logger *log.Logger) (*Registry, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", path, "instances", len(cfg.Instances), "ssh_backend", cfg.SSHBackend)

	controller, err := cloud.NewEC2ControllerFromEnv(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return nil, err
	}

	return New(cfg, controller, NewShell(cfg, logger), logger), nil
}

// NewShell picks the SSH backend named by the config
func NewShell(cfg *config.Config, logger *log.Logger) remote.Shell {
	if cfg.SSHBackend == config.BackendNative {
		return remote.NewNativeShell(cfg.KnownHosts, logger)
	}
	return remote.NewExecShell()
}
