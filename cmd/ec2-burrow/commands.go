package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hegde-atri/ec2-burrow/internal/config"
	"github.com/hegde-atri/ec2-burrow/internal/logging"
	"github.com/hegde-atri/ec2-burrow/internal/registry"
	"github.com/hegde-atri/ec2-burrow/internal/tui"
	"github.com/hegde-atri/ec2-burrow/internal/types"
)

// cli holds the global flags and the registry opened for the running command
type cli struct {
	configPath string
	verbose    bool

	logger   *log.Logger
	registry *registry.Registry
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "ec2-burrow",
		Short: "Start, stop and connect to your named EC2 instances",
		Long: `ec2-burrow manages a small set of EC2 instances by name.

Instances are declared in a YAML file (default: ./aws-instance.yaml, then
~/.config/aws-instance.yaml):

  ident: ~/.ssh/aws.pem
  username: ubuntu
  default_port: 9999
  instances:
    web: i-0123456789abcdef0
    db: i-0fedcba9876543210

Start and stop requests are validated with an EC2 dry run before they are sent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logger = logging.New(c.verbose)
			if cmd.Annotations["registry"] != "true" {
				return nil
			}
			path := c.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			reg, err := registry.Open(cmd.Context(), path, c.logger)
			if err != nil {
				return err
			}
			c.registry = reg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		c.listCmd(),
		c.startCmd(),
		c.stopCmd(),
		c.sshCmd(),
		c.tunnelCmd(),
		c.uiCmd(),
		versionCmd(),
	)
	return root
}

// needsRegistry marks a command that loads the config and talks to EC2
func needsRegistry(cmd *cobra.Command) *cobra.Command {
	cmd.Annotations = map[string]string{"registry": "true"}
	return cmd
}

// completeNames offers configured instance names without contacting EC2
func (c *cli) completeNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return cfg.Names(), cobra.ShellCompDirectiveNoFileComp
}

// nameArg checks the single positional argument against the configured names
func (c *cli) nameArg(args []string) (string, error) {
	name := args[0]
	if !c.registry.Contains(name) {
		return "", &registry.UnknownInstanceError{Name: name, Known: c.registry.Names()}
	}
	return name, nil
}

func (c *cli) listCmd() *cobra.Command {
	return needsRegistry(&cobra.Command{
		Use:   "list",
		Short: "List instance states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			states, err := c.registry.States(cmd.Context())
			if err != nil {
				return err
			}
			printStates(cmd.OutOrStdout(), states)
			return nil
		},
	})
}

func (c *cli) startCmd() *cobra.Command {
	return needsRegistry(&cobra.Command{
		Use:               "start <name>",
		Short:             "Start an instance",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.nameArg(args)
			if err != nil {
				return err
			}
			tr, err := c.registry.Start(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, tr)
			return nil
		},
	})
}

func (c *cli) stopCmd() *cobra.Command {
	return needsRegistry(&cobra.Command{
		Use:               "stop <name>",
		Short:             "Stop an instance",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.nameArg(args)
			if err != nil {
				return err
			}
			tr, err := c.registry.Stop(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, tr)
			return nil
		},
	})
}

func (c *cli) sshCmd() *cobra.Command {
	return needsRegistry(&cobra.Command{
		Use:               "ssh <name>",
		Short:             "Log into an instance",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.nameArg(args)
			if err != nil {
				return err
			}
			return c.registry.Shell(cmd.Context(), name)
		},
	})
}

func (c *cli) tunnelCmd() *cobra.Command {
	var port int

	cmd := needsRegistry(&cobra.Command{
		Use:               "tunnel <name>",
		Short:             "Open a tunnel to an instance",
		Long:              "Forward a local port to the same port on the instance's localhost until interrupted.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.nameArg(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = c.registry.DefaultPort()
			}
			return c.registry.Tunnel(cmd.Context(), name, port)
		},
	})
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "port number (defaults to default_port from the config)")
	return cmd
}

func (c *cli) uiCmd() *cobra.Command {
	return needsRegistry(&cobra.Command{
		Use:   "ui",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tui.New(cmd.Context(), version, c.registry).Run()
		},
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ec2-burrow v%s\n", version)
		},
	}
}

var (
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	stoppedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	changingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9900"))
)

// printStates writes "name: <pad>state" lines aligned on the longest name
func printStates(w io.Writer, states []types.InstanceStatus) {
	if len(states) == 0 {
		return
	}
	width := lo.Max(lo.Map(states, func(s types.InstanceStatus, _ int) int {
		return len(s.Name)
	}))

	for _, s := range states {
		pad := strings.Repeat(" ", width-len(s.Name))
		fmt.Fprintf(w, "%s: %s%s\n", s.Name, pad, stateStyle(s.State).Render(s.State))
	}
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return runningStyle
	case "stopped", "terminated":
		return stoppedStyle
	default:
		return changingStyle
	}
}
