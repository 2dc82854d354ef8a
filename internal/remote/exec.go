package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ExecShell runs the local ssh client with the terminal attached
type ExecShell struct {
	Binary string // defaults to "ssh"
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecShell returns an ExecShell wired to the process stdio
func NewExecShell() *ExecShell {
	return &ExecShell{
		Binary: "ssh",
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Open starts an interactive login shell
func (s *ExecShell) Open(ctx context.Context, target Target) error {
	return s.run(ctx, sessionArgs(target))
}

// Forward holds a local port forward open until ssh exits
func (s *ExecShell) Forward(ctx context.Context, target Target, port int) error {
	return s.run(ctx, forwardArgs(target, port))
}

func (s *ExecShell) run(ctx context.Context, args []string) error {
	binary := s.Binary
	if binary == "" {
		binary = "ssh"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	if err := cmd.Run(); err != nil {
		// Interrupting the session is how the user ends a tunnel
		if ctx.Err() != nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", binary, exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run %s: %w", binary, err)
	}
	return nil
}

func sessionArgs(t Target) []string {
	return []string{"-i", t.KeyPath, t.Login()}
}

func forwardArgs(t Target, port int) []string {
	return []string{"-i", t.KeyPath, "-N", "-L", forwardSpec(port), t.Login()}
}
