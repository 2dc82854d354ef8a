package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Target identifies the machine and credentials for an SSH session
type Target struct {
	User    string
	Address string
	KeyPath string
}

// Login returns user@address
func (t Target) Login() string {
	return t.User + "@" + t.Address
}

// Shell opens interactive sessions and port forwards on a remote machine.
// Both methods block until the session or tunnel ends or ctx is cancelled.
type Shell interface {
	Open(ctx context.Context, target Target) error
	Forward(ctx context.Context, target Target, port int) error
}

// forwardSpec is the -L argument forwarding local port to localhost:port on the remote side
func forwardSpec(port int) string {
	return fmt.Sprintf("%d:%s", port, net.JoinHostPort("localhost", strconv.Itoa(port)))
}
