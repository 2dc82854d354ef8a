package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// NativeShell speaks SSH in-process instead of shelling out to the ssh binary
type NativeShell struct {
	KnownHostsPath string
	Port           int // remote sshd port, 22 when zero
	Logger         *log.Logger

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

// NewNativeShell returns a NativeShell wired to the process stdio
func NewNativeShell(knownHostsPath string, logger *log.Logger) *NativeShell {
	return &NativeShell{
		KnownHostsPath: knownHostsPath,
		Logger:         logger,
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	}
}

func (s *NativeShell) clientConfig(target Target) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(target.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", target.KeyPath, err)
	}

	hostKeyCallback, err := knownhosts.New(s.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

func (s *NativeShell) dial(ctx context.Context, target Target) (*ssh.Client, error) {
	cfg, err := s.clientConfig(target)
	if err != nil {
		return nil, err
	}

	port := s.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(target.Address, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// Open starts an interactive login shell, putting the local terminal in raw mode when there is one
func (s *NativeShell) Open(ctx context.Context, target Target) error {
	client, err := s.dial(ctx, target)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	fd := int(s.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)

		width, height, err := term.GetSize(fd)
		if err != nil {
			width, height = 80, 24
		}
		termType := os.Getenv("TERM")
		if termType == "" {
			termType = "xterm-256color"
		}
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty(termType, height, width, modes); err != nil {
			return fmt.Errorf("failed to request pty: %w", err)
		}
	}

	session.Stdin = s.Stdin
	session.Stdout = s.Stdout
	session.Stderr = s.Stderr

	if err := session.Shell(); err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	err = session.Wait()
	if ctx.Err() != nil {
		return nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("remote shell exited with status %d", exitErr.ExitStatus())
	}
	return err
}

// Forward listens on localhost:port and relays each connection to localhost:port
// on the remote machine until ctx is cancelled
func (s *NativeShell) Forward(ctx context.Context, target Target, port int) error {
	client, err := s.dial(ctx, target)
	if err != nil {
		return err
	}
	defer client.Close()

	local := net.JoinHostPort("localhost", strconv.Itoa(port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", local)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", local, err)
	}

	defer listener.Close()
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.Logger.Info("tunnel open", "local", local, "remote", target.Address, "spec", forwardSpec(port))
	return serveForward(ctx, listener, func() (net.Conn, error) {
		return client.Dial("tcp", local)
	}, func() { client.Close() }, s.Logger)
}

// serveForward accepts on listener and pipes every connection to a fresh dial().
// Once accepting stops, in-flight relays are cancelled and closeUpstream is
// called before waiting on them, so a dial stuck on the upstream is released.
func serveForward(ctx context.Context, listener net.Listener, dial func() (net.Conn, error), closeUpstream func(), logger *log.Logger) error {
	relayCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		closeUpstream()
		wg.Wait()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()

			upstream, err := dial()
			if err != nil {
				logger.Warn("remote dial failed", "err", err)
				return
			}
			defer upstream.Close()
			pipe(relayCtx, conn, upstream)
		}()
	}
}

type closeWriter interface {
	CloseWrite() error
}

// pipe copies in both directions. When one side reaches EOF only the write half
// of the other side is shut, so replies after a half-close still get through.
// Both connections are closed once both copies finish or ctx ends.
func pipe(ctx context.Context, a, b net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	relay := func(dst, src net.Conn) {
		defer wg.Done()
		io.Copy(dst, src)
		if cw, ok := dst.(closeWriter); ok {
			cw.CloseWrite()
		} else {
			dst.Close()
		}
	}
	go relay(a, b)
	go relay(b, a)

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}
	a.Close()
	b.Close()
	<-finished
}
