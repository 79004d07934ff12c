package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHRunner executes on a remote worker host. Environment entries from
// Streams.Env are exported in the remote shell before the command; Dir
// becomes a cd prefix.
type SSHRunner struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

func (r SSHRunner) Run(ctx context.Context, name string, args []string, s Streams) (int, error) {
	return r.run(ctx, name, args, s, s.stdout())
}

func (r SSHRunner) Output(ctx context.Context, name string, args []string, s Streams) ([]byte, int, error) {
	var buf bytes.Buffer
	code, err := r.run(ctx, name, args, s, &buf)
	return buf.Bytes(), code, err
}

func (r SSHRunner) run(ctx context.Context, name string, args []string, s Streams, stdout interface{ Write([]byte) (int, error) }) (int, error) {
	client, err := r.dial(ctx)
	if err != nil {
		return -1, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return -1, err
	}
	defer session.Close()

	session.Stdin = s.Stdin
	session.Stdout = stdout
	session.Stderr = s.stderr()

	done := make(chan error, 1)
	go func() { done <- session.Run(remoteCommand(name, args, s)) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		<-done
		return -1, ctx.Err()
	}
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, err
}

// remoteCommand builds the shell line run on the worker: env exports, an
// optional cd, then the escaped command.
func remoteCommand(name string, args []string, s Streams) string {
	var b strings.Builder
	for _, kv := range s.Env {
		b.WriteString("export ")
		b.WriteString(shellEscape(kv))
		b.WriteString("; ")
	}
	if s.Dir != "" {
		b.WriteString("cd ")
		b.WriteString(shellEscape(s.Dir))
		b.WriteString(" && ")
	}
	b.WriteString(shellEscape(name))
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(shellEscape(arg))
	}
	return b.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func (r SSHRunner) dial(ctx context.Context) (*ssh.Client, error) {
	address, err := r.address()
	if err != nil {
		return nil, err
	}

	config, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	d.Timeout = r.Timeout
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (r SSHRunner) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}
	if r.Port != "" {
		return net.JoinHostPort(host, r.Port), nil
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (r SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	if r.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	signer, err := r.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if r.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Timeout,
	}, nil
}

func (r SSHRunner) signer() (ssh.Signer, error) {
	if r.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}

	privateKey, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, err
	}
	if len(r.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, r.Passphrase)
	}
	return ssh.ParsePrivateKey(privateKey)
}

func (r SSHRunner) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}
