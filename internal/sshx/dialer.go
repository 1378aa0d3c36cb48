// Package sshx implements the remote session layer: authenticated SSH
// channels to configured hosts, opened directly or tunneled through a
// relay host, with pooling and reuse across poll cycles.
package sshx

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"hostwatch/internal/config"
	"hostwatch/internal/errors"
)

// Client wraps an SSH connection with the alias and resolved address it
// was opened for.
type Client struct {
	*ssh.Client
	Alias   string
	Address string
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Dialer opens SSH connections using a single uniform credential.
type Dialer struct {
	auth            []ssh.AuthMethod
	hostKeyCallback ssh.HostKeyCallback
	connectTimeout  time.Duration
}

// NewDialer builds a dialer from key material and the configured bounds.
// keyPEM is the unencrypted private key used for every connection; when
// empty, the SSH agent is tried as a fallback.
func NewDialer(keyPEM string, connectTimeout time.Duration, knownHostsFile string) (*Dialer, error) {
	var auth []ssh.AuthMethod

	if keyPEM != "" {
		signer, err := ssh.ParsePrivateKey([]byte(keyPEM))
		if err != nil {
			return nil, errors.WrapWithSuggestion(err, errors.ErrAuth,
				"Couldn't parse the SSH private key",
				"HOSTWATCH_SSH_KEY must hold an unencrypted private key in PEM format")
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else if agentAuth := sshAgentAuth(); agentAuth != nil {
		auth = append(auth, agentAuth)
	}

	if len(auth) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No SSH auth available",
			"Set HOSTWATCH_SSH_KEY or load a key into the agent (ssh-add -l)")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // Verification is opt-in via known_hosts_file
	if knownHostsFile != "" {
		cb, err := knownhosts.New(knownHostsFile)
		if err != nil {
			return nil, errors.WrapWithSuggestion(err, errors.ErrConfig,
				"Failed to load known_hosts file: "+knownHostsFile,
				"Check the path, or remove known_hosts_file to skip verification")
		}
		hostKeyCallback = cb
	}

	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	return &Dialer{
		auth:            auth,
		hostKeyCallback: hostKeyCallback,
		connectTimeout:  connectTimeout,
	}, nil
}

// Dial opens a direct connection to the host.
func (d *Dialer) Dial(ctx context.Context, hc config.HostConfig) (*Client, error) {
	settings := resolveSettings(hc)
	address := settings.address()

	netDialer := net.Dialer{Timeout: d.connectTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrap(err, errors.Classify(err),
			fmt.Sprintf("Can't reach '%s' at %s", hc.Alias, address))
	}

	return d.handshake(conn, hc.Alias, address, settings.user)
}

// DialVia opens a connection to the host tunneled through an already
// established relay connection. The forwarded channel is opened by the
// relay, then a normal SSH handshake runs over it.
func (d *Dialer) DialVia(ctx context.Context, relay *Client, hc config.HostConfig) (*Client, error) {
	settings := resolveSettings(hc)
	address := settings.address()

	// ssh.Client.Dial has no context support, so bound it ourselves.
	outcome := make(chan dialOutcome, 1)
	go func() {
		conn, err := relay.Dial("tcp", address)
		outcome <- dialOutcome{conn: conn, err: err}
	}()

	timer := time.NewTimer(d.connectTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		go discardOutcome(outcome)
		return nil, errors.Wrap(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Opening tunnel to '%s' via '%s' was cancelled", hc.Alias, relay.Alias))
	case <-timer.C:
		go discardOutcome(outcome)
		return nil, errors.New(errors.ErrTimeout,
			fmt.Sprintf("Opening tunnel to '%s' via '%s' timed out", hc.Alias, relay.Alias),
			"The relay may be overloaded or the target unreachable from it")
	case o := <-outcome:
		if o.err != nil {
			return nil, errors.Wrap(o.err, errors.Classify(o.err),
				fmt.Sprintf("Can't reach '%s' at %s via '%s'", hc.Alias, address, relay.Alias))
		}
		return d.handshake(o.conn, hc.Alias, address, settings.user)
	}
}

// handshake runs the SSH handshake over an established transport.
func (d *Dialer) handshake(conn net.Conn, alias, address, user string) (*Client, error) {
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            d.auth,
		HostKeyCallback: d.hostKeyCallback,
		Timeout:         d.connectTimeout,
	}

	// The handshake itself has no timeout parameter; a deadline on the
	// transport bounds it.
	_ = conn.SetDeadline(time.Now().Add(d.connectTimeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.Classify(err),
			fmt.Sprintf("SSH handshake with '%s' didn't go through", alias))
	}

	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Alias:   alias,
		Address: address,
	}, nil
}

// dialOutcome carries the result of a tunneled dial attempt.
type dialOutcome struct {
	conn net.Conn
	err  error
}

// discardOutcome closes a late tunnel connection after the caller gave up.
func discardOutcome(outcome <-chan dialOutcome) {
	if o := <-outcome; o.conn != nil {
		o.conn.Close()
	}
}

// hostSettings holds resolved connection parameters for one host.
type hostSettings struct {
	hostname string
	port     string
	user     string
}

func (s *hostSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings fills connection parameters from the host config, then
// ~/.ssh/config, then defaults.
func resolveSettings(hc config.HostConfig) *hostSettings {
	settings := &hostSettings{
		hostname: hc.Hostname,
		user:     hc.User,
	}
	if hc.Port > 0 {
		settings.port = strconv.Itoa(hc.Port)
	}

	if settings.hostname == "" {
		if hostname := ssh_config.Get(hc.Alias, "HostName"); hostname != "" {
			settings.hostname = hostname
		} else {
			settings.hostname = hc.Alias
		}
	}
	if settings.user == "" {
		if user := ssh_config.Get(hc.Alias, "User"); user != "" {
			settings.user = user
		} else {
			settings.user = currentUser()
		}
	}
	if settings.port == "" {
		if port := ssh_config.Get(hc.Alias, "Port"); port != "" {
			settings.port = port
		} else {
			settings.port = "22"
		}
	}

	return settings
}

// sshAgentAuth returns an auth method backed by the SSH agent, or nil if
// no agent is reachable or it has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}
	agentClient := agent.NewClient(conn)

	// An empty agent causes auth failures when offered first.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}
