package sshx

import (
	"context"
	"sync"
	"time"

	"hostwatch/internal/config"
	"hostwatch/internal/errors"
	"hostwatch/internal/logger"
)

// Pool manages SSH connections for reuse between poll cycles. It keeps
// connections alive to avoid reconnecting (and re-tunneling through the
// relay) on every cycle, and replaces stale connections transparently so
// a dead pooled session never masquerades as an unreachable host.
type Pool struct {
	dialer *Dialer
	hosts  map[string]config.HostConfig
	log    logger.Logger

	mu    sync.Mutex
	conns map[string]*poolEntry
	locks map[string]*sync.Mutex // per-alias dial locks
}

// poolEntry holds a connection and its metadata.
type poolEntry struct {
	client   *Client
	lastUsed time.Time
}

// NewPool creates a connection pool over the given hosts.
func NewPool(dialer *Dialer, hosts []config.HostConfig, log logger.Logger) *Pool {
	byAlias := make(map[string]config.HostConfig, len(hosts))
	locks := make(map[string]*sync.Mutex, len(hosts))
	for _, h := range hosts {
		byAlias[h.Alias] = h
		locks[h.Alias] = &sync.Mutex{}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Pool{
		dialer: dialer,
		hosts:  byAlias,
		log:    log,
		conns:  make(map[string]*poolEntry),
		locks:  locks,
	}
}

// Get returns a healthy connection for the alias, reusing a pooled one
// when possible. A pooled connection that fails its health check is
// discarded and replaced with a fresh dial. Relayed hosts acquire the
// relay's connection through the pool first, so the relay is shared.
func (p *Pool) Get(ctx context.Context, alias string) (*Client, error) {
	hc, ok := p.hosts[alias]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			"Unknown host alias: "+alias,
			"The alias has to appear under 'hosts' in the config")
	}

	// Serialize dials per alias. Relay acquisition below takes the relay's
	// lock; the config validator guarantees relays are direct, so this
	// cannot loop back to the current alias.
	lock := p.aliasLock(alias)
	lock.Lock()
	defer lock.Unlock()

	if client := p.pooled(alias); client != nil {
		if p.isAlive(client) {
			p.touch(alias)
			return client, nil
		}
		p.log.Debug("pooled connection to %s went stale, redialing", alias)
		p.drop(alias)
	}

	var client *Client
	var err error
	if hc.RelayAlias != "" {
		var relay *Client
		relay, err = p.Get(ctx, hc.RelayAlias)
		if err != nil {
			return nil, err
		}
		client, err = p.dialer.DialVia(ctx, relay, hc)
	} else {
		client, err = p.dialer.Dial(ctx, hc)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conns[alias] = &poolEntry{client: client, lastUsed: time.Now()}
	p.mu.Unlock()

	return client, nil
}

// Invalidate drops a pooled connection after a transport-level failure so
// the next cycle dials fresh instead of reusing a broken channel.
func (p *Pool) Invalidate(alias string) {
	p.drop(alias)
}

// Close closes all pooled connections and clears the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for alias, entry := range p.conns {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.conns, alias)
	}
}

// Size returns the number of pooled connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Pool) aliasLock(alias string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[alias]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[alias] = lock
	}
	return lock
}

func (p *Pool) pooled(alias string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.conns[alias]; ok {
		return entry.client
	}
	return nil
}

func (p *Pool) touch(alias string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.conns[alias]; ok {
		entry.lastUsed = time.Now()
	}
}

func (p *Pool) drop(alias string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.conns[alias]; ok {
		if entry.client != nil {
			_ = entry.client.Close()
		}
		delete(p.conns, alias)
	}
}

// isAlive checks whether a pooled connection is still usable by opening
// and closing a session. Closing the relay's connection kills the tunnels
// running through it, which this check also catches on the next Get.
func (p *Pool) isAlive(client *Client) bool {
	if client == nil || client.Client == nil {
		return false
	}
	session, err := client.Client.NewSession()
	if err != nil {
		return false
	}
	_ = session.Close()
	return true
}
