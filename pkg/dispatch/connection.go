package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/pkg/provider"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a provider connection
type State string

const (
	StateConnecting State = "connecting"
	StateReady      State = "ready"
	StateBroken     State = "broken"
	StateClosed     State = "closed"
)

// Connection is a long-lived session to one provider
type Connection struct {
	id string

	mu      sync.RWMutex
	state   State
	session provider.Session
	lastErr error

	// serializes calls when the session does not multiplex
	callMu sync.Mutex
}

func newConnection(id string) *Connection {
	c := &Connection{id: id, state: StateConnecting}
	observability.SetConnectionState(id, string(StateConnecting))
	return c
}

// ID returns the provider id
func (c *Connection) ID() string { return c.id }

// State returns the current state
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the failure that broke the connection, if any
func (c *Connection) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// open handshakes and discovers tools. Any failure leaves the connection broken.
func (c *Connection) open(ctx context.Context, connector provider.Connector, timeout time.Duration) ([]provider.ToolSpec, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	session, err := connector.Connect(ctx)
	if err != nil {
		c.markBroken(err)
		return nil, err
	}

	specs, err := session.ListTools(ctx)
	if err != nil {
		_ = session.Close()
		c.markBroken(err)
		return nil, err
	}

	c.mu.Lock()
	c.session = session
	c.state = StateReady
	c.mu.Unlock()
	observability.SetConnectionState(c.id, string(StateReady))

	return specs, nil
}

func (c *Connection) markBroken(err error) {
	c.mu.Lock()
	if c.state == StateBroken || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateBroken
	c.lastErr = err
	c.mu.Unlock()

	observability.SetConnectionState(c.id, string(StateBroken))
	log.Warn().
		Str("provider", c.id).
		Err(err).
		Msg("Provider connection broken")
}

// call forwards to the session. Transport errors break the connection.
func (c *Connection) call(ctx context.Context, name string, args map[string]any) (provider.Result, error) {
	c.mu.RLock()
	state, session := c.state, c.session
	c.mu.RUnlock()

	if state != StateReady || session == nil {
		return provider.Result{}, fmt.Errorf("%w: provider %s is %s", ErrConnectionUnavailable, c.id, state)
	}

	if !session.Multiplexed() {
		c.callMu.Lock()
		defer c.callMu.Unlock()
		// another caller may have broken the connection while we waited
		if s := c.State(); s != StateReady {
			return provider.Result{}, fmt.Errorf("%w: provider %s is %s", ErrConnectionUnavailable, c.id, s)
		}
	}

	res, err := session.CallTool(ctx, name, args)
	if err != nil {
		// caller cancellation says nothing about the transport
		if errors.Is(ctx.Err(), context.Canceled) {
			return provider.Result{}, fmt.Errorf("call %s on %s: %w", name, c.id, ctx.Err())
		}
		c.markBroken(err)
		return provider.Result{}, fmt.Errorf("%w: provider %s: %v", ErrTransport, c.id, err)
	}
	return res, nil
}

func (c *Connection) close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.state = StateClosed
	c.mu.Unlock()
	observability.SetConnectionState(c.id, string(StateClosed))

	if session != nil {
		return session.Close()
	}
	return nil
}
