package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/internal/tracing"
	"github.com/harun/cortex/pkg/provider"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultConnectTimeout bounds handshake plus discovery per provider
const DefaultConnectTimeout = 30 * time.Second

// Options configures Open
type Options struct {
	ConnectTimeout time.Duration
}

// Dispatcher routes tool calls to provider connections
type Dispatcher struct {
	connections map[string]*Connection
	order       []string
	registry    *Registry

	closeOnce sync.Once
}

// Open connects to every provider concurrently and builds the registry.
// Providers that fail to connect are left broken and contribute no tools.
// A duplicate tool name across the ready providers fails the whole Open.
func Open(ctx context.Context, opts Options, connectors ...provider.Connector) (*Dispatcher, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}

	d := &Dispatcher{
		connections: make(map[string]*Connection, len(connectors)),
	}
	for _, c := range connectors {
		if _, ok := d.connections[c.ID()]; ok {
			return nil, fmt.Errorf("duplicate provider id: %s", c.ID())
		}
		d.connections[c.ID()] = newConnection(c.ID())
		d.order = append(d.order, c.ID())
	}

	sets := make([]providerTools, len(connectors))
	var wg sync.WaitGroup
	for i, c := range connectors {
		wg.Add(1)
		go func(i int, c provider.Connector) {
			defer wg.Done()
			conn := d.connections[c.ID()]
			specs, err := conn.open(ctx, c, opts.ConnectTimeout)
			if err != nil {
				return
			}
			sets[i] = providerTools{connectionID: c.ID(), specs: specs}
			log.Info().
				Str("provider", c.ID()).
				Int("tools", len(specs)).
				Msg("Provider connection ready")
		}(i, c)
	}
	wg.Wait()

	registry, err := buildRegistry(sets)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.registry = registry
	observability.SetRegistryTools(registry.Len())

	log.Info().
		Int("providers", len(connectors)).
		Int("tools", registry.Len()).
		Msg("Tool registry built")

	return d, nil
}

// Registry returns the merged tool registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Catalog returns the tool catalog shown to the oracle
func (d *Dispatcher) Catalog() []CatalogEntry {
	return d.registry.Catalog()
}

// States returns the state of each connection by provider id
func (d *Dispatcher) States() map[string]State {
	out := make(map[string]State, len(d.connections))
	for id, c := range d.connections {
		out[id] = c.State()
	}
	return out
}

// Connection returns the connection for a provider id
func (d *Dispatcher) Connection(id string) (*Connection, bool) {
	c, ok := d.connections[id]
	return c, ok
}

// ProviderIDs returns provider ids in configured order
func (d *Dispatcher) ProviderIDs() []string {
	return append([]string(nil), d.order...)
}

// Dispatch validates and forwards one call. See the package invariants for
// the error contract; a non-nil error is one of the package sentinels.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (provider.Result, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracing.TracerDispatch, "dispatch.call",
		attribute.String("tool.name", name),
	)
	defer span.End()

	res, err := d.dispatch(ctx, name, args)

	status := dispatchStatus(res, err)
	observability.RecordDispatch(name, status, time.Since(start))
	observability.RecordDispatchAudit(ctx, tracing.GetSessionID(ctx), name, status)
	span.SetAttributes(attribute.String("dispatch.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args map[string]any) (provider.Result, error) {
	desc, ok := d.registry.Lookup(name)
	if !ok {
		return provider.Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := desc.ValidateArgs(args); err != nil {
		return provider.Result{}, err
	}

	conn := d.connections[desc.ConnectionID]
	return conn.call(ctx, name, args)
}

func dispatchStatus(res provider.Result, err error) string {
	switch {
	case err == nil && res.OK:
		return "ok"
	case err == nil:
		return "tool_error"
	case errors.Is(err, ErrToolNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArguments):
		return "invalid_arguments"
	case errors.Is(err, ErrConnectionUnavailable):
		return "unavailable"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

// Close closes every connection. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	var errs []error
	d.closeOnce.Do(func() {
		ids := make([]string, 0, len(d.connections))
		for id := range d.connections {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := d.connections[id].close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
		}
	})
	return errors.Join(errs...)
}
