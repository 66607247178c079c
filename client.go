package seekly

import (
	"context"

	"github.com/seekly/seekly-go/errors"
	"golang.org/x/sync/errgroup"
)

// Client is the entry point to the query engine. It binds builders to an
// executor over the configured transport.
type Client struct {
	cfg       Config
	logger    Logger
	transport Transport
	registry  Registry
	cache     Cache
	creds     CredentialProvider
	executor  *Executor
}

// Open creates a client from the given config
func Open(ctx context.Context, cfg Config, opts ...ClientOpt) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, creds: cfg.credentials()}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		logger, err := NewLogger(cfg.LogLevel, map[string]any{"endpoint": cfg.Endpoint})
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to build logger")
		}
		c.logger = logger
	}
	if c.transport == nil {
		var topts []TransportOpt
		if cfg.RequestTimeout > 0 {
			topts = append(topts, WithAttemptTimeout(cfg.RequestTimeout))
		}
		c.transport = NewHTTPTransport(cfg.Endpoint, c.creds, topts...)
	}
	policy := DefaultRetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	c.executor = NewExecutor(c.transport, policy, c.logger, c.cache)
	return c, nil
}

// Connect verifies the backend is reachable and primes the registry. Checks
// run concurrently; the first failure surfaces.
func (c *Client) Connect(ctx context.Context) error {
	egp, ctx := errgroup.WithContext(ctx)
	if pinger, ok := c.transport.(interface{ Ping(context.Context) error }); ok {
		egp.Go(func() error {
			return pinger.Ping(ctx)
		})
	}
	if warmer, ok := c.registry.(interface{ Warm(context.Context) error }); ok {
		egp.Go(func() error {
			return warmer.Warm(ctx)
		})
	}
	return egp.Wait()
}

// Collection starts a new query against the given collection, bound to this
// client for execution
func (c *Client) Collection(name string) *Builder {
	b := Collection(name)
	b.client = c
	return b
}

// Execute compiles and executes a single query
func (c *Client) Execute(ctx context.Context, b *Builder) (*Result, error) {
	q, err := b.Query()
	if err != nil {
		return nil, err
	}
	if c.registry != nil {
		if err := c.registry.ValidateQuery(q); err != nil {
			return nil, err
		}
	}
	req, err := Compile(q)
	if err != nil {
		return nil, err
	}
	return c.executor.Execute(ctx, req)
}

// ExecuteBatch executes multiple queries as one batched call. Results align
// positionally with the input builders; each slot carries its own success or
// failure, so one invalid or failing query never poisons its neighbors.
func (c *Client) ExecuteBatch(ctx context.Context, builders ...*Builder) ([]BatchResult, error) {
	if len(builders) == 0 {
		return nil, nil
	}
	results := make([]BatchResult, len(builders))
	requests := make([]*Request, 0, len(builders))
	slots := make([]int, 0, len(builders))
	for i, b := range builders {
		q, err := b.Query()
		if err == nil && c.registry != nil {
			err = c.registry.ValidateQuery(q)
		}
		if err != nil {
			results[i] = BatchResult{Err: err}
			continue
		}
		req, err := Compile(q)
		if err != nil {
			results[i] = BatchResult{Err: err}
			continue
		}
		requests = append(requests, req)
		slots = append(slots, i)
	}
	if len(requests) == 0 {
		return results, nil
	}
	strategy := BatchIndependent
	if c.transport.Multiplex() {
		strategy = BatchMultiplexed
	}
	executed, err := c.executor.ExecuteBatch(ctx, &CompiledBatch{Strategy: strategy, Requests: requests})
	if err != nil {
		return nil, err
	}
	for i, res := range executed {
		results[slots[i]] = res
	}
	return results, nil
}

// Close releases client resources
func (c *Client) Close() error {
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
