package seekly

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"github.com/autom8ter/machine/v4"
	"github.com/seekly/seekly-go/errors"
	"github.com/seekly/seekly-go/util"
	"github.com/segmentio/ksuid"
)

// RetryPolicy bounds retries of rate-limit, transient server and
// network/timeout failures. Authentication and validation failures are never
// retried. Delay grows geometrically from Base with jitter to avoid
// synchronized retry storms across concurrent batched requests.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included
	MaxAttempts int `json:"maxAttempts" validate:"min=1"`
	// Base is the delay before the first retry
	Base time.Duration `json:"base"`
	// Factor is the geometric growth factor between retries
	Factor float64 `json:"factor"`
	// Max caps the delay between retries
	Max time.Duration `json:"max"`
}

// DefaultRetryPolicy returns the default retry policy: 5 attempts, 100ms base,
// doubling per attempt, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Base:        100 * time.Millisecond,
		Factor:      2,
		Max:         5 * time.Second,
	}
}

// delay returns the jittered backoff delay before the given retry (0-based)
func (p RetryPolicy) delay(retry int) time.Duration {
	base := float64(p.Base) * math.Pow(p.Factor, float64(retry))
	if capped := float64(p.Max); base > capped {
		base = capped
	}
	// equal jitter: the randomized half never overlaps the previous attempts
	// range, so successive delays keep increasing until the cap
	half := base / 2
	return time.Duration(half + rand.Float64()*half + 1)
}

// BatchResult is one slot of a batched execution: either a normalized result
// or the error that produced it, never both
type BatchResult struct {
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"error,omitempty"`
}

// Executor sends compiled requests through a transport, applying the retry
// policy per request. Each request carries its own retry state; nothing is
// shared between concurrent batch members, so no locking is needed.
type Executor struct {
	transport Transport
	policy    RetryPolicy
	logger    Logger
	cache     Cache
}

// NewExecutor creates an executor over the given transport
func NewExecutor(transport Transport, policy RetryPolicy, logger Logger, cache Cache) *Executor {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = noOpLogger{}
	}
	return &Executor{transport: transport, policy: policy, logger: logger, cache: cache}
}

// Execute sends one compiled request and normalizes its envelope. Retryable
// failures are retried within the policy budget; after exhaustion the last
// failure surfaces wrapped with the exhausted classification.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	e.logger.Debug(ctx, "executing request", map[string]any{
		"collection": req.Collection,
		"request":    util.JSONString(req),
	})
	if e.cache != nil && cacheable(req) {
		if result, ok := e.cached(ctx, req); ok {
			return result, nil
		}
	}
	envelope, err := e.send(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := Normalize(req, envelope)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && cacheable(req) {
		e.store(ctx, req, result)
	}
	return result, nil
}

// ExecuteBatch runs all member requests of the batch and returns positionally
// aligned per-slot results. With a multiplexed batch the combined envelope
// travels as one request; otherwise members fan out concurrently and the call
// resolves once every member has resolved or exhausted its retries.
func (e *Executor) ExecuteBatch(ctx context.Context, batch *CompiledBatch) ([]BatchResult, error) {
	if batch == nil || len(batch.Requests) == 0 {
		return nil, nil
	}
	if batch.Strategy == BatchMultiplexed {
		return e.executeMultiplexed(ctx, batch.Requests)
	}
	results := make([]BatchResult, len(batch.Requests))
	m := machine.New()
	for i, req := range batch.Requests {
		i, req := i, req
		m.Go(ctx, func(ctx context.Context) error {
			result, err := e.Execute(ctx, req)
			results[i] = BatchResult{Result: result, Err: err}
			return nil
		})
	}
	if err := m.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "batched execution failed")
	}
	return results, nil
}

func (e *Executor) executeMultiplexed(ctx context.Context, reqs []*Request) ([]BatchResult, error) {
	envelopes, err := e.sendBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	results := make([]BatchResult, len(reqs))
	for i, envelope := range envelopes {
		result, err := Normalize(reqs[i], envelope)
		results[i] = BatchResult{Result: result, Err: err}
	}
	return results, nil
}

// send runs the retry loop around a single transport round-trip
func (e *Executor) send(ctx context.Context, req *Request) (*RawEnvelope, error) {
	return retry(ctx, e.policy, e.logger, func(ctx context.Context) (*RawEnvelope, error) {
		return e.transport.Send(ctx, req)
	})
}

func (e *Executor) sendBatch(ctx context.Context, reqs []*Request) ([]*RawEnvelope, error) {
	return retry(ctx, e.policy, e.logger, func(ctx context.Context) ([]*RawEnvelope, error) {
		return e.transport.SendBatch(ctx, reqs)
	})
}

// retry applies the policy to fn: non-retryable failures surface immediately
// with their classification preserved, retryable ones consume the attempt
// budget, and the context aborts pending sleeps.
func retry[T any](ctx context.Context, policy RetryPolicy, logger Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	requestID := ksuid.New().String()
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.delay(attempt - 1)
			logger.Debug(ctx, "retrying request", map[string]any{
				"request_id": requestID,
				"attempt":    attempt + 1,
				"delay":      delay.String(),
			})
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, errors.Wrap(ctx.Err(), errors.Transport, "request cancelled")
			case <-timer.C:
			}
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !errors.IsRetryable(err) {
			return zero, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, errors.Wrap(ctx.Err(), errors.Transport, "request cancelled")
		}
	}
	return zero, errors.Wrap(lastErr, errors.Exhausted, "retry budget exhausted after %d attempts", policy.MaxAttempts)
}

// cached loads a previously stored normalized result
func (e *Executor) cached(ctx context.Context, req *Request) (*Result, bool) {
	bits, ok, err := e.cache.Get(ctx, cacheKey(req))
	if err != nil {
		e.logger.Warn(ctx, "cache read failed", map[string]any{"error": err.Error()})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(bits, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (e *Executor) store(ctx context.Context, req *Request, result *Result) {
	bits, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cacheKey(req), bits); err != nil {
		e.logger.Warn(ctx, "cache write failed", map[string]any{"error": err.Error()})
	}
}
