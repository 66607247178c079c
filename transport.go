package seekly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seekly/seekly-go/errors"
	"github.com/segmentio/ksuid"
)

// EnvelopeError is a backend-reported error descriptor
type EnvelopeError struct {
	// Message is the error detail
	Message string `json:"message"`
	// Path optionally locates the failing part of the request
	Path string `json:"path,omitempty"`
}

// RawRecord is one backend record before normalization
type RawRecord struct {
	// Fields is the selected field payload
	Fields map[string]any `json:"fields"`
	// Additional is per-record search metadata (certainty/distance/score/spellCheck)
	Additional map[string]any `json:"additional,omitempty"`
	// Generated is the per-record generation outcome (fromOne only)
	Generated *GeneratedResult `json:"generated,omitempty"`
}

// RawEnvelope is the backend response envelope before normalization. All five
// envelope shapes (get, aggregate, generate-from-one, generate-from-many, ask)
// arrive through this one wire structure with different sections populated.
type RawEnvelope struct {
	Records []RawRecord     `json:"records,omitempty"`
	Meta    map[string]any  `json:"meta,omitempty"`
	// Generated is the single synthesis outcome (fromMany)
	Generated *GeneratedResult `json:"generated,omitempty"`
	// Answer is the question-answering outcome (ask)
	Answer *RawAnswer `json:"answer,omitempty"`
	// Groups are aggregate group descriptors (aggregate)
	Groups []map[string]any `json:"groups,omitempty"`
	Errors []EnvelopeError  `json:"errors,omitempty"`
}

// RawAnswer is the backend question-answering section
type RawAnswer struct {
	Text    string      `json:"text"`
	Sources []RawRecord `json:"sources,omitempty"`
}

// Credential is the authentication material attached to a request
type Credential struct {
	// Token is a bearer token (bearer credentials)
	Token string
	// Username and Password form a basic pair (basic credentials)
	Username string
	Password string
}

// CredentialProvider supplies the current authentication material per request.
// The core never interprets or refreshes credentials itself.
type CredentialProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// BearerToken returns a provider serving a static bearer token
func BearerToken(token string) CredentialProvider {
	return staticCredential{cred: Credential{Token: token}}
}

// BasicAuth returns a provider serving a static basic pair
func BasicAuth(username, password string) CredentialProvider {
	return staticCredential{cred: Credential{Username: username, Password: password}}
}

type staticCredential struct {
	cred Credential
}

func (s staticCredential) Credential(ctx context.Context) (Credential, error) {
	return s.cred, nil
}

// Transport sends compiled requests and returns raw backend envelopes. Non-2xx
// outcomes surface as typed errors carrying the http-equivalent code and
// backend detail.
type Transport interface {
	// Send sends one compiled request
	Send(ctx context.Context, req *Request) (*RawEnvelope, error)
	// SendBatch sends a multiplexed batch, returning one envelope per member
	// request in input order. Only called when Multiplex reports true.
	SendBatch(ctx context.Context, reqs []*Request) ([]*RawEnvelope, error)
	// Multiplex reports whether the backend protocol supports combined batch envelopes
	Multiplex() bool
}

// HTTPTransport is the default json-over-http transport
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	creds    CredentialProvider
	timeout  time.Duration
}

// TransportOpt configures the http transport
type TransportOpt func(*HTTPTransport)

// WithHTTPClient overrides the underlying http client
func WithHTTPClient(client *http.Client) TransportOpt {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithAttemptTimeout sets the per-attempt request timeout. Timeouts classify
// as transient failures, eligible for retry.
func WithAttemptTimeout(timeout time.Duration) TransportOpt {
	return func(t *HTTPTransport) {
		t.timeout = timeout
	}
}

// NewHTTPTransport creates the default transport against the given endpoint
func NewHTTPTransport(endpoint string, creds CredentialProvider, opts ...TransportOpt) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		client:   http.DefaultClient,
		creds:    creds,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Multiplex reports that the default backend protocol supports combined batch envelopes
func (t *HTTPTransport) Multiplex() bool {
	return true
}

// Send sends one compiled request to /v1/query
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*RawEnvelope, error) {
	var envelope RawEnvelope
	if err := t.post(ctx, "/v1/query", req, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// SendBatch sends a multiplexed batch to /v1/batch. A failing member comes
// back as an envelope carrying only its error descriptors, so failures stay
// isolated to their slot.
func (t *HTTPTransport) SendBatch(ctx context.Context, reqs []*Request) ([]*RawEnvelope, error) {
	var combined struct {
		Responses []*RawEnvelope `json:"responses"`
	}
	body := map[string]any{"requests": reqs}
	if err := t.post(ctx, "/v1/batch", body, &combined); err != nil {
		return nil, err
	}
	if len(combined.Responses) != len(reqs) {
		return nil, errors.New(errors.Internal, "batch response count mismatch: sent %d, got %d", len(reqs), len(combined.Responses))
	}
	return combined.Responses, nil
}

// Ping checks backend readiness
func (t *HTTPTransport) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/v1/.well-known/ready", nil)
	if err != nil {
		return errors.Wrap(err, errors.Transport, "failed to build readiness request")
	}
	if err := t.authorize(ctx, httpReq); err != nil {
		return err
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.Transport, "readiness check failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New(errors.FromStatus(resp.StatusCode), "backend not ready: %s", resp.Status)
	}
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	bits, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+path, bytes.NewReader(bits))
	if err != nil {
		return errors.Wrap(err, errors.Transport, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", ksuid.New().String())
	if err := t.authorize(ctx, httpReq); err != nil {
		return err
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.Transport, "request failed")
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.Transport, "failed to read response")
	}
	if resp.StatusCode >= 300 {
		detail := backendDetail(payload)
		return errors.New(errors.FromStatus(resp.StatusCode), "backend returned %d: %s", resp.StatusCode, detail)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to decode response envelope")
	}
	return nil
}

func (t *HTTPTransport) authorize(ctx context.Context, req *http.Request) error {
	if t.creds == nil {
		return nil
	}
	cred, err := t.creds.Credential(ctx)
	if err != nil {
		return errors.Wrap(err, errors.Authentication, "credential provider failed")
	}
	if cred.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cred.Token))
	} else if cred.Username != "" {
		req.SetBasicAuth(cred.Username, cred.Password)
	}
	return nil
}

// backendDetail pulls the error detail out of a non-2xx response body
func backendDetail(payload []byte) string {
	var envelope RawEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Errors) > 0 {
		return envelope.Errors[0].Message
	}
	return string(payload)
}
