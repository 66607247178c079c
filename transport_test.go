package seekly_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	seekly "github.com/seekly/seekly-go"
	"github.com/seekly/seekly-go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport(t *testing.T) {
	ctx := context.Background()
	req := compileQuery(t, seekly.Collection("Article").Select("id"))
	t.Run("decodes a successful envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/query", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
			w.Write([]byte(`{"records":[{"fields":{"id":"a"}}],"meta":{"count":1}}`))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		envelope, err := transport.Send(ctx, req)
		require.NoError(t, err)
		require.Len(t, envelope.Records, 1)
		assert.Equal(t, "a", envelope.Records[0].Fields["id"])
	})
	t.Run("non-2xx statuses map onto the error taxonomy with backend detail", func(t *testing.T) {
		cases := []struct {
			status int
			code   errors.Code
		}{
			{http.StatusUnauthorized, errors.Authentication},
			{http.StatusForbidden, errors.Forbidden},
			{http.StatusNotFound, errors.NotFound},
			{http.StatusUnprocessableEntity, errors.Validation},
			{http.StatusTooManyRequests, errors.RateLimit},
			{http.StatusInternalServerError, errors.Internal},
		}
		for _, tc := range cases {
			status := tc.status
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte(`{"errors":[{"message":"backend said no"}]}`))
			}))
			transport := seekly.NewHTTPTransport(server.URL, nil)
			_, err := transport.Send(ctx, req)
			server.Close()
			require.Error(t, err)
			extracted := errors.Extract(err)
			assert.Equal(t, tc.code, extracted.Code)
			require.Len(t, extracted.Messages, 1)
			assert.Contains(t, extracted.Messages[0], "backend said no")
		}
	})
	t.Run("plain text error bodies surface verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream gone"))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		_, err := transport.Send(ctx, req)
		require.Error(t, err)
		assert.Equal(t, errors.Internal, errors.Extract(err).Code)
		assert.Contains(t, errors.Extract(err).Messages[0], "upstream gone")
	})
	t.Run("bearer credentials set the authorization header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, seekly.BearerToken("test-key"))
		_, err := transport.Send(ctx, req)
		require.NoError(t, err)
	})
	t.Run("basic credentials set the authorization header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "user" || pass != "pass" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, seekly.BasicAuth("user", "pass"))
		_, err := transport.Send(ctx, req)
		require.NoError(t, err)
	})
	t.Run("batch responses align with requests", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/batch", r.URL.Path)
			w.Write([]byte(`{"responses":[{"meta":{"count":1}},{"meta":{"count":2}}]}`))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		other := compileQuery(t, seekly.Collection("Product").Select("id"))
		envelopes, err := transport.SendBatch(ctx, []*seekly.Request{req, other})
		require.NoError(t, err)
		require.Len(t, envelopes, 2)
	})
	t.Run("batch response count mismatch rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"responses":[{}]}`))
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		other := compileQuery(t, seekly.Collection("Product").Select("id"))
		_, err := transport.SendBatch(ctx, []*seekly.Request{req, other})
		require.Error(t, err)
		assert.Equal(t, errors.Internal, errors.Extract(err).Code)
	})
	t.Run("readiness check", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/.well-known/ready", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		assert.NoError(t, transport.Ping(ctx))
	})
	t.Run("readiness failure surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()
		transport := seekly.NewHTTPTransport(server.URL, nil)
		require.Error(t, transport.Ping(ctx))
	})
}
