package testutil

import (
	"context"
	"sync"

	"github.com/brianvoe/gofakeit/v6"
	seekly "github.com/seekly/seekly-go"
	"github.com/seekly/seekly-go/errors"
)

// StubTransport is a scriptable transport for tests. Script returns the
// envelope or error for each invocation; every sent request is recorded.
type StubTransport struct {
	mu sync.Mutex
	// Script produces the outcome of the next Send; invocation is 0-based
	Script func(invocation int, req *seekly.Request) (*seekly.RawEnvelope, error)
	// BatchScript produces the outcome of the next SendBatch
	BatchScript func(invocation int, reqs []*seekly.Request) ([]*seekly.RawEnvelope, error)
	// Mux reports multiplex support
	Mux bool

	sends      int
	batchSends int
	Requests   []*seekly.Request
}

func (s *StubTransport) Send(ctx context.Context, req *seekly.Request) (*seekly.RawEnvelope, error) {
	s.mu.Lock()
	invocation := s.sends
	s.sends++
	s.Requests = append(s.Requests, req)
	s.mu.Unlock()
	if s.Script == nil {
		return &seekly.RawEnvelope{}, nil
	}
	return s.Script(invocation, req)
}

func (s *StubTransport) SendBatch(ctx context.Context, reqs []*seekly.Request) ([]*seekly.RawEnvelope, error) {
	s.mu.Lock()
	invocation := s.batchSends
	s.batchSends++
	s.Requests = append(s.Requests, reqs...)
	s.mu.Unlock()
	if s.BatchScript == nil {
		envelopes := make([]*seekly.RawEnvelope, len(reqs))
		for i := range envelopes {
			envelopes[i] = &seekly.RawEnvelope{}
		}
		return envelopes, nil
	}
	return s.BatchScript(invocation, reqs)
}

func (s *StubTransport) Multiplex() bool {
	return s.Mux
}

// Sends returns how many single requests the transport has seen
func (s *StubTransport) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

// BatchSends returns how many batch requests the transport has seen
func (s *StubTransport) BatchSends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchSends
}

// ErrorEnvelope scripts a typed failure with the given code
func ErrorEnvelope(code errors.Code, msg string) func(int, *seekly.Request) (*seekly.RawEnvelope, error) {
	return func(int, *seekly.Request) (*seekly.RawEnvelope, error) {
		return nil, errors.New(code, msg)
	}
}

// FakeDocument generates a fake text document payload
func FakeDocument() map[string]any {
	return map[string]any{
		"id":     gofakeit.UUID(),
		"title":  gofakeit.Sentence(4),
		"text":   gofakeit.Paragraph(1, 3, 12, " "),
		"author": gofakeit.Name(),
		"details": map[string]any{
			"word_count": gofakeit.Number(50, 5000),
			"language":   gofakeit.LanguageAbbreviation(),
		},
	}
}

// RecordsEnvelope builds an envelope of n fake records; certainties, when
// given, attach per-record search metadata positionally
func RecordsEnvelope(n int, certainties ...float64) *seekly.RawEnvelope {
	envelope := &seekly.RawEnvelope{
		Meta: map[string]any{"count": n},
	}
	for i := 0; i < n; i++ {
		record := seekly.RawRecord{Fields: FakeDocument()}
		if i < len(certainties) {
			record.Additional = map[string]any{"certainty": certainties[i]}
		}
		envelope.Records = append(envelope.Records, record)
	}
	return envelope
}

// MemoryCache is an in-memory Cache for tests
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string][]byte{}}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bits, ok := m.data[key]
	return bits, ok, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Len returns how many entries the cache holds
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
