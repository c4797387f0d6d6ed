package searchcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/usecase/search"
)

type mockSearcher struct {
	env        result.Envelope
	err        error
	generation string
	calls      int
}

func (m *mockSearcher) Search(_ context.Context, _ search.Request) (result.Envelope, error) {
	m.calls++
	return m.env, m.err
}

func (m *mockSearcher) Generation() string { return m.generation }

type mockSequencer struct{ seq uint64 }

func (m *mockSequencer) Sequence() uint64 { return m.seq }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

// memoryKV is a map-backed store for round trips.
func memoryKV() *mockKVStore {
	data := make(map[string][]byte)
	return &mockKVStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			v, ok := data[key]
			if !ok {
				return nil, db.ErrKeyNotFound
			}
			return v, nil
		},
		setFn: func(_ context.Context, key string, value []byte, _ time.Duration) error {
			data[key] = value
			return nil
		},
	}
}

func newTestCachedSearcher(t *testing.T, inner *mockSearcher, seq *mockSequencer, s *mockKVStore) *CachedSearcher {
	t.Helper()
	return New(inner, seq, s, time.Minute, nil, zap.NewNop())
}

func sampleEnvelope() result.Envelope {
	return result.Envelope{
		Format: result.FormatJSON,
		Records: []result.Record{{Fields: []result.Field{
			{Name: "id", Values: []result.Value{{Text: "http://dbpedia.org/resource/Paris"}}},
			{Name: "label", Values: []result.Value{{Text: "<b>Paris</b>"}}},
			{Name: "score", Values: []result.Value{{Text: "2"}}},
		}}},
	}
}
