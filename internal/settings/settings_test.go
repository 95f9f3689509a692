package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"ipdrop/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts writes to the wrapped store
type countingStore struct {
	store.Store
	writes int
}

func (c *countingStore) SetString(ctx context.Context, ns, key, value string) error {
	c.writes++
	return c.Store.SetString(ctx, ns, key, value)
}

func (c *countingStore) SetUint64(ctx context.Context, ns, key string, value uint64) error {
	c.writes++
	return c.Store.SetUint64(ctx, ns, key, value)
}

// missingNamespaceStore behaves like the registry before the service exists
type missingNamespaceStore struct {
	store.MemoryStore
}

func (*missingNamespaceStore) GetString(context.Context, string, string) (string, error) {
	return "", &store.Error{Op: "get", Err: store.ErrNamespaceNotFound}
}

func (*missingNamespaceStore) SetString(context.Context, string, string, string) error {
	return &store.Error{Op: "set", Err: store.ErrNamespaceNotFound}
}

func TestDefaultsWrittenOnce(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		get  func(*Settings) (any, error)
		want any
	}{
		{"log path", func(s *Settings) (any, error) { return s.LogPath(ctx) }, "svc.log.txt"},
		{"output path", func(s *Settings) (any, error) { return s.OutputPath(ctx) }, "svc.ip_log.txt"},
		{"poll interval", func(s *Settings) (any, error) { return s.PollInterval(ctx) }, uint64(900)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &countingStore{Store: store.NewMemoryStore()}
			s := New(cs, "svc")

			v, err := tt.get(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, 1, cs.writes)

			v, err = tt.get(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, 1, cs.writes, "second get must not write")
		})
	}
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	cs := &countingStore{Store: store.NewMemoryStore()}
	s := New(cs, "svc")

	require.NoError(t, s.SetLogPath(ctx, `C:\logs\svc.txt`))
	require.NoError(t, s.SetOutputPath(ctx, "/srv/share/ip.txt"))
	require.NoError(t, s.SetPollInterval(ctx, 30))

	cfg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ServiceConfig{
		LogPath:      `C:\logs\svc.txt`,
		OutputPath:   "/srv/share/ip.txt",
		PollInterval: 30,
	}, cfg)
	assert.Equal(t, 3, cs.writes)
	assert.Equal(t, 30*time.Second, cfg.Interval())
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	require.NoError(t, New(mem, "a").SetOutputPath(ctx, "a.txt"))

	v, err := New(mem, "b").OutputPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b.ip_log.txt", v)
}

func TestSetPollIntervalRejectsZero(t *testing.T) {
	err := New(store.NewMemoryStore(), "svc").SetPollInterval(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestEnsureDefaults(t *testing.T) {
	ctx := context.Background()
	cs := &countingStore{Store: store.NewMemoryStore()}
	s := New(cs, "svc")

	require.NoError(t, s.SetPollInterval(ctx, 60))
	require.NoError(t, s.EnsureDefaults(ctx))
	assert.Equal(t, 3, cs.writes)

	v, err := s.PollInterval(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), v)
}

func TestMissingNamespacePropagates(t *testing.T) {
	s := New(&missingNamespaceStore{}, "svc")

	_, err := s.LogPath(context.Background())
	assert.True(t, errors.Is(err, store.ErrNamespaceNotFound))

	err = s.SetOutputPath(context.Background(), "x")
	assert.ErrorIs(t, err, store.ErrNamespaceNotFound)
}
