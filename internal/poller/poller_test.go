package poller

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ipdrop/internal/history"
	"ipdrop/internal/settings"
	"ipdrop/internal/store"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedEnumerator returns one scripted result per call, repeating the
// last one when the script runs out.
type scriptedEnumerator struct {
	mu      sync.Mutex
	results [][]string
	errs    []error
	calls   int
	called  chan struct{}
}

func newScripted(results ...[]string) *scriptedEnumerator {
	return &scriptedEnumerator{results: results, called: make(chan struct{}, 100)}
}

func (e *scriptedEnumerator) Addresses(context.Context) ([]netip.Addr, error) {
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		e.called <- struct{}{}
	}()

	i := e.calls
	e.calls++

	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	if len(e.results) == 0 {
		return nil, nil
	}
	if i >= len(e.results) {
		i = len(e.results) - 1
	}

	out := make([]netip.Addr, len(e.results[i]))
	for j, s := range e.results[i] {
		out[j] = netip.MustParseAddr(s)
	}
	return out, nil
}

func (e *scriptedEnumerator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) Notify(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

type fixture struct {
	poller   *Poller
	settings *settings.Settings
	clock    *clock.Mock
	output   string
}

func newFixture(t *testing.T, enum *scriptedEnumerator) *fixture {
	t.Helper()

	ctx := context.Background()
	s := settings.New(store.NewMemoryStore(), "svc")
	output := filepath.Join(t.TempDir(), "ip.txt")
	require.NoError(t, s.SetOutputPath(ctx, output))
	require.NoError(t, s.SetPollInterval(ctx, 60))

	mock := clock.NewMock()
	p, err := New(Options{
		Instance:   "test",
		Settings:   s,
		Enumerator: enum,
		Clock:      mock,
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	return &fixture{poller: p, settings: s, clock: mock, output: output}
}

func waitCall(t *testing.T, enum *scriptedEnumerator) {
	t.Helper()
	select {
	case <-enum.called:
	case <-time.After(5 * time.Second):
		t.Fatal("enumerator was not called")
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{Enumerator: newScripted()})
	assert.Error(t, err)

	_, err = New(Options{Settings: settings.New(store.NewMemoryStore(), "svc")})
	assert.Error(t, err)
}

func TestTickFiltersAndWrites(t *testing.T) {
	enum := newScripted([]string{"10.0.0.5", "10.0.0.5", "127.0.0.1", "::1", "224.0.0.1"})
	f := newFixture(t, enum)

	require.NoError(t, f.poller.Tick(context.Background()))

	d, err := history.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "svc", d.Service)
	assert.Equal(t, "test", d.Instance)
	assert.Equal(t, [][]string{{"10.0.0.5"}}, d.History)
	assert.Equal(t, uint64(1), f.poller.Ticks())
}

func TestFiveTicksKeepLastFour(t *testing.T) {
	enum := newScripted(
		[]string{"10.0.0.1"},
		[]string{"10.0.0.2"},
		[]string{"10.0.0.3"},
		[]string{"10.0.0.4"},
		[]string{"10.0.0.5"},
	)
	f := newFixture(t, enum)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.poller.Tick(context.Background()))
		assert.LessOrEqual(t, f.poller.History().Len(), history.DefaultSize)
	}

	d, err := history.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"10.0.0.2"}, {"10.0.0.3"}, {"10.0.0.4"}, {"10.0.0.5"}}, d.History)
}

func TestTickEnumerationFailureKeepsHistory(t *testing.T) {
	enum := newScripted([]string{"10.0.0.1"})
	enum.errs = []error{nil, errors.New("adapter query failed")}
	f := newFixture(t, enum)

	require.NoError(t, f.poller.Tick(context.Background()))
	err := f.poller.Tick(context.Background())
	assert.ErrorContains(t, err, "adapter query failed")

	assert.Equal(t, 1, f.poller.History().Len())
	assert.Equal(t, uint64(1), f.poller.Ticks())
}

func TestTickWriteFailureStillRecords(t *testing.T) {
	enum := newScripted([]string{"10.0.0.1"})
	f := newFixture(t, enum)

	// A directory cannot be replaced by a file
	dir := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "child"), 0755))
	require.NoError(t, f.settings.SetOutputPath(context.Background(), dir))

	assert.Error(t, f.poller.Tick(context.Background()))
	assert.Equal(t, 1, f.poller.History().Len())
}

func TestTickFollowsOutputPathChanges(t *testing.T) {
	ctx := context.Background()
	enum := newScripted([]string{"10.0.0.1"}, []string{"10.0.0.2"})
	f := newFixture(t, enum)

	require.NoError(t, f.poller.Tick(ctx))

	moved := filepath.Join(t.TempDir(), "moved", "ip.txt")
	require.NoError(t, f.settings.SetOutputPath(ctx, moved))
	require.NoError(t, f.poller.Tick(ctx))

	d, err := history.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"10.0.0.1"}, {"10.0.0.2"}}, d.History)

	old, err := history.ReadFile(f.output)
	require.NoError(t, err)
	assert.Len(t, old.History, 1)
}

func TestRunStopMidWait(t *testing.T) {
	enum := newScripted([]string{"10.0.0.5"})
	f := newFixture(t, enum)
	rec := &stateRecorder{}

	stop := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(context.Background(), stop, rec) }()

	waitCall(t, enum)
	stop <- struct{}{}

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, 1, enum.Calls(), "no enumeration after stop")
	assert.Equal(t, []State{StateStarting, StateRunning, StateStopping, StateStopped}, rec.States())
	assert.Equal(t, StateStopped, f.poller.State())
	assert.FileExists(t, f.output)
}

func TestRunStopChannelClosed(t *testing.T) {
	enum := newScripted([]string{"10.0.0.5"})
	f := newFixture(t, enum)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(context.Background(), stop, nil) }()

	waitCall(t, enum)
	close(stop)

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, 1, enum.Calls())
}

func TestRunContextCancelled(t *testing.T) {
	enum := newScripted([]string{"10.0.0.5"})
	f := newFixture(t, enum)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(ctx, nil, nil) }()

	waitCall(t, enum)
	cancel()

	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
	assert.Equal(t, StateStopped, f.poller.State())
}

func TestRunContinuesAfterErrors(t *testing.T) {
	enum := newScripted([]string{"10.0.0.1"}, []string{"10.0.0.2"})
	enum.errs = []error{errors.New("transient")}
	f := newFixture(t, enum)

	stop := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(context.Background(), stop, nil) }()

	waitCall(t, enum)

	// Advance until the loop has polled again after the failed tick
	deadline := time.After(5 * time.Second)
	for enum.Calls() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop did not keep polling")
		default:
			f.clock.Add(time.Minute)
		}
	}
	stop <- struct{}{}
	require.NoError(t, waitDone(t, done))

	d, err := history.ReadFile(f.output)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(d.History), 2)
	assert.Equal(t, []string{"10.0.0.2"}, d.History[len(d.History)-1])
}

func TestPollIntervalFallsBack(t *testing.T) {
	enum := newScripted()
	f := newFixture(t, enum)
	ctx := context.Background()

	assert.Equal(t, time.Minute, f.poller.pollInterval(ctx))

	require.NoError(t, f.settings.SetPollInterval(ctx, 5))
	assert.Equal(t, 5*time.Second, f.poller.pollInterval(ctx))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())

	var got State
	NotifierFunc(func(s State) { got = s }).Notify(StateRunning)
	assert.Equal(t, StateRunning, got)
}
