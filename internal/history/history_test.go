package history

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ipdrop/internal/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(addrs ...string) network.Snapshot {
	s := make(network.Snapshot, len(addrs))
	for i, a := range addrs {
		s[i] = netip.MustParseAddr(a)
	}
	return s
}

func TestPushKeepsMostRecent(t *testing.T) {
	h := New(DefaultSize)

	a, b, c, d, e := snap("10.0.0.1"), snap("10.0.0.2"), snap("10.0.0.3"), snap("10.0.0.4"), snap("10.0.0.5")
	for _, s := range []network.Snapshot{a, b, c, d, e} {
		h.Push(s)
		assert.LessOrEqual(t, h.Len(), 4)
	}

	assert.Equal(t, []network.Snapshot{b, c, d, e}, h.Snapshots())

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, e, latest)
}

func TestPushManyTicks(t *testing.T) {
	h := New(0)
	assert.Equal(t, DefaultSize, h.Size())

	var pushed []network.Snapshot
	for i := 1; i <= 25; i++ {
		s := snap(fmt.Sprintf("10.0.%d.1", i))
		pushed = append(pushed, s)
		h.Push(s)

		want := pushed
		if len(want) > DefaultSize {
			want = want[len(want)-DefaultSize:]
		}
		require.Equal(t, want, h.Snapshots(), "after tick %d", i)
	}
}

func TestSnapshotsIsACopy(t *testing.T) {
	h := New(2)
	h.Push(snap("10.0.0.1"))

	got := h.Snapshots()
	got[0] = snap("10.9.9.9")

	latest, _ := h.Latest()
	assert.Equal(t, "10.0.0.1", latest[0].String())
}

func TestLatestEmpty(t *testing.T) {
	_, ok := New(DefaultSize).Latest()
	assert.False(t, ok)
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "share", "ip.txt")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	h := New(DefaultSize)
	h.Push(snap("10.0.0.5"))
	require.NoError(t, WriteFile(path, NewDump(h, "svc", "inst", "v1", now)))

	h.Push(snap("10.0.0.6", "192.168.1.2"))
	require.NoError(t, WriteFile(path, NewDump(h, "svc", "inst", "v1", now)))

	d, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "svc", d.Service)
	assert.Equal(t, "inst", d.Instance)
	assert.True(t, now.Equal(d.UpdatedAt))
	assert.Equal(t, [][]string{{"10.0.0.5"}, {"10.0.0.6", "192.168.1.2"}}, d.History)

	latest, ok := d.Latest()
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.6", "192.168.1.2"}, latest)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestEmptySnapshotEncodesAsList(t *testing.T) {
	h := New(DefaultSize)
	h.Push(network.Snapshot{})

	data, err := NewDump(h, "svc", "", "", time.Unix(0, 0)).Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"history": [
    []
  ]`)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
