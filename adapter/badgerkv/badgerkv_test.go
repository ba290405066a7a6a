package badgerkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/kvidx"
	"github.com/mattsta/kvidxkit/kvidx/conformance"
)

func TestConformance(t *testing.T) {
	conformance.Run(t, func(t *testing.T) kvidx.Conn {
		conn, err := open(t.TempDir(), kvidx.DefaultConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	})
}

func TestRegisteredAsBadger(t *testing.T) {
	entry, ok := kvidx.Lookup("badger")
	require.True(t, ok)
	require.True(t, entry.IsDirectory)
}

// TestExpiredRecordSurvivesUntilScan confirms reads do not skip expired
// records until ExpireScan actually deletes them (§4.5): only GetTTL
// reflects the expiry before the scanner runs.
func TestExpiredRecordSurvivesUntilScan(t *testing.T) {
	conn, err := open(t.TempDir(), kvidx.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	c := conn.(*Conn)

	fake := clock.NewFake(1000)
	c.WithClock(fake)

	require.NoError(t, c.Insert(1, 0, 0, []byte("v")))
	require.NoError(t, c.SetExpire(1, 500))

	fake.Advance(1000 * time.Millisecond) // 1s, past the 500ms ttl

	ok, err := c.Exists(1)
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err := c.GetTTL(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, ttl)

	n, err := c.ExpireScan(context.Background(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ok, err = c.Exists(1)
	require.NoError(t, err)
	require.False(t, ok)
}
