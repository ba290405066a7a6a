package memkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/kvidx"
)

func TestInsertGetRoundTrip(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	require.NoError(t, c.Insert(1, 7, 9, []byte("hello")))

	term, cmd, data, ok, err := c.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 7, term)
	require.EqualValues(t, 9, cmd)
	require.Equal(t, []byte("hello"), data)

	_, _, _, ok, err = c.Get(2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertExConditions(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	require.NoError(t, c.InsertEx(1, 0, 0, []byte("a"), kvidx.IfNotExists))
	err := c.InsertEx(1, 0, 0, []byte("b"), kvidx.IfNotExists)
	require.ErrorIs(t, err, kvidx.ErrConditionFailed)

	require.NoError(t, c.InsertEx(1, 0, 0, []byte("c"), kvidx.IfExists))
	err = c.InsertEx(2, 0, 0, []byte("d"), kvidx.IfExists)
	require.ErrorIs(t, err, kvidx.ErrConditionFailed)
}

func TestRangeAndNavigation(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	for _, k := range []uint64{10, 20, 30, 40} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}

	next, ok, err := c.GetNext(20)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 30, next)

	prev, ok, err := c.GetPrev(25)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 20, prev)

	count, err := c.CountRange(15, 35)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	n, err := c.RemoveRange(10, 30, true, false)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	maxKey, ok, err := c.MaxKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 40, maxKey)
}

func TestTTLExpiry(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	fake := clock.NewFake(1000)
	c.WithClock(fake)

	require.NoError(t, c.Insert(1, 0, 0, []byte("v")))
	require.NoError(t, c.SetExpire(1, 500))

	ttl, err := c.GetTTL(1)
	require.NoError(t, err)
	require.EqualValues(t, 500, ttl)

	fake.Advance(1000 * time.Millisecond) // 1s, past the 500ms ttl

	// Reads do not skip expired records until ExpireScan actually deletes
	// them (§4.5); only GetTTL reflects the expiry before that happens.
	ok, err := c.Exists(1)
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err = c.GetTTL(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, ttl)

	n, err := c.ExpireScan(context.Background(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ok, err = c.Exists(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExpireScanSweepsUnderLimit(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	fake := clock.NewFake(0)
	c.WithClock(fake)

	for _, k := range []uint64{1, 2, 3} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
		require.NoError(t, c.SetExpire(k, 10))
	}
	fake.Advance(1000 * time.Millisecond)

	n, err := c.ExpireScan(context.Background(), 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	count, err := c.GetKeyCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestIteratorForwardAndBackward(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	for _, k := range []uint64{1, 2, 3, 4, 5} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}

	it, err := c.Iterate(kvidx.IterOptions{Start: 2, End: 4, Dir: kvidx.Forward})
	require.NoError(t, err)
	var fwd []uint64
	for it.Next() {
		fwd = append(fwd, it.Key())
	}
	require.Equal(t, []uint64{2, 3, 4}, fwd)
	require.NoError(t, it.Close())

	it, err = c.Iterate(kvidx.IterOptions{Start: 2, End: 4, Dir: kvidx.Backward})
	require.NoError(t, err)
	var bwd []uint64
	for it.Next() {
		bwd = append(bwd, it.Key())
	}
	require.Equal(t, []uint64{4, 3, 2}, bwd)
}

func TestCompareAndSwap(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	require.NoError(t, c.Insert(1, 0, 0, []byte("old")))

	swapped, err := c.CompareAndSwap(1, []byte("wrong"), 1, 1, []byte("new"))
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = c.CompareAndSwap(1, []byte("old"), 1, 1, []byte("new"))
	require.NoError(t, err)
	require.True(t, swapped)

	_, _, data, _, err := c.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), data)
}

func TestAppendPrepend(t *testing.T) {
	c := Open(kvidx.DefaultConfig())
	require.NoError(t, c.Insert(1, 0, 0, []byte("bc")))

	n, err := c.Append(1, 0, 0, []byte("d"))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = c.Prepend(1, 0, 0, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, _, data, _, err := c.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), data)
}

func TestRegisteredAsMem(t *testing.T) {
	entry, ok := kvidx.Lookup("mem")
	require.True(t, ok)
	conn, err := entry.Open("", kvidx.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, conn)
}
