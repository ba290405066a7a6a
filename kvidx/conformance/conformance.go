// Package conformance is a shared property suite every backend adapter must
// pass. It exercises CRUD round-trips, insert conditions, navigation, range
// ops, the atomic primitives, TTL bookkeeping, iteration, stats and
// transaction idempotence against a freshly opened Conn, so the same
// assertions run unmodified against memkv, sqlitekv, boltkv, and badgerkv.
// Export/import round trips and the expiry sweep are not covered here.
package conformance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattsta/kvidxkit/kvidx"
)

// NewConnFunc constructs a fresh, empty Conn for one test case. Tests call
// it as many times as they need independent stores.
type NewConnFunc func(t *testing.T) kvidx.Conn

// Run exercises the full conformance suite against newConn.
func Run(t *testing.T, newConn NewConnFunc) {
	t.Run("InsertThenGetRoundTrips", func(t *testing.T) { testInsertGetRoundTrip(t, newConn) })
	t.Run("InsertRejectsDuplicateKey", func(t *testing.T) { testInsertDuplicateKey(t, newConn) })
	t.Run("GetOnMissingKeyIsNotOk", func(t *testing.T) { testGetMissingKey(t, newConn) })
	t.Run("RemoveIsIdempotent", func(t *testing.T) { testRemoveIdempotent(t, newConn) })
	t.Run("InsertExConditions", func(t *testing.T) { testInsertExConditions(t, newConn) })
	t.Run("NavigationOrdering", func(t *testing.T) { testNavigation(t, newConn) })
	t.Run("RangeOpsAgreeWithCount", func(t *testing.T) { testRangeOps(t, newConn) })
	t.Run("CompareAndSwapOnlyOnMatch", func(t *testing.T) { testCompareAndSwap(t, newConn) })
	t.Run("AppendPrependGrowValue", func(t *testing.T) { testAppendPrepend(t, newConn) })
	t.Run("ValueRangeReadWrite", func(t *testing.T) { testValueRange(t, newConn) })
	t.Run("TTLBookkeeping", func(t *testing.T) { testTTL(t, newConn) })
	t.Run("IteratorRespectsBoundsAndDirection", func(t *testing.T) { testIterator(t, newConn) })
	t.Run("IteratorSeekRespectsDirection", func(t *testing.T) { testIteratorSeek(t, newConn) })
	t.Run("StatsReflectStoreContents", func(t *testing.T) { testStats(t, newConn) })
	t.Run("TransactionNoOpIdempotence", func(t *testing.T) { testTxIdempotence(t, newConn) })
}

func testInsertGetRoundTrip(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(42, 1, 2, []byte("payload")))
	term, cmd, data, ok, err := c.Get(42)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, term)
	require.EqualValues(t, 2, cmd)
	require.Equal(t, []byte("payload"), data)
}

// testInsertDuplicateKey checks that a plain Insert on an already-occupied
// key fails with DuplicateKey and leaves the original record untouched,
// while InsertEx(Always) continues to upsert unconditionally.
func testInsertDuplicateKey(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(7, 1, 1, []byte("a")))
	require.ErrorIs(t, c.Insert(7, 2, 2, []byte("b")), kvidx.ErrDuplicateKey)

	term, cmd, data, ok, err := c.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, term)
	require.EqualValues(t, 1, cmd)
	require.Equal(t, []byte("a"), data)

	require.NoError(t, c.InsertEx(7, 3, 3, []byte("c"), kvidx.Always))
	term, cmd, data, ok, err = c.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, term)
	require.EqualValues(t, 3, cmd)
	require.Equal(t, []byte("c"), data)
}

func testGetMissingKey(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	_, _, _, ok, err := c.Get(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func testRemoveIdempotent(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(1, 0, 0, []byte("x")))
	require.NoError(t, c.Remove(1))
	require.NoError(t, c.Remove(1)) // removing an absent key is not an error
	ok, err := c.Exists(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func testInsertExConditions(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.InsertEx(1, 0, 0, []byte("a"), kvidx.IfNotExists))
	require.ErrorIs(t, c.InsertEx(1, 0, 0, []byte("b"), kvidx.IfNotExists), kvidx.ErrConditionFailed)
	require.ErrorIs(t, c.InsertEx(2, 0, 0, []byte("c"), kvidx.IfExists), kvidx.ErrConditionFailed)
	require.NoError(t, c.InsertEx(1, 0, 0, []byte("d"), kvidx.Always))
}

func testNavigation(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	for _, k := range []uint64{5, 10, 15} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}
	next, ok, err := c.GetNext(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 15, next)

	_, ok, err = c.GetNext(15)
	require.NoError(t, err)
	require.False(t, ok)

	prev, ok, err := c.GetPrev(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5, prev)

	maxKey, ok, err := c.MaxKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 15, maxKey)

	minKey, err := c.MinKey()
	require.NoError(t, err)
	require.EqualValues(t, 5, minKey)
}

func testRangeOps(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	for _, k := range []uint64{1, 2, 3, 4, 5} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}
	count, err := c.CountRange(2, 4)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	exists, err := c.ExistsInRange(10, 20)
	require.NoError(t, err)
	require.False(t, exists)

	deleted, err := c.RemoveRange(2, 4, true, true)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)

	count, err = c.CountRange(0, 100)
	require.NoError(t, err)
	require.EqualValues(t, 2, count) // 1 and 5 remain
}

func testCompareAndSwap(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(1, 0, 0, []byte("v1")))

	swapped, err := c.CompareAndSwap(1, []byte("wrong"), 0, 0, []byte("v2"))
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = c.CompareAndSwap(1, []byte("v1"), 0, 0, []byte("v2"))
	require.NoError(t, err)
	require.True(t, swapped)

	_, _, data, _, err := c.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)
}

func testAppendPrepend(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
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

func testValueRange(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(1, 0, 0, []byte("0123456789")))
	sub, err := c.GetValueRange(1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("234"), sub)

	n, err := c.SetValueRange(1, 2, []byte("XYZ"))
	require.NoError(t, err)
	require.Equal(t, 10, n)

	_, _, data, _, err := c.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("01XYZ56789"), data)
}

// testTTL checks GetTTL/SetExpire/Persist bookkeeping against the adapter's
// real clock. The actual expire-then-sweep behavior (P8/S5: a key with a
// passed TTL still reads as present until ExpireScan deletes it) needs a
// deterministic clock, which NewConnFunc doesn't expose — each adapter's own
// test package covers that with its WithClock seam instead.
func testTTL(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Insert(1, 0, 0, []byte("v")))

	ttl, err := c.GetTTL(1)
	require.NoError(t, err)
	require.EqualValues(t, kvidx.TTLNone, ttl)

	ttl, err = c.GetTTL(999)
	require.NoError(t, err)
	require.EqualValues(t, kvidx.TTLNotFound, ttl)

	require.NoError(t, c.SetExpire(1, 100000))
	ttl, err = c.GetTTL(1)
	require.NoError(t, err)
	require.Greater(t, ttl, int64(0))

	require.NoError(t, c.Persist(1))
	ttl, err = c.GetTTL(1)
	require.NoError(t, err)
	require.EqualValues(t, kvidx.TTLNone, ttl)
}

func testIterator(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	for _, k := range []uint64{10, 20, 30, 40} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}

	it, err := c.Iterate(kvidx.IterOptions{Start: 15, End: 35, Dir: kvidx.Forward})
	require.NoError(t, err)
	defer it.Close()
	var seen []uint64
	for it.Next() {
		seen = append(seen, it.Key())
	}
	require.Equal(t, []uint64{20, 30}, seen)

	backIt, err := c.Iterate(kvidx.IterOptions{Start: 15, End: 35, Dir: kvidx.Backward})
	require.NoError(t, err)
	defer backIt.Close()
	var backSeen []uint64
	for backIt.Next() {
		backSeen = append(backSeen, backIt.Key())
	}
	require.Equal(t, []uint64{30, 20}, backSeen)
}

// testIteratorSeek checks that Seek(K) lands on the nearest in-range key in
// the iterator's own direction when K itself is absent (§4.4): forward
// seeks forward to the next key >= K, backward seeks backward to the next
// key <= K.
func testIteratorSeek(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	for _, k := range []uint64{10, 20, 30, 40} {
		require.NoError(t, c.Insert(k, 0, 0, nil))
	}

	fwd, err := c.Iterate(kvidx.IterOptions{Start: 0, End: 100, Dir: kvidx.Forward})
	require.NoError(t, err)
	defer fwd.Close()
	require.True(t, fwd.Seek(25))
	require.EqualValues(t, 30, fwd.Key())
	require.True(t, fwd.Next())
	require.EqualValues(t, 40, fwd.Key())
	require.False(t, fwd.Next())

	back, err := c.Iterate(kvidx.IterOptions{Start: 0, End: 100, Dir: kvidx.Backward})
	require.NoError(t, err)
	defer back.Close()
	require.True(t, back.Seek(25))
	require.EqualValues(t, 20, back.Key())
	require.True(t, back.Next())
	require.EqualValues(t, 10, back.Key())
	require.False(t, back.Next())

	exact, err := c.Iterate(kvidx.IterOptions{Start: 0, End: 100, Dir: kvidx.Forward})
	require.NoError(t, err)
	defer exact.Close()
	require.True(t, exact.Seek(20))
	require.EqualValues(t, 20, exact.Key())

	outOfRange, err := c.Iterate(kvidx.IterOptions{Start: 0, End: 25, Dir: kvidx.Forward})
	require.NoError(t, err)
	defer outOfRange.Close()
	require.False(t, outOfRange.Seek(30))
}

func testStats(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	for _, k := range []uint64{1, 2, 3} {
		require.NoError(t, c.Insert(k, 0, 0, []byte("xx")))
	}
	stats, err := c.GetStats()
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalKeys)

	count, err := c.GetKeyCount()
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func testTxIdempotence(t *testing.T, newConn NewConnFunc) {
	c := newConn(t)
	require.NoError(t, c.Begin())
	require.NoError(t, c.Begin()) // already writing: no-op
	require.NoError(t, c.Insert(1, 0, 0, []byte("x")))
	require.NoError(t, c.Commit())
	require.NoError(t, c.Commit()) // idle: no-op

	require.NoError(t, c.Abort()) // idle: no-op

	ok, err := c.Exists(1)
	require.NoError(t, err)
	require.True(t, ok)
}
