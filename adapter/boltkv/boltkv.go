// Package boltkv is the mmap B+tree backend, built on go.etcd.io/bbolt. It
// is the one adapter that can honor a true zero-copy Get (I3): while an
// explicit transaction is open (Begin has been called and not yet
// Commit/Abort), returned payload slices alias bbolt's mmap region directly.
// Outside an explicit transaction every read runs in its own short-lived
// View and is copied out before that transaction closes.
package boltkv

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/internal/valuecodec"
	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	kvidx.Register(kvidx.Entry{
		Name:        "bolt",
		PathSuffix:  ".bolt",
		IsDirectory: false,
		Open:        open,
	})
}

var (
	dataBucket = []byte("data")
	ttlBucket  = []byte("ttl")
)

// Conn is the bbolt-backed adapter.
type Conn struct {
	mu     sync.Mutex
	db     *bolt.DB
	tx     *bolt.Tx // non-nil while an explicit write transaction is open
	clock  clock.Clock
	logger *zap.Logger
}

func open(path string, cfg kvidx.Config) (kvidx.Conn, error) {
	opts := &bolt.Options{Timeout: time.Duration(cfg.BusyTimeoutMs) * time.Millisecond, ReadOnly: cfg.ReadOnly}
	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, kvidx.ErrIo
	}
	if !cfg.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists(dataBucket); err != nil {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(ttlBucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, kvidx.ErrIo
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{db: db, clock: clock.Real{}, logger: logger}, nil
}

// WithClock swaps in a deterministic clock for TTL tests.
func (c *Conn) WithClock(cl clock.Clock) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = cl
	return c
}

func keyBytes(key uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, key)
	return b
}

func keyFromBytes(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func (c *Conn) Close() error { return c.db.Close() }
func (c *Conn) Fsync() error { return c.db.Sync() }

func (c *Conn) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return nil
	}
	tx, err := c.db.Begin(true)
	if err != nil {
		return kvidx.ErrIo
	}
	c.tx = tx
	c.logger.Debug("tx begin")
	return nil
}

func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return kvidx.ErrIo
	}
	c.logger.Debug("tx commit")
	return nil
}

func (c *Conn) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return kvidx.ErrIo
	}
	c.logger.Debug("tx abort")
	return nil
}

// withWrite runs fn against the held explicit transaction if one is open,
// else against a freshly committed Update.
func (c *Conn) withWrite(fn func(tx *bolt.Tx) error) error {
	c.mu.Lock()
	tx := c.tx
	c.mu.Unlock()
	if tx != nil {
		return fn(tx)
	}
	return c.db.Update(fn)
}

// withRead runs fn against the held explicit transaction (bbolt write
// transactions can also read) if one is open, else against a View.
func (c *Conn) withRead(fn func(tx *bolt.Tx) error) error {
	c.mu.Lock()
	tx := c.tx
	c.mu.Unlock()
	if tx != nil {
		return fn(tx)
	}
	return c.db.View(fn)
}

// inExplicitTx reports whether callers can receive mmap-aliased slices
// safely (the transaction outlives the call).
func (c *Conn) inExplicitTx() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

func (c *Conn) Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error) {
	kb := keyBytes(key)
	zeroCopy := c.inExplicitTx()
	rerr := c.withRead(func(tx *bolt.Tx) error {
		stored := tx.Bucket(dataBucket).Get(kb)
		if stored == nil {
			return nil
		}
		ok = true
		if valuecodec.IsMalformed(stored) {
			c.logger.Warn("stored value too short for header, decoding as zeroed sentinel", zap.Uint64("key", key))
		}
		term, cmd, data = valuecodec.Unpack(stored)
		if !zeroCopy {
			cp := make([]byte, len(data))
			copy(cp, data)
			data = cp
		}
		return nil
	})
	if rerr != nil {
		err = kvidx.ErrIo
	}
	return
}

func (c *Conn) Insert(key, term, cmd uint64, payload []byte) error {
	kb := keyBytes(key)
	stored := valuecodec.Pack(term, cmd, payload)
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b.Get(kb) != nil {
			return kvidx.ErrDuplicateKey
		}
		return b.Put(kb, stored)
	})
	if err != nil {
		if ce, ok := err.(*kvidx.Error); ok {
			return ce
		}
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) Remove(key uint64) error {
	kb := keyBytes(key)
	err := c.withWrite(func(tx *bolt.Tx) error {
		if err := tx.Bucket(dataBucket).Delete(kb); err != nil {
			return err
		}
		return tx.Bucket(ttlBucket).Delete(kb)
	})
	if err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) Exists(key uint64) (bool, error) {
	kb := keyBytes(key)
	var ok bool
	err := c.withRead(func(tx *bolt.Tx) error {
		ok = tx.Bucket(dataBucket).Get(kb) != nil
		return nil
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return ok, nil
}

func (c *Conn) ExistsDual(key, term uint64) (bool, error) {
	kb := keyBytes(key)
	var ok bool
	err := c.withRead(func(tx *bolt.Tx) error {
		stored := tx.Bucket(dataBucket).Get(kb)
		if stored == nil {
			return nil
		}
		t, _, _ := valuecodec.Unpack(stored)
		ok = t == term
		return nil
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return ok, nil
}

func (c *Conn) MaxKey() (uint64, bool, error) {
	var key uint64
	var ok bool
	err := c.withRead(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(dataBucket).Cursor().Last()
		if k == nil {
			return nil
		}
		key = keyFromBytes(k)
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	return key, ok, nil
}

func (c *Conn) MinKey() (uint64, error) {
	var key uint64
	var found bool
	err := c.withRead(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(dataBucket).Cursor().First()
		if k == nil {
			return nil
		}
		key = keyFromBytes(k)
		found = true
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	if !found {
		return 0, kvidx.ErrNotFound
	}
	return key, nil
}

func (c *Conn) GetNext(key uint64) (uint64, bool, error) {
	var next uint64
	var ok bool
	err := c.withRead(func(tx *bolt.Tx) error {
		cur := tx.Bucket(dataBucket).Cursor()
		k, _ := cur.Seek(keyBytes(key + 1))
		if key == ^uint64(0) {
			k = nil
		}
		if k == nil {
			return nil
		}
		next = keyFromBytes(k)
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	return next, ok, nil
}

func (c *Conn) GetPrev(key uint64) (uint64, bool, error) {
	var prev uint64
	var ok bool
	err := c.withRead(func(tx *bolt.Tx) error {
		cur := tx.Bucket(dataBucket).Cursor()
		k, _ := cur.Seek(keyBytes(key))
		if k == nil {
			k, _ = cur.Last()
		} else {
			k, _ = cur.Prev()
		}
		if k == nil {
			return nil
		}
		prev = keyFromBytes(k)
		ok = true
		return nil
	})
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	return prev, ok, nil
}

func inRange(k, start, end uint64, startInclusive, endInclusive bool) bool {
	if startInclusive {
		if k < start {
			return false
		}
	} else if k <= start {
		return false
	}
	if endInclusive {
		if k > end {
			return false
		}
	} else if k >= end {
		return false
	}
	return true
}

func (c *Conn) RemoveRange(start, end uint64, startInclusive, endInclusive bool) (int64, error) {
	var n int64
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		t := tx.Bucket(ttlBucket)
		cur := b.Cursor()
		var toDelete [][]byte
		for k, _ := cur.Seek(keyBytes(start)); k != nil; k, _ = cur.Next() {
			kv := keyFromBytes(k)
			if kv > end {
				break
			}
			if inRange(kv, start, end, startInclusive, endInclusive) {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
			_ = t.Delete(k)
			n++
		}
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return n, nil
}

func (c *Conn) CountRange(start, end uint64) (int64, error) {
	var n int64
	err := c.withRead(func(tx *bolt.Tx) error {
		cur := tx.Bucket(dataBucket).Cursor()
		for k, _ := cur.Seek(keyBytes(start)); k != nil; k, _ = cur.Next() {
			kv := keyFromBytes(k)
			if kv > end {
				break
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return n, nil
}

func (c *Conn) ExistsInRange(start, end uint64) (bool, error) {
	n, err := c.CountRange(start, end)
	return n > 0, err
}

func (c *Conn) RemoveAfterNInclusive(key uint64) (int64, error) {
	return c.RemoveRange(key, ^uint64(0), true, true)
}

func (c *Conn) RemoveBeforeNInclusive(key uint64) (int64, error) {
	return c.RemoveRange(0, key, true, true)
}

func (c *Conn) InsertEx(key, term, cmd uint64, payload []byte, cond kvidx.Condition) error {
	kb := keyBytes(key)
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		exists := b.Get(kb) != nil
		switch cond {
		case kvidx.IfNotExists:
			if exists {
				return kvidx.ErrConditionFailed
			}
		case kvidx.IfExists:
			if !exists {
				return kvidx.ErrConditionFailed
			}
		}
		return b.Put(kb, valuecodec.Pack(term, cmd, payload))
	})
	if err != nil {
		if ce, ok := err.(*kvidx.Error); ok {
			return ce
		}
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) GetAndSet(key, newTerm, newCmd uint64, newPayload []byte) (oldTerm, oldCmd uint64, oldData []byte, existed bool, err error) {
	kb := keyBytes(key)
	werr := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if stored := b.Get(kb); stored != nil {
			oldTerm, oldCmd, oldData = valuecodec.Unpack(stored)
			cp := make([]byte, len(oldData))
			copy(cp, oldData)
			oldData = cp
			existed = true
		}
		return b.Put(kb, valuecodec.Pack(newTerm, newCmd, newPayload))
	})
	if werr != nil {
		err = kvidx.ErrIo
	}
	return
}

func (c *Conn) GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error) {
	kb := keyBytes(key)
	var found bool
	werr := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		stored := b.Get(kb)
		if stored == nil {
			return nil
		}
		found = true
		term, cmd, data = valuecodec.Unpack(stored)
		cp := make([]byte, len(data))
		copy(cp, data)
		data = cp
		if err := b.Delete(kb); err != nil {
			return err
		}
		return tx.Bucket(ttlBucket).Delete(kb)
	})
	if werr != nil {
		return 0, 0, nil, kvidx.ErrIo
	}
	if !found {
		return 0, 0, nil, kvidx.ErrNotFound
	}
	return term, cmd, data, nil
}

func (c *Conn) CompareAndSwap(key uint64, expected []byte, newTerm, newCmd uint64, newPayload []byte) (bool, error) {
	kb := keyBytes(key)
	var swapped bool
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		var current []byte
		if stored := b.Get(kb); stored != nil {
			_, _, current = valuecodec.Unpack(stored)
		}
		if !bytesEqual(current, expected) {
			return nil
		}
		swapped = true
		return b.Put(kb, valuecodec.Pack(newTerm, newCmd, newPayload))
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return swapped, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Conn) Append(key, term, cmd uint64, payload []byte) (int, error) {
	kb := keyBytes(key)
	var newLen int
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		var existing []byte
		if stored := b.Get(kb); stored != nil {
			_, _, existing = valuecodec.Unpack(stored)
		}
		combined := append(append([]byte{}, existing...), payload...)
		newLen = len(combined)
		return b.Put(kb, valuecodec.Pack(term, cmd, combined))
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return newLen, nil
}

func (c *Conn) Prepend(key, term, cmd uint64, payload []byte) (int, error) {
	kb := keyBytes(key)
	var newLen int
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		var existing []byte
		if stored := b.Get(kb); stored != nil {
			_, _, existing = valuecodec.Unpack(stored)
		}
		combined := append(append([]byte{}, payload...), existing...)
		newLen = len(combined)
		return b.Put(kb, valuecodec.Pack(term, cmd, combined))
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return newLen, nil
}

func (c *Conn) GetValueRange(key uint64, offset, length int) ([]byte, error) {
	kb := keyBytes(key)
	var out []byte
	var found bool
	err := c.withRead(func(tx *bolt.Tx) error {
		stored := tx.Bucket(dataBucket).Get(kb)
		if stored == nil {
			return nil
		}
		found = true
		_, _, payload := valuecodec.Unpack(stored)
		out = valuecodec.ReadRange(payload, offset, length)
		cp := make([]byte, len(out))
		copy(cp, out)
		out = cp
		return nil
	})
	if err != nil {
		return nil, kvidx.ErrIo
	}
	if !found {
		return nil, kvidx.ErrNotFound
	}
	return out, nil
}

func (c *Conn) SetValueRange(key uint64, offset int, data []byte) (int, error) {
	kb := keyBytes(key)
	var newLen int
	var found bool
	err := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		stored := b.Get(kb)
		if stored == nil {
			return nil
		}
		found = true
		term, cmd, payload := valuecodec.Unpack(stored)
		payload = valuecodec.WriteRange(payload, offset, data)
		newLen = len(payload)
		return b.Put(kb, valuecodec.Pack(term, cmd, payload))
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	if !found {
		return 0, kvidx.ErrNotFound
	}
	return newLen, nil
}

func (c *Conn) SetExpire(key uint64, ttlMs int64) error {
	return c.SetExpireAt(key, c.clock.NowMs()+ttlMs)
}

func (c *Conn) SetExpireAt(key uint64, absoluteMs int64) error {
	kb := keyBytes(key)
	err := c.withWrite(func(tx *bolt.Tx) error {
		if tx.Bucket(dataBucket).Get(kb) == nil {
			return kvidx.ErrNotFound
		}
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], uint64(absoluteMs))
		return tx.Bucket(ttlBucket).Put(kb, v[:])
	})
	if err != nil {
		if ce, ok := err.(*kvidx.Error); ok {
			return ce
		}
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) GetTTL(key uint64) (int64, error) {
	kb := keyBytes(key)
	var result int64 = kvidx.TTLNotFound
	err := c.withRead(func(tx *bolt.Tx) error {
		if tx.Bucket(dataBucket).Get(kb) == nil {
			return nil
		}
		v := tx.Bucket(ttlBucket).Get(kb)
		if v == nil {
			result = kvidx.TTLNone
			return nil
		}
		exp := int64(binary.BigEndian.Uint64(v))
		remaining := exp - c.clock.NowMs()
		if remaining < 0 {
			remaining = 0
		}
		result = remaining
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return result, nil
}

func (c *Conn) Persist(key uint64) error {
	kb := keyBytes(key)
	err := c.withWrite(func(tx *bolt.Tx) error {
		if tx.Bucket(dataBucket).Get(kb) == nil {
			return kvidx.ErrNotFound
		}
		return tx.Bucket(ttlBucket).Delete(kb)
	})
	if err != nil {
		if ce, ok := err.(*kvidx.Error); ok {
			return ce
		}
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) ExpireScan(ctx context.Context, maxKeys int) (int64, error) {
	now := c.clock.NowMs()
	var expired [][]byte
	err := c.withRead(func(tx *bolt.Tx) error {
		cur := tx.Bucket(ttlBucket).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if ctx.Err() != nil {
				break
			}
			exp := int64(binary.BigEndian.Uint64(v))
			if now >= exp {
				expired = append(expired, append([]byte{}, k...))
			}
			if maxKeys > 0 && len(expired) >= maxKeys {
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	if len(expired) == 0 {
		return 0, ctx.Err()
	}
	werr := c.withWrite(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		t := tx.Bucket(ttlBucket)
		for _, k := range expired {
			_ = b.Delete(k)
			_ = t.Delete(k)
		}
		return nil
	})
	if werr != nil {
		return 0, kvidx.ErrIo
	}
	return int64(len(expired)), ctx.Err()
}

func (c *Conn) GetStats() (kvidx.Stats, error) {
	var s kvidx.Stats
	err := c.withRead(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		stats := b.Stats()
		s.TotalKeys = int64(stats.KeyN)
		if k, _ := b.Cursor().First(); k != nil {
			s.MinKey = keyFromBytes(k)
		}
		if k, _ := b.Cursor().Last(); k != nil {
			s.MaxKey = keyFromBytes(k)
		}
		var total int64
		_ = b.ForEach(func(_, v []byte) error {
			total += int64(valuecodec.PayloadLen(v))
			return nil
		})
		s.TotalDataBytes = total
		return nil
	})
	if err != nil {
		return kvidx.Stats{}, kvidx.ErrIo
	}
	if fi, statErr := os.Stat(c.db.Path()); statErr == nil {
		s.DatabaseFileSize = fi.Size()
	}
	s.PageSize = int64(c.db.Info().PageSize)
	return s, nil
}

func (c *Conn) GetKeyCount() (int64, error) {
	s, err := c.GetStats()
	return s.TotalKeys, err
}

func (c *Conn) GetMinKey() (uint64, error) {
	return c.MinKey()
}

func (c *Conn) GetDataSize() (int64, error) {
	s, err := c.GetStats()
	return s.TotalDataBytes, err
}

func (c *Conn) ApplyConfig(cfg kvidx.Config) error {
	// bbolt has no live-reconfigurable knobs beyond open-time options. Open
	// applies BusyTimeoutMs and ReadOnly only; MmapSizeBytes and the other
	// Config fields are not applied by this adapter.
	return nil
}

func (c *Conn) Iterate(opts kvidx.IterOptions) (kvidx.Iterator, error) {
	c.mu.Lock()
	owned := c.tx == nil
	c.mu.Unlock()

	var tx *bolt.Tx
	var err error
	if owned {
		tx, err = c.db.Begin(false)
		if err != nil {
			return nil, kvidx.ErrIo
		}
	} else {
		c.mu.Lock()
		tx = c.tx
		c.mu.Unlock()
	}
	return &iterator{tx: tx, owned: owned, opts: opts, started: false}, nil
}

type iterator struct {
	tx      *bolt.Tx
	owned   bool
	opts    kvidx.IterOptions
	cur     *bolt.Cursor
	started bool
	curKey  []byte
	curVal  []byte
}

func (it *iterator) Next() bool {
	if it.cur == nil {
		it.cur = it.tx.Bucket(dataBucket).Cursor()
	}
	var k, v []byte
	if !it.started {
		it.started = true
		if it.opts.Dir == kvidx.Backward {
			k, v = it.cur.Seek(keyBytes(it.opts.End))
			if k == nil || keyFromBytes(k) > it.opts.End {
				k, v = it.cur.Prev()
			}
		} else {
			k, v = it.cur.Seek(keyBytes(it.opts.Start))
		}
	} else if it.opts.Dir == kvidx.Backward {
		k, v = it.cur.Prev()
	} else {
		k, v = it.cur.Next()
	}
	if k == nil {
		it.curKey, it.curVal = nil, nil
		return false
	}
	kv := keyFromBytes(k)
	if kv < it.opts.Start || kv > it.opts.End {
		it.curKey, it.curVal = nil, nil
		return false
	}
	it.curKey = append([]byte{}, k...)
	it.curVal = append([]byte{}, v...)
	return true
}

func (it *iterator) Valid() bool { return it.curKey != nil }

func (it *iterator) Key() uint64 {
	if it.curKey == nil {
		return 0
	}
	return keyFromBytes(it.curKey)
}

func (it *iterator) Get() (key, term, cmd uint64, data []byte, err error) {
	if it.curKey == nil {
		return 0, 0, 0, nil, kvidx.ErrInvalidArgument
	}
	key = keyFromBytes(it.curKey)
	term, cmd, data = valuecodec.Unpack(it.curVal)
	return
}

func (it *iterator) Seek(key uint64) bool {
	if it.cur == nil {
		it.cur = it.tx.Bucket(dataBucket).Cursor()
	}
	it.started = true
	// bbolt's Cursor.Seek always moves to the first key >= target; for
	// backward iteration, step back one if that overshot key itself.
	k, v := it.cur.Seek(keyBytes(key))
	if it.opts.Dir == kvidx.Backward {
		if k == nil || keyFromBytes(k) > key {
			k, v = it.cur.Prev()
		}
	}
	if k == nil {
		it.curKey, it.curVal = nil, nil
		return false
	}
	kv := keyFromBytes(k)
	if kv < it.opts.Start || kv > it.opts.End {
		it.curKey, it.curVal = nil, nil
		return false
	}
	it.curKey = append([]byte{}, k...)
	it.curVal = append([]byte{}, v...)
	return true
}

func (it *iterator) Close() error {
	if it.owned && it.tx != nil {
		return it.tx.Rollback()
	}
	return nil
}
