// Package badgerkv is the LSM-tree backend, built on
// github.com/dgraph-io/badger/v4. Records and TTL entries share one
// keyspace distinguished by a one-byte prefix ('d' for data, 't' for TTL)
// so both can be range-scanned with a single iterator when needed. Reads
// always return owned copies (ValueCopy) rather than badger's
// transaction-scoped slices, so unlike boltkv this adapter never exposes
// zero-copy reads (§9, I3's documented relaxation).
package badgerkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/internal/valuecodec"
	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	kvidx.Register(kvidx.Entry{
		Name:        "badger",
		PathSuffix:  "",
		IsDirectory: true,
		Open:        open,
	})
}

const (
	dataPrefix byte = 'd'
	ttlPrefix  byte = 't'
)

// Conn is the badger-backed adapter.
type Conn struct {
	mu     sync.Mutex
	db     *badger.DB
	txn    *badger.Txn // non-nil while an explicit write transaction is open
	clock  clock.Clock
	logger *zap.Logger
}

func open(path string, cfg kvidx.Config) (kvidx.Conn, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithReadOnly(cfg.ReadOnly)
	if cfg.CacheSizeBytes > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSizeBytes)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, kvidx.ErrIo
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

func dataKey(key uint64) []byte {
	b := make([]byte, 9)
	b[0] = dataPrefix
	binary.BigEndian.PutUint64(b[1:], key)
	return b
}

func ttlKey(key uint64) []byte {
	b := make([]byte, 9)
	b[0] = ttlPrefix
	binary.BigEndian.PutUint64(b[1:], key)
	return b
}

func keyFromDataKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[1:])
}

func (c *Conn) Close() error { return c.db.Close() }
func (c *Conn) Fsync() error { return c.db.Sync() }

func (c *Conn) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn != nil {
		return nil
	}
	c.txn = c.db.NewTransaction(true)
	c.logger.Debug("tx begin")
	return nil
}

func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return nil
	}
	err := c.txn.Commit()
	c.txn = nil
	if err != nil {
		return kvidx.ErrIo
	}
	c.logger.Debug("tx commit")
	return nil
}

func (c *Conn) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return nil
	}
	c.txn.Discard()
	c.txn = nil
	c.logger.Debug("tx abort")
	return nil
}

// withWrite runs fn against the held explicit transaction if one is open,
// committing a fresh one otherwise.
func (c *Conn) withWrite(fn func(txn *badger.Txn) error) error {
	c.mu.Lock()
	txn := c.txn
	c.mu.Unlock()
	if txn != nil {
		return fn(txn)
	}
	return c.db.Update(fn)
}

func (c *Conn) withRead(fn func(txn *badger.Txn) error) error {
	c.mu.Lock()
	txn := c.txn
	c.mu.Unlock()
	if txn != nil {
		return fn(txn)
	}
	return c.db.View(fn)
}

func (c *Conn) Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error) {
	rerr := c.withRead(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(v []byte) error {
			if valuecodec.IsMalformed(v) {
				c.logger.Warn("stored value too short for header, decoding as zeroed sentinel", zap.Uint64("key", key))
			}
			t, cm, payload := valuecodec.Unpack(v)
			term, cmd = t, cm
			data = append([]byte{}, payload...)
			return nil
		})
	})
	if rerr != nil {
		err = kvidx.ErrIo
	}
	return
}

func (c *Conn) Insert(key, term, cmd uint64, payload []byte) error {
	stored := valuecodec.Pack(term, cmd, payload)
	err := c.withWrite(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(dataKey(key)); getErr == nil {
			return kvidx.ErrDuplicateKey
		}
		return txn.Set(dataKey(key), stored)
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
	err := c.withWrite(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(ttlKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) Exists(key uint64) (bool, error) {
	var ok bool
	err := c.withRead(func(txn *badger.Txn) error {
		_, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return ok, nil
}

func (c *Conn) ExistsDual(key, term uint64) (bool, error) {
	var ok bool
	err := c.withRead(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error {
			t, _, _ := valuecodec.Unpack(v)
			ok = t == term
			return nil
		})
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return ok, nil
}

func (c *Conn) iterKeys(txn *badger.Txn, reverse bool) *badger.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{dataPrefix}
	opts.Reverse = reverse
	return txn.NewIterator(opts)
}

func (c *Conn) MaxKey() (uint64, bool, error) {
	var key uint64
	var ok bool
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, true)
		defer it.Close()
		seekFrom := append([]byte{dataPrefix}, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekFrom)
		if it.ValidForPrefix([]byte{dataPrefix}) {
			key = keyFromDataKey(it.Item().KeyCopy(nil))
			ok = true
		}
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
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, false)
		defer it.Close()
		it.Seek([]byte{dataPrefix})
		if it.ValidForPrefix([]byte{dataPrefix}) {
			key = keyFromDataKey(it.Item().KeyCopy(nil))
			found = true
		}
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
	if key == ^uint64(0) {
		return 0, false, nil
	}
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, false)
		defer it.Close()
		it.Seek(dataKey(key + 1))
		if it.ValidForPrefix([]byte{dataPrefix}) {
			next = keyFromDataKey(it.Item().KeyCopy(nil))
			ok = true
		}
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
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, true)
		defer it.Close()
		it.Seek(dataKey(key))
		// Reverse iterator Seek lands on the greatest key <= target; step
		// past an exact match to enforce "strictly less than"; if nothing
		// remains there is no previous key.
		if it.ValidForPrefix([]byte{dataPrefix}) && keyFromDataKey(it.Item().KeyCopy(nil)) == key {
			it.Next()
		}
		if it.ValidForPrefix([]byte{dataPrefix}) {
			prev = keyFromDataKey(it.Item().KeyCopy(nil))
			ok = true
		}
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
	err := c.withWrite(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, false)
		var toDelete [][]byte
		for it.Seek(dataKey(start)); it.ValidForPrefix([]byte{dataPrefix}); it.Next() {
			kb := it.Item().KeyCopy(nil)
			kv := keyFromDataKey(kb)
			if kv > end {
				break
			}
			if inRange(kv, start, end, startInclusive, endInclusive) {
				toDelete = append(toDelete, kb)
			}
		}
		it.Close()
		for _, kb := range toDelete {
			if err := txn.Delete(kb); err != nil {
				return err
			}
			kv := keyFromDataKey(kb)
			_ = txn.Delete(ttlKey(kv))
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
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, false)
		defer it.Close()
		for it.Seek(dataKey(start)); it.ValidForPrefix([]byte{dataPrefix}); it.Next() {
			kv := keyFromDataKey(it.Item().KeyCopy(nil))
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
	err := c.withWrite(func(txn *badger.Txn) error {
		_, getErr := txn.Get(dataKey(key))
		exists := getErr == nil
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
		return txn.Set(dataKey(key), valuecodec.Pack(term, cmd, payload))
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
	werr := c.withWrite(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == nil {
			existed = true
			if valErr := item.Value(func(v []byte) error {
				oldTerm, oldCmd, oldData = valuecodec.Unpack(v)
				oldData = append([]byte{}, oldData...)
				return nil
			}); valErr != nil {
				return valErr
			}
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}
		return txn.Set(dataKey(key), valuecodec.Pack(newTerm, newCmd, newPayload))
	})
	if werr != nil {
		err = kvidx.ErrIo
	}
	return
}

func (c *Conn) GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error) {
	var found bool
	werr := c.withWrite(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		found = true
		if valErr := item.Value(func(v []byte) error {
			term, cmd, data = valuecodec.Unpack(v)
			data = append([]byte{}, data...)
			return nil
		}); valErr != nil {
			return valErr
		}
		if err := txn.Delete(dataKey(key)); err != nil {
			return err
		}
		if err := txn.Delete(ttlKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
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
	var swapped bool
	err := c.withWrite(func(txn *badger.Txn) error {
		var current []byte
		item, getErr := txn.Get(dataKey(key))
		if getErr == nil {
			if valErr := item.Value(func(v []byte) error {
				_, _, current = valuecodec.Unpack(v)
				current = append([]byte{}, current...)
				return nil
			}); valErr != nil {
				return valErr
			}
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}
		if !bytes.Equal(current, expected) {
			return nil
		}
		swapped = true
		return txn.Set(dataKey(key), valuecodec.Pack(newTerm, newCmd, newPayload))
	})
	if err != nil {
		return false, kvidx.ErrIo
	}
	return swapped, nil
}

func (c *Conn) Append(key, term, cmd uint64, payload []byte) (int, error) {
	var newLen int
	err := c.withWrite(func(txn *badger.Txn) error {
		var existing []byte
		item, getErr := txn.Get(dataKey(key))
		if getErr == nil {
			if valErr := item.Value(func(v []byte) error {
				_, _, existing = valuecodec.Unpack(v)
				return nil
			}); valErr != nil {
				return valErr
			}
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}
		combined := append(append([]byte{}, existing...), payload...)
		newLen = len(combined)
		return txn.Set(dataKey(key), valuecodec.Pack(term, cmd, combined))
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return newLen, nil
}

func (c *Conn) Prepend(key, term, cmd uint64, payload []byte) (int, error) {
	var newLen int
	err := c.withWrite(func(txn *badger.Txn) error {
		var existing []byte
		item, getErr := txn.Get(dataKey(key))
		if getErr == nil {
			if valErr := item.Value(func(v []byte) error {
				_, _, existing = valuecodec.Unpack(v)
				return nil
			}); valErr != nil {
				return valErr
			}
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}
		combined := append(append([]byte{}, payload...), existing...)
		newLen = len(combined)
		return txn.Set(dataKey(key), valuecodec.Pack(term, cmd, combined))
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return newLen, nil
}

func (c *Conn) GetValueRange(key uint64, offset, length int) ([]byte, error) {
	var out []byte
	var found bool
	err := c.withRead(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		found = true
		return item.Value(func(v []byte) error {
			_, _, payload := valuecodec.Unpack(v)
			out = append([]byte{}, valuecodec.ReadRange(payload, offset, length)...)
			return nil
		})
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
	var newLen int
	var found bool
	err := c.withWrite(func(txn *badger.Txn) error {
		item, getErr := txn.Get(dataKey(key))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		found = true
		var term, cmd uint64
		var payload []byte
		if valErr := item.Value(func(v []byte) error {
			term, cmd, payload = valuecodec.Unpack(v)
			payload = append([]byte{}, payload...)
			return nil
		}); valErr != nil {
			return valErr
		}
		payload = valuecodec.WriteRange(payload, offset, data)
		newLen = len(payload)
		return txn.Set(dataKey(key), valuecodec.Pack(term, cmd, payload))
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
	err := c.withWrite(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(dataKey(key)); getErr != nil {
			return kvidx.ErrNotFound
		}
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], uint64(absoluteMs))
		return txn.Set(ttlKey(key), v[:])
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
	var result int64 = kvidx.TTLNotFound
	err := c.withRead(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(dataKey(key)); getErr != nil {
			return nil
		}
		item, getErr := txn.Get(ttlKey(key))
		if getErr == badger.ErrKeyNotFound {
			result = kvidx.TTLNone
			return nil
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error {
			exp := int64(binary.BigEndian.Uint64(v))
			remaining := exp - c.clock.NowMs()
			if remaining < 0 {
				remaining = 0
			}
			result = remaining
			return nil
		})
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return result, nil
}

func (c *Conn) Persist(key uint64) error {
	err := c.withWrite(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(dataKey(key)); getErr != nil {
			return kvidx.ErrNotFound
		}
		if err := txn.Delete(ttlKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
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
	var expiredKeys []uint64
	err := c.withRead(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{ttlPrefix}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte{ttlPrefix}); it.ValidForPrefix([]byte{ttlPrefix}); it.Next() {
			if ctx.Err() != nil {
				break
			}
			item := it.Item()
			k := keyFromDataKey(item.KeyCopy(nil))
			var exp int64
			if valErr := item.Value(func(v []byte) error {
				exp = int64(binary.BigEndian.Uint64(v))
				return nil
			}); valErr != nil {
				return valErr
			}
			if now >= exp {
				expiredKeys = append(expiredKeys, k)
			}
			if maxKeys > 0 && len(expiredKeys) >= maxKeys {
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, kvidx.ErrIo
	}
	if len(expiredKeys) == 0 {
		return 0, ctx.Err()
	}
	werr := c.withWrite(func(txn *badger.Txn) error {
		for _, k := range expiredKeys {
			_ = txn.Delete(dataKey(k))
			_ = txn.Delete(ttlKey(k))
		}
		return nil
	})
	if werr != nil {
		return 0, kvidx.ErrIo
	}
	return int64(len(expiredKeys)), ctx.Err()
}

func (c *Conn) GetStats() (kvidx.Stats, error) {
	var s kvidx.Stats
	err := c.withRead(func(txn *badger.Txn) error {
		it := c.iterKeys(txn, false)
		defer it.Close()
		var first, last uint64
		var total int64
		var count int64
		for it.Seek([]byte{dataPrefix}); it.ValidForPrefix([]byte{dataPrefix}); it.Next() {
			k := keyFromDataKey(it.Item().KeyCopy(nil))
			if count == 0 {
				first = k
			}
			last = k
			count++
			// ValueSize() reports the stored value's length, which includes
			// valuecodec's 16-byte term/cmd header; §4.9 wants payload bytes
			// only, so subtract it back out rather than decoding every value.
			if n := it.Item().ValueSize(); n > 16 {
				total += n - 16
			}
		}
		s.TotalKeys = count
		s.MinKey = first
		s.MaxKey = last
		s.TotalDataBytes = total
		return nil
	})
	if err != nil {
		return kvidx.Stats{}, kvidx.ErrIo
	}
	lsm, vlog := c.db.Size()
	s.DatabaseFileSize = lsm + vlog
	return s, nil
}

func (c *Conn) GetKeyCount() (int64, error) {
	s, err := c.GetStats()
	return s.TotalKeys, err
}

func (c *Conn) GetMinKey() (uint64, error) { return c.MinKey() }

func (c *Conn) GetDataSize() (int64, error) {
	s, err := c.GetStats()
	return s.TotalDataBytes, err
}

func (c *Conn) ApplyConfig(cfg kvidx.Config) error {
	// Badger's tuning knobs (cache size, compaction) are set at Open time
	// only; ApplyConfig has nothing live to reconfigure.
	return nil
}

func (c *Conn) Iterate(opts kvidx.IterOptions) (kvidx.Iterator, error) {
	c.mu.Lock()
	owned := c.txn == nil
	c.mu.Unlock()

	var txn *badger.Txn
	if owned {
		txn = c.db.NewTransaction(false)
	} else {
		c.mu.Lock()
		txn = c.txn
		c.mu.Unlock()
	}
	bopts := badger.DefaultIteratorOptions
	bopts.Prefix = []byte{dataPrefix}
	bopts.Reverse = opts.Dir == kvidx.Backward
	it := txn.NewIterator(bopts)
	return &iterator{txn: txn, owned: owned, it: it, opts: opts}, nil
}

type iterator struct {
	txn     *badger.Txn
	owned   bool
	it      *badger.Iterator
	opts    kvidx.IterOptions
	started bool
	curKey  uint64
	curVal  []byte
	valid   bool
}

func (it *iterator) Next() bool {
	if !it.started {
		it.started = true
		if it.opts.Dir == kvidx.Backward {
			it.it.Seek(dataKey(it.opts.End))
			if it.it.ValidForPrefix([]byte{dataPrefix}) && keyFromDataKey(it.it.Item().KeyCopy(nil)) > it.opts.End {
				it.it.Next()
			}
		} else {
			it.it.Seek(dataKey(it.opts.Start))
		}
	} else {
		it.it.Next()
	}
	if !it.it.ValidForPrefix([]byte{dataPrefix}) {
		it.valid = false
		return false
	}
	item := it.it.Item()
	k := keyFromDataKey(item.KeyCopy(nil))
	if k < it.opts.Start || k > it.opts.End {
		it.valid = false
		return false
	}
	it.curKey = k
	var v []byte
	_ = item.Value(func(b []byte) error {
		v = append([]byte{}, b...)
		return nil
	})
	it.curVal = v
	it.valid = true
	return true
}

func (it *iterator) Valid() bool { return it.valid }
func (it *iterator) Key() uint64 { return it.curKey }

func (it *iterator) Get() (key, term, cmd uint64, data []byte, err error) {
	if !it.valid {
		return 0, 0, 0, nil, kvidx.ErrInvalidArgument
	}
	term, cmd, data = valuecodec.Unpack(it.curVal)
	return it.curKey, term, cmd, data, nil
}

func (it *iterator) Seek(key uint64) bool {
	it.started = true
	it.it.Seek(dataKey(key))
	if !it.it.ValidForPrefix([]byte{dataPrefix}) {
		it.valid = false
		return false
	}
	k := keyFromDataKey(it.it.Item().KeyCopy(nil))
	if k < it.opts.Start || k > it.opts.End {
		it.valid = false
		return false
	}
	it.curKey = k
	var v []byte
	_ = it.it.Item().Value(func(b []byte) error {
		v = append([]byte{}, b...)
		return nil
	})
	it.curVal = v
	it.valid = true
	return true
}

func (it *iterator) Close() error {
	it.it.Close()
	if it.owned {
		it.txn.Discard()
	}
	return nil
}
