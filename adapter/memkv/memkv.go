// Package memkv is an in-memory reference Conn implementation. It exists so
// the conformance suite and the CLI have a fast, dependency-free backend to
// validate against; every on-disk adapter is checked for identical behavior
// against this one.
package memkv

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/internal/valuecodec"
	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	kvidx.Register(kvidx.Entry{
		Name:        "mem",
		PathSuffix:  "",
		IsDirectory: false,
		Open: func(path string, cfg kvidx.Config) (kvidx.Conn, error) {
			return Open(cfg), nil
		},
	})
}

type entry struct {
	stored []byte // packed term|cmd|payload, per internal/valuecodec
}

// Conn is the in-memory reference adapter. It is not safe for concurrent use
// by more than one goroutine, matching every other adapter's contract (§5),
// but guards its maps with a mutex anyway so a caller that does share it
// across goroutines does not corrupt them.
type Conn struct {
	mu      sync.Mutex
	data    map[uint64]entry
	ttl     map[uint64]int64 // key -> absolute expiry ms
	writing bool
	clock   clock.Clock
	cfg     kvidx.Config
	logger  *zap.Logger
}

// Open constructs a fresh, empty Conn. The registry entry ignores its path
// argument; memkv never persists.
func Open(cfg kvidx.Config) *Conn {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		data:   make(map[uint64]entry),
		ttl:    make(map[uint64]int64),
		clock:  clock.Real{},
		cfg:    cfg,
		logger: logger,
	}
}

// WithClock swaps in a deterministic clock for TTL tests.
func (c *Conn) WithClock(cl clock.Clock) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = cl
	return c
}

func (c *Conn) Close() error { return nil }
func (c *Conn) Fsync() error { return nil }

// Begin, Commit and Abort only track the transaction flag. Writes apply to
// the maps immediately, and Abort does not undo writes made since Begin.
func (c *Conn) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writing = true
	c.logger.Debug("tx begin")
	return nil
}

func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writing = false
	c.logger.Debug("tx commit")
	return nil
}

func (c *Conn) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writing = false
	c.logger.Debug("tx abort")
	return nil
}

func (c *Conn) Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, present := c.data[key]
	if !present {
		return 0, 0, nil, false, nil
	}
	if valuecodec.IsMalformed(e.stored) {
		c.logger.Warn("stored value too short for header, decoding as zeroed sentinel", zap.Uint64("key", key))
	}
	term, cmd, payload := valuecodec.Unpack(e.stored)
	out := make([]byte, len(payload))
	copy(out, payload)
	return term, cmd, out, true, nil
}

func (c *Conn) Insert(key, term, cmd uint64, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, present := c.data[key]; present {
		return kvidx.ErrDuplicateKey
	}
	c.data[key] = entry{stored: valuecodec.Pack(term, cmd, payload)}
	return nil
}

// upsertLocked writes key unconditionally, overwriting any existing record.
// Caller holds c.mu.
func (c *Conn) upsertLocked(key, term, cmd uint64, payload []byte) {
	c.data[key] = entry{stored: valuecodec.Pack(term, cmd, payload)}
}

func (c *Conn) Remove(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.ttl, key)
	return nil
}

func (c *Conn) Exists(key uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *Conn) ExistsDual(key, term uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return false, nil
	}
	t, _, _ := valuecodec.Unpack(e.stored)
	return t == term, nil
}

func (c *Conn) sortedKeysLocked() []uint64 {
	keys := make([]uint64, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (c *Conn) MaxKey() (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) == 0 {
		return 0, false, nil
	}
	keys := c.sortedKeysLocked()
	return keys[len(keys)-1], true, nil
}

func (c *Conn) MinKey() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) == 0 {
		return 0, kvidx.ErrNotFound
	}
	keys := c.sortedKeysLocked()
	return keys[0], nil
}

func (c *Conn) GetNext(key uint64) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.sortedKeysLocked()
	idx := sort.Search(len(keys), func(i int) bool { return keys[i] > key })
	if idx == len(keys) {
		return 0, false, nil
	}
	return keys[idx], true, nil
}

func (c *Conn) GetPrev(key uint64) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.sortedKeysLocked()
	if len(keys) == 0 {
		return 0, false, nil
	}
	idx := sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
	if idx == 0 {
		return 0, false, nil
	}
	if idx == len(keys) {
		return keys[len(keys)-1], true, nil
	}
	return keys[idx-1], true, nil
}

func (c *Conn) RemoveRange(start, end uint64, startInclusive, endInclusive bool) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range c.sortedKeysLocked() {
		if !inRange(k, start, end, startInclusive, endInclusive) {
			continue
		}
		delete(c.data, k)
		delete(c.ttl, k)
		n++
	}
	return n, nil
}

func (c *Conn) CountRange(start, end uint64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if k >= start && k <= end {
			n++
		}
	}
	return n, nil
}

func (c *Conn) ExistsInRange(start, end uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if k >= start && k <= end {
			return true, nil
		}
	}
	return false, nil
}

func (c *Conn) RemoveAfterNInclusive(key uint64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if k >= key {
			delete(c.data, k)
			delete(c.ttl, k)
			n++
		}
	}
	return n, nil
}

func (c *Conn) RemoveBeforeNInclusive(key uint64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if k <= key {
			delete(c.data, k)
			delete(c.ttl, k)
			n++
		}
	}
	return n, nil
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

func (c *Conn) InsertEx(key, term, cmd uint64, payload []byte, cond kvidx.Condition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.data[key]
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
	c.upsertLocked(key, term, cmd, payload)
	return nil
}

func (c *Conn) GetAndSet(key, newTerm, newCmd uint64, newPayload []byte) (oldTerm, oldCmd uint64, oldData []byte, existed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.data[key]; ok {
		oldTerm, oldCmd, oldData = valuecodec.Unpack(e.stored)
		existed = true
	}
	c.upsertLocked(key, newTerm, newCmd, newPayload)
	return
}

func (c *Conn) GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return 0, 0, nil, kvidx.ErrNotFound
	}
	term, cmd, data = valuecodec.Unpack(e.stored)
	delete(c.data, key)
	delete(c.ttl, key)
	return
}

func (c *Conn) CompareAndSwap(key uint64, expected []byte, newTerm, newCmd uint64, newPayload []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	var current []byte
	if ok {
		_, _, current = valuecodec.Unpack(e.stored)
	}
	if !bytesEqual(current, expected) {
		return false, nil
	}
	c.data[key] = entry{stored: valuecodec.Pack(newTerm, newCmd, newPayload)}
	return true, nil
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
	c.mu.Lock()
	defer c.mu.Unlock()
	var existing []byte
	if e, ok := c.data[key]; ok {
		_, _, existing = valuecodec.Unpack(e.stored)
	}
	combined := append(append([]byte{}, existing...), payload...)
	c.data[key] = entry{stored: valuecodec.Pack(term, cmd, combined)}
	return len(combined), nil
}

func (c *Conn) Prepend(key, term, cmd uint64, payload []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var existing []byte
	if e, ok := c.data[key]; ok {
		_, _, existing = valuecodec.Unpack(e.stored)
	}
	combined := append(append([]byte{}, payload...), existing...)
	c.data[key] = entry{stored: valuecodec.Pack(term, cmd, combined)}
	return len(combined), nil
}

func (c *Conn) GetValueRange(key uint64, offset, length int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, kvidx.ErrNotFound
	}
	_, _, payload := valuecodec.Unpack(e.stored)
	return valuecodec.ReadRange(payload, offset, length), nil
}

func (c *Conn) SetValueRange(key uint64, offset int, data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return 0, kvidx.ErrNotFound
	}
	term, cmd, payload := valuecodec.Unpack(e.stored)
	payload = valuecodec.WriteRange(payload, offset, data)
	c.data[key] = entry{stored: valuecodec.Pack(term, cmd, payload)}
	return len(payload), nil
}

func (c *Conn) SetExpire(key uint64, ttlMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return kvidx.ErrNotFound
	}
	c.ttl[key] = c.clock.NowMs() + ttlMs
	return nil
}

func (c *Conn) SetExpireAt(key uint64, absoluteMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return kvidx.ErrNotFound
	}
	c.ttl[key] = absoluteMs
	return nil
}

// GetTTL reports the remaining time-to-live for key. Unlike every other
// read primitive, GetTTL is the one place expiry is visible before the
// scanner runs: a key whose TTL has passed but has not yet been swept by
// ExpireScan still exists for Get/Exists/etc, but GetTTL reports 0 (§4.5).
func (c *Conn) GetTTL(key uint64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return kvidx.TTLNotFound, nil
	}
	exp, ok := c.ttl[key]
	if !ok {
		return kvidx.TTLNone, nil
	}
	remaining := exp - c.clock.NowMs()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (c *Conn) Persist(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return kvidx.ErrNotFound
	}
	delete(c.ttl, key)
	return nil
}

func (c *Conn) ExpireScan(ctx context.Context, maxKeys int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.NowMs()
	var expired []uint64
	for k, exp := range c.ttl {
		if ctx.Err() != nil {
			break
		}
		if now >= exp {
			expired = append(expired, k)
		}
		if maxKeys > 0 && len(expired) >= maxKeys {
			break
		}
	}
	for _, k := range expired {
		delete(c.data, k)
		delete(c.ttl, k)
	}
	return int64(len(expired)), ctx.Err()
}

func (c *Conn) GetStats() (kvidx.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := kvidx.Stats{TotalKeys: int64(len(c.data))}
	if len(c.data) > 0 {
		keys := c.sortedKeysLocked()
		s.MinKey = keys[0]
		s.MaxKey = keys[len(keys)-1]
	}
	var total int64
	for _, e := range c.data {
		total += int64(valuecodec.PayloadLen(e.stored))
	}
	s.TotalDataBytes = total
	s.DatabaseFileSize = 0
	return s, nil
}

func (c *Conn) GetKeyCount() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.data)), nil
}

func (c *Conn) GetMinKey() (uint64, error) {
	return c.MinKey()
}

func (c *Conn) GetDataSize() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, e := range c.data {
		total += int64(valuecodec.PayloadLen(e.stored))
	}
	return total, nil
}

func (c *Conn) ApplyConfig(cfg kvidx.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

func (c *Conn) Iterate(opts kvidx.IterOptions) (kvidx.Iterator, error) {
	c.mu.Lock()
	keys := c.sortedKeysLocked()
	c.mu.Unlock()

	var bounded []uint64
	for _, k := range keys {
		if k >= opts.Start && k <= opts.End {
			bounded = append(bounded, k)
		}
	}
	return &iterator{conn: c, keys: bounded, dir: opts.Dir, pos: -1}, nil
}

// iterator walks keys, always stored ascending; dir controls step direction
// and the starting edge so Seek's binary search stays simple either way.
type iterator struct {
	conn *Conn
	keys []uint64
	dir  kvidx.Direction
	pos  int
}

func (it *iterator) Next() bool {
	if it.pos == -1 {
		if it.dir == kvidx.Backward {
			it.pos = len(it.keys) - 1
		} else {
			it.pos = 0
		}
		return it.Valid()
	}
	if it.dir == kvidx.Backward {
		it.pos--
	} else {
		it.pos++
	}
	return it.Valid()
}

func (it *iterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.keys)
}

func (it *iterator) Key() uint64 {
	if !it.Valid() {
		return 0
	}
	return it.keys[it.pos]
}

func (it *iterator) Get() (key, term, cmd uint64, data []byte, err error) {
	if !it.Valid() {
		return 0, 0, 0, nil, kvidx.ErrInvalidArgument
	}
	key = it.keys[it.pos]
	term, cmd, data, _, err = it.conn.Get(key)
	return
}

// Seek repositions to key if present, else to the nearest in-range key in
// the iteration direction (§4.4).
func (it *iterator) Seek(key uint64) bool {
	idx := sort.Search(len(it.keys), func(i int) bool { return it.keys[i] >= key })
	if it.dir == kvidx.Backward {
		if idx == len(it.keys) || it.keys[idx] != key {
			idx--
		}
		if idx < 0 {
			it.pos = -1
			return false
		}
		it.pos = idx
		return true
	}
	if idx == len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos = idx
	return true
}

func (it *iterator) Close() error { return nil }
