package kvidx

import (
	"context"
	"fmt"
)

// Instance is a handle comprising a backend vtable (Conn), a transaction-
// active flag, configuration snapshot, and sticky last-error state (§3).
// It is the unit of single-threaded use: an Instance is not safe for
// concurrent use by multiple goroutines (§5) — callers serialize access,
// exactly as the source's cooperative single-threaded model requires.
type Instance struct {
	conn    Conn
	backend string
	path    string
	cfg     Config
	writing bool
	lastErr *Error
}

// Open constructs an Instance by name from the registry (case-insensitive),
// returning a NotSupported *Error (see CodeOf) for an unknown backend.
func Open(backend, path string, cfg Config) (*Instance, error) {
	entry, ok := Lookup(backend)
	if !ok {
		return nil, newErr(NotSupported, fmt.Sprintf("no adapter registered as %q", backend), nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := entry.Open(path, cfg)
	if err != nil {
		return nil, newErr(Io, "open backend", err)
	}
	return &Instance{conn: conn, backend: entry.Name, path: path, cfg: cfg}, nil
}

// OpenWith wraps an already-constructed Conn (used by tests and by callers
// who built an adapter by hand instead of through the registry).
func OpenWith(conn Conn, backend, path string, cfg Config) *Instance {
	return &Instance{conn: conn, backend: backend, path: path, cfg: cfg}
}

// LastError returns the most recent sticky error recorded on this instance,
// or nil if none is set or it has been cleared.
func (in *Instance) LastError() *Error { return in.lastErr }

// ClearError resets the sticky last-error state.
func (in *Instance) ClearError() { in.lastErr = nil }

func (in *Instance) fail(err error) error {
	var e *Error
	if ce, ok := err.(*Error); ok {
		e = ce
	} else {
		e = newErr(Internal, "adapter error", err)
	}
	in.lastErr = e
	return e
}

// Backend returns the adapter name this instance was opened with.
func (in *Instance) Backend() string { return in.backend }

// Path returns the path this instance was opened against.
func (in *Instance) Path() string { return in.path }

// --- lifecycle ---

func (in *Instance) Close() error {
	if in == nil || in.conn == nil {
		return newErr(InvalidArgument, "nil instance", nil)
	}
	return in.conn.Close()
}

func (in *Instance) Fsync() error {
	if in == nil || in.conn == nil {
		return newErr(InvalidArgument, "nil instance", nil)
	}
	return in.conn.Fsync()
}

// --- transactions (§4.2) ---

func (in *Instance) Begin() error {
	if in.writing {
		return nil // idempotent, §4.2
	}
	if err := in.conn.Begin(); err != nil {
		return in.fail(err)
	}
	in.writing = true
	return nil
}

func (in *Instance) Commit() error {
	if !in.writing {
		return nil // idempotent, §4.2
	}
	if err := in.conn.Commit(); err != nil {
		return in.fail(err)
	}
	in.writing = false
	return nil
}

func (in *Instance) Abort() error {
	if !in.writing {
		return nil
	}
	if err := in.conn.Abort(); err != nil {
		return in.fail(err)
	}
	in.writing = false
	return nil
}

// --- core CRUD (C4) ---

func (in *Instance) Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error) {
	term, cmd, data, ok, err = in.conn.Get(key)
	if err != nil {
		err = in.fail(err)
	}
	return
}

func (in *Instance) Insert(key, term, cmd uint64, payload []byte) error {
	if err := in.conn.Insert(key, term, cmd, payload); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) Remove(key uint64) error {
	if err := in.conn.Remove(key); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) Exists(key uint64) (bool, error) {
	ok, err := in.conn.Exists(key)
	if err != nil {
		return false, in.fail(err)
	}
	return ok, nil
}

func (in *Instance) ExistsDual(key, term uint64) (bool, error) {
	ok, err := in.conn.ExistsDual(key, term)
	if err != nil {
		return false, in.fail(err)
	}
	return ok, nil
}

func (in *Instance) MaxKey() (uint64, bool, error) {
	k, ok, err := in.conn.MaxKey()
	if err != nil {
		return 0, false, in.fail(err)
	}
	return k, ok, nil
}

func (in *Instance) MinKey() (uint64, error) {
	k, err := in.conn.MinKey()
	if err != nil {
		return 0, in.fail(err)
	}
	return k, nil
}

// --- navigation (C5) ---

func (in *Instance) GetNext(key uint64) (uint64, bool, error) {
	k, ok, err := in.conn.GetNext(key)
	if err != nil {
		return 0, false, in.fail(err)
	}
	return k, ok, nil
}

func (in *Instance) GetPrev(key uint64) (uint64, bool, error) {
	k, ok, err := in.conn.GetPrev(key)
	if err != nil {
		return 0, false, in.fail(err)
	}
	return k, ok, nil
}

// --- range ops (C6) ---

func (in *Instance) RemoveRange(start, end uint64, startInclusive, endInclusive bool) (int64, error) {
	n, err := in.conn.RemoveRange(start, end, startInclusive, endInclusive)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) CountRange(start, end uint64) (int64, error) {
	n, err := in.conn.CountRange(start, end)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) ExistsInRange(start, end uint64) (bool, error) {
	ok, err := in.conn.ExistsInRange(start, end)
	if err != nil {
		return false, in.fail(err)
	}
	return ok, nil
}

func (in *Instance) RemoveAfterNInclusive(key uint64) (int64, error) {
	n, err := in.conn.RemoveAfterNInclusive(key)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) RemoveBeforeNInclusive(key uint64) (int64, error) {
	n, err := in.conn.RemoveBeforeNInclusive(key)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

// --- storage primitives (C7) ---

func (in *Instance) InsertEx(key, term, cmd uint64, payload []byte, cond Condition) error {
	if err := in.conn.InsertEx(key, term, cmd, payload, cond); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) GetAndSet(key, newTerm, newCmd uint64, newPayload []byte) (oldTerm, oldCmd uint64, oldData []byte, existed bool, err error) {
	oldTerm, oldCmd, oldData, existed, err = in.conn.GetAndSet(key, newTerm, newCmd, newPayload)
	if err != nil {
		err = in.fail(err)
	}
	return
}

func (in *Instance) GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error) {
	term, cmd, data, err = in.conn.GetAndRemove(key)
	if err != nil {
		err = in.fail(err)
	}
	return
}

func (in *Instance) CompareAndSwap(key uint64, expected []byte, newTerm, newCmd uint64, newPayload []byte) (bool, error) {
	swapped, err := in.conn.CompareAndSwap(key, expected, newTerm, newCmd, newPayload)
	if err != nil {
		return false, in.fail(err)
	}
	return swapped, nil
}

func (in *Instance) Append(key, term, cmd uint64, payload []byte) (int, error) {
	n, err := in.conn.Append(key, term, cmd, payload)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) Prepend(key, term, cmd uint64, payload []byte) (int, error) {
	n, err := in.conn.Prepend(key, term, cmd, payload)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) GetValueRange(key uint64, offset, length int) ([]byte, error) {
	data, err := in.conn.GetValueRange(key, offset, length)
	if err != nil {
		return nil, in.fail(err)
	}
	return data, nil
}

func (in *Instance) SetValueRange(key uint64, offset int, data []byte) (int, error) {
	n, err := in.conn.SetValueRange(key, offset, data)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

// --- TTL (C2) ---

func (in *Instance) SetExpire(key uint64, ttlMs int64) error {
	if err := in.conn.SetExpire(key, ttlMs); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) SetExpireAt(key uint64, absoluteMs int64) error {
	if err := in.conn.SetExpireAt(key, absoluteMs); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) GetTTL(key uint64) (int64, error) {
	ms, err := in.conn.GetTTL(key)
	if err != nil {
		return 0, in.fail(err)
	}
	return ms, nil
}

func (in *Instance) Persist(key uint64) error {
	if err := in.conn.Persist(key); err != nil {
		return in.fail(err)
	}
	return nil
}

func (in *Instance) ExpireScan(ctx context.Context, maxKeys int) (int64, error) {
	n, err := in.conn.ExpireScan(ctx, maxKeys)
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

// --- iterator (C8) ---

func (in *Instance) NewIterator(opts IterOptions) (Iterator, error) {
	if opts.Start > opts.End {
		return nil, in.fail(newErr(InvalidArgument, "startKey > endKey", nil))
	}
	it, err := in.conn.Iterate(opts)
	if err != nil {
		return nil, in.fail(err)
	}
	return it, nil
}

// --- statistics (C10) ---

func (in *Instance) GetStats() (Stats, error) {
	s, err := in.conn.GetStats()
	if err != nil {
		return Stats{}, in.fail(err)
	}
	return s, nil
}

func (in *Instance) GetKeyCount() (int64, error) {
	n, err := in.conn.GetKeyCount()
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

func (in *Instance) GetMinKey() (uint64, error) {
	k, err := in.conn.GetMinKey()
	if err != nil {
		return 0, in.fail(err)
	}
	return k, nil
}

func (in *Instance) GetDataSize() (int64, error) {
	n, err := in.conn.GetDataSize()
	if err != nil {
		return 0, in.fail(err)
	}
	return n, nil
}

// --- configuration (§4.10) ---

func (in *Instance) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return in.fail(err)
	}
	if err := in.conn.ApplyConfig(cfg); err != nil {
		return in.fail(err)
	}
	in.cfg = cfg
	return nil
}

// Conn exposes the underlying backend connection for callers that need
// adapter-specific escape hatches. Most callers should never need this.
func (in *Instance) Conn() Conn { return in.conn }
