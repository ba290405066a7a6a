package kvidx

import "context"

// Conn is the backend-abstraction contract every adapter implements (§4.1).
// It is the Go-native form of the C function table described in the spec:
// one interface per adapter package, registered by name through Register
// (registry.go). The facade (Instance) dispatches every public call through this
// interface and never touches adapter internals directly.
//
// Implementations are not required to be safe for concurrent use by more
// than one goroutine at a time (§5) — the contract is that callers serialize
// access to a single Conn, exactly as a single-threaded cooperative instance
// would in the source design.
type Conn interface {
	lifecycle
	txControl
	core
	navigation
	rangeOps
	primitives
	ttl
	statistics

	// Iterate returns a positioned-but-not-yet-seeked Iterator over
	// [opts.Start, opts.End] in opts.Dir order (§4.4, C8).
	Iterate(opts IterOptions) (Iterator, error)

	// ApplyConfig applies the subset of cfg the backend supports (§4.10).
	ApplyConfig(cfg Config) error
}

type lifecycle interface {
	Close() error
	Fsync() error
}

// txControl implements the auto-commit state machine from §4.2: Begin is a
// no-op when already writing; Commit/Abort are no-ops when idle.
type txControl interface {
	Begin() error
	Commit() error
	Abort() error
}

type core interface {
	// Get returns the record's term/cmd/payload; ok is false if key is absent.
	Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error)
	Insert(key, term, cmd uint64, payload []byte) error
	Remove(key uint64) error
	Exists(key uint64) (bool, error)
	// ExistsDual is true iff the key exists AND its stored term equals term
	// (deliberately asymmetric: cmd is never compared, per §9 open questions).
	ExistsDual(key, term uint64) (bool, error)
	// MaxKey reports ok=false (not an error) when the store is empty.
	MaxKey() (key uint64, ok bool, err error)
	// MinKey returns ErrNotFound when the store is empty (kept asymmetric
	// with MaxKey deliberately, for API compatibility — §4.3, §9).
	MinKey() (uint64, error)
}

type navigation interface {
	// GetNext returns the smallest stored key strictly greater than key.
	GetNext(key uint64) (next uint64, ok bool, err error)
	// GetPrev returns the greatest stored key strictly less than key, or the
	// last key in the store if none is >= key (I4, §4.4).
	GetPrev(key uint64) (prev uint64, ok bool, err error)
}

type rangeOps interface {
	RemoveAfterNInclusive(key uint64) (deleted int64, err error)
	RemoveBeforeNInclusive(key uint64) (deleted int64, err error)
	RemoveRange(start, end uint64, startInclusive, endInclusive bool) (deleted int64, err error)
	CountRange(start, end uint64) (count int64, err error)
	ExistsInRange(start, end uint64) (exists bool, err error)
}

type primitives interface {
	InsertEx(key, term, cmd uint64, payload []byte, cond Condition) error
	GetAndSet(key, newTerm, newCmd uint64, newPayload []byte) (oldTerm, oldCmd uint64, oldData []byte, existed bool, err error)
	GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error)
	CompareAndSwap(key uint64, expected []byte, newTerm, newCmd uint64, newPayload []byte) (swapped bool, err error)
	Append(key, term, cmd uint64, payload []byte) (newLen int, err error)
	Prepend(key, term, cmd uint64, payload []byte) (newLen int, err error)
	GetValueRange(key uint64, offset, length int) (data []byte, err error)
	SetValueRange(key uint64, offset int, data []byte) (newLen int, err error)
}

type ttl interface {
	SetExpire(key uint64, ttlMs int64) error
	SetExpireAt(key uint64, absoluteMs int64) error
	GetTTL(key uint64) (int64, error)
	Persist(key uint64) error
	// ExpireScan sweeps at most maxKeys TTL entries (0 = unbounded) and
	// removes expired records from both the TTL index and the main store
	// in a single transaction, returning how many were actually removed.
	ExpireScan(ctx context.Context, maxKeys int) (expired int64, err error)
}

type statistics interface {
	GetStats() (Stats, error)
	GetKeyCount() (int64, error)
	GetMinKey() (uint64, error)
	GetDataSize() (int64, error)
}

// Iterator is a stateful forward/backward cursor bound to [Start, End] (§4.4).
type Iterator interface {
	// Next advances the cursor; on the first call it seeks to the boundary
	// appropriate to direction. Returns false once positioned outside range
	// or the underlying data changed under it (stale iterators never panic,
	// they simply report false thereafter).
	Next() bool
	// Valid reports whether the iterator is currently positioned on a
	// record inside its range.
	Valid() bool
	// Get returns the record at the current position. Valid() must be true.
	Get() (key, term, cmd uint64, data []byte, err error)
	Key() uint64
	// Seek repositions to key if present, else to the nearest in-range key
	// in the iteration direction. Returns false if no such key exists.
	Seek(key uint64) bool
	// Close releases cursor resources. Safe to call multiple times.
	Close() error
}

// IterOptions bounds and directs an Iterator.
type IterOptions struct {
	Start uint64
	End   uint64
	Dir   Direction
}
