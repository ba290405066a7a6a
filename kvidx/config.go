package kvidx

import "go.uber.org/zap"

// JournalMode selects the write-ahead strategy for SQL-style backends.
type JournalMode int

const (
	JournalDelete JournalMode = iota
	JournalTruncate
	JournalPersist
	JournalMemory
	JournalWAL
	JournalOff
)

// SyncMode selects how aggressively a backend flushes to stable storage.
type SyncMode int

const (
	SyncOff SyncMode = iota
	SyncNormal
	SyncFull
	SyncExtra
)

// Config enumerates tunables shared across adapters. An adapter applies the
// subset it understands and silently ignores the rest (§4.10) unless a
// field is outright inconsistent, in which case ApplyConfig returns
// ErrInvalidArgument.
type Config struct {
	CacheSizeBytes          int64
	JournalMode             JournalMode
	SyncMode                SyncMode
	EnableRecursiveTriggers bool
	EnableForeignKeys       bool
	ReadOnly                bool
	BusyTimeoutMs           int
	MmapSizeBytes           int64
	PageSize                int

	// Logger receives Debug logs at transaction boundaries and Warn logs
	// for auto-recovered conditions (malformed stored values decoding to
	// the zeroed sentinel). Nil means no logging; adapters fall back to
	// zap.NewNop() rather than nil-checking on every call site.
	Logger *zap.Logger
}

// DefaultConfig returns the documented zero-value-equivalent defaults.
func DefaultConfig() Config {
	return Config{
		CacheSizeBytes:          32 << 20,
		JournalMode:             JournalWAL,
		SyncMode:                SyncNormal,
		EnableRecursiveTriggers: true,
		EnableForeignKeys:       false,
		ReadOnly:                false,
		BusyTimeoutMs:           5000,
		MmapSizeBytes:           0,
		PageSize:                0,
	}
}

// Validate rejects configuration combinations that can never be satisfied by
// any adapter, before an adapter ever touches disk.
func (c Config) Validate() error {
	if c.BusyTimeoutMs < 0 {
		return newErr(InvalidArgument, "busyTimeoutMs must be >= 0", nil)
	}
	if c.CacheSizeBytes < 0 {
		return newErr(InvalidArgument, "cacheSizeBytes must be >= 0", nil)
	}
	if c.MmapSizeBytes < 0 {
		return newErr(InvalidArgument, "mmapSizeBytes must be >= 0", nil)
	}
	if c.PageSize < 0 {
		return newErr(InvalidArgument, "pageSize must be >= 0", nil)
	}
	return nil
}
