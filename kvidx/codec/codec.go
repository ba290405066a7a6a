// Package codec implements the versioned binary export/import stream and
// its JSON/CSV export-only dialects (§4.8, C9). It is backend-agnostic: it
// consumes a RecordSource and yields decoded Records, so every adapter
// shares one implementation instead of one divergent copy per adapter. The package
// deliberately does not import kvidx, so kvidx's facade can import codec
// without a cycle; the facade translates codec's sentinel errors into the
// kvidx.Error taxonomy.
package codec

import "errors"

// Record mirrors kvidx.Record's shape without importing the kvidx package.
type Record struct {
	Key     uint64
	Term    uint64
	Cmd     uint64
	Payload []byte
}

// RecordSource yields records in ascending key order. Ok is false once
// exhausted; a non-nil error aborts the export immediately.
type RecordSource interface {
	Next() (rec Record, ok bool, err error)
}

// Sentinel errors codec returns; callers map these onto their own error
// taxonomy (kvidx maps them onto *kvidx.Error codes Cancelled/Corrupt/
// NotSupported/Io).
var (
	ErrCancelled   = errors.New("codec: operation cancelled")
	ErrCorrupt     = errors.New("codec: corrupt or truncated stream")
	ErrNotSupported = errors.New("codec: format not supported for import")
)

// ProgressFunc is invoked periodically during export/import; returning false
// aborts the operation with ErrCancelled (§4.8, §5).
type ProgressFunc func(current, total int64) bool

// progressEvery matches the source's documented (non-contractual) callback
// granularity (§9 open questions): every 100 entries, plus once at the end.
const progressEvery = 100

// Format selects an export dialect. Only Binary is accepted for import.
type Format int

const (
	Binary Format = iota
	JSON
	CSV
)

// ExportOptions controls filtering and dialect for Export. Key filtering
// itself is applied by the caller when constructing the RecordSource (via
// the adapter's ranged iterator); these options govern only the dialect.
type ExportOptions struct {
	Format      Format
	Pretty      bool // JSON only
	IncludeMeta bool // include term/cmd columns/fields (JSON/CSV)
	Progress    ProgressFunc
}

// ImportOptions controls Import behavior. Import reads only the Binary
// stream; it has no format option, and a stream whose version is not v1 is
// ErrNotSupported (§4.8).
type ImportOptions struct {
	ClearBeforeImport bool
	SkipDuplicates    bool
	Progress          ProgressFunc
}

func reportProgress(progress ProgressFunc, current, total int64, final bool) bool {
	if progress == nil {
		return true
	}
	if final || current%progressEvery == 0 {
		return progress(current, total)
	}
	return true
}
