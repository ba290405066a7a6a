package kvidx

import "errors"

// ErrCode classifies errors so callers can branch on intent rather than text.
type ErrCode int

const (
	Ok ErrCode = iota
	InvalidArgument
	DuplicateKey
	NotFound
	DiskFull
	Io
	Corrupt
	TransactionActive
	NoTransaction
	Readonly
	Locked
	NoMem
	TooBig
	Constraint
	Schema
	Range
	NotSupported
	Cancelled
	ConditionFailed
	Expired
	Internal
)

// Error is a typed error carrying a stable code and an optional cause.
type Error struct {
	Code ErrCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// newErr builds an *Error, optionally wrapping a cause.
func newErr(code ErrCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

// Sentinels. Compare with errors.Is; every adapter should return one of
// these (or wrap one) rather than inventing ad-hoc strings.
var (
	ErrInvalidArgument  = &Error{Code: InvalidArgument, Msg: "invalid argument"}
	ErrDuplicateKey     = &Error{Code: DuplicateKey, Msg: "key already exists"}
	ErrNotFound         = &Error{Code: NotFound, Msg: "key not found"}
	ErrDiskFull         = &Error{Code: DiskFull, Msg: "disk full"}
	ErrIo               = &Error{Code: Io, Msg: "i/o error"}
	ErrCorrupt          = &Error{Code: Corrupt, Msg: "corrupt store"}
	ErrTransactionActive = &Error{Code: TransactionActive, Msg: "transaction already active"}
	ErrNoTransaction    = &Error{Code: NoTransaction, Msg: "no transaction active"}
	ErrReadonly         = &Error{Code: Readonly, Msg: "instance is read-only"}
	ErrLocked           = &Error{Code: Locked, Msg: "store is locked"}
	ErrNoMem            = &Error{Code: NoMem, Msg: "out of memory"}
	ErrTooBig           = &Error{Code: TooBig, Msg: "value too large"}
	ErrConstraint       = &Error{Code: Constraint, Msg: "constraint violation"}
	ErrSchema           = &Error{Code: Schema, Msg: "schema error"}
	ErrRange            = &Error{Code: Range, Msg: "invalid range"}
	ErrNotSupported     = &Error{Code: NotSupported, Msg: "operation not supported"}
	ErrCancelled        = &Error{Code: Cancelled, Msg: "operation cancelled"}
	ErrConditionFailed  = &Error{Code: ConditionFailed, Msg: "condition failed"}
	ErrExpired          = &Error{Code: Expired, Msg: "key expired"}
	ErrInternal         = &Error{Code: Internal, Msg: "internal error"}
)

// ErrorString returns a stable, human-readable string for code, including
// unknown codes ("Unknown error"). It never returns an empty string.
func ErrorString(code ErrCode) string {
	switch code {
	case Ok:
		return "no error"
	case InvalidArgument:
		return "invalid argument"
	case DuplicateKey:
		return "key already exists"
	case NotFound:
		return "not found"
	case DiskFull:
		return "disk full"
	case Io:
		return "i/o error"
	case Corrupt:
		return "corrupt store"
	case TransactionActive:
		return "transaction already active"
	case NoTransaction:
		return "no transaction active"
	case Readonly:
		return "read-only"
	case Locked:
		return "locked"
	case NoMem:
		return "out of memory"
	case TooBig:
		return "value too large"
	case Constraint:
		return "constraint violation"
	case Schema:
		return "schema error"
	case Range:
		return "invalid range"
	case NotSupported:
		return "not supported"
	case Cancelled:
		return "cancelled"
	case ConditionFailed:
		return "condition failed"
	case Expired:
		return "expired"
	case Internal:
		return "internal error"
	default:
		return "Unknown error"
	}
}

// CodeOf unwraps err looking for a *kvidx.Error and returns its Code; returns
// Internal for any other non-nil error and Ok for a nil error.
func CodeOf(err error) ErrCode {
	if err == nil {
		return Ok
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}
