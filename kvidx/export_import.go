package kvidx

import (
	"errors"
	"io"

	"github.com/mattsta/kvidxkit/kvidx/codec"
)

// exportSource adapts a positioned Iterator to codec.RecordSource.
type exportSource struct {
	it     Iterator
	seeked bool
}

func (s *exportSource) Next() (codec.Record, bool, error) {
	if !s.it.Next() {
		return codec.Record{}, false, nil
	}
	key, term, cmd, data, err := s.it.Get()
	if err != nil {
		return codec.Record{}, false, err
	}
	return codec.Record{Key: key, Term: term, Cmd: cmd, Payload: data}, true, nil
}

// Export streams every record in [startKey, endKey] through the dialect
// selected by opts.Format (§4.8). Binary export is lossless; JSON/CSV are
// lossy, export-only dialects.
func (in *Instance) Export(w io.Writer, startKey, endKey uint64, opts codec.ExportOptions) error {
	total, err := in.conn.CountRange(startKey, endKey)
	if err != nil {
		return in.fail(err)
	}
	it, err := in.conn.Iterate(IterOptions{Start: startKey, End: endKey, Dir: Forward})
	if err != nil {
		return in.fail(err)
	}
	defer it.Close()

	src := &exportSource{it: it}
	switch opts.Format {
	case codec.JSON:
		err = codec.WriteJSON(w, src, total, opts.IncludeMeta, opts.Pretty, opts.Progress)
	case codec.CSV:
		err = codec.WriteCSV(w, src, total, opts.IncludeMeta, opts.Progress)
	default:
		err = codec.WriteBinary(w, src, total, opts.Progress)
	}
	if err != nil {
		return in.fail(mapCodecErr(err))
	}
	return nil
}

// Import reads a Binary v1 stream and populates the store (§4.8). The whole
// operation runs in one transaction: on an adapter whose Abort rolls back,
// an error (including Cancelled from the progress callback) leaves the store
// exactly as it was before Import. memkv's Abort does not undo writes, so
// there an error leaves the records written before it in place.
func (in *Instance) Import(r io.Reader, opts codec.ImportOptions) error {
	if err := in.conn.Begin(); err != nil {
		return in.fail(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = in.conn.Abort()
		}
	}()

	if opts.ClearBeforeImport {
		if _, err := in.conn.RemoveAfterNInclusive(0); err != nil {
			return in.fail(err)
		}
	}

	insert := func(rec codec.Record) error {
		if opts.SkipDuplicates {
			exists, err := in.conn.Exists(rec.Key)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
		}
		return in.conn.Insert(rec.Key, rec.Term, rec.Cmd, rec.Payload)
	}

	if err := codec.ReadBinary(r, insert, opts.Progress); err != nil {
		return in.fail(mapCodecErr(err))
	}

	if err := in.conn.Commit(); err != nil {
		return in.fail(err)
	}
	committed = true
	return nil
}

// ClearAll removes every record in the store, using the same
// RemoveAfterNInclusive(0) call that Import makes for ClearBeforeImport.
func (in *Instance) ClearAll() error {
	if _, err := in.conn.RemoveAfterNInclusive(0); err != nil {
		return in.fail(err)
	}
	return nil
}

func mapCodecErr(err error) error {
	switch {
	case errors.Is(err, codec.ErrCancelled):
		return ErrCancelled
	case errors.Is(err, codec.ErrCorrupt):
		return ErrCorrupt
	case errors.Is(err, codec.ErrNotSupported):
		return ErrNotSupported
	default:
		return newErr(Io, "export/import i/o", err)
	}
}
