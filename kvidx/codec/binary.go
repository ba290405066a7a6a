package codec

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Binary v1 is the only format Import accepts and the only lossless one
// (§4.8). Layout, all integers little-endian:
//
//	Header (32 bytes):
//	  magic      uint64  format constant
//	  version    uint32  = 1
//	  reserved   uint32  = 0
//	  entryCount uint64  number of entries that follow
//	  padding    8 bytes reserved for future header fields, zero-filled
//	Per entry:
//	  key, term, cmd, payloadLen uint64, then payloadLen bytes of payload
const (
	magicV1    uint64 = 0x5844495645564B00
	formatVer1 uint32 = 1
	headerBytes       = 32
	entryFixed        = 8 * 4 // key, term, cmd, payloadLen
)

// WriteBinary streams src out in Binary v1 framing. total is the entry
// count reported in the header and used for progress reporting; the caller
// must ensure src yields exactly that many records.
func WriteBinary(w io.Writer, src RecordSource, total int64, progress ProgressFunc) error {
	bw := bufio.NewWriter(w)

	var hdr [headerBytes]byte
	binary.LittleEndian.PutUint64(hdr[0:8], magicV1)
	binary.LittleEndian.PutUint32(hdr[8:12], formatVer1)
	binary.LittleEndian.PutUint32(hdr[12:16], 0)
	binary.LittleEndian.PutUint64(hdr[16:24], uint64(total))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	var scratch [entryFixed]byte
	var n int64
	for {
		rec, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		binary.LittleEndian.PutUint64(scratch[0:8], rec.Key)
		binary.LittleEndian.PutUint64(scratch[8:16], rec.Term)
		binary.LittleEndian.PutUint64(scratch[16:24], rec.Cmd)
		binary.LittleEndian.PutUint64(scratch[24:32], uint64(len(rec.Payload)))
		if _, err := bw.Write(scratch[:]); err != nil {
			return err
		}
		if len(rec.Payload) > 0 {
			if _, err := bw.Write(rec.Payload); err != nil {
				return err
			}
		}
		n++
		if !reportProgress(progress, n, total, false) {
			_ = bw.Flush()
			return ErrCancelled
		}
	}
	reportProgress(progress, n, total, true)
	return bw.Flush()
}

// ReadBinary parses a Binary v1 stream, calling insert(rec) for each entry
// in file order. clearBeforeImport and skipDuplicates are applied by the
// caller (Instance.Import) before/around this function; ReadBinary itself
// only decodes and reports progress/cancellation.
func ReadBinary(r io.Reader, insert func(Record) error, progress ProgressFunc) error {
	br := bufio.NewReader(r)

	var hdr [headerBytes]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return ErrCorrupt
	}
	magic := binary.LittleEndian.Uint64(hdr[0:8])
	version := binary.LittleEndian.Uint32(hdr[8:12])
	if magic != magicV1 {
		return ErrCorrupt
	}
	if version != formatVer1 {
		return ErrNotSupported
	}
	total := int64(binary.LittleEndian.Uint64(hdr[16:24]))

	var scratch [entryFixed]byte
	for i := int64(0); i < total; i++ {
		if _, err := io.ReadFull(br, scratch[:]); err != nil {
			return ErrCorrupt
		}
		rec := Record{
			Key:  binary.LittleEndian.Uint64(scratch[0:8]),
			Term: binary.LittleEndian.Uint64(scratch[8:16]),
			Cmd:  binary.LittleEndian.Uint64(scratch[16:24]),
		}
		payloadLen := binary.LittleEndian.Uint64(scratch[24:32])
		if payloadLen > 0 {
			rec.Payload = make([]byte, payloadLen)
			if _, err := io.ReadFull(br, rec.Payload); err != nil {
				return ErrCorrupt
			}
		}
		if err := insert(rec); err != nil {
			return err
		}
		if !reportProgress(progress, i+1, total, false) {
			return ErrCancelled
		}
	}
	reportProgress(progress, total, total, true)
	return nil
}
