package codec

import (
	"bufio"
	"fmt"
	"io"
)

// WriteJSON emits the export-only JSON dialect (§4.8):
//
//	{"format":"kvidx-json","version":1,"entries":[{"key":N,"term":N,"cmd":N,"data":"..."}...]}
//
// Payload bytes are escaped byte-for-byte: '"' and '\' are backslash-escaped,
// bytes below 0x20 or equal to 0x7F are \u00XX-escaped, everything else
// (including bytes that are not valid UTF-8 on their own) is copied through
// literally — this is a lossy, export-only dialect by design.
func WriteJSON(w io.Writer, src RecordSource, total int64, includeMeta, pretty bool, progress ProgressFunc) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(`{"format":"kvidx-json","version":1,"entries":[`); err != nil {
		return err
	}

	var n int64
	first := true
	for {
		rec, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		first = false
		if pretty {
			if _, err := bw.WriteString("\n  "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, `{"key":%d,`, rec.Key); err != nil {
			return err
		}
		if includeMeta {
			if _, err := fmt.Fprintf(bw, `"term":%d,"cmd":%d,`, rec.Term, rec.Cmd); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(`"data":"`); err != nil {
			return err
		}
		if err := writeJSONEscaped(bw, rec.Payload); err != nil {
			return err
		}
		if _, err := bw.WriteString(`"}`); err != nil {
			return err
		}
		n++
		if !reportProgress(progress, n, total, false) {
			_ = bw.Flush()
			return ErrCancelled
		}
	}
	reportProgress(progress, n, total, true)
	if pretty && !first {
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("]}"); err != nil {
		return err
	}
	return bw.Flush()
}

func writeJSONEscaped(bw *bufio.Writer, data []byte) error {
	for _, c := range data {
		switch {
		case c == '"' || c == '\\':
			if err := bw.WriteByte('\\'); err != nil {
				return err
			}
			if err := bw.WriteByte(c); err != nil {
				return err
			}
		case c < 0x20 || c == 0x7F:
			if _, err := fmt.Fprintf(bw, `\u%04x`, c); err != nil {
				return err
			}
		default:
			if err := bw.WriteByte(c); err != nil {
				return err
			}
		}
	}
	return nil
}
