package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteCSV emits the export-only CSV dialect (§4.8) with an RFC-4180 quoted
// header row "key,term,cmd,data" (or "key,data" when includeMeta is false).
// Payload bytes are string-coerced, so this dialect is lossy for binary
// payloads by design.
func WriteCSV(w io.Writer, src RecordSource, total int64, includeMeta bool, progress ProgressFunc) error {
	bw := bufio.NewWriter(w)

	if includeMeta {
		if _, err := bw.WriteString("key,term,cmd,data\n"); err != nil {
			return err
		}
	} else {
		if _, err := bw.WriteString("key,data\n"); err != nil {
			return err
		}
	}

	var n int64
	for {
		rec, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		var line strings.Builder
		fmt.Fprintf(&line, "%d,", rec.Key)
		if includeMeta {
			fmt.Fprintf(&line, "%d,%d,", rec.Term, rec.Cmd)
		}
		line.WriteString(csvQuote(string(rec.Payload)))
		line.WriteByte('\n')
		if _, err := bw.WriteString(line.String()); err != nil {
			return err
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

// csvQuote applies RFC-4180 quoting: a field containing a comma, double
// quote, or either line-ending byte is wrapped in quotes with embedded
// quotes doubled.
func csvQuote(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			b.WriteByte('"')
		}
		b.WriteByte(field[i])
	}
	b.WriteByte('"')
	return b.String()
}
