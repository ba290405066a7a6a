package valuecodec

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	stored := Pack(7, 9, []byte("hello"))
	term, cmd, payload := Unpack(stored)
	if term != 7 || cmd != 9 || !bytes.Equal(payload, []byte("hello")) {
		t.Fatalf("round trip mismatch: term=%d cmd=%d payload=%q", term, cmd, payload)
	}
}

func TestPackEmptyPayload(t *testing.T) {
	stored := Pack(1, 2, nil)
	if len(stored) != headerSize {
		t.Fatalf("expected header-only stored value, got %d bytes", len(stored))
	}
	term, cmd, payload := Unpack(stored)
	if term != 1 || cmd != 2 || len(payload) != 0 {
		t.Fatalf("unexpected decode: %d %d %q", term, cmd, payload)
	}
}

func TestUnpackMalformedDecodesToZeroSentinel(t *testing.T) {
	for _, n := range []int{0, 1, 8, 15} {
		term, cmd, payload := Unpack(make([]byte, n))
		if term != 0 || cmd != 0 || len(payload) != 0 {
			t.Fatalf("len=%d: expected zero sentinel, got term=%d cmd=%d payload=%q", n, term, cmd, payload)
		}
	}
}

func TestReadRangeBeyondEnd(t *testing.T) {
	if got := ReadRange([]byte("abc"), 10, 0); len(got) != 0 {
		t.Fatalf("expected empty slice for offset past end, got %q", got)
	}
}

func TestReadRangeToEnd(t *testing.T) {
	got := ReadRange([]byte("abcdef"), 2, 0)
	if !bytes.Equal(got, []byte("cdef")) {
		t.Fatalf("got %q", got)
	}
}

func TestWriteRangeExtends(t *testing.T) {
	out := WriteRange([]byte("ab"), 4, []byte("cd"))
	if !bytes.Equal(out, []byte("ab\x00\x00cd")) {
		t.Fatalf("got %q", out)
	}
}

func TestWriteRangeOverwritesInPlace(t *testing.T) {
	out := WriteRange([]byte("abcdef"), 2, []byte("XY"))
	if !bytes.Equal(out, []byte("abXYef")) {
		t.Fatalf("got %q", out)
	}
}
