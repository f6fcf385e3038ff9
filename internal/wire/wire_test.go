package wire

import (
	"bytes"
	"testing"
)

func TestRowsetRoundtrip(t *testing.T) {
	payload := []byte(`[{"id":1},{"id":2}]`)
	b := EncodeRowset(2, payload)

	rows, got, err := DecodeRowset(b)
	if err != nil {
		t.Fatalf("DecodeRowset: %v", err)
	}
	if rows != 2 {
		t.Fatalf("rows = %d", rows)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q", got)
	}
}

func TestRowsetEmptyPayload(t *testing.T) {
	b := EncodeRowset(0, nil)
	rows, got, err := DecodeRowset(b)
	if err != nil {
		t.Fatalf("DecodeRowset: %v", err)
	}
	if rows != 0 || len(got) != 0 {
		t.Fatalf("rows=%d payload=%q", rows, got)
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"short":       []byte("CHME"),
		"bad magic":   append([]byte("XXXX"), EncodeRowset(1, []byte("x"))[4:]...),
		"bad version": func() []byte { b := EncodeRowset(1, []byte("x")); b[4] = 99; return b }(),
		"bad kind":    func() []byte { b := EncodeRowset(1, []byte("x")); b[5] = 99; return b }(),
		"truncated":   EncodeRowset(1, []byte("hello"))[:14],
		"oversized length": func() []byte {
			b := EncodeRowset(1, []byte("x"))
			b[10], b[11], b[12], b[13] = 0xff, 0xff, 0xff, 0xff
			return b
		}(),
	}
	for name, b := range cases {
		if _, _, err := DecodeRowset(b); err != ErrCorrupt {
			t.Fatalf("%s: err = %v, want ErrCorrupt", name, err)
		}
	}
}
