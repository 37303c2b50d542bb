package wire

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000, 0xffffffffffffffff}

	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, 0, v); err != nil {
			t.Fatalf("Failed to write varint %d : %s", v, err)
		}

		if buf.Len() != VarIntSerializeSize(v) {
			t.Errorf("Incorrect serialize size for %d : got %d, want %d", v, buf.Len(),
				VarIntSerializeSize(v))
		}

		got, err := ReadVarInt(bytes.NewReader(buf.Bytes()), 0)
		if err != nil {
			t.Fatalf("Failed to read varint %d : %s", v, err)
		}
		if got != v {
			t.Errorf("Incorrect varint round trip : got %d, want %d", got, v)
		}
	}
}

func TestReadVarIntRejectsNonCanonical(t *testing.T) {
	// 0xfd followed by a uint16 of 0xfc, which should have been encoded as a single byte.
	buf := []byte{0xfd, 0xfc, 0x00}
	if _, err := ReadVarInt(bytes.NewReader(buf), 0); err == nil {
		t.Fatalf("Expected non-canonical varint to be rejected")
	}
}

func TestVarStringRoundTrip(t *testing.T) {
	values := []string{"", "a", "a transaction annotation"}

	for _, s := range values {
		var buf bytes.Buffer
		if err := WriteVarString(&buf, 0, s); err != nil {
			t.Fatalf("Failed to write var string %q : %s", s, err)
		}

		got, err := ReadVarString(bytes.NewReader(buf.Bytes()), 0)
		if err != nil {
			t.Fatalf("Failed to read var string %q : %s", s, err)
		}
		if got != s {
			t.Errorf("Incorrect var string round trip : got %q, want %q", got, s)
		}
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	values := [][]byte{{}, {0x01}, {0x01, 0x02, 0x03, 0x04, 0x05}}

	for _, b := range values {
		var buf bytes.Buffer
		if err := WriteVarBytes(&buf, 0, b); err != nil {
			t.Fatalf("Failed to write var bytes %x : %s", b, err)
		}

		got, err := ReadVarBytes(bytes.NewReader(buf.Bytes()), 0, MaxMessagePayload, "test")
		if err != nil {
			t.Fatalf("Failed to read var bytes %x : %s", b, err)
		}
		if len(got) != len(b) || (len(b) > 0 && !bytes.Equal(got, b)) {
			t.Errorf("Incorrect var bytes round trip : got %x, want %x", got, b)
		}
	}
}

func TestReadVarBytesRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVarBytes(&buf, 0, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("Failed to write var bytes : %s", err)
	}

	if _, err := ReadVarBytes(bytes.NewReader(buf.Bytes()), 0, 2, "test"); err == nil {
		t.Fatalf("Expected oversized var bytes to be rejected")
	}
}

func TestRandomUint64(t *testing.T) {
	a, err := RandomUint64()
	if err != nil {
		t.Fatalf("Failed to generate random uint64 : %s", err)
	}
	b, err := RandomUint64()
	if err != nil {
		t.Fatalf("Failed to generate random uint64 : %s", err)
	}
	if a == b {
		t.Errorf("Two consecutive random uint64 values collided, which is suspicious but not impossible")
	}
}
