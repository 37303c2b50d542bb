package psbt

import (
	"bytes"
	"io"

	"github.com/ravenproject/rvntx/wire"
)

// magic is the five-byte header every PSBT byte stream starts with: "psbt" followed by 0xff, so
// a stream that happens to start with text ("EPTF" in the other byte order, or similar) is
// rejected immediately instead of silently misparsed.
var magic = []byte{'p', 's', 'b', 't', 0xff}

// keyValue is one raw key-value record from a PSBT map: a key type byte, an optional key-data
// suffix (used by records like BIP32_DERIVATION and PARTIAL_SIG that are keyed by a public key or
// extended key rather than just the type byte), and the value bytes.
type keyValue struct {
	keyType byte
	keyData []byte
	value   []byte
}

// key returns the keyType byte followed by keyData, the full map key this record would sort and
// deduplicate by.
func (kv keyValue) key() []byte {
	if len(kv.keyData) == 0 {
		return []byte{kv.keyType}
	}
	return append([]byte{kv.keyType}, kv.keyData...)
}

func (kv keyValue) keyString() string {
	return string(kv.key())
}

// readKeyValue reads one key-value record, or returns (keyValue{}, true, nil) at a zero-length
// key, which terminates a map per §4.6's two-pass framing.
func readKeyValue(r io.Reader) (keyValue, bool, error) {
	keyLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return keyValue{}, false, newSerializationError("read key length")
	}
	if keyLen == 0 {
		return keyValue{}, true, nil
	}
	if keyLen > wire.MaxMessagePayload {
		return keyValue{}, false, newSerializationError("key length too large")
	}

	keyBytes := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return keyValue{}, false, newSerializationError("read key bytes")
	}

	valueBytes, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "psbt value")
	if err != nil {
		return keyValue{}, false, newSerializationError("read value bytes")
	}

	return keyValue{keyType: keyBytes[0], keyData: keyBytes[1:], value: valueBytes}, false, nil
}

// writeKeyValue writes one key-value record: varint key length, key bytes, varint value length,
// value bytes.
func writeKeyValue(w io.Writer, kv keyValue) error {
	if err := wire.WriteVarBytes(w, 0, kv.key()); err != nil {
		return newSerializationError("write key")
	}
	if err := wire.WriteVarBytes(w, 0, kv.value); err != nil {
		return newSerializationError("write value")
	}
	return nil
}

// writeMapEnd writes the zero-length key that terminates a map.
func writeMapEnd(w io.Writer) error {
	return wire.WriteVarInt(w, 0, 0)
}

// readMap reads key-value records until the terminating zero-length key, returning them in
// stream order. Two-pass parsing (first collect the raw records, then interpret them against the
// per-section key-type table) lets §4.6's "unknown key type preserved verbatim" rule and its
// "duplicate key type rejected" rule both be enforced uniformly across global/input/output
// sections. The full key (type byte plus any key data, e.g. the pubkey in PARTIAL_SIG or
// BIP32_DERIVATION, or the xpub bytes in global XPUB) must be unique within the map: a repeated
// identical key is rejected here so keyed record types don't need their own duplicate tracking.
func readMap(r io.Reader) ([]keyValue, error) {
	var records []keyValue
	seenKeys := make(map[string]bool)
	for {
		kv, end, err := readKeyValue(r)
		if err != nil {
			return nil, err
		}
		if end {
			return records, nil
		}
		key := kv.keyString()
		if seenKeys[key] {
			return nil, newSerializationError("duplicate key")
		}
		seenKeys[key] = true
		records = append(records, kv)
	}
}

// checkMagic reads and validates the five-byte PSBT header.
func checkMagic(r io.Reader) error {
	got := make([]byte, len(magic))
	if _, err := io.ReadFull(r, got); err != nil {
		return newBadMagicError(got)
	}
	if !bytes.Equal(got, magic) {
		return newBadMagicError(got)
	}
	return nil
}

func writeMagic(w io.Writer) error {
	_, err := w.Write(magic)
	return err
}
