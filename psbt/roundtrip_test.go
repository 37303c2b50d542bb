package psbt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-test/deep"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
	"github.com/ravenproject/rvntx/wire"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testLockingScript() bitcoin.Script {
	script := bitcoin.Script{bitcoin.OP_DUP, bitcoin.OP_HASH160}
	script = append(script, make([]byte, 20)...)
	script = append(script, bitcoin.OP_EQUALVERIFY, bitcoin.OP_CHECKSIG)
	return script
}

func testPartialTransaction() *PartialTransaction {
	pt := New(1, 0)
	outpoint := wire.OutPoint{Hash: hashFromByte(1), Index: 0}
	in := NewPartialTxInput(outpoint, wire.MaxTxInSequenceNum)
	in.WitnessUtxo = &wire.TxOut{Value: 5000, LockingScript: testLockingScript()}
	in.updateCache()
	pt.Inputs = append(pt.Inputs, in)
	pt.Outputs = append(pt.Outputs, NewPartialTxOutput(4000, testLockingScript()))
	return pt
}

// TestParseSerializeRoundTrip checks that a well-formed PSBT byte string survives a
// parse/serialize cycle unchanged.
func TestParseSerializeRoundTrip(t *testing.T) {
	pt := testPartialTransaction()

	original, err := pt.Bytes()
	if err != nil {
		t.Fatalf("Failed to serialize : %s", err)
	}

	parsed, err := Parse(original)
	if err != nil {
		t.Fatalf("Failed to parse : %s", err)
	}

	reserialized, err := parsed.Bytes()
	if err != nil {
		t.Fatalf("Failed to reserialize : %s", err)
	}

	if !bytes.Equal(original, reserialized) {
		t.Fatalf("Round-trip mismatch\noriginal: %x\nreserial: %x", original, reserialized)
	}

	// Parsing the reserialized bytes should produce a structurally identical object, not
	// merely one that reserializes to the same bytes. deep.Equal reports the first field
	// that diverges, which is more useful here than a second byte-for-byte comparison would be.
	reparsed, err := Parse(reserialized)
	if err != nil {
		t.Fatalf("Failed to reparse : %s", err)
	}
	if diff := deep.Equal(parsed, reparsed); diff != nil {
		t.Fatalf("Reparsed transaction diverged from first parse : %v", diff)
	}
}

// TestUnknownGlobalKeyPreserved reproduces the global key 0xAA / value 0xDEADBEEF scenario: an
// unrecognized global record must survive a parse/serialize cycle byte for byte.
func TestUnknownGlobalKeyPreserved(t *testing.T) {
	pt := testPartialTransaction()

	buf := &bytes.Buffer{}
	if err := writeMagic(buf); err != nil {
		t.Fatalf("Failed to write magic : %s", err)
	}

	txBuf := &bytes.Buffer{}
	if err := pt.UnsignedTx().SerializeLegacy(txBuf, false); err != nil {
		t.Fatalf("Failed to serialize unsigned tx : %s", err)
	}
	if err := writeKeyValue(buf, keyValue{keyType: globalUnsignedTx, value: txBuf.Bytes()}); err != nil {
		t.Fatalf("Failed to write unsigned tx record : %s", err)
	}

	unknownValue := make([]byte, 4)
	binary.BigEndian.PutUint32(unknownValue, 0xDEADBEEF)
	if err := writeKeyValue(buf, keyValue{keyType: 0xAA, value: unknownValue}); err != nil {
		t.Fatalf("Failed to write unknown global record : %s", err)
	}
	if err := writeMapEnd(buf); err != nil {
		t.Fatalf("Failed to write global map end : %s", err)
	}

	// One input, no records, one output, no records : this input/output carries a witness
	// utxo in testPartialTransaction but this handwritten stream tests the unknown-key path
	// in isolation, so leave both maps empty.
	if err := writeMapEnd(buf); err != nil {
		t.Fatalf("Failed to write input map end : %s", err)
	}
	if err := writeMapEnd(buf); err != nil {
		t.Fatalf("Failed to write output map end : %s", err)
	}

	original := buf.Bytes()

	parsed, err := Parse(original)
	if err != nil {
		t.Fatalf("Failed to parse : %s", err)
	}

	got, ok := parsed.GlobalUnknowns[string([]byte{0xAA})]
	if !ok {
		t.Fatalf("Unknown global key 0xAA not preserved")
	}
	if !bytes.Equal(got, unknownValue) {
		t.Fatalf("Unknown global value mismatch\ngot:  %x\nwant: %x", got, unknownValue)
	}

	reserialized, err := parsed.Bytes()
	if err != nil {
		t.Fatalf("Failed to reserialize : %s", err)
	}
	if !bytes.Equal(original, reserialized) {
		t.Fatalf("Unknown record not preserved verbatim\noriginal: %x\nreserial: %x", original, reserialized)
	}
}

// TestNonWitnessUtxoHashMismatchFails reproduces the consistency-failure scenario: a non-witness
// UTXO whose hash doesn't match the outpoint it's attached to must be rejected.
func TestNonWitnessUtxoHashMismatchFails(t *testing.T) {
	outpoint := wire.OutPoint{Hash: hashFromByte(1), Index: 0}
	in := NewPartialTxInput(outpoint, wire.MaxTxInSequenceNum)

	wrongTx := wire.NewMsgTx(1)
	wrongTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{2, 2, 2}, 0), nil))
	wrongTx.AddTxOut(wire.NewTxOut(1000, testLockingScript()))

	in.NonWitnessUtxo = wrongTx
	err := in.validate()
	if err == nil {
		t.Fatalf("Expected consistency failure, got nil")
	}
	if !txbuilder.IsErrorCode(err, txbuilder.ErrorCodePSBTInputConsistency) {
		t.Fatalf("Expected PSBT input consistency failure, got : %s", err)
	}
}
