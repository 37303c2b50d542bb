package wire

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/ravenproject/rvntx/bitcoin"
)

func plainScript(tag byte) bitcoin.Script {
	script := bitcoin.Script{bitcoin.OP_DUP, bitcoin.OP_HASH160}
	hash := make([]byte, 20)
	hash[19] = tag
	script = append(script, hash...)
	script = append(script, bitcoin.OP_EQUALVERIFY, bitcoin.OP_CHECKSIG)
	return script
}

func outPointFromByte(b byte, index uint32) *OutPoint {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return NewOutPoint(&h, index)
}

func TestMsgTxSerializeDeserializeLegacy(t *testing.T) {
	tx := NewMsgTx(TxVersion)
	tx.AddTxIn(NewTxIn(outPointFromByte(1, 0), plainScript(9)))
	tx.AddTxOut(NewTxOut(1000, plainScript(2)))
	tx.LockTime = 500000

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Failed to serialize : %s", err)
	}

	decoded := &MsgTx{}
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Failed to deserialize : %s", err)
	}

	if decoded.Version != tx.Version {
		t.Errorf("Incorrect version : got %d, want %d", decoded.Version, tx.Version)
	}
	if decoded.LockTime != tx.LockTime {
		t.Errorf("Incorrect locktime : got %d, want %d", decoded.LockTime, tx.LockTime)
	}
	if len(decoded.TxIn) != 1 || len(decoded.TxOut) != 1 {
		t.Fatalf("Incorrect input/output counts : %d in, %d out", len(decoded.TxIn), len(decoded.TxOut))
	}
	if decoded.HasWitness() {
		t.Errorf("Legacy transaction should not report witness")
	}
	if *decoded.TxHash() != *tx.TxHash() {
		t.Errorf("Incorrect txid after round trip")
	}
	if *decoded.WTxHash() != *decoded.TxHash() {
		t.Errorf("wtxid should equal txid for a transaction with no witnesses")
	}
}

func TestMsgTxSerializeDeserializeSegwit(t *testing.T) {
	tx := NewMsgTx(TxVersion)
	in := NewTxIn(outPointFromByte(3, 1), nil)
	in.Witness = [][]byte{{0x01, 0x02}, {0x03}}
	tx.AddTxIn(in)
	tx.AddTxOut(NewTxOut(5000, plainScript(4)))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Failed to serialize : %s", err)
	}

	decoded := &MsgTx{}
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Failed to deserialize : %s", err)
	}

	if !decoded.HasWitness() {
		t.Fatalf("Expected decoded transaction to carry a witness")
	}
	if len(decoded.TxIn[0].Witness) != 2 {
		t.Fatalf("Incorrect witness item count : got %d, want 2", len(decoded.TxIn[0].Witness))
	}
	if !bytes.Equal(decoded.TxIn[0].Witness[0], []byte{0x01, 0x02}) {
		t.Errorf("Incorrect witness item 0")
	}

	if *decoded.TxHash() == *decoded.WTxHash() {
		t.Errorf("txid and wtxid should differ once a witness is present")
	}

	legacyBuf := &bytes.Buffer{}
	_ = decoded.serialize(legacyBuf, false)
	legacyHash := chainhash.DoubleHashH(legacyBuf.Bytes())
	if chainhash.Hash(*decoded.TxHash()) != legacyHash {
		t.Errorf("txid is not the hash of the witness-stripped serialization")
	}
}

func TestMsgTxWeightAndVSize(t *testing.T) {
	legacy := NewMsgTx(TxVersion)
	legacy.AddTxIn(NewTxIn(outPointFromByte(1, 0), plainScript(1)))
	legacy.AddTxOut(NewTxOut(1000, plainScript(2)))

	if legacy.Weight() != legacy.BaseSize()*4 {
		t.Errorf("Legacy weight should be 4x base size : got %d, want %d",
			legacy.Weight(), legacy.BaseSize()*4)
	}

	segwit := NewMsgTx(TxVersion)
	in := NewTxIn(outPointFromByte(1, 0), nil)
	in.Witness = [][]byte{{0x01, 0x02, 0x03}}
	segwit.AddTxIn(in)
	segwit.AddTxOut(NewTxOut(1000, plainScript(2)))

	base := segwit.BaseSize()
	witness := segwit.WitnessSize()
	wantWeight := 3*base + base + witness
	if segwit.Weight() != wantWeight {
		t.Errorf("Incorrect segwit weight : got %d, want %d", segwit.Weight(), wantWeight)
	}
	if segwit.VSize() <= base {
		t.Errorf("VSize should account for the witness discount, not just equal base size")
	}
}

func TestTxOutIsMaxSpend(t *testing.T) {
	out := NewTxOut(MaxSpend, plainScript(1))
	if !out.IsMaxSpend() {
		t.Fatalf("Expected IsMaxSpend to be true for MaxSpend value")
	}

	out2 := NewTxOut(1, plainScript(1))
	if out2.IsMaxSpend() {
		t.Fatalf("Expected IsMaxSpend to be false for a concrete value")
	}
}

// TestMsgTxDeserializeTrailingBytesRejected reproduces spec.md §4.5/§7's "trailing junk" failure
// kind : bytes left over after the locktime must be rejected, not silently ignored.
func TestMsgTxDeserializeTrailingBytesRejected(t *testing.T) {
	tx := NewMsgTx(TxVersion)
	tx.AddTxIn(NewTxIn(outPointFromByte(1, 0), plainScript(9)))
	tx.AddTxOut(NewTxOut(1000, plainScript(2)))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Failed to serialize : %s", err)
	}
	buf.Write([]byte{0xde, 0xad})

	decoded := &MsgTx{}
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatalf("Expected trailing bytes to be rejected")
	}
}

func TestMsgTxCopy(t *testing.T) {
	tx := NewMsgTx(TxVersion)
	tx.AddTxIn(NewTxIn(outPointFromByte(1, 0), plainScript(9)))
	tx.AddTxOut(NewTxOut(1000, plainScript(2)))

	cp := tx.Copy()
	cp.TxOut[0].Value = 9999

	if tx.TxOut[0].Value == cp.TxOut[0].Value {
		t.Fatalf("Copy should not alias the original's outputs")
	}
	if *cp.TxHash() == *tx.TxHash() {
		t.Fatalf("Mutated copy should not hash the same as the original")
	}
}
