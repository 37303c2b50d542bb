package psbt

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
	"github.com/ravenproject/rvntx/wire"
)

// TestCombineIdentity reproduces combine(a, a) == a.
func TestCombineIdentity(t *testing.T) {
	pt := testPartialTransaction()

	merged, err := Combine(pt, pt)
	if err != nil {
		t.Fatalf("Failed to combine : %s", err)
	}

	want, err := pt.Bytes()
	if err != nil {
		t.Fatalf("Failed to serialize original : %s", err)
	}
	got, err := merged.Bytes()
	if err != nil {
		t.Fatalf("Failed to serialize merged : %s", err)
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("combine(a, a) != a\nwant: %x\ngot:  %x", want, got)
	}
}

func buildMultisigPSBT(t *testing.T, pubKeys []bitcoin.PublicKey) *PartialTransaction {
	t.Helper()
	witnessScript, err := bitcoin.MultisigLockingScript(2, pubKeys)
	if err != nil {
		t.Fatalf("Failed to build multisig witness script : %s", err)
	}
	wsh := bitcoin.Sha256(witnessScript)
	addr, err := bitcoin.NewRawAddressWSH(wsh)
	if err != nil {
		t.Fatalf("Failed to build p2wsh address : %s", err)
	}
	lockingScript, err := addr.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	pt := New(1, 0)
	outpoint := wire.OutPoint{Hash: hashFromByte(7), Index: 0}
	in := NewPartialTxInput(outpoint, wire.MaxTxInSequenceNum)
	in.WitnessUtxo = &wire.TxOut{Value: 20000, LockingScript: lockingScript}
	in.WitnessScript = witnessScript
	in.updateCache()
	pt.Inputs = append(pt.Inputs, in)
	pt.Outputs = append(pt.Outputs, NewPartialTxOutput(19000, testLockingScript()))
	return pt
}

func signMultisigInput(t *testing.T, pt *PartialTransaction, index int, key bitcoin.Key) {
	t.Helper()
	in := pt.Inputs[index]
	prevOutScript, err := in.PrevOutScript()
	if err != nil {
		t.Fatalf("Failed to get prev out script : %s", err)
	}
	preimageScript, err := txbuilder.PreimageScript(prevOutScript, nil, in.WitnessScript, nil)
	if err != nil {
		t.Fatalf("Failed to build preimage script : %s", err)
	}
	value, err := in.Value()
	if err != nil {
		t.Fatalf("Failed to get value : %s", err)
	}

	sig, err := txbuilder.InputSignature(key, pt.UnsignedTx(), index, preimageScript, value,
		txbuilder.SigHashAll, true, &txbuilder.SigHashCache{})
	if err != nil {
		t.Fatalf("Failed to sign : %s", err)
	}
	in.PartialSigs[string(key.PublicKey().Bytes())] = sig
}

// TestCombineMultisigTwoOfThree reproduces the 2-of-3 p2wsh scenario: two co-signers each produce
// one signature on their own copy of the PSBT, combine merges them, and the result finalizes into
// a network transaction with a 2-signature witness.
func TestCombineMultisigTwoOfThree(t *testing.T) {
	keys := make([]bitcoin.Key, 3)
	pubKeys := make([]bitcoin.PublicKey, 3)
	for i := range keys {
		key, err := bitcoin.GenerateKey(bitcoin.MainNet)
		if err != nil {
			t.Fatalf("Failed to generate key %d : %s", i, err)
		}
		keys[i] = key
		pubKeys[i] = key.PublicKey()
	}

	base := buildMultisigPSBT(t, pubKeys)

	signerA := base.clone()
	signMultisigInput(t, signerA, 0, keys[0])

	signerB := base.clone()
	signMultisigInput(t, signerB, 0, keys[1])

	combinedAB, err := Combine(signerA, signerB)
	if err != nil {
		t.Fatalf("Failed to combine a, b : %s", err)
	}
	combinedBA, err := Combine(signerB, signerA)
	if err != nil {
		t.Fatalf("Failed to combine b, a : %s", err)
	}

	bytesAB, err := combinedAB.Bytes()
	if err != nil {
		t.Fatalf("Failed to serialize combine(a, b) : %s", err)
	}
	bytesBA, err := combinedBA.Bytes()
	if err != nil {
		t.Fatalf("Failed to serialize combine(b, a) : %s", err)
	}
	if !bytes.Equal(bytesAB, bytesBA) {
		t.Fatalf("combine(a, b) != combine(b, a)\nab: %x\nba: %x", bytesAB, bytesBA)
	}

	if !combinedAB.IsComplete() {
		t.Fatalf("Combined PSBT not reported complete after two of three signatures")
	}

	tx, err := combinedAB.ToTx()
	if err != nil {
		t.Fatalf("Failed to build final tx : %s", err)
	}
	witness := tx.TxIn[0].Witness
	// OP_0 placeholder + 2 signatures + witness script.
	if len(witness) != 4 {
		t.Fatalf("Expected 4-item witness stack, got %d\n%s", len(witness), spew.Sdump(witness))
	}
	if len(witness[0]) != 0 {
		t.Fatalf("Expected CHECKMULTISIG off-by-one placeholder, got %x", witness[0])
	}
}

// TestJoinNonOverlap reproduces join non-overlap: joining two PSBTs with disjoint prevouts yields
// the union of their inputs with signatures cleared, and fails when prevouts collide.
func TestJoinNonOverlap(t *testing.T) {
	a := testPartialTransaction()

	b := New(1, 0)
	outpoint := wire.OutPoint{Hash: hashFromByte(9), Index: 0}
	in := NewPartialTxInput(outpoint, wire.MaxTxInSequenceNum)
	in.WitnessUtxo = &wire.TxOut{Value: 3000, LockingScript: testLockingScript()}
	in.PartialSigs["dummy"] = []byte{0x01}
	in.updateCache()
	b.Inputs = append(b.Inputs, in)
	b.Outputs = append(b.Outputs, NewPartialTxOutput(2500, testLockingScript()))

	joined, err := Join(a, b)
	if err != nil {
		t.Fatalf("Failed to join : %s", err)
	}
	if len(joined.Inputs) != len(a.Inputs)+len(b.Inputs) {
		t.Fatalf("Expected %d inputs, got %d", len(a.Inputs)+len(b.Inputs), len(joined.Inputs))
	}
	for i, in := range joined.Inputs {
		if len(in.PartialSigs) != 0 {
			t.Fatalf("Joined input %d retained signatures", i)
		}
	}

	if _, err := Join(a, a); err == nil {
		t.Fatalf("Expected join of overlapping prevouts to fail")
	}
}
