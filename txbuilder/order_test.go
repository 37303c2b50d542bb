package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

func outPointFromByte(b byte, index uint32) *wire.OutPoint {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return wire.NewOutPoint(&h, index)
}

func plainLockingScript(tag byte) bitcoin.Script {
	script := bitcoin.Script{bitcoin.OP_DUP, bitcoin.OP_HASH160}
	hash := make([]byte, 20)
	hash[19] = tag
	script = append(script, hash...)
	script = append(script, bitcoin.OP_EQUALVERIFY, bitcoin.OP_CHECKSIG)
	return script
}

// TestSortBIP69Ordering reproduces the BIP-69 testable property: after Sort, inputs are
// non-decreasing by (prevout hash, index) and outputs are non-decreasing by (value, script).
func TestSortBIP69Ordering(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(3, 0), nil))
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(1, 5), nil))
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(1, 2), nil))
	tx.AddTxOut(wire.NewTxOut(500, plainLockingScript(9)))
	tx.AddTxOut(wire.NewTxOut(100, plainLockingScript(1)))
	tx.AddTxOut(wire.NewTxOut(100, plainLockingScript(0)))

	if err := Sort(tx, bitcoin.MainNet); err != nil {
		t.Fatalf("Failed to sort : %s", err)
	}

	for i := 1; i < len(tx.TxIn); i++ {
		a := tx.TxIn[i-1].PreviousOutPoint
		b := tx.TxIn[i].PreviousOutPoint
		cmp := compareHash(a.Hash, b.Hash)
		if cmp > 0 || (cmp == 0 && a.Index > b.Index) {
			t.Fatalf("Inputs not in BIP-69 order at %d", i)
		}
	}

	for i := 1; i < len(tx.TxOut); i++ {
		a, b := tx.TxOut[i-1], tx.TxOut[i]
		if a.Value > b.Value {
			t.Fatalf("Outputs not value-ordered at %d", i)
		}
	}
}

func compareHash(a, b chainhash.Hash) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// TestSortForSwapIsNoOp reproduces the for-swap suppression: with forSwap=true, Sort must leave
// input and output order untouched.
func TestSortForSwapIsNoOp(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(3, 0), nil))
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(1, 5), nil))
	tx.AddTxOut(wire.NewTxOut(500, plainLockingScript(9)))
	tx.AddTxOut(wire.NewTxOut(100, plainLockingScript(1)))

	wantFirstInput := tx.TxIn[0].PreviousOutPoint
	wantFirstOutput := tx.TxOut[0].Value

	if err := SortForSwap(tx); err != nil {
		t.Fatalf("Failed to sort for swap : %s", err)
	}

	if tx.TxIn[0].PreviousOutPoint != wantFirstInput {
		t.Fatalf("SortForSwap reordered inputs")
	}
	if tx.TxOut[0].Value != wantFirstOutput {
		t.Fatalf("SortForSwap reordered outputs")
	}
}

// TestSortIndicesMatchesSort checks that applying the permutation SortIndices returns produces
// the same transaction Sort would build directly.
func TestSortIndicesMatchesSort(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(3, 0), nil))
	tx.AddTxIn(wire.NewTxIn(outPointFromByte(1, 5), nil))
	tx.AddTxOut(wire.NewTxOut(500, plainLockingScript(9)))
	tx.AddTxOut(wire.NewTxOut(100, plainLockingScript(1)))

	inputOrder, outputOrder := SortIndices(tx, bitcoin.MainNet)

	applyOrder(tx, inputOrder, outputOrder)

	for i := 1; i < len(tx.TxIn); i++ {
		a := tx.TxIn[i-1].PreviousOutPoint
		b := tx.TxIn[i].PreviousOutPoint
		cmp := compareHash(a.Hash, b.Hash)
		if cmp > 0 {
			t.Fatalf("SortIndices permutation not in BIP-69 order at input %d", i)
		}
	}
}
