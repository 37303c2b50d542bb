package psbt

import (
	"bytes"
	"testing"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

// TestPartialTransactionSortCarriesMetadata checks that Sort reorders Inputs/Outputs the same
// way txbuilder.Sort reorders the underlying transaction, keeping each PartialTxInput's attached
// UTXO aligned with the outpoint it describes.
func TestPartialTransactionSortCarriesMetadata(t *testing.T) {
	pt := New(1, 0)

	highHash := hashFromByte(9)
	lowHash := hashFromByte(1)

	inHigh := NewPartialTxInput(wire.OutPoint{Hash: highHash, Index: 0}, wire.MaxTxInSequenceNum)
	inHigh.WitnessUtxo = &wire.TxOut{Value: 1000, LockingScript: testLockingScript()}
	inHigh.updateCache()

	inLow := NewPartialTxInput(wire.OutPoint{Hash: lowHash, Index: 0}, wire.MaxTxInSequenceNum)
	inLow.WitnessUtxo = &wire.TxOut{Value: 2000, LockingScript: testLockingScript()}
	inLow.updateCache()

	pt.Inputs = append(pt.Inputs, inHigh, inLow)
	pt.Outputs = append(pt.Outputs,
		NewPartialTxOutput(500, testLockingScript()),
		NewPartialTxOutput(100, testLockingScript()),
	)

	pt.Sort(bitcoin.MainNet)

	if !bytes.Equal(pt.Inputs[0].Outpoint.Hash[:], lowHash[:]) {
		t.Fatalf("Expected low-hash input first after sort")
	}
	if pt.Inputs[0].WitnessUtxo.Value != 2000 {
		t.Fatalf("Input metadata did not travel with its reordered outpoint")
	}
	if pt.Outputs[0].Value != 100 {
		t.Fatalf("Expected lowest-value output first after sort")
	}
}

// TestPartialTransactionSortForSwapIsNoOp checks that ForSwap suppresses Sort exactly as
// txbuilder.SortForSwap suppresses reordering on a plain transaction.
func TestPartialTransactionSortForSwapIsNoOp(t *testing.T) {
	pt := New(1, 0)
	pt.ForSwap = true

	highHash := hashFromByte(9)
	lowHash := hashFromByte(1)
	pt.Inputs = append(pt.Inputs,
		NewPartialTxInput(wire.OutPoint{Hash: highHash, Index: 0}, wire.MaxTxInSequenceNum),
		NewPartialTxInput(wire.OutPoint{Hash: lowHash, Index: 0}, wire.MaxTxInSequenceNum),
	)

	pt.Sort(bitcoin.MainNet)

	if !bytes.Equal(pt.Inputs[0].Outpoint.Hash[:], highHash[:]) {
		t.Fatalf("ForSwap PartialTransaction was reordered")
	}
}
