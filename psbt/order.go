package psbt

import (
	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
)

// Sort reorders pt's inputs and outputs into BIP-69 + asset-overlay order (txbuilder.Sort),
// carrying each PartialTxInput/PartialTxOutput's signing metadata along with the wire.TxIn/TxOut
// it describes. A no-op when pt.ForSwap is set, for the same reason txbuilder.SortForSwap skips
// a transaction carrying a SIGHASH_SINGLE-style signature: reordering after that signature was
// produced would invalidate it.
func (pt *PartialTransaction) Sort(net bitcoin.Network) {
	if pt.ForSwap {
		return
	}

	inputOrder, outputOrder := txbuilder.SortIndices(pt.UnsignedTx(), net)

	reorderedIn := make([]*PartialTxInput, len(pt.Inputs))
	for i, idx := range inputOrder {
		reorderedIn[i] = pt.Inputs[idx]
	}
	pt.Inputs = reorderedIn

	reorderedOut := make([]*PartialTxOutput, len(pt.Outputs))
	for i, idx := range outputOrder {
		reorderedOut[i] = pt.Outputs[idx]
	}
	pt.Outputs = reorderedOut
}
