package txbuilder

import (
	"bytes"
	"sort"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

// Sort reorders tx's inputs and outputs into BIP-69 lexicographic order, then applies the
// Ravencoin asset-ownership overlay to the output order. Sort always reorders; a transaction
// that carries (or will carry) an input signed with a SIGHASH_SINGLE variant, whose signature
// binds to the output at the same index as the input, goes through SortForSwap instead, which
// leaves both vectors alone.
func Sort(tx *wire.MsgTx, net bitcoin.Network) error {
	return sortInternal(tx, net, false)
}

// SortForSwap is Sort with forSwap forced true: a no-op, kept as a named entry point so callers
// building a SIGHASH_SINGLE|ANYONECANPAY swap can express the suppression explicitly rather than
// relying on the reader to know why Sort wasn't called.
func SortForSwap(tx *wire.MsgTx) error {
	return sortInternal(tx, bitcoin.InvalidNet, true)
}

func sortInternal(tx *wire.MsgTx, net bitcoin.Network, forSwap bool) error {
	if forSwap {
		return nil
	}

	inputOrder, outputOrder := SortIndices(tx, net)
	applyOrder(tx, inputOrder, outputOrder)
	return nil
}

// SortIndices computes the BIP-69 + asset-overlay permutation for tx's inputs and outputs without
// mutating tx, returning, for each vector, the original indices in their new order
// (inputOrder[0] is the index of the input that should end up first, and so on). Sort/SortForSwap
// apply this permutation directly to the transaction; a caller that maintains metadata parallel
// to a transaction's inputs/outputs (the psbt package's PartialTransaction, whose Inputs/Outputs
// slices track wire.TxIn/TxOut one-for-one) uses this to carry that metadata along in the same
// order rather than re-deriving it.
func SortIndices(tx *wire.MsgTx, net bitcoin.Network) (inputOrder []int, outputOrder []int) {
	inputOrder = make([]int, len(tx.TxIn))
	for i := range inputOrder {
		inputOrder[i] = i
	}
	// (previous-output hash ascending, previous-output index ascending), per BIP-69. The hash
	// comparison uses the wire (non-reversed) byte order, which matches the 32-byte array's
	// natural lexicographic order regardless of display convention.
	sort.SliceStable(inputOrder, func(i, j int) bool {
		a := tx.TxIn[inputOrder[i]].PreviousOutPoint
		b := tx.TxIn[inputOrder[j]].PreviousOutPoint
		if cmp := bytes.Compare(a.Hash[:], b.Hash[:]); cmp != 0 {
			return cmp < 0
		}
		return a.Index < b.Index
	})

	// Outputs: BIP-69 (value ascending, locking script bytes ascending), then a stable
	// re-rank into [burn] + [other] + [parent-owner] + [asset-owner] + [create], recognizing
	// ownership by the Ravencoin "name ends with !" convention and burn addresses via net's
	// configured chain parameters. An output is "asset-create" (sorts last) when it carries an
	// issuance ('q') or reissuance ('r') asset script; "asset/parent-owner" outputs are
	// transfers ('t') of an ownership-suffixed name, split by whether the name is a root asset
	// ("parent") or a sub-asset (contains '/'); everything else, including non-asset outputs,
	// is "other". Re-ranking with a second stable sort over the already-sorted order is
	// equivalent to concatenating the five buckets in rank order while preserving each
	// output's relative position within its bucket.
	outputOrder = make([]int, len(tx.TxOut))
	for i := range outputOrder {
		outputOrder[i] = i
	}
	sort.SliceStable(outputOrder, func(i, j int) bool {
		a, b := tx.TxOut[outputOrder[i]], tx.TxOut[outputOrder[j]]
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		return bytes.Compare(a.LockingScript, b.LockingScript) < 0
	})

	params := bitcoin.ChainParamsForNetwork(net)
	classes := make([]outputClass, len(tx.TxOut))
	for i, out := range tx.TxOut {
		classes[i] = classifyOutput(out, net, params)
	}
	rank := map[outputClass]int{
		outputClassBurn:        0,
		outputClassOther:       1,
		outputClassParentOwner: 2,
		outputClassAssetOwner:  3,
		outputClassCreate:      4,
	}
	sort.SliceStable(outputOrder, func(i, j int) bool {
		return rank[classes[outputOrder[i]]] < rank[classes[outputOrder[j]]]
	})

	return inputOrder, outputOrder
}

func applyOrder(tx *wire.MsgTx, inputOrder, outputOrder []int) {
	reorderedIn := make([]*wire.TxIn, len(tx.TxIn))
	for i, idx := range inputOrder {
		reorderedIn[i] = tx.TxIn[idx]
	}
	tx.TxIn = reorderedIn

	reorderedOut := make([]*wire.TxOut, len(tx.TxOut))
	for i, idx := range outputOrder {
		reorderedOut[i] = tx.TxOut[idx]
	}
	tx.TxOut = reorderedOut
}

type outputClass int

const (
	outputClassOther outputClass = iota
	outputClassBurn
	outputClassParentOwner
	outputClassAssetOwner
	outputClassCreate
)

func classifyOutput(out *wire.TxOut, net bitcoin.Network, params *bitcoin.ChainParams) outputClass {
	if addr, err := bitcoin.AddressFromLockingScript(bitcoin.Script(out.LockingScript), net); err == nil {
		if _, isBurn := params.BurnAddresses[addr.String()]; isBurn {
			return outputClassBurn
		}
	}

	_, payload, hasAsset := bitcoin.Script(out.LockingScript).SplitAsset()
	if !hasAsset {
		return outputClassOther
	}

	asset, err := bitcoin.ParseAssetScript(payload)
	if err != nil {
		return outputClassOther
	}

	switch asset.Type {
	case bitcoin.AssetScriptIssuance, bitcoin.AssetScriptReissuance:
		return outputClassCreate

	case bitcoin.AssetScriptTransfer:
		if !bitcoin.IsOwnershipAssetName(asset.Name) {
			return outputClassOther
		}
		if bytes.ContainsRune([]byte(asset.Name), '/') {
			return outputClassAssetOwner
		}
		return outputClassParentOwner

	default:
		return outputClassOther
	}
}

// EnableReplaceByFee sets every input's sequence number to signal BIP-125 opt-in replace-by-fee
// (MaxTxInSequenceNum-2, the conventional "replaceable, no relative locktime" value), unless
// forSwap is set, in which case the sequence numbers carrying a SIGHASH_SINGLE signature must be
// left untouched since a sequence rewrite after signing would invalidate it under non-witness
// sighash rules that commit to nSequence.
func EnableReplaceByFee(tx *wire.MsgTx, forSwap bool) {
	if forSwap {
		return
	}
	for _, in := range tx.TxIn {
		in.Sequence = wire.MaxTxInSequenceNum - 2
	}
}
