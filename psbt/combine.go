package psbt

import (
	"bytes"

	"github.com/ravenproject/rvntx/wire"
)

// sameUnsignedTx reports whether a and b sign the same underlying transaction: identical version,
// locktime, and input/output vectors once serialized in the legacy unsigned form.
func sameUnsignedTx(a, b *PartialTransaction) bool {
	bufA := &bytes.Buffer{}
	bufB := &bytes.Buffer{}
	if err := a.UnsignedTx().SerializeLegacy(bufA, false); err != nil {
		return false
	}
	if err := b.UnsignedTx().SerializeLegacy(bufB, false); err != nil {
		return false
	}
	return bytes.Equal(bufA.Bytes(), bufB.Bytes())
}

// Combine merges the signing metadata of two PSBTs that sign the same unsigned transaction: the
// union of each input's signatures, scripts, and derivation records (self's value wins where both
// sides set a scalar field, since a combine is only meaningful when both sides agree), and the
// union of each output's metadata and the global maps. It then runs Finalize so any input that
// became complete as a result is assembled immediately.
func Combine(a, b *PartialTransaction) (*PartialTransaction, error) {
	if !sameUnsignedTx(a, b) {
		return nil, newConsistencyError("combine requires identical unsigned transactions")
	}

	merged := a.clone()

	for k, v := range b.GlobalXPubs {
		if _, ok := merged.GlobalXPubs[k]; !ok {
			merged.GlobalXPubs[k] = v
		}
	}
	for k, v := range b.GlobalUnknowns {
		if _, ok := merged.GlobalUnknowns[k]; !ok {
			merged.GlobalUnknowns[k] = cloneBytes(v)
		}
	}

	for i, in := range merged.Inputs {
		mergeInput(in, b.Inputs[i])
	}
	for i, out := range merged.Outputs {
		mergeOutput(out, b.Outputs[i])
	}

	if err := merged.Finalize(); err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeInput(self, other *PartialTxInput) {
	if self.NonWitnessUtxo == nil && other.NonWitnessUtxo != nil {
		self.NonWitnessUtxo = other.NonWitnessUtxo.Copy()
	}
	if self.WitnessUtxo == nil && other.WitnessUtxo != nil {
		self.WitnessUtxo = &wire.TxOut{Value: other.WitnessUtxo.Value, LockingScript: cloneScript(other.WitnessUtxo.LockingScript)}
	}
	for k, v := range other.PartialSigs {
		if _, ok := self.PartialSigs[k]; !ok {
			self.PartialSigs[k] = cloneBytes(v)
		}
	}
	if !self.HasSighashType && other.HasSighashType {
		self.SighashType = other.SighashType
		self.HasSighashType = true
	}
	if len(self.RedeemScript) == 0 {
		self.RedeemScript = cloneScript(other.RedeemScript)
	}
	if len(self.WitnessScript) == 0 {
		self.WitnessScript = cloneScript(other.WitnessScript)
	}
	for k, v := range other.Bip32Derivations {
		if _, ok := self.Bip32Derivations[k]; !ok {
			self.Bip32Derivations[k] = v
		}
	}
	if len(self.FinalScriptSig) == 0 {
		self.FinalScriptSig = cloneScript(other.FinalScriptSig)
	}
	if self.FinalScriptWitness == nil && other.FinalScriptWitness != nil {
		witness := make([][]byte, len(other.FinalScriptWitness))
		for i, item := range other.FinalScriptWitness {
			witness[i] = cloneBytes(item)
		}
		self.FinalScriptWitness = witness
	}
	for k, v := range other.Unknowns {
		if _, ok := self.Unknowns[k]; !ok {
			self.Unknowns[k] = cloneBytes(v)
		}
	}
	self.updateCache()
}

func mergeOutput(self, other *PartialTxOutput) {
	if len(self.RedeemScript) == 0 {
		self.RedeemScript = cloneScript(other.RedeemScript)
	}
	if len(self.WitnessScript) == 0 {
		self.WitnessScript = cloneScript(other.WitnessScript)
	}
	for k, v := range other.Bip32Derivations {
		if _, ok := self.Bip32Derivations[k]; !ok {
			self.Bip32Derivations[k] = v
		}
	}
	self.IsMine = self.IsMine || other.IsMine
	self.IsChange = self.IsChange || other.IsChange
	for k, v := range other.Unknowns {
		if _, ok := self.Unknowns[k]; !ok {
			self.Unknowns[k] = cloneBytes(v)
		}
	}
}

// Join concatenates the inputs and outputs of two PSBTs into a new, unsigned transaction: every
// signature is cleared since each input is no longer signing the transaction it was originally
// part of. Rejects a pair that share a prevout, since that input couldn't belong to both resulting
// vectors unambiguously.
func Join(a, b *PartialTransaction) (*PartialTransaction, error) {
	seen := make(map[wire.OutPoint]bool, len(a.Inputs))
	for _, in := range a.Inputs {
		seen[in.Outpoint] = true
	}
	for _, in := range b.Inputs {
		if seen[in.Outpoint] {
			return nil, newConsistencyError("join requires disjoint prevouts")
		}
	}

	joined := New(a.Version, a.LockTime)
	joined.ForSwap = a.ForSwap || b.ForSwap

	for _, in := range a.Inputs {
		joined.Inputs = append(joined.Inputs, stripSignatures(in.clone()))
	}
	for _, in := range b.Inputs {
		joined.Inputs = append(joined.Inputs, stripSignatures(in.clone()))
	}
	for _, out := range a.Outputs {
		joined.Outputs = append(joined.Outputs, out.clone())
	}
	for _, out := range b.Outputs {
		joined.Outputs = append(joined.Outputs, out.clone())
	}

	for _, pt := range []*PartialTransaction{a, b} {
		for k, v := range pt.GlobalXPubs {
			if _, ok := joined.GlobalXPubs[k]; !ok {
				joined.GlobalXPubs[k] = v
			}
		}
		for k, v := range pt.GlobalUnknowns {
			if _, ok := joined.GlobalUnknowns[k]; !ok {
				joined.GlobalUnknowns[k] = cloneBytes(v)
			}
		}
	}

	return joined, nil
}

func stripSignatures(in *PartialTxInput) *PartialTxInput {
	in.PartialSigs = make(map[string][]byte)
	in.FinalScriptSig = nil
	in.FinalScriptWitness = nil
	in.updateCache()
	return in
}

// RemoveSignatures clears every input's signatures and finalized scriptSig/witness, returning the
// PSBT to its unsigned state while leaving scripts, UTXOs, and derivation records intact.
func (pt *PartialTransaction) RemoveSignatures() {
	for _, in := range pt.Inputs {
		stripSignatures(in)
	}
}
