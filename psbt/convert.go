package psbt

import (
	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

// FromTx builds a PartialTransaction wrapping tx: its inputs and outputs carry no UTXOs, partial
// signatures, or derivation records yet, and an input's existing unlocking script and witness are
// copied into FinalScriptSig/FinalScriptWitness. Callers attach the rest with SetNonWitnessUtxo/
// SetWitnessUtxo and the signing engine.
func FromTx(tx *wire.MsgTx) *PartialTransaction {
	pt := New(tx.Version, tx.LockTime)
	for _, in := range tx.TxIn {
		input := NewPartialTxInput(in.PreviousOutPoint, in.Sequence)
		if len(in.UnlockingScript) > 0 {
			input.FinalScriptSig = in.UnlockingScript
		}
		if len(in.Witness) > 0 {
			input.FinalScriptWitness = in.Witness
		}
		pt.Inputs = append(pt.Inputs, input)
	}
	for _, out := range tx.TxOut {
		pt.Outputs = append(pt.Outputs, NewPartialTxOutput(out.Value, out.LockingScript))
	}
	return pt
}

// ToTx builds the finalized wire.MsgTx from pt: every input must carry a final scriptSig and/or
// witness (IsComplete), otherwise this returns a consistency error naming the first incomplete
// input.
func (pt *PartialTransaction) ToTx() (*wire.MsgTx, error) {
	tx := pt.UnsignedTx()
	for i, in := range pt.Inputs {
		if !in.IsComplete() {
			return nil, errorAtInput(i, newConsistencyError("input is not finalized"))
		}
		tx.TxIn[i].UnlockingScript = in.FinalScriptSig
		tx.TxIn[i].Witness = in.FinalScriptWitness
	}
	return tx, nil
}

// SetNonWitnessUtxo attaches the full previous transaction for input i and refreshes its cached
// fields.
func (pt *PartialTransaction) SetNonWitnessUtxo(i int, tx *wire.MsgTx) error {
	if i < 0 || i >= len(pt.Inputs) {
		return newConsistencyError("input index out of range")
	}
	in := pt.Inputs[i]
	in.NonWitnessUtxo = tx
	if err := in.validate(); err != nil {
		in.NonWitnessUtxo = nil
		return err
	}
	in.updateCache()
	return nil
}

// SetWitnessUtxo attaches a witness-UTXO snapshot (value + locking script only) for input i and
// refreshes its cached fields. A witness UTXO is accepted for any previous output script type,
// segwit or not; ChainParams.AllowNonSegwitWitnessUTXO is not consulted.
func (pt *PartialTransaction) SetWitnessUtxo(i int, out *wire.TxOut) error {
	if i < 0 || i >= len(pt.Inputs) {
		return newConsistencyError("input index out of range")
	}
	in := pt.Inputs[i]
	in.WitnessUtxo = out
	if err := in.validate(); err != nil {
		in.WitnessUtxo = nil
		return err
	}
	in.updateCache()
	return nil
}

// collapseToWitnessUtxo replaces every input's non-witness UTXO with the equivalent witness
// snapshot, dropping the rest of the referenced transaction. QR encoding uses this since a full
// previous transaction is usually the largest part of a PSBT and a witness-UTXO signer only ever
// needs the single output it spends.
func (pt *PartialTransaction) collapseToWitnessUtxo() *PartialTransaction {
	clone := pt.clone()
	for _, in := range clone.Inputs {
		if in.NonWitnessUtxo == nil {
			continue
		}
		out := in.NonWitnessUtxo.TxOut[in.Outpoint.Index]
		in.WitnessUtxo = &wire.TxOut{Value: out.Value, LockingScript: out.LockingScript}
		in.NonWitnessUtxo = nil
	}
	return clone
}

// QRBase43 serializes pt as base43 text after collapsing non-witness UTXOs into witness UTXOs,
// the densest encoding a QR code's alphanumeric mode supports.
func (pt *PartialTransaction) QRBase43() (string, error) {
	collapsed := pt.collapseToWitnessUtxo()
	b, err := collapsed.Bytes()
	if err != nil {
		return "", err
	}
	return bitcoin.Base43(b), nil
}

// clone deep-copies pt: every input, output, script, and map is independently allocated so
// mutating the copy (signing, finalizing, reordering) never affects pt.
func (pt *PartialTransaction) clone() *PartialTransaction {
	out := New(pt.Version, pt.LockTime)
	out.ForSwap = pt.ForSwap
	out.HasVersion = pt.HasVersion

	for k, v := range pt.GlobalXPubs {
		out.GlobalXPubs[k] = v
	}
	for k, v := range pt.GlobalUnknowns {
		out.GlobalUnknowns[k] = cloneBytes(v)
	}
	for k, v := range pt.LockingScriptOverrides {
		out.LockingScriptOverrides[k] = cloneScript(v)
	}

	for _, in := range pt.Inputs {
		out.Inputs = append(out.Inputs, in.clone())
	}
	for _, o := range pt.Outputs {
		out.Outputs = append(out.Outputs, o.clone())
	}

	return out
}

func (pi *PartialTxInput) clone() *PartialTxInput {
	out := NewPartialTxInput(pi.Outpoint, pi.Sequence)

	if pi.NonWitnessUtxo != nil {
		out.NonWitnessUtxo = pi.NonWitnessUtxo.Copy()
	}
	if pi.WitnessUtxo != nil {
		out.WitnessUtxo = &wire.TxOut{Value: pi.WitnessUtxo.Value, LockingScript: cloneScript(pi.WitnessUtxo.LockingScript)}
	}
	for k, v := range pi.PartialSigs {
		out.PartialSigs[k] = cloneBytes(v)
	}
	out.SighashType = pi.SighashType
	out.HasSighashType = pi.HasSighashType
	out.RedeemScript = cloneScript(pi.RedeemScript)
	out.WitnessScript = cloneScript(pi.WitnessScript)
	for k, v := range pi.Bip32Derivations {
		out.Bip32Derivations[k] = v
	}
	out.FinalScriptSig = cloneScript(pi.FinalScriptSig)
	if pi.FinalScriptWitness != nil {
		out.FinalScriptWitness = make([][]byte, len(pi.FinalScriptWitness))
		for i, item := range pi.FinalScriptWitness {
			out.FinalScriptWitness[i] = cloneBytes(item)
		}
	}
	for k, v := range pi.Unknowns {
		out.Unknowns[k] = cloneBytes(v)
	}

	out.updateCache()
	return out
}

func (po *PartialTxOutput) clone() *PartialTxOutput {
	out := NewPartialTxOutput(po.Value, cloneScript(po.LockingScript))
	out.RedeemScript = cloneScript(po.RedeemScript)
	out.WitnessScript = cloneScript(po.WitnessScript)
	for k, v := range po.Bip32Derivations {
		out.Bip32Derivations[k] = v
	}
	out.IsMine = po.IsMine
	out.IsChange = po.IsChange
	for k, v := range po.Unknowns {
		out.Unknowns[k] = cloneBytes(v)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneScript(s bitcoin.Script) bitcoin.Script {
	if s == nil {
		return nil
	}
	out := make(bitcoin.Script, len(s))
	copy(out, s)
	return out
}
