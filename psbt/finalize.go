package psbt

import (
	"bytes"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
)

// Finalize computes and stores the final scriptSig/witness for every input that already meets its
// completion predicate, then clears the now-redundant partial-sig, BIP-32 derivation, redeem
// script, and witness script fields per BIP-174 — the final scriptSig/witness carry that
// information from here on. Idempotent: an already-finalized input is left untouched.
func (pt *PartialTransaction) Finalize() error {
	for i, in := range pt.Inputs {
		if in.isCoinbase {
			continue
		}
		if len(in.FinalScriptSig) > 0 || len(in.FinalScriptWitness) > 0 {
			continue // already finalized
		}
		if !in.IsComplete() {
			continue // finalize never raises on an incomplete input; it just skips it
		}
		if err := in.finalize(); err != nil {
			return errorAtInput(i, err)
		}
	}
	return nil
}

// finalize assembles in's final scriptSig/witness from its aggregated signatures and scripts, and
// clears the fields BIP-174 says become redundant once finalized.
func (pi *PartialTxInput) finalize() error {
	switch {
	case len(pi.WitnessScript) > 0:
		sigs := orderedSigs(pi)
		witness := make([][]byte, 0, len(sigs)+2)
		witness = append(witness, nil) // CHECKMULTISIG off-by-one placeholder
		witness = append(witness, nonEmpty(sigs)...)
		witness = append(witness, pi.WitnessScript)
		pi.FinalScriptWitness = witness
		if len(pi.RedeemScript) > 0 {
			pushed, err := pushOnlyScript(pi.RedeemScript)
			if err != nil {
				return err
			}
			pi.FinalScriptSig = pushed
		}

	case len(pi.RedeemScript) > 0:
		if _, _, ok := bitcoin.MatchWitness(pi.RedeemScript); ok {
			pubkey, sig, ok := singleSig(pi)
			if !ok {
				return newUnknownTxInTypeError("p2sh-p2wpkh missing signature")
			}
			pi.FinalScriptWitness = [][]byte{sig, pubkey}
			pushed, err := pushOnlyScript(pi.RedeemScript)
			if err != nil {
				return err
			}
			pi.FinalScriptSig = pushed
		} else {
			sigs := orderedSigs(pi)
			unlocking, err := txbuilder.MultisigUnlockingScript(sigs)
			if err != nil {
				return err
			}
			pushed, err := pushOnlyScript(pi.RedeemScript)
			if err != nil {
				return err
			}
			pi.FinalScriptSig = append(append(bitcoin.Script{}, unlocking...), pushed...)
		}

	case pi.scriptType == bitcoin.ScriptTypeP2WPKH:
		pubkey, sig, ok := singleSig(pi)
		if !ok {
			return newUnknownTxInTypeError("p2wpkh missing signature")
		}
		pi.FinalScriptWitness = [][]byte{sig, pubkey}

	case pi.scriptType == bitcoin.ScriptTypeP2PKH:
		pubkey, sig, ok := singleSig(pi)
		if !ok {
			return newUnknownTxInTypeError("p2pkh missing signature")
		}
		buf := &bytes.Buffer{}
		if err := bitcoin.WritePushDataScript(buf, sig); err != nil {
			return err
		}
		if err := bitcoin.WritePushDataScript(buf, pubkey); err != nil {
			return err
		}
		pi.FinalScriptSig = bitcoin.Script(buf.Bytes())

	case pi.scriptType == bitcoin.ScriptTypeP2PK:
		_, sig, ok := singleSig(pi)
		if !ok {
			return newUnknownTxInTypeError("p2pk missing signature")
		}
		buf := &bytes.Buffer{}
		if err := bitcoin.WritePushDataScript(buf, sig); err != nil {
			return err
		}
		pi.FinalScriptSig = bitcoin.Script(buf.Bytes())

	default:
		return newUnknownTxInTypeError("unrecognized script type")
	}

	pi.PartialSigs = make(map[string][]byte)
	pi.Bip32Derivations = make(map[string]Bip32Derivation)
	pi.RedeemScript = nil
	pi.WitnessScript = nil
	return nil
}

// singleSig returns a signature from pi.PartialSigs and the public key it belongs to, or ok false
// when there is none. The count of signatures and which key signed are not checked; with more
// than one entry, which one is returned is not defined.
func singleSig(pi *PartialTxInput) (pubkey []byte, sig []byte, ok bool) {
	for k, v := range pi.PartialSigs {
		return []byte(k), v, true
	}
	return nil, nil, false
}

// orderedSigs returns each signature in pi.PartialSigs ordered to match pi.pubKeyOrder, with a
// zero-length placeholder for a pubkey that hasn't signed. MultisigUnlockingScript skips those
// placeholders when assembling the scriptSig.
func orderedSigs(pi *PartialTxInput) [][]byte {
	sigs := make([][]byte, len(pi.pubKeyOrder))
	for i, pub := range pi.pubKeyOrder {
		sigs[i] = pi.PartialSigs[string(pub.Bytes())]
	}
	return sigs
}

func nonEmpty(sigs [][]byte) [][]byte {
	out := make([][]byte, 0, len(sigs))
	for _, s := range sigs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func pushOnlyScript(script bitcoin.Script) (bitcoin.Script, error) {
	buf := &bytes.Buffer{}
	if err := bitcoin.WritePushDataScript(buf, script); err != nil {
		return nil, err
	}
	return bitcoin.Script(buf.Bytes()), nil
}
