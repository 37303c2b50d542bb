// Package psbt implements the partially-signed transaction object model and codec (BIP-174):
// the key-value map sections, the consistency invariants a parser enforces on assignment, the
// signing engine that builds on top of txbuilder's pre-image and signature primitives, and the
// combine/join/finalize operations a multi-party signing flow needs.
package psbt

import (
	"sort"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
	"github.com/ravenproject/rvntx/wire"
)

// Bip32Derivation is the value half of a BIP32_DERIVATION record: the fingerprint of the root key
// the path was derived from, and the full derivation path as 32-bit (possibly hardened) indexes.
type Bip32Derivation struct {
	MasterFingerprint [4]byte
	Path              []uint32
}

// PartialTxInput carries everything an in-progress signer needs for one input beyond the bare
// outpoint/sequence that wire.TxIn already holds: the previous output (by full transaction or by
// witness-snapshot), partial signatures keyed by public key, script fragments, and the cached
// fields a wallet derives once from those scripts rather than recomputing on every pass.
type PartialTxInput struct {
	Outpoint wire.OutPoint
	Sequence uint32

	// Either, both, or neither of NonWitnessUtxo / WitnessUtxo may be set. When both are
	// present, validate checks that the witness UTXO describes the same output the non-witness
	// UTXO's outpoint index selects.
	NonWitnessUtxo *wire.MsgTx
	WitnessUtxo    *wire.TxOut

	PartialSigs      map[string][]byte // pubkey bytes (as string) -> DER signature + sighash byte
	SighashType      txbuilder.SigHashType
	HasSighashType   bool
	RedeemScript     bitcoin.Script
	WitnessScript    bitcoin.Script
	Bip32Derivations map[string]Bip32Derivation // pubkey bytes (as string) -> derivation

	FinalScriptSig      bitcoin.Script
	FinalScriptWitness  [][]byte

	Unknowns map[string][]byte // unrecognized key type -> value, round-tripped verbatim

	// Cached fields, derived from the above by updateCache; never read from or written to the
	// wire directly.
	scriptType     bitcoin.ScriptType
	numSig         int
	pubKeyOrder    []bitcoin.PublicKey
	trustedValue   int64
	trustedAddress bitcoin.RawAddress
	isCoinbase     bool
	spendHeight    uint32
	mineHeight     uint32
	sizeHint       int
}

// NewPartialTxInput returns an empty PartialTxInput for the given outpoint/sequence, with its
// map fields ready to populate.
func NewPartialTxInput(outpoint wire.OutPoint, sequence uint32) *PartialTxInput {
	return &PartialTxInput{
		Outpoint:         outpoint,
		Sequence:         sequence,
		PartialSigs:      make(map[string][]byte),
		Bip32Derivations: make(map[string]Bip32Derivation),
		Unknowns:         make(map[string][]byte),
	}
}

// PrevOutScript returns the locking script of the output this input spends, from whichever UTXO
// form is populated, preferring the witness snapshot since it's cheaper to have carried.
func (pi *PartialTxInput) PrevOutScript() (bitcoin.Script, error) {
	if pi.WitnessUtxo != nil {
		return pi.WitnessUtxo.LockingScript, nil
	}
	if pi.NonWitnessUtxo != nil {
		if int(pi.Outpoint.Index) >= len(pi.NonWitnessUtxo.TxOut) {
			return nil, txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
				"outpoint index beyond non-witness utxo outputs")
		}
		return pi.NonWitnessUtxo.TxOut[pi.Outpoint.Index].LockingScript, nil
	}
	return nil, txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency, "no utxo set")
}

// Value returns the previous output's value, from whichever UTXO form is populated.
func (pi *PartialTxInput) Value() (int64, error) {
	if pi.WitnessUtxo != nil {
		return pi.WitnessUtxo.Value, nil
	}
	if pi.NonWitnessUtxo != nil {
		if int(pi.Outpoint.Index) >= len(pi.NonWitnessUtxo.TxOut) {
			return 0, txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
				"outpoint index beyond non-witness utxo outputs")
		}
		return pi.NonWitnessUtxo.TxOut[pi.Outpoint.Index].Value, nil
	}
	return 0, txbuilder.NewError(txbuilder.ErrorCodeMissingInputAmount, "no utxo set")
}

// isSegwit reports whether this input is spent with a segwit-style pre-image: directly (the
// previous output is P2WPKH/P2WSH) or nested (a redeem script wraps a witness program).
func (pi *PartialTxInput) isSegwit() bool {
	if pi.scriptType == bitcoin.ScriptTypeP2WPKH || pi.scriptType == bitcoin.ScriptTypeP2WSH {
		return true
	}
	if len(pi.RedeemScript) > 0 {
		if _, _, ok := bitcoin.MatchWitness(pi.RedeemScript); ok {
			return true
		}
	}
	return len(pi.WitnessScript) > 0
}

// validate checks the cross-field consistency invariants a parser or assignment must enforce:
// the non-witness UTXO's hash matches the outpoint it's attached to, and when both UTXO forms are
// present they describe the same output.
func (pi *PartialTxInput) validate() error {
	if pi.NonWitnessUtxo != nil {
		if !pi.NonWitnessUtxo.TxHash().IsEqual(&pi.Outpoint.Hash) {
			return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
				"non-witness utxo hash does not match outpoint")
		}
		if int(pi.Outpoint.Index) >= len(pi.NonWitnessUtxo.TxOut) {
			return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
				"outpoint index beyond non-witness utxo outputs")
		}
	}

	if pi.NonWitnessUtxo != nil && pi.WitnessUtxo != nil {
		referenced := pi.NonWitnessUtxo.TxOut[pi.Outpoint.Index]
		if referenced.Value != pi.WitnessUtxo.Value ||
			!referenced.LockingScript.Equal(pi.WitnessUtxo.LockingScript) {
			return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
				"witness utxo does not match non-witness utxo output")
		}
	}

	if len(pi.RedeemScript) > 0 {
		prevOutScript, err := pi.PrevOutScript()
		if err == nil {
			sh := bitcoin.Hash160(pi.RedeemScript)
			expected, addrErr := bitcoin.RawAddressFromLockingScript(prevOutScript)
			if addrErr == nil && expected.Type() == bitcoin.ScriptTypeSH {
				ra, raErr := bitcoin.NewRawAddressSH(sh)
				if raErr == nil && !ra.Equal(expected) {
					return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
						"redeem script does not match p2sh address")
				}
			}
		}
	}

	if len(pi.WitnessScript) > 0 && len(pi.RedeemScript) > 0 {
		if _, program, ok := bitcoin.MatchWitness(pi.RedeemScript); ok && len(program) == bitcoin.Hash32Size {
			wsh := bitcoin.Sha256(pi.WitnessScript)
			if !bytesEqual(wsh, program) {
				return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency,
					"witness script does not match redeem script's witness program")
			}
		}
	}

	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// updateCache recomputes the derived fields (script type, multisig threshold, pubkey order,
// trusted value/address) from the input's current scripts. Called after any assignment that
// might change them: setting a UTXO or a redeem/witness script.
func (pi *PartialTxInput) updateCache() {
	pi.isCoinbase = pi.Outpoint.IsCoinbase()

	prevOutScript, err := pi.PrevOutScript()
	if err != nil {
		return
	}

	pi.scriptType = bitcoin.IdentifyScriptType(prevOutScript)
	if value, err := pi.Value(); err == nil {
		pi.trustedValue = value
	}
	if addr, err := bitcoin.RawAddressFromLockingScript(prevOutScript); err == nil {
		pi.trustedAddress = addr
	}

	innerScript := pi.WitnessScript
	if len(innerScript) == 0 {
		innerScript = pi.RedeemScript
	}
	if len(innerScript) > 0 {
		if required, pubKeys, err := bitcoin.ExtractMultisig(innerScript); err == nil {
			pi.numSig = required
			pi.pubKeyOrder = pubKeys
		}
	}

	pi.sizeHint = len(prevOutScript) + 148
}

// IsComplete reports whether this input meets its completion predicate: coinbase inputs are
// always complete; an input that already carries both a final script-sig and a final witness, a
// non-segwit input with a final script-sig, or a segwit input with a final witness, is complete;
// otherwise completion depends on having
// enough signatures for a single-sig template (1) or a multisig template (the cached threshold).
func (pi *PartialTxInput) IsComplete() bool {
	if pi.isCoinbase {
		return true
	}
	if len(pi.FinalScriptSig) > 0 && len(pi.FinalScriptWitness) > 0 {
		return true
	}
	if !pi.isSegwit() && len(pi.FinalScriptSig) > 0 {
		return true
	}
	if pi.isSegwit() && len(pi.FinalScriptWitness) > 0 {
		return true // native (non-nested) segwit leaves scriptSig empty by design
	}

	switch pi.scriptType {
	case bitcoin.ScriptTypeP2SH, bitcoin.ScriptTypeP2WSH:
		if pi.numSig > 0 {
			return len(pi.PartialSigs) >= pi.numSig
		}
		return len(pi.PartialSigs) >= 1
	default:
		return len(pi.PartialSigs) >= 1
	}
}

// sortedKeys returns the keys of m sorted by their byte value, the deterministic serialization
// order §4.6 requires for multi-entry maps.
func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDerivationKeys(m map[string]Bip32Derivation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PartialTxOutput carries the signing metadata BIP-174 attaches to an output: redeem/witness
// scripts for p2sh/p2wsh change outputs, BIP-32 derivation records so a hardware wallet can
// verify the output belongs to it, and the ismine/is-change bookkeeping a wallet layers on top.
type PartialTxOutput struct {
	Value         int64
	LockingScript bitcoin.Script

	RedeemScript     bitcoin.Script
	WitnessScript    bitcoin.Script
	Bip32Derivations map[string]Bip32Derivation

	IsMine   bool
	IsChange bool

	Unknowns map[string][]byte
}

// NewPartialTxOutput returns an empty PartialTxOutput for the given value/locking script.
func NewPartialTxOutput(value int64, lockingScript bitcoin.Script) *PartialTxOutput {
	return &PartialTxOutput{
		Value:            value,
		LockingScript:    lockingScript,
		Bip32Derivations: make(map[string]Bip32Derivation),
		Unknowns:         make(map[string][]byte),
	}
}

// PartialTransaction is a BIP-174 PSBT: the unsigned transaction it signs, per-input and
// per-output signing metadata in the same order as the transaction's own input/output vectors,
// and the global fields (xpubs, unknown records). ForSwap mirrors Transaction's for-swap flag
// (spec.md §3): when set, BIP-69 reordering and locktime mutation are suspended because a
// SIGHASH_SINGLE signature already committed to the current input/output order.
type PartialTransaction struct {
	Version  int32
	LockTime uint32
	ForSwap  bool

	// HasVersion records whether the source PSBT carried the global VERSION field (key type
	// 0xFB, always value 0 per spec.md §4.6) so Bytes can re-emit it and round-trip byte-for-byte
	// (spec.md §8). Constructing a PartialTransaction with New never sets it; only Parse does.
	HasVersion bool

	Inputs  []*PartialTxInput
	Outputs []*PartialTxOutput

	GlobalXPubs    map[string]Bip32Derivation // serialized xpub bytes (as string) -> derivation
	GlobalUnknowns map[string][]byte

	// LockingScriptOverrides lets a caller force the preimage script used for a given outpoint
	// during signing, bypassing PreimageScript's own witness/redeem/prevout selection (spec.md
	// §3's "optional per-outpoint locking-script override").
	LockingScriptOverrides map[wire.OutPoint]bitcoin.Script
}

// New returns an empty PartialTransaction for the given version/locktime, ready to have inputs
// and outputs appended.
func New(version int32, lockTime uint32) *PartialTransaction {
	return &PartialTransaction{
		Version:                version,
		LockTime:               lockTime,
		GlobalXPubs:            make(map[string]Bip32Derivation),
		GlobalUnknowns:         make(map[string][]byte),
		LockingScriptOverrides: make(map[wire.OutPoint]bitcoin.Script),
	}
}

// UnsignedTx builds the wire.MsgTx this PSBT signs: the §4.6 UNSIGNED_TX global field is exactly
// this transaction serialized with SerializeLegacy(w, false).
func (pt *PartialTransaction) UnsignedTx() *wire.MsgTx {
	tx := &wire.MsgTx{Version: pt.Version, LockTime: pt.LockTime}
	for _, in := range pt.Inputs {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{
			PreviousOutPoint: in.Outpoint,
			Sequence:         in.Sequence,
		})
	}
	for _, out := range pt.Outputs {
		tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: out.Value, LockingScript: out.LockingScript})
	}
	return tx
}

// Validate runs each input's consistency invariants (spec.md §3) and returns the first failure
// encountered, or nil if every input is internally consistent.
func (pt *PartialTransaction) Validate() error {
	for i, in := range pt.Inputs {
		if err := in.validate(); err != nil {
			return errorAtInput(i, err)
		}
	}
	return nil
}

// IsComplete reports whether every input meets its completion predicate.
func (pt *PartialTransaction) IsComplete() bool {
	for _, in := range pt.Inputs {
		if !in.IsComplete() {
			return false
		}
	}
	return true
}
