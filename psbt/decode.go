package psbt

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/txbuilder"
	"github.com/ravenproject/rvntx/wire"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

// Global, input, and output key types, per the PSBT key-value layout.
const (
	globalUnsignedTx = 0x00
	globalXPub       = 0x01
	globalVersion    = 0xFB

	inputNonWitnessUtxo    = 0
	inputWitnessUtxo       = 1
	inputPartialSig        = 2
	inputSighashType       = 3
	inputRedeemScript      = 4
	inputWitnessScript     = 5
	inputBip32Derivation   = 6
	inputFinalScriptSig    = 7
	inputFinalScriptWitness = 8

	outputRedeemScript    = 0
	outputWitnessScript   = 1
	outputBip32Derivation = 2
)

// legacyMagic is the deprecated Electrum "partial transaction" header this module rejects
// explicitly rather than attempting to parse.
var legacyMagic = []byte("EPTF")

// Parse decodes a raw PSBT byte stream (magic-prefixed key-value sections) into a
// PartialTransaction. It performs the two-pass read described in keyvalue.go: each section's
// records are collected first, then interpreted against that section's key-type table, so unknown
// key types are preserved in Unknowns and duplicate known key types are rejected regardless of
// parse order.
func Parse(data []byte) (*PartialTransaction, error) {
	if bytes.HasPrefix(data, legacyMagic) {
		return nil, newBadMagicError(data[:len(legacyMagic)])
	}

	r := bytes.NewReader(data)
	if err := checkMagic(r); err != nil {
		return nil, err
	}

	globalRecords, err := readMap(r)
	if err != nil {
		return nil, errors.Wrap(err, "global section")
	}

	pt := New(0, 0)
	var unsignedTx *wire.MsgTx
	for _, kv := range globalRecords {
		switch kv.keyType {
		case globalUnsignedTx:
			unsignedTx = &wire.MsgTx{}
			if err := unsignedTx.Deserialize(bytes.NewReader(kv.value)); err != nil {
				return nil, errors.Wrap(err, "decode unsigned tx")
			}
		case globalXPub:
			if _, err := bip32.Deserialize(kv.keyData); err != nil {
				return nil, errors.Wrap(err, "malformed extended public key")
			}
			deriv, err := parseDerivationValue(kv.value)
			if err != nil {
				return nil, errors.Wrap(err, "global xpub derivation")
			}
			pt.GlobalXPubs[string(kv.keyData)] = deriv
		case globalVersion:
			if len(kv.value) != 4 {
				return nil, newSerializationError("global version length")
			}
			if binary.LittleEndian.Uint32(kv.value) != 0 {
				return nil, newSerializationError("unsupported psbt version")
			}
			pt.HasVersion = true
		default:
			pt.GlobalUnknowns[kv.keyString()] = kv.value
		}
	}

	if unsignedTx == nil {
		return nil, newSerializationError("missing global unsigned tx")
	}
	for _, in := range unsignedTx.TxIn {
		if len(in.UnlockingScript) > 0 || len(in.Witness) > 0 {
			return nil, newConsistencyError("unsigned tx must not carry scriptSigs or witnesses")
		}
	}

	pt.Version = unsignedTx.Version
	pt.LockTime = unsignedTx.LockTime

	for i, txIn := range unsignedTx.TxIn {
		input, err := readInputSection(r, txIn.PreviousOutPoint, txIn.Sequence)
		if err != nil {
			return nil, errorAtInput(i, err)
		}
		pt.Inputs = append(pt.Inputs, input)
	}

	for i, txOut := range unsignedTx.TxOut {
		output, err := readOutputSection(r, txOut.Value, txOut.LockingScript)
		if err != nil {
			return nil, errorAtOutput(i, err)
		}
		pt.Outputs = append(pt.Outputs, output)
	}

	if r.Len() != 0 {
		return nil, newSerializationError("trailing bytes")
	}

	if err := pt.Validate(); err != nil {
		return nil, err
	}
	for _, in := range pt.Inputs {
		in.updateCache()
	}

	return pt, nil
}

func readInputSection(r *bytes.Reader, outpoint wire.OutPoint, sequence uint32) (*PartialTxInput, error) {
	records, err := readMap(r)
	if err != nil {
		return nil, err
	}

	in := NewPartialTxInput(outpoint, sequence)
	for _, kv := range records {
		switch kv.keyType {
		case inputNonWitnessUtxo:
			tx := &wire.MsgTx{}
			if err := tx.Deserialize(bytes.NewReader(kv.value)); err != nil {
				return nil, errors.Wrap(err, "decode non-witness utxo")
			}
			in.NonWitnessUtxo = tx

		case inputWitnessUtxo:
			out, err := parseTxOut(kv.value)
			if err != nil {
				return nil, errors.Wrap(err, "decode witness utxo")
			}
			in.WitnessUtxo = out

		case inputPartialSig:
			if len(kv.keyData) == 0 {
				return nil, newSerializationError("partial sig missing pubkey")
			}
			in.PartialSigs[string(kv.keyData)] = kv.value

		case inputSighashType:
			if len(kv.value) != 4 {
				return nil, newSerializationError("sighash type length")
			}
			in.SighashType = txbuilder.SigHashType(binary.LittleEndian.Uint32(kv.value))
			in.HasSighashType = true

		case inputRedeemScript:
			in.RedeemScript = bitcoin.Script(kv.value)

		case inputWitnessScript:
			in.WitnessScript = bitcoin.Script(kv.value)

		case inputBip32Derivation:
			if len(kv.keyData) == 0 {
				return nil, newSerializationError("bip32 derivation missing pubkey")
			}
			deriv, err := parseDerivationValue(kv.value)
			if err != nil {
				return nil, errors.Wrap(err, "input bip32 derivation")
			}
			in.Bip32Derivations[string(kv.keyData)] = deriv

		case inputFinalScriptSig:
			in.FinalScriptSig = bitcoin.Script(kv.value)

		case inputFinalScriptWitness:
			witness, err := parseWitnessStack(kv.value)
			if err != nil {
				return nil, errors.Wrap(err, "final script witness")
			}
			in.FinalScriptWitness = witness

		default:
			in.Unknowns[kv.keyString()] = kv.value
		}
	}

	return in, nil
}

func readOutputSection(r *bytes.Reader, value int64, lockingScript bitcoin.Script) (*PartialTxOutput, error) {
	records, err := readMap(r)
	if err != nil {
		return nil, err
	}

	out := NewPartialTxOutput(value, lockingScript)
	for _, kv := range records {
		switch kv.keyType {
		case outputRedeemScript:
			out.RedeemScript = bitcoin.Script(kv.value)

		case outputWitnessScript:
			out.WitnessScript = bitcoin.Script(kv.value)

		case outputBip32Derivation:
			if len(kv.keyData) == 0 {
				return nil, newSerializationError("bip32 derivation missing pubkey")
			}
			deriv, err := parseDerivationValue(kv.value)
			if err != nil {
				return nil, errors.Wrap(err, "output bip32 derivation")
			}
			out.Bip32Derivations[string(kv.keyData)] = deriv

		default:
			out.Unknowns[kv.keyString()] = kv.value
		}
	}

	return out, nil
}

// parseTxOut decodes the raw value-int64-LE + compact-size-script encoding the WITNESS_UTXO
// field uses, the same shape as one wire.TxOut entry.
func parseTxOut(data []byte) (*wire.TxOut, error) {
	if len(data) < 9 {
		return nil, newSerializationError("witness utxo too short")
	}
	value := int64(binary.LittleEndian.Uint64(data[:8]))
	script, err := wire.ReadVarBytes(bytes.NewReader(data[8:]), 0, wire.MaxMessagePayload, "witness utxo script")
	if err != nil {
		return nil, err
	}
	return &wire.TxOut{Value: value, LockingScript: bitcoin.Script(script)}, nil
}

// parseDerivationValue decodes a BIP32_DERIVATION-style value: a 4-byte master fingerprint
// followed by zero or more 4-byte little-endian path components.
func parseDerivationValue(data []byte) (Bip32Derivation, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return Bip32Derivation{}, newSerializationError("bip32 derivation value length")
	}

	var deriv Bip32Derivation
	copy(deriv.MasterFingerprint[:], data[:4])
	for i := 4; i < len(data); i += 4 {
		deriv.Path = append(deriv.Path, binary.LittleEndian.Uint32(data[i:i+4]))
	}
	return deriv, nil
}

// parseWitnessStack decodes a FINAL_SCRIPTWITNESS value: a compact-size count followed by that
// many compact-size-prefixed byte strings, the standard witness stack serialization.
func parseWitnessStack(data []byte) ([][]byte, error) {
	r := bytes.NewReader(data)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	stack := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "witness item")
		if err != nil {
			return nil, err
		}
		stack = append(stack, item)
	}
	return stack, nil
}

// DecodeTx decodes a plain (non-PSBT) transaction, legacy or segwit-framed.
func DecodeTx(data []byte) (*wire.MsgTx, error) {
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	return tx, nil
}

// decodeRaw applies the raw-input preprocessing order: hex decode, then base43 decode, then
// base64 decode when the prefix looks like a PSBT, otherwise the bytes as given.
func decodeRaw(s string) []byte {
	trimmed := bytes.TrimSpace([]byte(s))

	if b, err := hex.DecodeString(string(trimmed)); err == nil && len(b) > 0 {
		return b
	}

	if b, err := bitcoin.Base43Decode(string(trimmed)); err == nil && len(b) > 0 {
		return b
	}

	if bytes.HasPrefix(trimmed, []byte("cHNidP")) {
		if b, err := bitcoin.Base64Decode(string(trimmed)); err == nil {
			return b
		}
	}

	return trimmed
}

// FromAny auto-detects and decodes either a PSBT or a plain transaction from a raw string that
// may be hex, base43, or base64 encoded. PSBT is tried first; a BadHeaderMagic failure falls back
// to plain-transaction decoding. The legacy "EPTF" Electrum partial-transaction magic is rejected
// explicitly rather than silently misparsed as something else.
func FromAny(s string) (*PartialTransaction, *wire.MsgTx, error) {
	data := decodeRaw(s)

	if bytes.HasPrefix(data, legacyMagic) {
		return nil, nil, newBadMagicError(data[:len(legacyMagic)])
	}

	pt, err := Parse(data)
	if err == nil {
		return pt, nil, nil
	}
	if !txbuilder.IsErrorCode(err, txbuilder.ErrorCodeBadHeaderMagic) {
		return nil, nil, err
	}

	tx, txErr := DecodeTx(data)
	if txErr != nil {
		return nil, nil, txErr
	}
	return nil, tx, nil
}
