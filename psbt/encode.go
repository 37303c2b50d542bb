package psbt

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

// Serialize writes pt in the deterministic binary PSBT form: magic, the global section, then one
// input section and one output section per entry of the unsigned transaction, each map's records
// written in ascending key-type order (and, within a key type, ascending key-data order) so two
// callers serializing the same logical PSBT always produce byte-identical output.
func (pt *PartialTransaction) Serialize(w io.Writer) error {
	if err := writeMagic(w); err != nil {
		return err
	}

	if err := pt.writeGlobalSection(w); err != nil {
		return err
	}
	for i, in := range pt.Inputs {
		if err := in.writeSection(w); err != nil {
			return errorAtInput(i, err)
		}
	}
	for i, out := range pt.Outputs {
		if err := out.writeSection(w); err != nil {
			return errorAtOutput(i, err)
		}
	}

	return nil
}

// Bytes returns pt's binary PSBT serialization.
func (pt *PartialTransaction) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pt.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Base64 returns pt's PSBT serialization as base64 text, the conventional PSBT interchange form.
func (pt *PartialTransaction) Base64() (string, error) {
	b, err := pt.Bytes()
	if err != nil {
		return "", err
	}
	return bitcoin.Base64(b), nil
}

// Hex returns pt's PSBT serialization as a hex string.
func (pt *PartialTransaction) Hex() (string, error) {
	b, err := pt.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (pt *PartialTransaction) writeGlobalSection(w io.Writer) error {
	txBuf := &bytes.Buffer{}
	if err := pt.UnsignedTx().SerializeLegacy(txBuf, false); err != nil {
		return err
	}
	if err := writeKeyValue(w, keyValue{keyType: globalUnsignedTx, value: txBuf.Bytes()}); err != nil {
		return err
	}

	for _, xpub := range sortedDerivationKeys(pt.GlobalXPubs) {
		deriv := pt.GlobalXPubs[xpub]
		if err := writeKeyValue(w, keyValue{
			keyType: globalXPub,
			keyData: []byte(xpub),
			value:   encodeDerivationValue(deriv),
		}); err != nil {
			return err
		}
	}

	if pt.HasVersion {
		version := make([]byte, 4)
		binary.LittleEndian.PutUint32(version, 0)
		if err := writeKeyValue(w, keyValue{keyType: globalVersion, value: version}); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(pt.GlobalUnknowns) {
		if err := writeUnknown(w, key, pt.GlobalUnknowns[key]); err != nil {
			return err
		}
	}

	return writeMapEnd(w)
}

func (pi *PartialTxInput) writeSection(w io.Writer) error {
	if pi.NonWitnessUtxo != nil {
		buf := &bytes.Buffer{}
		if err := pi.NonWitnessUtxo.Serialize(buf); err != nil {
			return err
		}
		if err := writeKeyValue(w, keyValue{keyType: inputNonWitnessUtxo, value: buf.Bytes()}); err != nil {
			return err
		}
	}
	if pi.WitnessUtxo != nil {
		if err := writeKeyValue(w, keyValue{keyType: inputWitnessUtxo, value: encodeTxOut(pi.WitnessUtxo)}); err != nil {
			return err
		}
	}

	for _, pubkey := range sortedKeys(pi.PartialSigs) {
		if err := writeKeyValue(w, keyValue{
			keyType: inputPartialSig,
			keyData: []byte(pubkey),
			value:   pi.PartialSigs[pubkey],
		}); err != nil {
			return err
		}
	}

	if pi.HasSighashType {
		value := make([]byte, 4)
		binary.LittleEndian.PutUint32(value, uint32(pi.SighashType))
		if err := writeKeyValue(w, keyValue{keyType: inputSighashType, value: value}); err != nil {
			return err
		}
	}

	if len(pi.RedeemScript) > 0 {
		if err := writeKeyValue(w, keyValue{keyType: inputRedeemScript, value: pi.RedeemScript}); err != nil {
			return err
		}
	}
	if len(pi.WitnessScript) > 0 {
		if err := writeKeyValue(w, keyValue{keyType: inputWitnessScript, value: pi.WitnessScript}); err != nil {
			return err
		}
	}

	for _, pubkey := range sortedDerivationKeys(pi.Bip32Derivations) {
		if err := writeKeyValue(w, keyValue{
			keyType: inputBip32Derivation,
			keyData: []byte(pubkey),
			value:   encodeDerivationValue(pi.Bip32Derivations[pubkey]),
		}); err != nil {
			return err
		}
	}

	if len(pi.FinalScriptSig) > 0 {
		if err := writeKeyValue(w, keyValue{keyType: inputFinalScriptSig, value: pi.FinalScriptSig}); err != nil {
			return err
		}
	}
	if len(pi.FinalScriptWitness) > 0 {
		if err := writeKeyValue(w, keyValue{
			keyType: inputFinalScriptWitness,
			value:   encodeWitnessStack(pi.FinalScriptWitness),
		}); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(pi.Unknowns) {
		if err := writeUnknown(w, key, pi.Unknowns[key]); err != nil {
			return err
		}
	}

	return writeMapEnd(w)
}

func (po *PartialTxOutput) writeSection(w io.Writer) error {
	if len(po.RedeemScript) > 0 {
		if err := writeKeyValue(w, keyValue{keyType: outputRedeemScript, value: po.RedeemScript}); err != nil {
			return err
		}
	}
	if len(po.WitnessScript) > 0 {
		if err := writeKeyValue(w, keyValue{keyType: outputWitnessScript, value: po.WitnessScript}); err != nil {
			return err
		}
	}

	for _, pubkey := range sortedDerivationKeys(po.Bip32Derivations) {
		if err := writeKeyValue(w, keyValue{
			keyType: outputBip32Derivation,
			keyData: []byte(pubkey),
			value:   encodeDerivationValue(po.Bip32Derivations[pubkey]),
		}); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(po.Unknowns) {
		if err := writeUnknown(w, key, po.Unknowns[key]); err != nil {
			return err
		}
	}

	return writeMapEnd(w)
}

// writeUnknown re-emits a record whose key (type byte plus key data, already concatenated by the
// reader into the map key string) wasn't recognized by this version's key-type table, preserving
// it verbatim across a decode/encode round trip.
func writeUnknown(w io.Writer, key string, value []byte) error {
	keyBytes := []byte(key)
	return writeKeyValue(w, keyValue{keyType: keyBytes[0], keyData: keyBytes[1:], value: value})
}

func encodeTxOut(out *wire.TxOut) []byte {
	buf := &bytes.Buffer{}
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], uint64(out.Value))
	buf.Write(valueBytes[:])
	wire.WriteVarBytes(buf, 0, out.LockingScript)
	return buf.Bytes()
}

func encodeDerivationValue(deriv Bip32Derivation) []byte {
	buf := make([]byte, 4+4*len(deriv.Path))
	copy(buf[:4], deriv.MasterFingerprint[:])
	for i, step := range deriv.Path {
		binary.LittleEndian.PutUint32(buf[4+4*i:8+4*i], step)
	}
	return buf
}

func encodeWitnessStack(stack [][]byte) []byte {
	buf := &bytes.Buffer{}
	wire.WriteVarInt(buf, 0, uint64(len(stack)))
	for _, item := range stack {
		wire.WriteVarBytes(buf, 0, item)
	}
	return buf.Bytes()
}
