package txbuilder

import (
	"bytes"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"

	"github.com/pkg/errors"
)

// These are the shared, MsgTx-level signing primitives the psbt package's per-input signing
// engine (partial-signature aggregation, finalize, completion predicate) is built on top of:
// computing a signature for one input/pubkey pair and building the standard unlocking script
// shapes from the resulting signatures.

// InputSignature returns the serialized ECDSA signature for input index of tx, with hashType
// appended as the trailing sighash byte. segwit selects BIP-143 vs. legacy pre-image
// construction; value is the previous output's value, required for BIP-143 and ignored for the
// legacy path.
func InputSignature(key bitcoin.Key, tx *wire.MsgTx, index int, preimageScript bitcoin.Script,
	value int64, hashType SigHashType, segwit bool, hashCache *SigHashCache) ([]byte, error) {

	var hash *bitcoin.Hash32
	var err error
	if segwit {
		hash, err = SignatureHash(tx, index, preimageScript, value, hashType, hashCache)
	} else {
		hash, err = LegacySignatureHash(tx, index, preimageScript, hashType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "sig hash")
	}

	sig, err := key.Sign(*hash)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}

	return append(sig.Bytes(), byte(hashType)), nil
}

// P2PKHUnlockingScript builds the <signature> <public key> unlocking script for a P2PKH input.
func P2PKHUnlockingScript(key bitcoin.Key, tx *wire.MsgTx, index int, preimageScript bitcoin.Script,
	value int64, hashType SigHashType, segwit bool, hashCache *SigHashCache) (bitcoin.Script, error) {

	sig, err := InputSignature(key, tx, index, preimageScript, value, hashType, segwit, hashCache)
	if err != nil {
		return nil, err
	}

	pubkey := key.PublicKey().Bytes()

	buf := bytes.NewBuffer(make([]byte, 0, len(sig)+len(pubkey)+2))
	if err := bitcoin.WritePushDataScript(buf, sig); err != nil {
		return nil, err
	}
	if err := bitcoin.WritePushDataScript(buf, pubkey); err != nil {
		return nil, err
	}

	return bitcoin.Script(buf.Bytes()), nil
}

// P2PKUnlockingScript builds the <signature> unlocking script for a P2PK input.
func P2PKUnlockingScript(key bitcoin.Key, tx *wire.MsgTx, index int, preimageScript bitcoin.Script,
	value int64, hashType SigHashType, segwit bool, hashCache *SigHashCache) (bitcoin.Script, error) {

	sig, err := InputSignature(key, tx, index, preimageScript, value, hashType, segwit, hashCache)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(sig)+1))
	if err := bitcoin.WritePushDataScript(buf, sig); err != nil {
		return nil, err
	}

	return bitcoin.Script(buf.Bytes()), nil
}

// MultisigUnlockingScript builds a bare-multisig unlocking script: OP_0 followed by each
// signature in the order its corresponding public key appears in the locking script, skipping
// unsigned keys. OP_0 stands in for CHECKMULTISIG's historical off-by-one stack-read bug.
func MultisigUnlockingScript(sigs [][]byte) (bitcoin.Script, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(bitcoin.OP_0)
	for _, sig := range sigs {
		if len(sig) == 0 {
			continue
		}
		if err := bitcoin.WritePushDataScript(buf, sig); err != nil {
			return nil, err
		}
	}
	return bitcoin.Script(buf.Bytes()), nil
}

// RecoverSignerPublicKey parses a DER-encoded signature plus trailing sighash byte and recovers
// the public key that produced it over hash, for updating an input from an externally supplied
// signature. Recovery itself (trying each of the four ECDSA recovery ids) is
// bitcoin.RecoverPublicKey's job; this just strips the sighash byte and parses the DER payload.
func RecoverSignerPublicKey(hash bitcoin.Hash32, derSigPlusHashType []byte) (bitcoin.PublicKey, SigHashType,
	error) {

	if len(derSigPlusHashType) < 2 {
		return bitcoin.PublicKey{}, 0, errors.New("signature too short")
	}

	hashType := SigHashType(derSigPlusHashType[len(derSigPlusHashType)-1])
	sig, err := bitcoin.SignatureFromBytes(derSigPlusHashType[:len(derSigPlusHashType)-1])
	if err != nil {
		return bitcoin.PublicKey{}, 0, errors.Wrap(err, "parse der signature")
	}

	pubKey, err := bitcoin.RecoverPublicKey(hash, sig)
	if err != nil {
		return bitcoin.PublicKey{}, 0, err
	}

	return pubKey, hashType, nil
}
