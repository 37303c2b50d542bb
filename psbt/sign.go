package psbt

import (
	"context"
	"encoding/hex"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/logger"
	"github.com/ravenproject/rvntx/txbuilder"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SigningKey is one entry of the signing engine's input key mapping: the raw private key scalar
// for a given public key, and whether that public key is the compressed form. bitcoin.PublicKey
// only ever serializes compressed, so Compressed is carried for API fidelity with implementations
// whose key type distinguishes the two forms, but every key processed here ends up signing for a
// compressed public key.
type SigningKey struct {
	PrivateKey []byte
	Compressed bool
}

// Sign computes and stores a signature for every input's every still-unsigned pubkey present in
// keys. For each input it selects the pre-image script (witness script, then redeem script, then
// the previous output's locking script, each augmented with the asset suffix when present, unless
// pt.LockingScriptOverrides names an override for that outpoint), builds the BIP-143 or legacy
// pre-image depending on the previous output's script type, signs with the key, and appends the
// sighash byte. A new signature on an input that already carried a final scriptSig/witness clears
// those, since adding a signature invalidates whatever was previously finalized there.
func Sign(ctx context.Context, pt *PartialTransaction, net bitcoin.Network, keys map[string]SigningKey,
	defaultHashType txbuilder.SigHashType, hashCache *txbuilder.SigHashCache) error {

	ctx = logger.ContextWithLogTrace(ctx, uuid.New().String())
	if hashCache == nil {
		hashCache = &txbuilder.SigHashCache{}
	}

	tx := pt.UnsignedTx()

	for i, in := range pt.Inputs {
		if in.isCoinbase {
			continue
		}

		prevOutScript, err := in.PrevOutScript()
		if err != nil {
			continue // no utxo attached to this input yet
		}
		value, err := in.Value()
		if err != nil {
			continue
		}

		hashType := defaultHashType
		if in.HasSighashType {
			hashType = in.SighashType
		}

		override := pt.LockingScriptOverrides[in.Outpoint]
		preimageScript, err := txbuilder.PreimageScript(prevOutScript, in.RedeemScript, in.WitnessScript, override)
		if err != nil {
			return errorAtInput(i, err)
		}

		segwit := in.isSegwit()
		signedAny := false

		for pubkeyHex, signingKey := range keys {
			pubBytes, err := hex.DecodeString(pubkeyHex)
			if err != nil {
				continue
			}
			pub, err := bitcoin.PublicKeyFromBytes(pubBytes)
			if err != nil {
				continue
			}
			if _, already := in.PartialSigs[string(pub.Bytes())]; already {
				continue
			}
			if !pubKeyAppliesToInput(in, prevOutScript, pub) {
				continue
			}

			key, err := bitcoin.KeyFromNumber(signingKey.PrivateKey, net)
			if err != nil {
				return errorAtInput(i, errors.Wrap(err, "private key"))
			}
			if !key.PublicKey().Equal(pub) {
				return errorAtInput(i, newConsistencyError("private key does not match pubkey"))
			}

			sig, err := txbuilder.InputSignature(key, tx, i, preimageScript, value, hashType, segwit, hashCache)
			if err != nil {
				return errorAtInput(i, errors.Wrap(err, "sign"))
			}

			in.PartialSigs[string(pub.Bytes())] = sig
			signedAny = true
			logger.Verbose(ctx, "psbt: signed input %d with pubkey %s", i, pubkeyHex)
		}

		if signedAny {
			in.FinalScriptSig = nil
			in.FinalScriptWitness = nil
		}
	}

	return nil
}

// pubKeyAppliesToInput reports whether pub is a signer this input's previous output script
// expects: one of the multisig template's ordered public keys, the P2PK script's embedded
// public key, or the hash target of a P2PKH/P2WPKH script.
func pubKeyAppliesToInput(in *PartialTxInput, prevOutScript bitcoin.Script, pub bitcoin.PublicKey) bool {
	if len(in.pubKeyOrder) > 0 {
		for _, p := range in.pubKeyOrder {
			if p.Equal(pub) {
				return true
			}
		}
		return false
	}

	switch in.scriptType {
	case bitcoin.ScriptTypeP2PKH, bitcoin.ScriptTypeP2WPKH:
		addr, err := bitcoin.RawAddressFromLockingScript(prevOutScript)
		if err != nil {
			return false
		}
		hash, err := addr.Hash()
		if err != nil {
			return false
		}
		return bytesEqual(hash[:], bitcoin.Hash160(pub.Bytes()))

	case bitcoin.ScriptTypeP2PK:
		embedded, err := bitcoin.PublicKeyFromLockingScript(prevOutScript)
		if err != nil {
			return false
		}
		return bytesEqual(embedded, pub.Bytes())

	default:
		return false
	}
}

// UpdateFromExternalSignature records a signature produced by an external signer (a hardware
// wallet, a remote co-signer) that only returns the raw DER signature plus sighash byte: the
// public key is recovered from the signature itself via the four ECDSA recovery candidates,
// rather than supplied up front the way Sign's key mapping requires it.
func UpdateFromExternalSignature(pt *PartialTransaction, inputIndex int, derSigPlusHashType []byte,
	hashCache *txbuilder.SigHashCache) error {

	if inputIndex < 0 || inputIndex >= len(pt.Inputs) {
		return newConsistencyError("input index out of range")
	}
	in := pt.Inputs[inputIndex]

	prevOutScript, err := in.PrevOutScript()
	if err != nil {
		return errorAtInput(inputIndex, err)
	}
	value, err := in.Value()
	if err != nil {
		return errorAtInput(inputIndex, err)
	}

	override := pt.LockingScriptOverrides[in.Outpoint]
	preimageScript, err := txbuilder.PreimageScript(prevOutScript, in.RedeemScript, in.WitnessScript, override)
	if err != nil {
		return errorAtInput(inputIndex, err)
	}

	if hashCache == nil {
		hashCache = &txbuilder.SigHashCache{}
	}
	tx := pt.UnsignedTx()
	hashType := txbuilder.SigHashType(derSigPlusHashType[len(derSigPlusHashType)-1])

	var hash *bitcoin.Hash32
	if in.isSegwit() {
		hash, err = txbuilder.SignatureHash(tx, inputIndex, preimageScript, value, hashType, hashCache)
	} else {
		hash, err = txbuilder.LegacySignatureHash(tx, inputIndex, preimageScript, hashType)
	}
	if err != nil {
		return errorAtInput(inputIndex, err)
	}

	pub, _, err := txbuilder.RecoverSignerPublicKey(*hash, derSigPlusHashType)
	if err != nil {
		return errorAtInput(inputIndex, errors.Wrap(err, "recover signer"))
	}

	in.PartialSigs[string(pub.Bytes())] = derSigPlusHashType
	in.FinalScriptSig = nil
	in.FinalScriptWitness = nil
	return nil
}
