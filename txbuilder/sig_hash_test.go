package txbuilder

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/ravenproject/rvntx/bitcoin"
	"github.com/ravenproject/rvntx/wire"
)

func chainhashFromByte(b byte) (*chainhash.Hash, error) {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return &h, nil
}

// TestSigHashBIP143Vector reproduces the BIP-143 "Native P2WPKH" example: a 2-input transaction
// where input 1 is segwit and is being signed with SIGHASH_ALL.
// https://github.com/bitcoin/bips/blob/master/bip-0143.mediawiki
func TestSigHashBIP143Vector(t *testing.T) {
	txHex := "0100000002fff7f7881a8099afa6940d42d1e7f6362bec38171ea3edf433541db4e4ad969f00000000494830450221008b9d1dc26ba6a9cb62127b02742fa9d754cd3bebf337f7a55d114c8e5cdd30be022040529b194ba3f9281a99f2b1c0a19c0489bc22ede944ccf4ecbab4cc618ef3ed01eeffffffef51e1b804cc89d182d279655c3aa89e815b1b309fe287d9b2b55d57b90ec68a0100000000ffffffff02202cb206000000001976a9148280b37df378db99f66f85c95a783a76ac7a6d5988ac9093510d000000001976a9143bde42dbee7e4dbe6a21b2d50ce2f0167faa815988ac11000000"
	txData, err := hex.DecodeString(txHex)
	if err != nil {
		t.Fatalf("Failed to decode tx hex : %s", err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(txData)); err != nil {
		t.Fatalf("Failed to deserialize tx : %s", err)
	}

	scriptCodeHex := "1976a914" + "1d0f172a0ecb48aee1be1f2687d2963ae33f71a1" + "88ac"
	scriptCode, err := hex.DecodeString(scriptCodeHex)
	if err != nil {
		t.Fatalf("Failed to decode script code hex : %s", err)
	}
	// scriptCode above includes the leading compact-size length byte wire.WriteVarBytes also
	// writes; strip it so the preimage isn't double length-prefixed.
	preimageScript := bitcoin.Script(scriptCode[1:])

	wantPreimageHex := "0100000096b827c8483d4e9b96712b6713a7b68d6e8003a781feba36c31143470b4efd3752b0a642eea2fb7ae638c36f6252b6750293dbe574a806984b8e4d8548339a3bef51e1b804cc89d182d279655c3aa89e815b1b309fe287d9b2b55d57b90ec68a010000001976a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac0046c32300000000ffffffff863ef3e1a92afbfdb97f31ad0fc7683ee943e9abcf2501590ff8f6551f47e5e51100000001000000"
	wantPreimage, err := hex.DecodeString(wantPreimageHex)
	if err != nil {
		t.Fatalf("Failed to decode expected preimage hex : %s", err)
	}

	hashCache := &SigHashCache{}
	gotPreimage, err := SignatureHashPreimageBytes(&tx, 1, preimageScript, 600000000, SigHashAll,
		hashCache)
	if err != nil {
		t.Fatalf("Failed to build sig hash preimage : %s", err)
	}

	if !bytes.Equal(wantPreimage, gotPreimage) {
		t.Fatalf("Incorrect preimage\ngot:  %x\nwant: %x", gotPreimage, wantPreimage)
	}

	wantHashHex := "c37af31116d1b27caf68aae9e3ac82f1477929014d5b917657d0eb49478cb670"
	wantHash, err := hex.DecodeString(wantHashHex)
	if err != nil {
		t.Fatalf("Failed to decode expected hash hex : %s", err)
	}

	gotHash, err := SignatureHash(&tx, 1, preimageScript, 600000000, SigHashAll, hashCache)
	if err != nil {
		t.Fatalf("Failed to build sig hash : %s", err)
	}

	if !bytes.Equal(wantHash, gotHash[:]) {
		t.Fatalf("Incorrect sig hash\ngot:  %x\nwant: %x", gotHash[:], wantHash)
	}
}

// TestSigHashSingleAnyOneCanPayIndependentOfAppendedInput builds a single-input single-output
// transaction, computes its SIGHASH_SINGLE|ANYONECANPAY pre-image, appends a second input, and
// checks the pre-image is unchanged: ANYONECANPAY makes the hash independent of every input but
// the one being signed.
func TestSigHashSingleAnyOneCanPayIndependentOfAppendedInput(t *testing.T) {
	lockingScript := bitcoin.Script{bitcoin.OP_DUP, bitcoin.OP_HASH160}
	lockingScript = append(lockingScript, make([]byte, 20)...)
	lockingScript = append(lockingScript, bitcoin.OP_EQUALVERIFY, bitcoin.OP_CHECKSIG)

	tx := wire.NewMsgTx(wire.TxVersion)
	hash1, _ := chainhashFromByte(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash1, 0), nil))
	tx.AddTxOut(wire.NewTxOut(1000, lockingScript))

	hashType := SigHashSingle | SigHashAnyOneCanPay

	before, err := SignatureHashPreimageBytes(tx, 0, lockingScript, 5000, hashType, &SigHashCache{})
	if err != nil {
		t.Fatalf("Failed to build pre-append preimage : %s", err)
	}

	hash2, _ := chainhashFromByte(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash2, 0), nil))

	after, err := SignatureHashPreimageBytes(tx, 0, lockingScript, 5000, hashType, &SigHashCache{})
	if err != nil {
		t.Fatalf("Failed to build post-append preimage : %s", err)
	}

	if !bytes.Equal(before, after) {
		t.Fatalf("SIGHASH_SINGLE|ANYONECANPAY preimage changed after appending an input\nbefore: %x\nafter:  %x",
			before, after)
	}
}

func TestLegacySignatureHashRoundTrip(t *testing.T) {
	lockingScript := bitcoin.Script{bitcoin.OP_DUP, bitcoin.OP_HASH160}
	lockingScript = append(lockingScript, make([]byte, 20)...)
	lockingScript = append(lockingScript, bitcoin.OP_EQUALVERIFY, bitcoin.OP_CHECKSIG)

	tx := wire.NewMsgTx(wire.TxVersion)
	hash1, _ := chainhashFromByte(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash1, 0), nil))
	tx.AddTxOut(wire.NewTxOut(1000, lockingScript))

	hash, err := LegacySignatureHash(tx, 0, lockingScript, SigHashAll)
	if err != nil {
		t.Fatalf("Failed to build legacy sig hash : %s", err)
	}
	if len(hash) != 32 {
		t.Fatalf("Incorrect hash length : got %d, want 32", len(hash))
	}

	// Mutating the locktime (covered by every sighash variant) must change the hash.
	tx.LockTime = 1
	hash2, err := LegacySignatureHash(tx, 0, lockingScript, SigHashAll)
	if err != nil {
		t.Fatalf("Failed to build legacy sig hash : %s", err)
	}
	if bytes.Equal(hash[:], hash2[:]) {
		t.Fatalf("Legacy sig hash did not change after mutating locktime")
	}
}
