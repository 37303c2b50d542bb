package bitcoin

import (
	"bytes"

	"github.com/pkg/errors"
)

// AddressFromLockingScript returns the address associated with the specified locking script.
func AddressFromLockingScript(lockingScript Script, net Network) (Address, error) {
	ra, err := RawAddressFromLockingScript(lockingScript)
	if err != nil {
		return Address{}, err
	}
	return NewAddressFromRawAddress(ra, net), nil
}

// RawAddressFromLockingScript returns the script template associated with the specified locking
// script. Asset scripts are matched against the portion preceding the asset payload, the same way
// IdentifyScriptType does.
func RawAddressFromLockingScript(lockingScript Script) (RawAddress, error) {
	base, _, _ := lockingScript.SplitAsset()

	buf := bytes.NewReader(base)

	firstItem, err := ParseScript(buf)
	if err != nil {
		return RawAddress{}, errors.Wrap(ErrUnknownScriptTemplate, "first item")
	}

	switch {
	case firstItem.Type == ScriptItemTypeOpCode && firstItem.OpCode == OP_DUP:
		// Pay to Public Key Hash
		// OP_DUP OP_HASH160 <PKH> OP_EQUALVERIFY OP_CHECKSIG
		item, err := ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypeOpCode || item.OpCode != OP_HASH160 {
			break
		}

		item, err = ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypePushData || len(item.Data) != Hash20Size {
			break
		}
		pkh := item.Data

		item, err = ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypeOpCode || item.OpCode != OP_EQUALVERIFY {
			break
		}

		item, err = ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypeOpCode || item.OpCode != OP_CHECKSIG {
			break
		}

		return NewRawAddressPKH(pkh)

	case firstItem.Type == ScriptItemTypePushData && len(firstItem.Data) == PublicKeyCompressedLength:
		// Pay to Public Key
		// <Compressed Public Key> OP_CHECKSIG
		item, err := ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypeOpCode || item.OpCode != OP_CHECKSIG {
			break
		}

		return NewRawAddressCompressedPublicKey(firstItem.Data)

	case firstItem.Type == ScriptItemTypeOpCode && firstItem.OpCode == OP_HASH160:
		// Pay to Script Hash
		// OP_HASH160 <Script Hash> OP_EQUAL
		item, err := ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypePushData || len(item.Data) != Hash20Size {
			break
		}
		sh := item.Data

		item, err = ParseScript(buf)
		if err != nil || item.Type != ScriptItemTypeOpCode || item.OpCode != OP_EQUAL {
			break
		}

		return NewRawAddressSH(sh)
	}

	if version, program, ok := MatchWitness(base); ok {
		switch {
		case version == 0 && len(program) == Hash20Size:
			return NewRawAddressWPKH(program)
		case version == 0 && len(program) == Hash32Size:
			return NewRawAddressWSH(program)
		default:
			return NewRawAddressWitnessUnknown(version, program)
		}
	}

	return RawAddress{}, ErrUnknownScriptTemplate
}

// RawAddressFromUnlockingScript recovers the spending raw address from an unlocking script, when
// that's possible. Only the standard P2PKH shape (<signature> <public key>) carries enough
// information to do this; every other shape returns ErrUnknownScriptTemplate.
func RawAddressFromUnlockingScript(unlockingScript Script) (RawAddress, error) {
	buf := bytes.NewReader(unlockingScript)

	sigItem, err := ParseScript(buf)
	if err != nil || sigItem.Type != ScriptItemTypePushData {
		return RawAddress{}, errors.Wrap(ErrUnknownScriptTemplate, "signature push")
	}

	pubKeyItem, err := ParseScript(buf)
	if err != nil || pubKeyItem.Type != ScriptItemTypePushData {
		return RawAddress{}, errors.Wrap(ErrUnknownScriptTemplate, "public key push")
	}

	if _, err := ParseScript(buf); err == nil {
		return RawAddress{}, errors.Wrap(ErrUnknownScriptTemplate, "trailing data")
	}

	pubKey, err := PublicKeyFromBytes(pubKeyItem.Data)
	if err != nil {
		return RawAddress{}, errors.Wrap(ErrUnknownScriptTemplate, "public key")
	}

	return NewRawAddressPKH(Hash160(pubKey.Bytes()))
}

// LockingScript creates the locking script for the raw address.
func (ra RawAddress) LockingScript() (Script, error) {
	buf := &bytes.Buffer{}

	switch ra.scriptType {
	case ScriptTypePKH:
		// OP_DUP OP_HASH160 <PKH> OP_EQUALVERIFY OP_CHECKSIG
		buf.WriteByte(OP_DUP)
		buf.WriteByte(OP_HASH160)
		if err := WritePushDataScript(buf, ra.data); err != nil {
			return nil, errors.Wrap(err, "pkh")
		}
		buf.WriteByte(OP_EQUALVERIFY)
		buf.WriteByte(OP_CHECKSIG)
		return Script(buf.Bytes()), nil

	case ScriptTypePK:
		// <Public Key> OP_CHECKSIG
		if err := WritePushDataScript(buf, ra.data); err != nil {
			return nil, errors.Wrap(err, "public key")
		}
		buf.WriteByte(OP_CHECKSIG)
		return Script(buf.Bytes()), nil

	case ScriptTypeSH:
		// OP_HASH160 <Script Hash> OP_EQUAL
		buf.WriteByte(OP_HASH160)
		if err := WritePushDataScript(buf, ra.data); err != nil {
			return nil, errors.Wrap(err, "sh")
		}
		buf.WriteByte(OP_EQUAL)
		return Script(buf.Bytes()), nil

	case ScriptTypeWPKH:
		// OP_0 <20 byte hash>
		buf.WriteByte(OP_0)
		if err := WritePushDataScript(buf, ra.data); err != nil {
			return nil, errors.Wrap(err, "wpkh")
		}
		return Script(buf.Bytes()), nil

	case ScriptTypeWSH:
		// OP_0 <32 byte hash>
		buf.WriteByte(OP_0)
		if err := WritePushDataScript(buf, ra.data); err != nil {
			return nil, errors.Wrap(err, "wsh")
		}
		return Script(buf.Bytes()), nil

	case ScriptTypeWitnessUnknown:
		version, err := ra.WitnessVersion()
		if err != nil {
			return nil, err
		}
		program, err := ra.WitnessProgram()
		if err != nil {
			return nil, err
		}
		opCode, err := witnessVersionOpCode(version)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(opCode)
		if err := WritePushDataScript(buf, program); err != nil {
			return nil, errors.Wrap(err, "witness program")
		}
		return Script(buf.Bytes()), nil
	}

	return nil, ErrUnknownScriptTemplate
}

// witnessVersionOpCode is the inverse of witnessVersionOpCodes: given a witness version number,
// return the opcode (OP_0 or OP_1-OP_16) that pushes it.
func witnessVersionOpCode(version int) (byte, error) {
	if version == 0 {
		return OP_0, nil
	}
	for opCode, v := range witnessVersionOpCodes {
		if v == version {
			return opCode, nil
		}
	}
	return 0, errors.Wrap(ErrUnknownScriptTemplate, "witness version")
}

// PublicKeyFromLockingScript returns the serialized public key from a P2PK locking script.
func PublicKeyFromLockingScript(lockingScript []byte) ([]byte, error) {
	buf := bytes.NewReader(lockingScript)

	item, err := ParseScript(buf)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownScriptTemplate, "first item")
	}

	if item.Type != ScriptItemTypePushData || len(item.Data) != PublicKeyCompressedLength {
		return nil, ErrUnknownScriptTemplate
	}

	return item.Data, nil
}
