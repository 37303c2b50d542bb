package bitcoin

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var (
	ErrNotEnoughPublicKeys = errors.New("Not Enough Public Keys")

	PKHTemplate = Template{OP_DUP, OP_HASH160, OP_PUBKEYHASH, OP_EQUALVERIFY, OP_CHECKSIG}
	PKTemplate  = Template{OP_PUBKEY, OP_CHECKSIG}
	SHTemplate  = Template{OP_HASH160, OP_HASH20, OP_EQUAL}

	// WPKHTemplate is a segwit v0 pay-to-witness-pubkey-hash output: OP_0 <20 byte hash>.
	WPKHTemplate = Template{OP_0, OP_HASH20}

	// WSHTemplate is a segwit v0 pay-to-witness-script-hash output: OP_0 <32 byte hash>.
	WSHTemplate = Template{OP_0, OP_HASH32}

)

// ScriptType identifies the standard output shape a locking script matches, per the template
// table in the witness-aware address/template design.
type ScriptType int

const (
	ScriptTypeNonStandard ScriptType = iota
	ScriptTypeP2PK
	ScriptTypeP2PKH
	ScriptTypeP2SH
	ScriptTypeP2WPKH
	ScriptTypeP2WSH
	ScriptTypeWitnessUnknown // segwit versions 1-16, bech32m, decode-only
)

// witnessVersionOpCodes maps OP_1..OP_16 to the witness version number they represent.
var witnessVersionOpCodes = map[byte]int{
	OP_1: 1, OP_2: 2, OP_3: 3, OP_4: 4, OP_5: 5, OP_6: 6, OP_7: 7, OP_8: 8,
	OP_9: 9, OP_10: 10, OP_11: 11, OP_12: 12, OP_13: 13, OP_14: 14, OP_15: 15, OP_16: 16,
}

// MatchWitness checks for a segwit output: a witness version push (OP_0 or OP_1-OP_16) followed
// by a single 2-40 byte program push, per BIP-141/BIP-173. It returns false for anything else,
// including scripts that merely start with a small-int opcode for unrelated reasons.
func MatchWitness(script Script) (version int, program []byte, ok bool) {
	buf := bytes.NewReader(script)

	verItem, err := ParseScript(buf)
	if err != nil {
		return 0, nil, false
	}

	if verItem.OpCode == OP_0 {
		version = 0
	} else if v, isWitnessVersion := witnessVersionOpCodes[verItem.OpCode]; isWitnessVersion {
		version = v
	} else {
		return 0, nil, false
	}

	progItem, err := ParseScript(buf)
	if err != nil || progItem.Type != ScriptItemTypePushData {
		return 0, nil, false
	}
	if len(progItem.Data) < 2 || len(progItem.Data) > 40 {
		return 0, nil, false
	}

	if _, err := ParseScript(buf); err != io.EOF {
		return 0, nil, false // trailing data after the witness program
	}

	return version, progItem.Data, true
}

// IdentifyScriptType classifies a locking script against the standard template table. Asset
// scripts are matched against the portion of the script preceding OP_RVN_ASSET (see
// Script.SplitAsset); the returned type describes the underlying payment template regardless of
// whether an asset payload is attached.
func IdentifyScriptType(script Script) ScriptType {
	base, _, _ := script.SplitAsset()

	if base.MatchesTemplate(PKHTemplate) {
		return ScriptTypeP2PKH
	}
	if base.MatchesTemplate(PKTemplate) {
		return ScriptTypeP2PK
	}
	if base.MatchesTemplate(SHTemplate) {
		return ScriptTypeP2SH
	}
	if version, program, ok := MatchWitness(base); ok {
		switch {
		case version == 0 && len(program) == Hash20Size:
			return ScriptTypeP2WPKH
		case version == 0 && len(program) == Hash32Size:
			return ScriptTypeP2WSH
		default:
			return ScriptTypeWitnessUnknown
		}
	}

	return ScriptTypeNonStandard
}

// Template represents a locking script that is incomplete. It represents the function of the
// locking script without the public keys or other specific values needed to make it complete.
type Template Script

// smallIntOpCode returns the opcode pushing n onto the stack, for 0 <= n <= 16.
func smallIntOpCode(n int) byte {
	if n == 0 {
		return OP_0
	}
	return OP_1 + byte(n-1)
}

// MultisigLockingScript builds a standard bare m-of-n CHECKMULTISIG script:
// OP_<required> <pubkey>... OP_<total> OP_CHECKMULTISIG. Used directly for p2sh/p2wsh redeem
// and witness scripts; wrap it in P2SH/P2WSH to use as an output locking script.
func MultisigLockingScript(required int, publicKeys []PublicKey) (Script, error) {
	if required < 1 || required > len(publicKeys) || len(publicKeys) > 16 {
		return nil, errors.Wrap(ErrUnknownScriptTemplate, "multisig m-of-n out of range")
	}

	result := &bytes.Buffer{}
	if err := result.WriteByte(smallIntOpCode(required)); err != nil {
		return nil, errors.Wrap(err, "write byte")
	}

	for _, pk := range publicKeys {
		if err := WritePushDataScript(result, pk.Bytes()); err != nil {
			return nil, errors.Wrap(err, "write public key")
		}
	}

	if err := result.WriteByte(smallIntOpCode(len(publicKeys))); err != nil {
		return nil, errors.Wrap(err, "write byte")
	}
	if err := result.WriteByte(OP_CHECKMULTISIG); err != nil {
		return nil, errors.Wrap(err, "write byte")
	}

	return NewScript(result.Bytes()), nil
}

// ExtractMultisig parses a bare CHECKMULTISIG script back into its required signature count and
// public keys. Returns ErrUnknownScriptTemplate if script isn't in that shape.
func ExtractMultisig(script Script) (required int, publicKeys []PublicKey, err error) {
	buf := bytes.NewReader(script)

	reqItem, err := ParseScript(buf)
	if err != nil {
		return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "required count")
	}
	reqValue, err := ScriptNumberValue(reqItem)
	if err != nil || reqValue < 1 || reqValue > 16 {
		return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "required count")
	}
	required = int(reqValue)

	for {
		item, itemErr := ParseScript(buf)
		if itemErr != nil {
			return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "parse")
		}
		if item.Type == ScriptItemTypePushData {
			pk, pkErr := PublicKeyFromBytes(item.Data)
			if pkErr != nil {
				return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "public key")
			}
			publicKeys = append(publicKeys, pk)
			continue
		}

		totalValue, totalErr := ScriptNumberValue(item)
		if totalErr != nil || int(totalValue) != len(publicKeys) {
			return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "total count")
		}
		break
	}

	finalItem, err := ParseScript(buf)
	if err != nil || finalItem.OpCode != OP_CHECKMULTISIG {
		return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "not checkmultisig")
	}
	if _, err := ParseScript(buf); err != io.EOF {
		return 0, nil, errors.Wrap(ErrUnknownScriptTemplate, "trailing data")
	}

	return required, publicKeys, nil
}

// LockingScript populates the template with public key values and creates a locking script.
func (t Template) LockingScript(publicKeys []PublicKey) (Script, error) {
	result := &bytes.Buffer{}
	buf := bytes.NewReader(t)
	pubKeyIndex := 0

	for {
		item, err := ParseScript(buf)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "parse script")
		}

		if item.Type == ScriptItemTypePushData {
			if err := WritePushDataScript(result, item.Data); err != nil {
				return nil, errors.Wrap(err, "write push data")
			}
			continue
		}

		switch item.OpCode {
		case OP_PUBKEY:
			if pubKeyIndex >= len(publicKeys) {
				return nil, ErrNotEnoughPublicKeys
			}

			if err := WritePushDataScript(result, publicKeys[pubKeyIndex].Bytes()); err != nil {
				return nil, errors.Wrap(err, "write public key")
			}

			pubKeyIndex++
			continue

		case OP_PUBKEYHASH:
			if pubKeyIndex >= len(publicKeys) {
				return nil, ErrNotEnoughPublicKeys
			}

			if err := WritePushDataScript(result,
				Hash160(publicKeys[pubKeyIndex].Bytes())); err != nil {
				return nil, errors.Wrap(err, "write public key")
			}

			pubKeyIndex++
			continue
		}

		// Op Code
		if err := result.WriteByte(item.OpCode); err != nil {
			return nil, errors.Wrap(err, "write op code")
		}
	}

	return NewScript(result.Bytes()), nil
}

func (t Template) PubKeyCount() uint32 {
	var result uint32
	for _, b := range t {
		if b == OP_PUBKEY || b == OP_PUBKEYHASH {
			result++
		}
	}
	return result
}

// RequiredSignatures is the number of signatures required to unlock the template.
// Note: only supports PKH and PK; bare multisig templates carry their own threshold byte and are
// read directly with ExtractMultisig instead of through the placeholder Template mechanism.
func (t Template) RequiredSignatures() (uint32, error) {
	if bytes.Equal(t, PKHTemplate) || bytes.Equal(t, PKTemplate) {
		return 1, nil
	}

	return 0, errors.Wrap(ErrUnknownScriptTemplate, "not PKH or PK")
}

func (t Template) String() string {
	return ScriptToString(Script(t))
}

func (t Template) Bytes() []byte {
	return t
}

// MarshalText returns the text encoding of the raw address.
// Implements encoding.TextMarshaler interface.
func (t Template) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a text encoded raw address and sets the value of this object.
// Implements encoding.TextUnmarshaler interface.
func (t *Template) UnmarshalText(text []byte) error {
	b, err := StringToScript(string(text))
	if err != nil {
		return errors.Wrap(err, "script to string")
	}

	return t.UnmarshalBinary(b)
}

// MarshalBinary returns the binary encoding of the raw address.
// Implements encoding.BinaryMarshaler interface.
func (t Template) MarshalBinary() ([]byte, error) {
	return t.Bytes(), nil
}

// UnmarshalBinary parses a binary encoded raw address and sets the value of this object.
// Implements encoding.BinaryUnmarshaler interface.
func (t *Template) UnmarshalBinary(data []byte) error {
	// Copy byte slice in case it is reused after this call.
	*t = make([]byte, len(data))
	copy(*t, data)
	return nil
}

// Scan converts from a database column.
func (t *Template) Scan(data interface{}) error {
	if data == nil {
		*t = nil
		return nil
	}

	b, ok := data.([]byte)
	if !ok {
		return errors.New("Template db column not bytes")
	}

	if len(b) == 0 {
		*t = nil
		return nil
	}

	// Copy byte slice because it will be wiped out by the database after this call.
	*t = make([]byte, len(b))
	copy(*t, b)

	return nil
}
