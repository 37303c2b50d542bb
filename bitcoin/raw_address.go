package bitcoin

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	ScriptTypeEmpty = 0xff // Empty address
	ScriptTypePKH   = 0x20 // Public Key Hash
	ScriptTypeSH    = 0x21 // Script Hash
	ScriptTypePK    = 0x24 // Public Key

	// Segwit types. Data holds the witness program only (no version byte); the version is
	// implied by the type for v0, and stored alongside for unknown future versions.
	ScriptTypeWPKH           = 0x30 // segwit v0 witness pubkey hash (20 bytes)
	ScriptTypeWSH            = 0x31 // segwit v0 witness script hash (32 bytes)
	ScriptTypeWitnessUnknown = 0x32 // segwit v1-16, decode-only; data[0] holds the version

	ScriptHashLength = 20 // Length of standard public key, script, and R hashes RIPEMD(SHA256())
)

// RawAddress represents a bitcoin address in raw format, with no check sum or encoding.
// It represents a "script template" for common locking and unlocking scripts.
// It enables parsing and creating of common locking and unlocking scripts as well as identifying
//   participants involved in the scripts via public key hashes and other hashes.
type RawAddress struct {
	scriptType byte
	data       []byte
}

// DecodeRawAddress decodes a binary raw address. It returns an error if there was an issue.
func DecodeRawAddress(b []byte) (RawAddress, error) {
	var result RawAddress
	err := result.Decode(b)
	return result, err
}

// Decode decodes a binary raw address. It returns an error if there was an issue.
func (ra *RawAddress) Decode(b []byte) error {
	if len(b) == 0 {
		return errors.Wrap(ErrBadType, "empty")
	}

	switch b[0] {
	case ScriptTypeEmpty:
		ra.scriptType = ScriptTypeEmpty
		ra.data = nil
		return nil

	// Public Key Hash
	case AddressTypeMainPKH:
		fallthrough
	case AddressTypeTestPKH:
		fallthrough
	case ScriptTypePKH:
		return ra.SetPKH(b[1:])

	// Public Key
	case AddressTypeMainPK:
		fallthrough
	case AddressTypeTestPK:
		fallthrough
	case ScriptTypePK:
		return ra.SetCompressedPublicKey(b[1:])

	// Script Hash
	case AddressTypeMainSH:
		fallthrough
	case AddressTypeTestSH:
		fallthrough
	case ScriptTypeSH:
		return ra.SetSH(b[1:])

	// Segwit v0
	case ScriptTypeWPKH:
		return ra.SetWPKH(b[1:])
	case ScriptTypeWSH:
		return ra.SetWSH(b[1:])
	case ScriptTypeWitnessUnknown:
		if len(b) < 2 {
			return errors.Wrap(ErrNotEnoughData, "witness version")
		}
		return ra.SetWitnessUnknown(int(b[1]), b[2:])
	}

	return ErrBadType
}

// Deserialize reads a binary raw address. It returns an error if there was an issue.
func (ra *RawAddress) Deserialize(r io.Reader) error {
	var t [1]byte
	if _, err := io.ReadFull(r, t[:]); err != nil {
		return err
	}

	switch t[0] {
	case ScriptTypeEmpty:
		ra.scriptType = ScriptTypeEmpty
		ra.data = nil
		return nil

	// Public Key Hash
	case AddressTypeMainPKH:
		fallthrough
	case AddressTypeTestPKH:
		fallthrough
	case ScriptTypePKH:
		pkh := make([]byte, ScriptHashLength)
		if _, err := io.ReadFull(r, pkh); err != nil {
			return err
		}
		return ra.SetPKH(pkh)

	// Public Key
	case AddressTypeMainPK:
		fallthrough
	case AddressTypeTestPK:
		fallthrough
	case ScriptTypePK:
		pk := make([]byte, PublicKeyCompressedLength)
		if _, err := io.ReadFull(r, pk); err != nil {
			return err
		}
		return ra.SetCompressedPublicKey(pk)

	// Script Hash
	case AddressTypeMainSH:
		fallthrough
	case AddressTypeTestSH:
		fallthrough
	case ScriptTypeSH:
		sh := make([]byte, ScriptHashLength)
		if _, err := io.ReadFull(r, sh); err != nil {
			return err
		}
		return ra.SetSH(sh)

	// Segwit v0
	case ScriptTypeWPKH:
		wpkh := make([]byte, Hash20Size)
		if _, err := io.ReadFull(r, wpkh); err != nil {
			return err
		}
		return ra.SetWPKH(wpkh)
	case ScriptTypeWSH:
		wsh := make([]byte, Hash32Size)
		if _, err := io.ReadFull(r, wsh); err != nil {
			return err
		}
		return ra.SetWSH(wsh)
	case ScriptTypeWitnessUnknown:
		var version [1]byte
		if _, err := io.ReadFull(r, version[:]); err != nil {
			return err
		}
		var progLen [1]byte
		if _, err := io.ReadFull(r, progLen[:]); err != nil {
			return err
		}
		program := make([]byte, progLen[0])
		if _, err := io.ReadFull(r, program); err != nil {
			return err
		}
		return ra.SetWitnessUnknown(int(version[0]), program)
	}

	return errors.Wrapf(ErrBadType, "Type : %d", t)
}

// NewRawAddressFromAddress creates a RawAddress from an Address.
func NewRawAddressFromAddress(a Address) RawAddress {
	result := RawAddress{data: a.data}

	switch a.addressType {
	case AddressTypeMainPKH:
		fallthrough
	case AddressTypeTestPKH:
		result.scriptType = ScriptTypePKH
	case AddressTypeMainPK:
		fallthrough
	case AddressTypeTestPK:
		result.scriptType = ScriptTypePK
	case AddressTypeMainSH:
		fallthrough
	case AddressTypeTestSH:
		result.scriptType = ScriptTypeSH
	}

	return result
}

/****************************************** PKH ***************************************************/

// NewRawAddressPKH creates an address from a public key hash.
func NewRawAddressPKH(pkh []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetPKH(pkh)
	return result, err
}

// SetPKH sets the type as ScriptTypePKH and sets the data to the specified Public Key Hash.
func (ra *RawAddress) SetPKH(pkh []byte) error {
	if len(pkh) != ScriptHashLength {
		return ErrBadScriptHashLength
	}

	ra.scriptType = ScriptTypePKH
	ra.data = pkh
	return nil
}

func (ra *RawAddress) GetPublicKeyHash() (Hash20, error) {
	if ra.scriptType != ScriptTypePKH {
		return Hash20{}, ErrWrongType
	}

	hash, err := NewHash20(ra.data)
	return *hash, err
}

/****************************************** PK ***************************************************/

// NewRawAddressPublicKey creates an address from a public key.
func NewRawAddressPublicKey(pk PublicKey) (RawAddress, error) {
	var result RawAddress
	err := result.SetPublicKey(pk)
	return result, err
}

// SetPublicKey sets the type as ScriptTypePK and sets the data to the specified public key.
func (ra *RawAddress) SetPublicKey(pk PublicKey) error {
	ra.scriptType = ScriptTypePK
	ra.data = pk.Bytes()
	return nil
}

// NewRawAddressCompressedPublicKey creates an address from a compressed public key.
func NewRawAddressCompressedPublicKey(pk []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetCompressedPublicKey(pk)
	return result, err
}

// SetCompressedPublicKey sets the type as ScriptTypePK and sets the data to the specified
//   compressed public key.
func (ra *RawAddress) SetCompressedPublicKey(pk []byte) error {
	if len(pk) != PublicKeyCompressedLength {
		return ErrBadScriptHashLength
	}

	ra.scriptType = ScriptTypePK
	ra.data = pk
	return nil
}

func (ra *RawAddress) GetPublicKey() (PublicKey, error) {
	if ra.scriptType != ScriptTypePK {
		return PublicKey{}, ErrWrongType
	}

	return PublicKeyFromBytes(ra.data)
}

/******************************************* SH ***************************************************/

// NewRawAddressSH creates an address from a script hash.
func NewRawAddressSH(sh []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetSH(sh)
	return result, err
}

// SetSH sets the type as ScriptTypeSH and sets the data to the specified Script Hash.
func (ra *RawAddress) SetSH(sh []byte) error {
	if len(sh) != ScriptHashLength {
		return ErrBadScriptHashLength
	}

	ra.scriptType = ScriptTypeSH
	ra.data = sh
	return nil
}

/**************************************** Segwit **************************************************/

// NewRawAddressWPKH creates an address from a segwit v0 witness-pubkey-hash program.
func NewRawAddressWPKH(wpkh []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetWPKH(wpkh)
	return result, err
}

// SetWPKH sets the type as ScriptTypeWPKH and sets the data to the specified 20 byte program.
func (ra *RawAddress) SetWPKH(wpkh []byte) error {
	if len(wpkh) != Hash20Size {
		return ErrBadScriptHashLength
	}

	ra.scriptType = ScriptTypeWPKH
	ra.data = wpkh
	return nil
}

// NewRawAddressWSH creates an address from a segwit v0 witness-script-hash program.
func NewRawAddressWSH(wsh []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetWSH(wsh)
	return result, err
}

// SetWSH sets the type as ScriptTypeWSH and sets the data to the specified 32 byte program.
func (ra *RawAddress) SetWSH(wsh []byte) error {
	if len(wsh) != Hash32Size {
		return ErrBadScriptHashLength
	}

	ra.scriptType = ScriptTypeWSH
	ra.data = wsh
	return nil
}

// NewRawAddressWitnessUnknown creates an address for a segwit version 1-16 program that this
// package doesn't otherwise recognize. These are decode-only: the package can represent and
// round-trip them but has no opinion on how they're spent (taproot/witness-v1 signing is out of
// scope).
func NewRawAddressWitnessUnknown(version int, program []byte) (RawAddress, error) {
	var result RawAddress
	err := result.SetWitnessUnknown(version, program)
	return result, err
}

// SetWitnessUnknown sets the type as ScriptTypeWitnessUnknown, storing the witness version
// alongside the program since, unlike v0, it isn't implied by the type.
func (ra *RawAddress) SetWitnessUnknown(version int, program []byte) error {
	if version < 1 || version > 16 {
		return errors.Wrap(ErrBadType, "witness version")
	}
	if len(program) < 2 || len(program) > 40 {
		return errors.Wrap(ErrNotEnoughData, "witness program")
	}

	ra.scriptType = ScriptTypeWitnessUnknown
	ra.data = append([]byte{byte(version)}, program...)
	return nil
}

// WitnessVersion returns the segwit version number for a WPKH, WSH, or WitnessUnknown address.
func (ra RawAddress) WitnessVersion() (int, error) {
	switch ra.scriptType {
	case ScriptTypeWPKH, ScriptTypeWSH:
		return 0, nil
	case ScriptTypeWitnessUnknown:
		if len(ra.data) == 0 {
			return 0, ErrNotEnoughData
		}
		return int(ra.data[0]), nil
	}
	return 0, ErrWrongType
}

// WitnessProgram returns the raw witness program bytes for a WPKH, WSH, or WitnessUnknown
// address (without the version byte WitnessUnknown stores alongside it).
func (ra RawAddress) WitnessProgram() ([]byte, error) {
	switch ra.scriptType {
	case ScriptTypeWPKH, ScriptTypeWSH:
		return ra.data, nil
	case ScriptTypeWitnessUnknown:
		if len(ra.data) < 1 {
			return nil, ErrNotEnoughData
		}
		return ra.data[1:], nil
	}
	return nil, ErrWrongType
}

/***************************************** Common *************************************************/

// Type returns the script type of the address.
func (ra RawAddress) Type() byte {
	return ra.scriptType
}

// IsSpendable returns true if the address produces a locking script that can be unlocked.
func (ra RawAddress) IsSpendable() bool {
	// TODO Full locking and unlocking support only available for P2PKH and P2WPKH.
	return !ra.IsEmpty() && (ra.scriptType == ScriptTypePKH || ra.scriptType == ScriptTypeWPKH)
}

// IsNonStandard returns true if the address represents a script this package doesn't recognize
// the spending rules for, i.e. a witness version/program combination beyond v0.
func (ra RawAddress) IsNonStandard() bool {
	return !ra.IsEmpty() && (ra.scriptType == ScriptTypeWitnessUnknown)
}

// Bytes returns the byte encoded format of the address.
func (ra RawAddress) Bytes() []byte {
	if len(ra.data) == 0 {
		return nil
	}
	return append([]byte{ra.scriptType}, ra.data...)
}

func (ra RawAddress) Equal(other RawAddress) bool {
	return ra.scriptType == other.scriptType && bytes.Equal(ra.data, other.data)
}

// IsEmpty returns true if the address does not have a value set.
func (ra RawAddress) IsEmpty() bool {
	return len(ra.data) == 0
}

func (ra RawAddress) Serialize(w io.Writer) error {
	if ra.IsEmpty() {
		_, err := w.Write([]byte{ScriptTypeEmpty})
		return err
	}

	if ra.scriptType == ScriptTypeWitnessUnknown {
		if len(ra.data) < 1 {
			return ErrNotEnoughData
		}
		version := ra.data[0]
		program := ra.data[1:]
		if _, err := w.Write([]byte{ra.scriptType, version, byte(len(program))}); err != nil {
			return err
		}
		_, err := w.Write(program)
		return err
	}

	if _, err := w.Write([]byte{ra.scriptType}); err != nil {
		return err
	}
	if _, err := w.Write(ra.data); err != nil {
		return err
	}
	return nil
}

// Hash returns the hash corresponding to the address. For a WPKH address this is the raw
// witness program hash, not a further RIPEMD160(SHA256()) of it. WSH and witness-unknown
// addresses return ErrUnknownScriptTemplate.
func (ra *RawAddress) Hash() (*Hash20, error) {
	switch ra.scriptType {
	case ScriptTypePKH, ScriptTypeSH, ScriptTypeWPKH:
		return NewHash20(ra.data)
	case ScriptTypePK:
		return NewHash20(Hash160(ra.data))
	}
	return nil, ErrUnknownScriptTemplate
}

// Hashes returns the hashes corresponding to the address.
func (ra *RawAddress) Hashes() ([]Hash20, error) {

	switch ra.scriptType {
	case ScriptTypePKH, ScriptTypeSH, ScriptTypeWPKH:
		hash, err := NewHash20(ra.data)
		if err != nil {
			return nil, err
		}
		return []Hash20{*hash}, nil

	case ScriptTypePK:
		hash, err := NewHash20(Hash160(ra.data))
		if err != nil {
			return nil, err
		}
		return []Hash20{*hash}, nil
	}

	return nil, ErrUnknownScriptTemplate
}

// MarshalJSON converts to json.
func (ra RawAddress) MarshalJSON() ([]byte, error) {
	if len(ra.data) == 0 {
		return []byte("\"\""), nil
	}
	return []byte("\"" + hex.EncodeToString(ra.Bytes()) + "\""), nil
}

// UnmarshalJSON converts from json.
func (ra *RawAddress) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("Too short for RawAddress hex data : %d", len(data))
	}

	if len(data) == 2 {
		// Empty raw address
		ra.scriptType = 0
		ra.data = nil
		return nil
	}

	// Decode hex and remove double quotes.
	raw, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	// Decode into raw address
	return ra.Decode(raw)
}

// MarshalText returns the text encoding of the raw address.
// Implements encoding.TextMarshaler interface.
func (ra RawAddress) MarshalText() ([]byte, error) {
	b := ra.Bytes()
	result := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(result, b)
	return result, nil
}

// UnmarshalText parses a text encoded raw address and sets the value of this object.
// Implements encoding.TextUnmarshaler interface.
func (ra *RawAddress) UnmarshalText(text []byte) error {
	b := make([]byte, hex.DecodedLen(len(text)))
	_, err := hex.Decode(b, text)
	if err != nil {
		return err
	}

	return ra.Decode(b)
}

// MarshalBinary returns the binary encoding of the raw address.
// Implements encoding.BinaryMarshaler interface.
func (ra RawAddress) MarshalBinary() ([]byte, error) {
	return ra.Bytes(), nil
}

// UnmarshalBinary parses a binary encoded raw address and sets the value of this object.
// Implements encoding.BinaryUnmarshaler interface.
func (ra *RawAddress) UnmarshalBinary(data []byte) error {
	return ra.Decode(data)
}

// Scan converts from a database column.
func (ra *RawAddress) Scan(data interface{}) error {
	if data == nil {
		// Empty raw address
		ra.scriptType = 0
		ra.data = nil
		return nil
	}

	b, ok := data.([]byte)
	if !ok {
		return errors.New("RawAddress db column not bytes")
	}

	if len(b) == 0 {
		// Empty raw address
		ra.scriptType = 0
		ra.data = nil
		return nil
	}

	// Copy byte slice because it will be wiped out by the database after this call.
	c := make([]byte, len(b))
	copy(c, b)

	// Decode into raw address
	return ra.Decode(c)
}
