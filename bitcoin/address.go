package bitcoin

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrBadScriptHashLength   = errors.New("Script hash has invalid length")
	ErrBadCheckSum           = errors.New("Address has bad checksum")
	ErrBadType               = errors.New("Address type unknown")
	ErrWrongType             = errors.New("Address type wrong")
	ErrUnknownScriptTemplate = errors.New("Unknown script template")
	ErrNotEnoughData         = errors.New("Not enough data")
)

const (
	AddressTypeMainPKH = 0x3c // Ravencoin mainnet Public Key Hash (starts with R)
	AddressTypeMainSH  = 0x7a // Ravencoin mainnet Script Hash (starts with r)
	AddressTypeMainPK  = 0x06 // Public Key - not a standard display form, used internally

	AddressTypeTestPKH = 0x6f // Ravencoin testnet Public Key Hash (starts with m or n)
	AddressTypeTestSH  = 0xc2 // Ravencoin testnet Script Hash (starts with 2)
	AddressTypeTestPK  = 0x07 // Public Key - not a standard display form, used internally
)

type Address struct {
	addressType byte
	data        []byte
}

// DecodeAddress decodes a base58 text bitcoin address. It returns an error if there was an issue.
func DecodeAddress(address string) (Address, error) {
	var result Address
	err := result.Decode(address)
	return result, err
}

// Decode decodes a base58 text bitcoin address. It returns an error if there was an issue.
func (a *Address) Decode(address string) error {
	b, err := decodeAddress(address)
	if err != nil {
		return err
	}

	return a.decodeBytes(b)
}

// decodeBytes decodes a binary address. It returns an error if there was an issue.
func (a *Address) decodeBytes(b []byte) error {
	if len(b) < 2 {
		return ErrBadType
	}

	switch b[0] {

	// MainNet
	case AddressTypeMainPKH:
		return a.SetPKH(b[1:], MainNet)
	case AddressTypeMainPK:
		return a.SetCompressedPublicKey(b[1:], MainNet)
	case AddressTypeMainSH:
		return a.SetSH(b[1:], MainNet)

	// TestNet
	case AddressTypeTestPKH:
		return a.SetPKH(b[1:], TestNet)
	case AddressTypeTestPK:
		return a.SetCompressedPublicKey(b[1:], TestNet)
	case AddressTypeTestSH:
		return a.SetSH(b[1:], TestNet)
	}

	return ErrBadType
}

// DecodeNetMatches returns true if the decoded network id matches the specified network id.
// All test network ids decode as TestNet.
func DecodeNetMatches(decoded Network, desired Network) bool {
	switch decoded {
	case MainNet:
		return desired == MainNet
	case TestNet:
		return desired != MainNet
	}

	return false
}

// NewAddressFromRawAddress creates an Address from a RawAddress and a network.
func NewAddressFromRawAddress(ra RawAddress, net Network) Address {
	result := Address{data: ra.data}

	switch ra.scriptType {
	case ScriptTypePKH:
		if net == MainNet {
			result.addressType = AddressTypeMainPKH
		} else {
			result.addressType = AddressTypeTestPKH
		}
	case ScriptTypePK:
		if net == MainNet {
			result.addressType = AddressTypeMainPK
		} else {
			result.addressType = AddressTypeTestPK
		}
	case ScriptTypeSH:
		if net == MainNet {
			result.addressType = AddressTypeMainSH
		} else {
			result.addressType = AddressTypeTestSH
		}
	}

	return result
}

/****************************************** PKH ***************************************************/

// NewAddressPKH creates an address from a public key hash.
func NewAddressPKH(pkh []byte, net Network) (Address, error) {
	var result Address
	err := result.SetPKH(pkh, net)
	return result, err
}

// SetPKH sets the Public Key Hash and script type of the address.
func (a *Address) SetPKH(pkh []byte, net Network) error {
	if len(pkh) != ScriptHashLength {
		return ErrBadScriptHashLength
	}

	if net == MainNet {
		a.addressType = AddressTypeMainPKH
	} else {
		a.addressType = AddressTypeTestPKH
	}

	a.data = pkh
	return nil
}

/****************************************** PK ***************************************************/

// NewAddressPublicKey creates an address from a public key.
func NewAddressPublicKey(publicKey PublicKey, net Network) (Address, error) {
	var result Address
	err := result.SetPublicKey(publicKey, net)
	return result, err
}

// SetPublicKey sets the Public Key and script type of the address.
func (a *Address) SetPublicKey(publicKey PublicKey, net Network) error {
	if net == MainNet {
		a.addressType = AddressTypeMainPK
	} else {
		a.addressType = AddressTypeTestPK
	}

	a.data = publicKey.Bytes()
	return nil
}

// NewAddressCompressedPublicKey creates an address from a compressed public key.
func NewAddressCompressedPublicKey(publicKey []byte, net Network) (Address, error) {
	var result Address
	err := result.SetCompressedPublicKey(publicKey, net)
	return result, err
}

// SetCompressedPublicKey sets the Public Key and script type of the address.
func (a *Address) SetCompressedPublicKey(publicKey []byte, net Network) error {
	if len(publicKey) != PublicKeyCompressedLength {
		return ErrBadScriptHashLength
	}

	if net == MainNet {
		a.addressType = AddressTypeMainPK
	} else {
		a.addressType = AddressTypeTestPK
	}

	a.data = publicKey
	return nil
}

func (a *Address) GetPublicKey() (PublicKey, error) {
	if a.addressType != AddressTypeMainPK && a.addressType != AddressTypeTestPK {
		return PublicKey{}, ErrWrongType
	}

	return PublicKeyFromBytes(a.data)
}

/****************************************** SH ***************************************************/

// NewAddressSH creates an address from a script hash.
func NewAddressSH(sh []byte, net Network) (Address, error) {
	var result Address
	err := result.SetSH(sh, net)
	return result, err
}

// SetSH sets the Script Hash and script type of the address.
func (a *Address) SetSH(sh []byte, net Network) error {
	if len(sh) != ScriptHashLength {
		return ErrBadScriptHashLength
	}

	if net == MainNet {
		a.addressType = AddressTypeMainSH
	} else {
		a.addressType = AddressTypeTestSH
	}

	a.data = sh
	return nil
}

/***************************************** Common *************************************************/

func (a Address) Type() byte {
	return a.addressType
}

// String returns the type and address data followed by a checksum encoded with Base58.
func (a Address) String() string {
	return encodeAddress(append([]byte{a.addressType}, a.data...))
}

// Network returns the network id for the address.
func (a Address) Network() Network {
	switch a.addressType {
	case AddressTypeMainPKH, AddressTypeMainSH, AddressTypeMainPK:
		return MainNet
	}
	return TestNet
}

// IsEmpty returns true if the address does not have a value set.
func (a Address) IsEmpty() bool {
	return len(a.data) == 0
}

// Hash returns the hash corresponding to the address.
func (a Address) Hash() (*Hash20, error) {
	switch a.addressType {
	case AddressTypeMainPKH, AddressTypeTestPKH, AddressTypeMainSH, AddressTypeTestSH:
		return NewHash20(a.data)
	case AddressTypeMainPK, AddressTypeTestPK:
		return NewHash20(Hash160(a.data))
	}
	return nil, ErrUnknownScriptTemplate
}

// MarshalText returns the text encoding of the address.
// Implements encoding.TextMarshaler interface.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a text encoded bitcoin address and sets the value of this object.
// Implements encoding.TextUnmarshaler interface.
func (a *Address) UnmarshalText(text []byte) error {
	return a.Decode(string(text))
}

// MarshalJSON converts to json.
func (a Address) MarshalJSON() ([]byte, error) {
	if len(a.data) == 0 {
		return []byte("\"\""), nil
	}
	return []byte("\"" + a.String() + "\""), nil
}

// UnmarshalJSON converts from json.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("Too short for Address data : %d", len(data))
	}

	if len(data) == 2 {
		// Empty address
		a.addressType = AddressTypeMainPKH
		a.data = nil
		return nil
	}

	return a.Decode(string(data[1 : len(data)-1]))
}

// Scan converts from a database column.
func (a *Address) Scan(data interface{}) error {
	if data == nil {
		// Empty address
		a.addressType = AddressTypeMainPKH
		a.data = nil
		return nil
	}

	s, ok := data.(string)
	if !ok {
		return errors.New("Address db column not bytes")
	}

	if len(s) == 0 {
		// Empty address
		a.addressType = AddressTypeMainPKH
		a.data = nil
		return nil
	}

	// Decode address
	return a.Decode(s)
}

func encodeAddress(b []byte) string {
	// Perform Double SHA-256 hash
	checksum := DoubleSha256(b)

	// Append the first 4 checksum bytes
	address := append(b, checksum[:4]...)

	// Convert the result from a byte string into a base58 string using
	// Base58 encoding. This is the most commonly used Bitcoin Address
	// format
	return Base58(address)
}

func decodeAddress(address string) ([]byte, error) {
	b := Base58Decode(address)

	if len(b) < 5 {
		return nil, ErrBadCheckSum
	}

	// Verify checksum
	checksum := DoubleSha256(b[:len(b)-4])
	if !bytes.Equal(checksum[:4], b[len(b)-4:]) {
		return nil, ErrBadCheckSum
	}

	return b[:len(b)-4], nil
}
