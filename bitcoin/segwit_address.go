package bitcoin

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pkg/errors"
)

// SegwitAddress is a bech32 (v0) or bech32m-style (v1-16, decode-only) segwit address. Unlike
// Address, which is base58 and always mainnet-or-testnet dispatched by version byte, a
// SegwitAddress carries its network via the bech32 human-readable part instead.
type SegwitAddress struct {
	hrp     string
	version int
	program []byte
}

// DecodeSegwitAddress decodes a bech32/bech32m segwit address string.
func DecodeSegwitAddress(address string) (SegwitAddress, error) {
	var result SegwitAddress
	err := result.Decode(address)
	return result, err
}

// Decode parses a bech32 string into version + program, per BIP-173/BIP-350. bech32.DecodeNoLimit
// accepts either a Bech32 or a Bech32m checksum, and the checksum variant is not compared with
// the witness version, so a version 0 address with a Bech32m checksum (or a version 1-16
// address with a Bech32 checksum) is accepted.
func (a *SegwitAddress) Decode(address string) error {
	hrp, data, err := bech32.DecodeNoLimit(address)
	if err != nil {
		return errors.Wrap(err, "bech32 decode")
	}
	if len(data) == 0 {
		return errors.Wrap(ErrBadType, "empty bech32 data")
	}

	version := int(data[0])
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return errors.Wrap(err, "convert bits")
	}

	if len(program) < 2 || len(program) > 40 {
		return errors.Wrap(ErrBadType, "witness program length")
	}
	if version == 0 && len(program) != Hash20Size && len(program) != Hash32Size {
		return errors.Wrap(ErrBadType, "witness v0 program length")
	}
	if version < 0 || version > 16 {
		return errors.Wrap(ErrBadType, "witness version")
	}

	a.hrp = hrp
	a.version = version
	a.program = program
	return nil
}

// NewSegwitAddress builds a segwit address for a given HRP, witness version, and program.
func NewSegwitAddress(hrp string, version int, program []byte) (SegwitAddress, error) {
	if version < 0 || version > 16 {
		return SegwitAddress{}, errors.Wrap(ErrBadType, "witness version")
	}
	if len(program) < 2 || len(program) > 40 {
		return SegwitAddress{}, errors.Wrap(ErrBadType, "witness program length")
	}
	return SegwitAddress{hrp: hrp, version: version, program: program}, nil
}

// String encodes the address as bech32 (version 0) or bech32m (version 1-16), per BIP-350.
func (a SegwitAddress) String() string {
	converted, err := bech32.ConvertBits(a.program, 8, 5, true)
	if err != nil {
		return ""
	}

	data := make([]byte, 0, len(converted)+1)
	data = append(data, byte(a.version))
	data = append(data, converted...)

	if a.version == 0 {
		s, err := bech32.Encode(a.hrp, data)
		if err != nil {
			return ""
		}
		return s
	}

	s, err := bech32.EncodeM(a.hrp, data)
	if err != nil {
		return ""
	}
	return s
}

func (a SegwitAddress) Version() int {
	return a.version
}

func (a SegwitAddress) Program() []byte {
	return a.program
}

func (a SegwitAddress) HRP() string {
	return a.hrp
}

func (a SegwitAddress) IsEmpty() bool {
	return len(a.program) == 0
}

// RawAddress converts the segwit address to the package's generic RawAddress template type.
func (a SegwitAddress) RawAddress() (RawAddress, error) {
	switch {
	case a.version == 0 && len(a.program) == Hash20Size:
		return NewRawAddressWPKH(a.program)
	case a.version == 0 && len(a.program) == Hash32Size:
		return NewRawAddressWSH(a.program)
	default:
		return NewRawAddressWitnessUnknown(a.version, a.program)
	}
}

// NewSegwitAddressFromRawAddress builds the bech32 display form for a WPKH/WSH/WitnessUnknown
// RawAddress under the given network's HRP.
func NewSegwitAddressFromRawAddress(ra RawAddress, net Network) (SegwitAddress, error) {
	version, err := ra.WitnessVersion()
	if err != nil {
		return SegwitAddress{}, err
	}
	program, err := ra.WitnessProgram()
	if err != nil {
		return SegwitAddress{}, err
	}

	return NewSegwitAddress(ChainParamsForNetwork(net).Bech32HRP, version, program)
}

// DecodeAnyAddress decodes address as either a base58 Address or a bech32 SegwitAddress,
// returning the underlying RawAddress and network either form resolves to. This is the
// auto-detecting entry point for callers that don't already know whether an address string is
// legacy or segwit, sparing them from trying DecodeAddress/DecodeSegwitAddress directly.
func DecodeAnyAddress(address string) (RawAddress, Network, error) {
	if a, err := DecodeAddress(address); err == nil {
		return NewRawAddressFromAddress(a), a.Network(), nil
	}

	sw, err := DecodeSegwitAddress(address)
	if err != nil {
		return RawAddress{}, InvalidNet, errors.Wrap(ErrBadType, "not a base58 or bech32 address")
	}

	net := TestNet
	if sw.hrp == MainNetChainParams.Bech32HRP {
		net = MainNet
	}

	ra, err := sw.RawAddress()
	if err != nil {
		return RawAddress{}, InvalidNet, err
	}
	return ra, net, nil
}
