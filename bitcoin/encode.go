package bitcoin

import (
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
)

// Base64 returns the Bas64 encoding of the input.
//
// See https://en.wikipedia.org/wiki/Base64
func Base64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64Decode returns base 64 decodes the argument and returns the result.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Base58 return the Base58 encoding of the input.
//
// See https://en.wikipedia.org/wiki/Base58
func Base58(b []byte) string {
	return base58.Encode(b)
}

// Base58Decode returns base 58 decodes the argument and returns the result.
func Base58Decode(s string) []byte {
	return base58.Decode(s)
}

// base43Alphabet is Electrum's QR-friendly alphabet: the 43 characters a QR code's alphanumeric
// mode can encode natively, letting a base43-encoded PSBT pack into a single QR code at the
// densest supported mode instead of falling back to byte mode.
const base43Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ$*+-./:"

var base43Big = big.NewInt(43)

// Base43 encodes b as a base43 string using Electrum's QR-code alphabet.
func Base43(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	leadingZeros := 0
	for leadingZeros < len(b) && b[leadingZeros] == 0 {
		leadingZeros++
	}

	num := new(big.Int).SetBytes(b)
	mod := new(big.Int)
	var out []byte
	for num.Sign() > 0 {
		num.DivMod(num, base43Big, mod)
		out = append(out, base43Alphabet[mod.Int64()])
	}
	for i := 0; i < leadingZeros; i++ {
		out = append(out, base43Alphabet[0])
	}

	// DivMod above produces digits least-significant-first; reverse to match byte order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return string(out)
}

// Base43Decode decodes a base43 string produced by Base43.
func Base43Decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}

	leadingZeros := 0
	for leadingZeros < len(s) && s[leadingZeros] == base43Alphabet[0] {
		leadingZeros++
	}

	num := new(big.Int)
	for i := 0; i < len(s); i++ {
		index := strings.IndexByte(base43Alphabet, s[i])
		if index < 0 {
			return nil, errors.Errorf("invalid base43 character %q", s[i])
		}
		num.Mul(num, base43Big)
		num.Add(num, big.NewInt(int64(index)))
	}

	decoded := num.Bytes()
	result := make([]byte, leadingZeros+len(decoded))
	copy(result[leadingZeros:], decoded)
	return result, nil
}
