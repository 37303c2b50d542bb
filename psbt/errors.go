package psbt

import (
	"fmt"

	"github.com/ravenproject/rvntx/txbuilder"

	"github.com/pkg/errors"
)

// errorAtInput wraps err with the index of the input that failed, so a caller surfacing a
// consistency or signing failure to a user can point at the specific input without the error
// message text being the only carrier of that information.
func errorAtInput(index int, err error) error {
	return errors.Wrapf(err, "input %d", index)
}

func errorAtOutput(index int, err error) error {
	return errors.Wrapf(err, "output %d", index)
}

// newBadMagicError reports that a byte stream doesn't start with the PSBT magic.
func newBadMagicError(got []byte) error {
	return txbuilder.NewError(txbuilder.ErrorCodeBadHeaderMagic,
		fmt.Sprintf("got %x", got))
}

// newSerializationError reports a malformed key-value stream: truncated varint, trailing bytes,
// a key/value length that doesn't match what follows, or a field repeated where §4.6 requires it
// unique.
func newSerializationError(context string) error {
	return txbuilder.NewError(txbuilder.ErrorCodeSerialization, context)
}

// newConsistencyError reports a cross-field invariant violated on assignment or validation.
func newConsistencyError(context string) error {
	return txbuilder.NewError(txbuilder.ErrorCodePSBTInputConsistency, context)
}

// newUnknownTxInTypeError reports that the signing engine can't determine which scriptSig/
// witness shape to produce for an input's previous output script.
func newUnknownTxInTypeError(context string) error {
	return txbuilder.NewError(txbuilder.ErrorCodeUnknownTxInType, context)
}
