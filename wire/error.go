// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// SerializationError describes a failure to decode or encode a transaction or one of its
// fields. Every read failure surfaces as one of these so callers can distinguish "the buffer
// ran out before the field did" (PastEnd) from "the buffer had enough bytes but the value
// doesn't satisfy the field's own rules" (BadField) without parsing the error string.
type SerializationError struct {
	Func        string // Function name
	Type        int
	Description string // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *SerializationError) Error() string {
	result := ""
	if len(e.Func) > 0 {
		result += e.Func + " : "
	}
	typeName := serializationErrorTypeName(e.Type)
	if len(typeName) > 0 {
		result += typeName
		if len(e.Description) > 0 {
			result += " : " + e.Description
		}
	} else {
		result += e.Description
	}
	return result
}

// messageError creates a "bad field" error for the given function and description: the bytes
// were present but didn't decode to a valid value (non-canonical varint, truncated push,
// oversized length prefix).
func messageError(f string, desc string) *SerializationError {
	return &SerializationError{Func: f, Type: SerializationErrorBadField, Description: desc}
}

// pastEndError creates a "past end" error: the reader ran out of bytes before the field did.
func pastEndError(f string, desc string) *SerializationError {
	return &SerializationError{Func: f, Type: SerializationErrorPastEnd, Description: desc}
}

// messageTypeError creates an error for the given function, type, and description.
func messageTypeError(f string, t int, desc string) *SerializationError {
	return &SerializationError{Func: f, Type: t, Description: desc}
}

// trailingBytesError creates a "trailing junk" error: the reader had bytes left over after every
// field a complete message defines was read.
func trailingBytesError(f string, desc string) *SerializationError {
	return &SerializationError{Func: f, Type: SerializationErrorTrailingBytes, Description: desc}
}

const (
	SerializationErrorUndefined     = 0
	SerializationErrorPastEnd       = 1
	SerializationErrorBadField      = 2
	SerializationErrorTrailingBytes = 3
)

func serializationErrorTypeName(t int) string {
	switch t {
	case SerializationErrorPastEnd:
		return "Past End"
	case SerializationErrorBadField:
		return "Bad Field"
	case SerializationErrorTrailingBytes:
		return "Trailing Bytes"
	default:
		return ""
	}
}
