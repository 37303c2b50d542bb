package bitcoin

import (
	"bytes"
	"testing"
)

func TestSegwitAddressWPKHRoundTrip(t *testing.T) {
	program := make([]byte, Hash20Size)
	program[0] = 1
	program[19] = 2

	addr, err := NewSegwitAddress(MainNetChainParams.Bech32HRP, 0, program)
	if err != nil {
		t.Fatalf("Failed to create segwit address : %s", err)
	}

	encoded := addr.String()
	if encoded == "" {
		t.Fatalf("Failed to encode segwit address")
	}

	decoded, err := DecodeSegwitAddress(encoded)
	if err != nil {
		t.Fatalf("Failed to decode segwit address : %s", err)
	}

	if decoded.Version() != 0 {
		t.Fatalf("Incorrect version : got %d, want 0", decoded.Version())
	}
	if !bytes.Equal(decoded.Program(), program) {
		t.Fatalf("Incorrect program : got %x, want %x", decoded.Program(), program)
	}

	ra, err := decoded.RawAddress()
	if err != nil {
		t.Fatalf("Failed to convert to raw address : %s", err)
	}
	if ra.Type() != ScriptTypeWPKH {
		t.Fatalf("Incorrect raw address type : got %d, want %d", ra.Type(), ScriptTypeWPKH)
	}
}

func TestSegwitAddressWitnessUnknownRoundTrip(t *testing.T) {
	program := make([]byte, 32)
	program[0] = 9

	addr, err := NewSegwitAddress(MainNetChainParams.Bech32HRP, 1, program)
	if err != nil {
		t.Fatalf("Failed to create segwit address : %s", err)
	}

	decoded, err := DecodeSegwitAddress(addr.String())
	if err != nil {
		t.Fatalf("Failed to decode segwit address : %s", err)
	}
	if decoded.Version() != 1 {
		t.Fatalf("Incorrect version : got %d, want 1", decoded.Version())
	}

	ra, err := decoded.RawAddress()
	if err != nil {
		t.Fatalf("Failed to convert to raw address : %s", err)
	}
	if ra.Type() != ScriptTypeWitnessUnknown {
		t.Fatalf("Incorrect raw address type : got %d, want %d", ra.Type(), ScriptTypeWitnessUnknown)
	}
}

func TestDecodeAnyAddressSegwit(t *testing.T) {
	program := make([]byte, Hash20Size)
	program[5] = 7

	addr, err := NewSegwitAddress(MainNetChainParams.Bech32HRP, 0, program)
	if err != nil {
		t.Fatalf("Failed to create segwit address : %s", err)
	}

	ra, net, err := DecodeAnyAddress(addr.String())
	if err != nil {
		t.Fatalf("Failed to decode : %s", err)
	}
	if net != MainNet {
		t.Fatalf("Incorrect network : got %d, want %d", net, MainNet)
	}
	if ra.Type() != ScriptTypeWPKH {
		t.Fatalf("Incorrect raw address type : got %d, want %d", ra.Type(), ScriptTypeWPKH)
	}
}

func TestDecodeAnyAddressLegacy(t *testing.T) {
	key, err := GenerateKey(MainNet)
	if err != nil {
		t.Fatalf("Failed to generate key : %s", err)
	}

	addr, err := NewAddressPublicKey(key.PublicKey(), MainNet)
	if err != nil {
		t.Fatalf("Failed to create address : %s", err)
	}

	ra, net, err := DecodeAnyAddress(addr.String())
	if err != nil {
		t.Fatalf("Failed to decode : %s", err)
	}
	if net != MainNet {
		t.Fatalf("Incorrect network : got %d, want %d", net, MainNet)
	}
	if ra.IsEmpty() {
		t.Fatalf("Decoded raw address is empty")
	}
}
