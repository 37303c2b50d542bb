package bitcoin

import (
	"bytes"
	"testing"
)

func TestIdentifyScriptTypePKH(t *testing.T) {
	ra, err := NewRawAddressPKH(make([]byte, Hash20Size))
	if err != nil {
		t.Fatalf("Failed to create raw address : %s", err)
	}
	script, err := ra.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	if got := IdentifyScriptType(script); got != ScriptTypeP2PKH {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeP2PKH)
	}
}

func TestIdentifyScriptTypeSH(t *testing.T) {
	ra, err := NewRawAddressSH(make([]byte, Hash20Size))
	if err != nil {
		t.Fatalf("Failed to create raw address : %s", err)
	}
	script, err := ra.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	if got := IdentifyScriptType(script); got != ScriptTypeP2SH {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeP2SH)
	}
}

func TestIdentifyScriptTypeWPKHAndWSH(t *testing.T) {
	wpkh, err := NewRawAddressWPKH(make([]byte, Hash20Size))
	if err != nil {
		t.Fatalf("Failed to create WPKH address : %s", err)
	}
	wpkhScript, err := wpkh.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build WPKH locking script : %s", err)
	}
	if got := IdentifyScriptType(wpkhScript); got != ScriptTypeP2WPKH {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeP2WPKH)
	}

	wsh, err := NewRawAddressWSH(make([]byte, Hash32Size))
	if err != nil {
		t.Fatalf("Failed to create WSH address : %s", err)
	}
	wshScript, err := wsh.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build WSH locking script : %s", err)
	}
	if got := IdentifyScriptType(wshScript); got != ScriptTypeP2WSH {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeP2WSH)
	}
}

func TestIdentifyScriptTypeWitnessUnknown(t *testing.T) {
	program := make([]byte, 20)
	program[0] = 1

	var buf bytes.Buffer
	buf.WriteByte(OP_1)
	if err := WritePushDataScript(&buf, program); err != nil {
		t.Fatalf("Failed to write push data : %s", err)
	}
	script := Script(buf.Bytes())

	if got := IdentifyScriptType(script); got != ScriptTypeWitnessUnknown {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeWitnessUnknown)
	}
}

func TestIdentifyScriptTypeNonStandard(t *testing.T) {
	script := Script{OP_RETURN, OP_1, OP_2}
	if got := IdentifyScriptType(script); got != ScriptTypeNonStandard {
		t.Fatalf("Incorrect script type : got %d, want %d", got, ScriptTypeNonStandard)
	}
}

func TestIdentifyScriptTypeIgnoresAssetSuffix(t *testing.T) {
	ra, err := NewRawAddressPKH(make([]byte, Hash20Size))
	if err != nil {
		t.Fatalf("Failed to create raw address : %s", err)
	}
	base, err := ra.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	payload := buildAssetPayload(t, AssetScriptTransfer, "MYASSET", 1)
	buf := bytes.NewBuffer(append([]byte(nil), base...))
	buf.WriteByte(OP_RVN_ASSET)
	if err := WritePushDataScript(buf, payload); err != nil {
		t.Fatalf("Failed to write asset push : %s", err)
	}
	assetScript := Script(buf.Bytes())

	if got := IdentifyScriptType(assetScript); got != ScriptTypeP2PKH {
		t.Fatalf("Incorrect script type for asset-suffixed PKH : got %d, want %d", got, ScriptTypeP2PKH)
	}
}

func TestMatchWitnessRejectsNonWitnessScript(t *testing.T) {
	script := Script{OP_DUP, OP_HASH160}
	if _, _, ok := MatchWitness(script); ok {
		t.Fatalf("Expected MatchWitness to reject a non-witness script")
	}
}
