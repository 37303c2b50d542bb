package bitcoin

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildAssetPayload(t *testing.T, assetType AssetScriptType, name string, amount int64) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	buf.Write(assetMagic)
	buf.WriteByte(byte(assetType))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)

	switch assetType {
	case AssetScriptTransfer:
		amountBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(amountBytes, uint64(amount))
		buf.Write(amountBytes)
	case AssetScriptIssuance:
		amountBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(amountBytes, uint64(amount))
		buf.Write(amountBytes)
		buf.WriteByte(0) // divisions
		buf.WriteByte(1) // reissuable
		buf.WriteByte(0) // no ipfs
	default:
		t.Fatalf("unsupported asset type in test helper : %c", byte(assetType))
	}

	return buf.Bytes()
}

func TestSplitAssetRoundTrip(t *testing.T) {
	pkh := make([]byte, Hash20Size)
	ra, err := NewRawAddressPKH(pkh)
	if err != nil {
		t.Fatalf("Failed to build raw address : %s", err)
	}
	base, err := ra.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	payload := buildAssetPayload(t, AssetScriptTransfer, "MYASSET", 500)

	buf := bytes.NewBuffer(append([]byte(nil), base...))
	buf.WriteByte(OP_RVN_ASSET)
	if err := WritePushDataScript(buf, payload); err != nil {
		t.Fatalf("Failed to write asset push : %s", err)
	}
	full := Script(buf.Bytes())

	gotBase, gotPayload, hasAsset := full.SplitAsset()
	if !hasAsset {
		t.Fatalf("Expected SplitAsset to find an asset suffix")
	}
	if !bytes.Equal(gotBase, base) {
		t.Fatalf("Incorrect base script\ngot:  %x\nwant: %x", gotBase, base)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("Incorrect payload\ngot:  %x\nwant: %x", gotPayload, payload)
	}

	asset, err := ParseAssetScript(gotPayload)
	if err != nil {
		t.Fatalf("Failed to parse asset script : %s", err)
	}
	if asset.Type != AssetScriptTransfer {
		t.Fatalf("Incorrect asset type : got %c, want %c", asset.Type, AssetScriptTransfer)
	}
	if asset.Name != "MYASSET" {
		t.Fatalf("Incorrect asset name : got %q, want %q", asset.Name, "MYASSET")
	}
	if asset.Amount != 500 {
		t.Fatalf("Incorrect asset amount : got %d, want 500", asset.Amount)
	}
}

func TestSplitAssetNoSuffix(t *testing.T) {
	pkh := make([]byte, Hash20Size)
	ra, err := NewRawAddressPKH(pkh)
	if err != nil {
		t.Fatalf("Failed to build raw address : %s", err)
	}
	base, err := ra.LockingScript()
	if err != nil {
		t.Fatalf("Failed to build locking script : %s", err)
	}

	_, _, hasAsset := base.SplitAsset()
	if hasAsset {
		t.Fatalf("Expected no asset suffix on a plain locking script")
	}
}

func TestParseAssetScriptIssuance(t *testing.T) {
	payload := buildAssetPayload(t, AssetScriptIssuance, "ROOTASSET", 100000000)

	asset, err := ParseAssetScript(payload)
	if err != nil {
		t.Fatalf("Failed to parse issuance asset script : %s", err)
	}
	if asset.Type != AssetScriptIssuance {
		t.Fatalf("Incorrect asset type : got %c, want %c", asset.Type, AssetScriptIssuance)
	}
	if !asset.Reissuable {
		t.Fatalf("Expected reissuable flag to be set")
	}
	if asset.HasIPFS {
		t.Fatalf("Expected no ipfs hash")
	}
}

func TestWithAssetSuffixCarriesPayload(t *testing.T) {
	pkh := make([]byte, Hash20Size)
	ra, err := NewRawAddressPKH(pkh)
	if err != nil {
		t.Fatalf("Failed to build raw address : %s", err)
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
	assetOutputScript := Script(buf.Bytes())

	witnessScript := Script{OP_DUP, OP_HASH160}
	withSuffix, err := WithAssetSuffix(witnessScript, assetOutputScript)
	if err != nil {
		t.Fatalf("Failed to append asset suffix : %s", err)
	}

	_, gotPayload, hasAsset := withSuffix.SplitAsset()
	if !hasAsset {
		t.Fatalf("Expected WithAssetSuffix to carry the asset payload")
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("Incorrect carried payload\ngot:  %x\nwant: %x", gotPayload, payload)
	}
}

func TestIsOwnershipAssetName(t *testing.T) {
	cases := map[string]bool{
		"FOO!":     true,
		"FOO":      false,
		"":         false,
		"SUB/BAR!": true,
	}
	for name, want := range cases {
		if got := IsOwnershipAssetName(name); got != want {
			t.Errorf("IsOwnershipAssetName(%q) = %v, want %v", name, got, want)
		}
	}
}
