package bitcoin

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// AssetScriptType identifies which of the four Ravencoin asset operations a payload describes.
type AssetScriptType byte

const (
	AssetScriptOwnership  = AssetScriptType('o')
	AssetScriptIssuance   = AssetScriptType('q')
	AssetScriptReissuance = AssetScriptType('r')
	AssetScriptTransfer   = AssetScriptType('t')
)

// assetMagic is the fixed 3 byte prefix of every asset script payload, immediately following the
// OP_RVN_ASSET opcode's push-data length byte.
var assetMagic = []byte("rvn")

// AssetIPFSSize is the length, in bytes, of an embedded IPFS (or txid) hash reference.
const AssetIPFSSize = 34

// OwnershipNominalQuantity is the fixed quantity an ownership ("!") asset represents. Ownership
// tokens don't carry an explicit amount field in their script; every wallet treats holding one
// as controlling 100,000,000 (10^8) base units of the owned asset name, matching the reference
// client's convention.
const OwnershipNominalQuantity = int64(100000000)

// AssetScript is the decoded payload of a Ravencoin asset-extension script, i.e. everything
// after OP_RVN_ASSET in an output's locking script.
type AssetScript struct {
	Type         AssetScriptType
	Name         string
	Amount       int64 // OwnershipNominalQuantity for AssetScriptOwnership
	Divisions    byte  // issuance/reissuance only
	Reissuable   bool  // issuance/reissuance only
	HasIPFS      bool
	IPFSHash     []byte // AssetIPFSSize bytes when HasIPFS is true
	NonStandard  bool   // payload parsed but carried unrecognized trailing bytes
}

// SplitAsset walks s looking for OP_RVN_ASSET. If found, it returns the script bytes preceding
// the opcode (the standard output template that should be matched against PKH/SH/witness
// templates) and the raw push-data payload that follows it. Template matching always operates
// on the preceding portion, never the full script, mirroring how the reference wallet strips
// the asset tail before recognizing the address type underneath it.
func (s Script) SplitAsset() (base Script, payload []byte, hasAsset bool) {
	buf := bytes.NewReader(s)
	offset := 0

	for {
		before := s[offset:]
		item, err := ParseScript(buf)
		if err != nil {
			return s, nil, false
		}

		consumed := len(before) - buf.Len()

		if item.Type == ScriptItemTypeOpCode && item.OpCode == OP_RVN_ASSET {
			base = s[:offset]
			remaining := s[offset+consumed:]

			// The asset payload itself is the next push in the script.
			payloadItem, err := ParseScript(buf)
			if err != nil || payloadItem.Type != ScriptItemTypePushData {
				return s, nil, false
			}
			_ = remaining
			return base, payloadItem.Data, true
		}

		offset += consumed
	}
}

// ParseAssetScript decodes a Ravencoin asset payload (the bytes pushed immediately after
// OP_RVN_ASSET). Field order and sizes are taken from the reference wallet's own parser, since
// the wire layout for asset scripts isn't part of BIP-174 or any generic Bitcoin reference.
func ParseAssetScript(payload []byte) (*AssetScript, error) {
	if len(payload) < 4 || !bytes.Equal(payload[:3], assetMagic) {
		return nil, errors.New("asset payload missing rvn magic")
	}

	result := &AssetScript{Type: AssetScriptType(payload[3])}
	offset := 4

	nameLen := int(payload[offset])
	offset++
	if offset+nameLen > len(payload) {
		return nil, errors.New("asset payload truncated name")
	}
	result.Name = string(payload[offset : offset+nameLen])
	offset += nameLen

	switch result.Type {
	case AssetScriptOwnership:
		result.Amount = OwnershipNominalQuantity

	case AssetScriptIssuance:
		if offset+8+3 > len(payload) {
			return nil, errors.New("asset payload truncated issuance")
		}
		result.Amount = int64(binary.LittleEndian.Uint64(payload[offset : offset+8]))
		offset += 8
		result.Divisions = payload[offset]
		result.Reissuable = payload[offset+1] != 0
		hasIPFS := payload[offset+2]
		offset += 3
		if hasIPFS == 1 {
			if offset+AssetIPFSSize > len(payload) {
				return nil, errors.New("asset payload truncated ipfs")
			}
			result.HasIPFS = true
			result.IPFSHash = append([]byte(nil), payload[offset:offset+AssetIPFSSize]...)
			offset += AssetIPFSSize
		}

	case AssetScriptReissuance:
		if offset+8+2 > len(payload) {
			return nil, errors.New("asset payload truncated reissuance")
		}
		result.Amount = int64(binary.LittleEndian.Uint64(payload[offset : offset+8]))
		offset += 8
		result.Divisions = payload[offset]
		result.Reissuable = payload[offset+1] != 0
		offset += 2
		if offset < len(payload) {
			if offset+AssetIPFSSize > len(payload) {
				return nil, errors.New("asset payload truncated ipfs")
			}
			result.HasIPFS = true
			result.IPFSHash = append([]byte(nil), payload[offset:offset+AssetIPFSSize]...)
			offset += AssetIPFSSize
		}

	case AssetScriptTransfer:
		if offset+8 > len(payload) {
			return nil, errors.New("asset payload truncated transfer")
		}
		result.Amount = int64(binary.LittleEndian.Uint64(payload[offset : offset+8]))
		offset += 8
		// Any trailing bytes (an IPFS reference among them) are left unparsed and mark the
		// payload NonStandard below.

	default:
		return nil, errors.Errorf("unknown asset script type %q", byte(result.Type))
	}

	// Any bytes left after a type's known fields (a transfer's trailing IPFS reference
	// included) mark the payload non-standard.
	if offset != len(payload) {
		result.NonStandard = true
	}

	return result, nil
}

// WithAssetSuffix appends base's asset suffix (OP_RVN_ASSET + payload push), if it has one, to
// script. Used to carry a spent output's asset encoding onto a redeem/witness script computed
// from base, since the unlocking side's inner script never repeats the RVN_ASSET payload itself,
// but the signature pre-image still has to commit to it.
func WithAssetSuffix(script Script, base Script) (Script, error) {
	_, payload, hasAsset := base.SplitAsset()
	if !hasAsset {
		return script, nil
	}

	buf := bytes.NewBuffer(append([]byte(nil), script...))
	buf.WriteByte(OP_RVN_ASSET)
	if err := WritePushDataScript(buf, payload); err != nil {
		return nil, errors.Wrap(err, "asset suffix")
	}
	return Script(buf.Bytes()), nil
}

// IsOwnershipAssetName returns true if name follows the Ravencoin convention for an ownership
// asset token, i.e. it ends with "!". Used by the BIP-69 ordering overlay to sort ownership
// outputs after ordinary outputs and before issuance/reissuance outputs.
func IsOwnershipAssetName(name string) bool {
	return len(name) > 0 && name[len(name)-1] == '!'
}
