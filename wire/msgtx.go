// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ravenproject/rvntx/bitcoin"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion = 1

	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// MaxPrevOutIndex is the maximum index the index field of a previous
	// outpoint can be.
	MaxPrevOutIndex uint32 = 0xffffffff

	// SequenceLockTimeDisabled is a flag that if set on a transaction
	// input's sequence number, the sequence number will not be interpreted
	// as a relative locktime.
	SequenceLockTimeDisabled = 1 << 31

	// SequenceLockTimeIsSeconds is a flag that if set on a transaction
	// input's sequence number, the relative locktime has units of 512
	// seconds.
	SequenceLockTimeIsSeconds = 1 << 22

	// SequenceLockTimeMask is a mask that extracts the relative locktime
	// when masked against the transaction input sequence number.
	SequenceLockTimeMask = 0x0000ffff

	// SequenceLockTimeGranularity is the defined time based granularity
	// for seconds-based relative time locks. When converting from seconds
	// to a sequence number, the value is right shifted by this amount,
	// therefore the granularity of relative time locks in 512 or 2^9
	// seconds. Enforced relative lock times are multiples of 512 seconds.
	SequenceLockTimeGranularity = 9

	// defaultTxInOutAlloc is the default size used for the backing array for
	// transaction inputs and outputs.  The array will dynamically grow as needed,
	// but this figure is intended to provide enough space for the number of
	// inputs and outputs in a typical transaction without needing to grow the
	// backing array multiple times.
	defaultTxInOutAlloc = 15

	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutPoint.Hash + PreviousOutPoint.Index 4 bytes + Varint for
	// UnlockingScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + chainhash.HashSize

	// maxTxInPerMessage is the maximum number of transaction inputs a transaction
	// serialized under MaxMessagePayload could possibly have.
	maxTxInPerMessage = (MaxMessagePayload / minTxInPayload) + 1

	// minTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + Varint for LockingScript length 1 byte.
	minTxOutPayload = 9

	// maxTxOutPerMessage is the maximum number of transaction outputs a transaction
	// serialized under MaxMessagePayload could possibly have.
	maxTxOutPerMessage = (MaxMessagePayload / minTxOutPayload) + 1

	// freeListMaxScriptSize is the size of each buffer in the free list
	// that	is used for deserializing scripts from the wire before they are
	// concatenated into a single contiguous buffers.  This value was chosen
	// because it is slightly more than twice the size of the vast majority
	// of all "standard" scripts.  Larger scripts are still deserialized
	// properly as the free list will simply be bypassed for them.
	freeListMaxScriptSize = 512

	// freeListMaxItems is the number of buffers to keep in the free list
	// to use for script deserialization.
	freeListMaxItems = 12500

	// witnessMarker is the first byte of the two-byte marker/flag pair that signals the
	// segwit transaction variant in place of a (disallowed) zero input count.
	witnessMarker = 0x00

	// witnessFlag is the second byte of the marker/flag pair. BIP-141 reserves values
	// other than 0x01 for future witness structure versions; this codec only recognizes 0x01.
	witnessFlag = 0x01

	// COIN is the number of satoshis in one whole coin.
	COIN = 100000000

	// TotalSupply is the maximum number of whole coins that will ever exist, used to bound
	// output values on parse: any value outside [0, TotalSupply*COIN] is rejected.
	TotalSupply = 21000000000

	// MaxSatoshi is TotalSupply expressed in satoshis, the upper bound for any single
	// output's value.
	MaxSatoshi = TotalSupply * COIN

	// MaxSpend is the sentinel output value meaning "whatever is left after fees", used by
	// callers sizing a transaction before the final change amount is known. A MsgTx carrying
	// an output with this value cannot be serialized; it must be resolved to a real value
	// first.
	MaxSpend int64 = -1
)

// scriptFreeList defines a free list of byte slices (up to the maximum number
// defined by the freeListMaxItems constant) that have a cap according to the
// freeListMaxScriptSize constant.  It is used to provide temporary buffers for
// deserializing scripts in order to greatly reduce the number of allocations
// required.
type scriptFreeList chan []byte

// Borrow returns a byte slice from the free list with a length according the
// provided size.  A new buffer is allocated if there are any items available.
func (c scriptFreeList) Borrow(size uint64) []byte {
	if size > freeListMaxScriptSize {
		return make([]byte, size)
	}

	var buf []byte
	select {
	case buf = <-c:
	default:
		buf = make([]byte, freeListMaxScriptSize)
	}
	return buf[:size]
}

// Return puts the provided byte slice back on the free list when it has a cap
// of the expected length.
func (c scriptFreeList) Return(buf []byte) {
	if cap(buf) != freeListMaxScriptSize {
		return
	}

	select {
	case c <- buf:
	default:
		// Let it go to the garbage collector.
	}
}

// scriptPool is the concurrent safe free list used for script deserialization.
var scriptPool scriptFreeList = make(chan []byte, freeListMaxItems)

// OutPoint defines a reference to a previous transaction output: the transaction identifier
// and the index of the output within it. The identifier is stored internally in the same
// reversible-display form as bitcoin.Hash32 and chainhash.Hash so txid lookups and wire
// serialization both round-trip without a byte-order conversion at the boundary. A zeroed
// Hash with Index MaxPrevOutIndex denotes a coinbase reference.
type OutPoint struct {
	Hash  chainhash.Hash `json:"hash"`
	Index uint32         `json:"index"`
}

// NewOutPoint returns a new outpoint with the provided hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  *hash,
		Index: index,
	}
}

// OutPointFromStr parses a string into an outpoint. The format is "<txid:index>".
func OutPointFromStr(s string) (*OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, errors.New("invalid format: wrong colon count")
	}

	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return nil, errors.Wrap(err, "invalid hash")
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "invalid index")
	}

	return NewOutPoint(hash, uint32(index)), nil
}

// String returns the OutPoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	buf := make([]byte, 2*chainhash.HashSize+1, 2*chainhash.HashSize+1+10)
	copy(buf, o.Hash.String())
	buf[2*chainhash.HashSize] = ':'
	buf = strconv.AppendUint(buf, uint64(o.Index), 10)
	return string(buf)
}

// IsCoinbase returns true if the outpoint refers to a coinbase input (zeroed hash and index MaxPrevOutIndex).
func (o OutPoint) IsCoinbase() bool {
	var zero chainhash.Hash
	return o.Hash == zero && o.Index == MaxPrevOutIndex
}

// Serialize encodes op to the wire encoding for an OutPoint to w: 32-byte hash, 4-byte LE index.
func (op *OutPoint) Serialize(w io.Writer) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}

	return binary.Write(w, endian, op.Index)
}

// Deserialize decodes op from the wire encoding for an OutPoint.
func (op *OutPoint) Deserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, op.Hash[:]); err != nil {
		return pastEndError("OutPoint.Deserialize", err.Error())
	}

	if err := binary.Read(r, endian, &op.Index); err != nil {
		return pastEndError("OutPoint.Deserialize", err.Error())
	}
	return nil
}

// TxIn defines a transaction input: the outpoint it spends, the unlocking script, the
// sequence number, and (segwit only) the witness stack. A non-empty Witness marks the input
// segwit; an empty or nil Witness does not prove the input is non-segwit (other inputs in the
// same transaction may carry one).
type TxIn struct {
	PreviousOutPoint OutPoint       `json:"outpoint"`
	UnlockingScript  bitcoin.Script `json:"script"`
	Sequence         uint32         `json:"sequence"`
	Witness          [][]byte       `json:"witness,omitempty"`
}

// SerializeSize returns the number of bytes it would take to serialize the input, excluding
// its witness (the witness lives in a separate segment of the segwit wire format).
func (t *TxIn) SerializeSize() int {
	return 40 + VarIntSerializeSize(uint64(len(t.UnlockingScript))) +
		len(t.UnlockingScript)
}

// WitnessSerializeSize returns the number of bytes the input's witness stack takes in the
// segwit witness segment: zero if the input carries no witness.
func (t *TxIn) WitnessSerializeSize() int {
	if len(t.Witness) == 0 {
		return 0
	}

	n := VarIntSerializeSize(uint64(len(t.Witness)))
	for _, item := range t.Witness {
		n += VarIntSerializeSize(uint64(len(item))) + len(item)
	}
	return n
}

// HasWitness returns true if the input carries a non-empty witness stack.
func (t *TxIn) HasWitness() bool {
	return len(t.Witness) > 0
}

// NewTxIn returns a new transaction input with the provided previous outpoint and unlocking
// script, defaulting sequence to MaxTxInSequenceNum (final, no relative locktime).
func NewTxIn(prevOut *OutPoint, unlockingScript bitcoin.Script) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		UnlockingScript:  unlockingScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a transaction output: a value in satoshis and a locking script. A value of
// MaxSpend is a placeholder meaning "not yet determined" and must be resolved before the
// output is serialized; asset-carrying outputs still report their RVN value here (zero, by
// convention, since the quantity travels in the script's asset suffix).
type TxOut struct {
	Value         int64          `json:"value"`
	LockingScript bitcoin.Script `json:"locking_script"`
}

// IsMaxSpend returns true if the output is the "sweep the remainder" placeholder.
func (t *TxOut) IsMaxSpend() bool {
	return t.Value == MaxSpend
}

// Serialize encodes t to the wire encoding for a TxOut to w.
func (t *TxOut) Serialize(w io.Writer, pver uint32, version int32) error {
	return writeTxOut(w, pver, version, t)
}

// Deserialize decodes t from the wire encoding for a TxOut.
func (t *TxOut) Deserialize(r io.Reader, pver uint32, version int32) error {
	return readTxOut(r, pver, version, t)
}

// SerializeSize returns the number of bytes it would take to serialize the output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.LockingScript))) + len(t.LockingScript)
}

// MarshalText implements encoding.TextMarshaler for json and other text encoding packages.
func (t TxOut) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Serialize(&buf, 0, 1); err != nil {
		return nil, errors.Wrap(err, "serialize txout")
	}

	return []byte(hex.EncodeToString(buf.Bytes())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for json and other text encoding packages.
func (t *TxOut) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return errors.Wrap(err, "decode hex")
	}

	if err := t.Deserialize(bytes.NewReader(b), 0, 1); err != nil {
		return errors.Wrap(err, "deserialize txout")
	}

	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler for binary encoding packages.
func (t TxOut) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Serialize(&buf, 0, 1); err != nil {
		return nil, errors.Wrap(err, "serialize txout")
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for binary encoding packages.
func (t *TxOut) UnmarshalBinary(b []byte) error {
	if err := t.Deserialize(bytes.NewReader(b), 0, 1); err != nil {
		return errors.Wrap(err, "deserialize txout")
	}

	return nil
}

// NewTxOut returns a new transaction output with the provided value and locking script.
func NewTxOut(value int64, lockingScript bitcoin.Script) *TxOut {
	return &TxOut{
		Value:         value,
		LockingScript: lockingScript,
	}
}

// MsgTx is a parsed Ravencoin transaction: version, ordered inputs, ordered outputs, and
// locktime. Serialize/Deserialize choose the legacy or BIP-141 segwit wire variant
// automatically based on whether any input carries a witness.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// HasWitness returns true if any input carries a non-empty witness, which forces the segwit
// wire variant on serialization.
func (msg *MsgTx) HasWitness() bool {
	for _, in := range msg.TxIn {
		if in.HasWitness() {
			return true
		}
	}
	return false
}

// TxHash computes the txid: the double-SHA256 of the legacy (witness-stripped) serialization.
// This is only meaningful once the transaction is complete, or for a segwit transaction, once
// every input already carries its final witness; callers building an in-progress PSBT should
// use the unsigned-tx hash instead of trusting this on a partially-signed tx.
func (msg *MsgTx) TxHash() *chainhash.Hash {
	var buf bytes.Buffer
	_ = msg.serialize(&buf, false)
	hash := chainhash.DoubleHashH(buf.Bytes())
	return &hash
}

// WTxHash computes the wtxid: the double-SHA256 of the full segwit serialization (marker,
// flag, and every input's witness included). If the transaction carries no witnesses, wtxid
// equals txid, matching BIP-141.
func (msg *MsgTx) WTxHash() *chainhash.Hash {
	if !msg.HasWitness() {
		return msg.TxHash()
	}

	var buf bytes.Buffer
	_ = msg.serialize(&buf, true)
	hash := chainhash.DoubleHashH(buf.Bytes())
	return &hash
}

// BaseSize returns the legacy-serialized (witness-stripped) byte length, used as the "base
// size" term in the weight/vsize calculation.
func (msg *MsgTx) BaseSize() int {
	n := 8 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// WitnessSize returns the size in bytes of the witness segment (marker, flag, and every
// input's witness stack), or zero for a transaction with no witnesses.
func (msg *MsgTx) WitnessSize() int {
	if !msg.HasWitness() {
		return 0
	}

	n := 2 // marker + flag
	for _, txIn := range msg.TxIn {
		n += txIn.WitnessSerializeSize()
	}
	return n
}

// Weight returns the BIP-141 transaction weight: 3*base + total, where total = base + witness.
func (msg *MsgTx) Weight() int {
	base := msg.BaseSize()
	total := base + msg.WitnessSize()
	return 3*base + total
}

// VSize returns the virtual size: ceil(weight/4), the figure fee estimation is based on.
func (msg *MsgTx) VSize() int {
	return int(math.Ceil(float64(msg.Weight()) / 4))
}

func (msg *MsgTx) String() string {
	result := fmt.Sprintf("TxId: %s (%d bytes)\n", msg.TxHash(), msg.SerializeSize())
	result += fmt.Sprintf("  Version: %d\n", msg.Version)
	result += "  Inputs:\n\n"
	for _, input := range msg.TxIn {
		result += fmt.Sprintf("    Outpoint: %d - %s\n", input.PreviousOutPoint.Index,
			input.PreviousOutPoint.Hash.String())
		result += fmt.Sprintf("    Script: %s\n", input.UnlockingScript)
		if input.HasWitness() {
			result += fmt.Sprintf("    Witness: %d items\n", len(input.Witness))
		}
		result += fmt.Sprintf("    Sequence: %x\n\n", input.Sequence)
	}
	result += "  Outputs:\n\n"
	for _, output := range msg.TxOut {
		result += fmt.Sprintf("    Value: %.08f\n", float64(output.Value)/float64(COIN))
		result += fmt.Sprintf("    Script: %s\n\n", output.LockingScript)
	}
	result += fmt.Sprintf("  LockTime: %d\n", msg.LockTime)
	return result
}

func (msg *MsgTx) StringWithAddresses(net bitcoin.Network) string {
	result := fmt.Sprintf("TxId: %s\n", msg.TxHash())
	result += fmt.Sprintf("  Version: %d\n", msg.Version)
	result += "  Inputs:\n\n"
	for _, input := range msg.TxIn {
		result += fmt.Sprintf("    Outpoint: %d - %s\n", input.PreviousOutPoint.Index,
			input.PreviousOutPoint.Hash)
		result += fmt.Sprintf("    Script: %s\n", input.UnlockingScript)
		result += fmt.Sprintf("    Sequence: %x\n", input.Sequence)

		ra, err := bitcoin.RawAddressFromUnlockingScript(input.UnlockingScript)
		if err == nil {
			ad := bitcoin.NewAddressFromRawAddress(ra, net)
			result += fmt.Sprintf("    Address: %s\n", ad)
		}

		result += "\n"
	}
	result += "  Outputs:\n\n"
	for _, output := range msg.TxOut {
		result += fmt.Sprintf("    Value: %.08f\n", float64(output.Value)/float64(COIN))
		result += fmt.Sprintf("    Script: %s\n", output.LockingScript)

		ra, err := bitcoin.RawAddressFromLockingScript(output.LockingScript)
		if err == nil {
			ad := bitcoin.NewAddressFromRawAddress(ra, net)
			result += fmt.Sprintf("    Address: %s\n", ad)
		}

		result += "\n"
	}
	result += fmt.Sprintf("  LockTime: %d\n", msg.LockTime)
	return result
}

// Copy creates a deep copy of the transaction so mutating the copy never touches the original.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := MsgTx{
		Version:  msg.Version,
		TxIn:     make([]*TxIn, 0, len(msg.TxIn)),
		TxOut:    make([]*TxOut, 0, len(msg.TxOut)),
		LockTime: msg.LockTime,
	}

	for _, oldTxIn := range msg.TxIn {
		newOutPoint := OutPoint{Index: oldTxIn.PreviousOutPoint.Index}
		newOutPoint.Hash.SetBytes(oldTxIn.PreviousOutPoint.Hash[:])

		var newScript []byte
		if n := len(oldTxIn.UnlockingScript); n > 0 {
			newScript = make([]byte, n)
			copy(newScript, oldTxIn.UnlockingScript)
		}

		var newWitness [][]byte
		if len(oldTxIn.Witness) > 0 {
			newWitness = make([][]byte, len(oldTxIn.Witness))
			for i, item := range oldTxIn.Witness {
				newWitness[i] = append([]byte(nil), item...)
			}
		}

		newTx.TxIn = append(newTx.TxIn, &TxIn{
			PreviousOutPoint: newOutPoint,
			UnlockingScript:  newScript,
			Sequence:         oldTxIn.Sequence,
			Witness:          newWitness,
		})
	}

	for _, oldTxOut := range msg.TxOut {
		var newScript []byte
		if n := len(oldTxOut.LockingScript); n > 0 {
			newScript = make([]byte, n)
			copy(newScript, oldTxOut.LockingScript)
		}

		newTx.TxOut = append(newTx.TxOut, &TxOut{
			Value:         oldTxOut.Value,
			LockingScript: newScript,
		})
	}

	return &newTx
}

// returnScriptBuffers returns any script buffers borrowed from scriptPool while decoding msg;
// only valid to call before the contiguous-buffer consolidation step runs.
func returnScriptBuffers(msg *MsgTx) {
	for _, txIn := range msg.TxIn {
		if txIn == nil || txIn.UnlockingScript == nil {
			continue
		}
		scriptPool.Return(txIn.UnlockingScript)
	}
	for _, txOut := range msg.TxOut {
		if txOut == nil || txOut.LockingScript == nil {
			continue
		}
		scriptPool.Return(txOut.LockingScript)
	}
}

// BtcDecode decodes r into the receiver, auto-detecting the legacy or BIP-141 segwit wire
// variant: an input count of zero is not a valid legacy transaction (every transaction has at
// least one input), so it is read as the segwit marker followed by a flag byte and the real
// input count.
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	var version int32
	if err := binary.Read(r, endian, &version); err != nil {
		return pastEndError("MsgTx.BtcDecode", err.Error())
	}
	msg.Version = version

	count, err := ReadVarInt(r, pver)
	if err != nil {
		return pastEndError("MsgTx.BtcDecode", err.Error())
	}

	segwit := false
	if count == 0 {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return pastEndError("MsgTx.BtcDecode", err.Error())
		}
		if flag[0] != witnessFlag {
			return messageError("MsgTx.BtcDecode", fmt.Sprintf(
				"unsupported segwit flag 0x%02x", flag[0]))
		}
		segwit = true

		count, err = ReadVarInt(r, pver)
		if err != nil {
			return pastEndError("MsgTx.BtcDecode", err.Error())
		}
	}

	if count > uint64(maxTxInPerMessage) {
		return messageError("MsgTx.BtcDecode", fmt.Sprintf(
			"too many inputs [count %d, max %d]", count, maxTxInPerMessage))
	}

	var totalScriptSize uint64
	txIns := make([]TxIn, count)
	msg.TxIn = make([]*TxIn, count)
	for i := uint64(0); i < count; i++ {
		ti := &txIns[i]
		msg.TxIn[i] = ti
		if err := readTxIn(r, pver, msg.Version, ti); err != nil {
			returnScriptBuffers(msg)
			return err
		}
		totalScriptSize += uint64(len(ti.UnlockingScript))
	}

	count, err = ReadVarInt(r, pver)
	if err != nil {
		returnScriptBuffers(msg)
		return pastEndError("MsgTx.BtcDecode", err.Error())
	}

	if count > uint64(maxTxOutPerMessage) {
		returnScriptBuffers(msg)
		return messageError("MsgTx.BtcDecode", fmt.Sprintf(
			"too many outputs [count %d, max %d]", count, maxTxOutPerMessage))
	}

	txOuts := make([]TxOut, count)
	msg.TxOut = make([]*TxOut, count)
	for i := uint64(0); i < count; i++ {
		to := &txOuts[i]
		msg.TxOut[i] = to
		if err := readTxOut(r, pver, msg.Version, to); err != nil {
			returnScriptBuffers(msg)
			return err
		}
		totalScriptSize += uint64(len(to.LockingScript))
	}

	// Consolidate all borrowed script buffers into one contiguous allocation and return the
	// temporary buffers to the pool, mirroring the non-witness path before witnesses (which
	// are not pool-backed) are read.
	var offset uint64
	scripts := make([]byte, totalScriptSize)
	for i := 0; i < len(msg.TxIn); i++ {
		signatureScript := msg.TxIn[i].UnlockingScript
		copy(scripts[offset:], signatureScript)
		scriptSize := uint64(len(signatureScript))
		end := offset + scriptSize
		msg.TxIn[i].UnlockingScript = scripts[offset:end:end]
		offset += scriptSize
		scriptPool.Return(signatureScript)
	}
	for i := 0; i < len(msg.TxOut); i++ {
		pkScript := msg.TxOut[i].LockingScript
		copy(scripts[offset:], pkScript)
		scriptSize := uint64(len(pkScript))
		end := offset + scriptSize
		msg.TxOut[i].LockingScript = scripts[offset:end:end]
		offset += scriptSize
		scriptPool.Return(pkScript)
	}

	if segwit {
		for i := 0; i < len(msg.TxIn); i++ {
			witness, err := readWitness(r, pver)
			if err != nil {
				return err
			}
			msg.TxIn[i].Witness = witness
		}
	}

	if err := binary.Read(r, endian, &msg.LockTime); err != nil {
		return pastEndError("MsgTx.BtcDecode", err.Error())
	}

	return nil
}

// readWitness reads one input's witness stack: a compact-size item count followed by that
// many compact-length-prefixed byte strings.
func readWitness(r io.Reader, pver uint32) ([][]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, pastEndError("readWitness", err.Error())
	}

	if count == 0 {
		return nil, nil
	}

	if count > MaxMessagePayload {
		return nil, messageError("readWitness", fmt.Sprintf(
			"too many witness items [count %d]", count))
	}

	items := make([][]byte, count)
	for i := uint64(0); i < count; i++ {
		item, err := ReadVarBytes(r, pver, MaxMessagePayload, "witness item")
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// writeWitness writes one input's witness stack: a compact-size item count followed by each
// item as a compact-length-prefixed byte string.
func writeWitness(w io.Writer, pver uint32, witness [][]byte) error {
	if err := WriteVarInt(w, pver, uint64(len(witness))); err != nil {
		return err
	}
	for _, item := range witness {
		if err := WriteVarBytes(w, pver, item); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a transaction from r. Any bytes left unread in r after the locktime is
// decoded are rejected as trailing junk.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	if err := msg.BtcDecode(r, 0); err != nil {
		return err
	}
	return checkTrailingBytes("MsgTx.Deserialize", r)
}

// BtcEncode encodes the receiver to w, using the segwit wire variant (marker, flag, and a
// witness segment after the outputs) if and only if at least one input carries a witness.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	return msg.serialize(w, msg.HasWitness())
}

// serialize encodes msg to w, forcing the segwit variant when includeWitness is true
// regardless of whether every input actually carries one (WTxHash uses this to hash the
// segwit-framed form even when only some inputs are signed).
func (msg *MsgTx) serialize(w io.Writer, includeWitness bool) error {
	if err := binary.Write(w, endian, uint32(msg.Version)); err != nil {
		return err
	}

	if includeWitness {
		if err := WriteVarInt(w, 0, 0); err != nil {
			return err
		}
		if _, err := w.Write([]byte{witnessFlag}); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, 0, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, 0, msg.Version, ti); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, 0, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, 0, msg.Version, to); err != nil {
			return err
		}
	}

	if includeWitness {
		for _, ti := range msg.TxIn {
			if err := writeWitness(w, 0, ti.Witness); err != nil {
				return err
			}
		}
	}

	return binary.Write(w, endian, uint32(msg.LockTime))
}

// Serialize encodes the transaction to w, auto-selecting the segwit variant.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.BtcEncode(w, 0)
}

// SerializeLegacy encodes the transaction to w using the legacy (witness-stripped) variant
// regardless of whether any input carries a witness. This is the form required for the PSBT
// UNSIGNED_TX global field and for the txid pre-image, where includeSigs=false additionally
// blanks every script-sig.
func (msg *MsgTx) SerializeLegacy(w io.Writer, includeSigs bool) error {
	if includeSigs {
		return msg.serialize(w, false)
	}

	stripped := &MsgTx{Version: msg.Version, LockTime: msg.LockTime}
	for _, ti := range msg.TxIn {
		stripped.TxIn = append(stripped.TxIn, &TxIn{
			PreviousOutPoint: ti.PreviousOutPoint,
			Sequence:         ti.Sequence,
		})
	}
	stripped.TxOut = msg.TxOut
	return stripped.serialize(w, false)
}

// SerializeSize returns the number of bytes the transaction takes in its auto-selected wire
// variant (legacy if no input has a witness, segwit otherwise).
func (msg *MsgTx) SerializeSize() int {
	n := msg.BaseSize()
	if msg.HasWitness() {
		n += msg.WitnessSize()
	}
	return n
}

// MarshalText implements encoding.TextMarshaler for json and other text encoding packages.
func (msg MsgTx) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "serialize tx")
	}

	return []byte(hex.EncodeToString(buf.Bytes())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for json and other text encoding packages.
func (msg *MsgTx) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return errors.Wrap(err, "decode hex")
	}

	if err := msg.Deserialize(bytes.NewReader(b)); err != nil {
		return errors.Wrap(err, "deserialize tx")
	}

	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler for binary encoding packages.
func (msg MsgTx) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "serialize tx")
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for binary encoding packages.
func (msg *MsgTx) UnmarshalBinary(b []byte) error {
	if err := msg.Deserialize(bytes.NewReader(b)); err != nil {
		return errors.Wrap(err, "deserialize tx")
	}

	return nil
}

// LockingScriptLocs returns the byte offset of each output's locking script within the
// legacy-serialized transaction.
func (msg *MsgTx) LockingScriptLocs() []int {
	numTxOut := len(msg.TxOut)
	if numTxOut == 0 {
		return nil
	}

	n := 4 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(numTxOut))
	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}

	pkScriptLocs := make([]int, numTxOut)
	for i, txOut := range msg.TxOut {
		n += 8 + VarIntSerializeSize(uint64(len(txOut.LockingScript)))
		pkScriptLocs[i] = n
		n += len(txOut.LockingScript)
	}

	return pkScriptLocs
}

// NewMsgTx returns a new transaction with the given version and no inputs or outputs.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, defaultTxInOutAlloc),
		TxOut:   make([]*TxOut, 0, defaultTxInOutAlloc),
	}
}

// readScript reads a compact-length-prefixed byte array, rejecting lengths above maxAllowed.
func readScript(r io.Reader, pver uint32, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, pastEndError("readScript", err.Error())
	}

	if count > maxAllowed {
		return nil, messageError("readScript", fmt.Sprintf(
			"%s is larger than the max allowed size [count %d, max %d]", fieldName, count,
			maxAllowed))
	}

	b := scriptPool.Borrow(count)
	if _, err = io.ReadFull(r, b); err != nil {
		scriptPool.Return(b)
		return nil, pastEndError("readScript", err.Error())
	}
	return b, nil
}

// readTxIn reads a TxIn: outpoint, unlocking script, sequence.
func readTxIn(r io.Reader, pver uint32, version int32, ti *TxIn) error {
	if err := ti.PreviousOutPoint.Deserialize(r); err != nil {
		return err
	}

	var err error
	ti.UnlockingScript, err = readScript(r, pver, MaxMessagePayload,
		"transaction input unlocking script")
	if err != nil {
		return err
	}

	if err := binary.Read(r, endian, &ti.Sequence); err != nil {
		return pastEndError("readTxIn", err.Error())
	}
	return nil
}

// writeTxIn encodes ti to w: outpoint, unlocking script, sequence.
func writeTxIn(w io.Writer, pver uint32, version int32, ti *TxIn) error {
	if err := ti.PreviousOutPoint.Serialize(w); err != nil {
		return err
	}

	if err := WriteVarBytes(w, pver, ti.UnlockingScript); err != nil {
		return err
	}

	return binary.Write(w, endian, uint32(ti.Sequence))
}

// readTxOut reads a TxOut: an 8-byte LE signed value and the locking script. Values outside
// [0, MaxSatoshi] are rejected.
func readTxOut(r io.Reader, pver uint32, version int32, to *TxOut) error {
	if err := binary.Read(r, endian, &to.Value); err != nil {
		return pastEndError("readTxOut", err.Error())
	}

	if to.Value < 0 || to.Value > MaxSatoshi {
		return messageError("readTxOut", fmt.Sprintf(
			"output value out of range: %d", to.Value))
	}

	var err error
	to.LockingScript, err = readScript(r, pver, MaxMessagePayload,
		"transaction output locking script")
	return err
}

// writeTxOut encodes to to w: 8-byte LE signed value and the locking script.
func writeTxOut(w io.Writer, pver uint32, version int32, to *TxOut) error {
	if to.IsMaxSpend() {
		return messageError("writeTxOut", "cannot serialize an unresolved max-spend output")
	}

	if err := binary.Write(w, endian, to.Value); err != nil {
		return err
	}

	return WriteVarBytes(w, pver, to.LockingScript)
}

func (msg *MsgTx) Clear() {
	msg.Version = 1
	msg.TxIn = nil
	msg.TxOut = nil
	msg.LockTime = 0
}

// Scan converts from a database column.
func (msg *MsgTx) Scan(data interface{}) error {
	if data == nil {
		msg.Clear()
		return nil
	}

	b, ok := data.([]byte)
	if !ok {
		return errors.New("MsgTx db column not bytes")
	}

	if len(b) == 0 {
		msg.Clear()
		return nil
	}

	c := make([]byte, len(b))
	copy(c, b)

	return msg.Deserialize(bytes.NewReader(c))
}

// Bytes returns the wire-encoded form of the transaction.
func (msg MsgTx) Bytes() []byte {
	buf := &bytes.Buffer{}
	msg.Serialize(buf)
	return buf.Bytes()
}
