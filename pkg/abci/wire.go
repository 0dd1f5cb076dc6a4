package abci

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/sessamekesh/abci-hub/pkg/errors"
)

// Wire layout: each frame is a uvarint byte length followed by one payload.
// A payload is a 6 byte header (magic number u32 LE, wire version u8, kind
// u8) followed by the kind-specific fields, all little endian. Variable
// length fields carry a u32 byte length prefix.

const (
	DefaultMagicNumber uint32 = 0x41424349 // "ABCI"
	DefaultWireVersion uint8  = 1

	payloadHeaderSize = 6
)

// ReadFrame reads one length-delimited payload. maxSize caps the declared
// frame length; a frame that claims more is rejected before any payload
// bytes are consumed.
func ReadFrame(r *bufio.Reader, maxSize int64) ([]byte, error) {
	frameLength, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}

	if maxSize > 0 && frameLength > uint64(maxSize) {
		return nil, &errors.Overflow{
			MessageName: "Frame",
			MsgSize:     int64(frameLength),
			MaximumSize: maxSize,
		}
	}

	payload := make([]byte, frameLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// WriteFrame writes one length-delimited payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var lengthPrefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lengthPrefix[:], uint64(len(payload)))

	if _, err := w.Write(lengthPrefix[:n]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WireSerializer encodes and decodes Request/Response payloads. The zero
// value is not useful; use CreateWireSerializer for the default header
// values, or set MagicNumber/Version explicitly to speak a custom dialect.
type WireSerializer struct {
	MagicNumber uint32
	Version     uint8
}

func CreateWireSerializer() WireSerializer {
	return WireSerializer{
		MagicNumber: DefaultMagicNumber,
		Version:     DefaultWireVersion,
	}
}

//
// Payload writer

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *wireWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *wireWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *wireWriter) i64(v int64) {
	w.u64(uint64(v))
}

func (w *wireWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *wireWriter) bytes(v []byte) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *wireWriter) str(v string) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *wireWriter) byteSlices(v [][]byte) {
	w.u32(uint32(len(v)))
	for _, b := range v {
		w.bytes(b)
	}
}

func (w *wireWriter) u32s(v []uint32) {
	w.u32(uint32(len(v)))
	for _, n := range v {
		w.u32(n)
	}
}

func (w *wireWriter) strs(v []string) {
	w.u32(uint32(len(v)))
	for _, s := range v {
		w.str(s)
	}
}

//
// Payload reader

type wireReader struct {
	name string
	msg  []byte
	ptr  int
}

func (r *wireReader) need(n int) error {
	if len(r.msg) < r.ptr+n {
		return &errors.Underflow{
			MessageName: r.name,
			MsgSize:     len(r.msg),
			MinimumSize: r.ptr + n,
		}
	}
	return nil
}

func (r *wireReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.msg[r.ptr]
	r.ptr++
	return v, nil
}

func (r *wireReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.msg[r.ptr : r.ptr+4])
	r.ptr += 4
	return v, nil
}

func (r *wireReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.msg[r.ptr : r.ptr+8])
	r.ptr += 8
	return v, nil
}

func (r *wireReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *wireReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *wireReader) bytes() ([]byte, error) {
	byteLength, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(byteLength)); err != nil {
		return nil, err
	}
	v := make([]byte, byteLength)
	copy(v, r.msg[r.ptr:r.ptr+int(byteLength)])
	r.ptr += int(byteLength)
	return v, nil
}

func (r *wireReader) str() (string, error) {
	v, err := r.bytes()
	return string(v), err
}

func (r *wireReader) byteSlices() ([][]byte, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	v := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		v = append(v, b)
	}
	return v, nil
}

func (r *wireReader) u32s() ([]uint32, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	v := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		v = append(v, n)
	}
	return v, nil
}

func (r *wireReader) strs() ([]string, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	v := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		v = append(v, s)
	}
	return v, nil
}

//
// Header handling

func (s WireSerializer) writeHeader(w *wireWriter, kind RequestKind) {
	w.u32(s.MagicNumber)
	w.u8(s.Version)
	w.u8(uint8(kind))
}

func (s WireSerializer) parseHeader(r *wireReader) (RequestKind, error) {
	if err := r.need(payloadHeaderSize); err != nil {
		return RequestKind_NONE, err
	}

	magicNumber, _ := r.u32()
	version, _ := r.u8()
	kindByte, _ := r.u8()

	if magicNumber != s.MagicNumber || version != s.Version {
		return RequestKind_NONE, &errors.InvalidHeaderVersion{
			ExpectedMagicNumber: s.MagicNumber,
			ActualMagicNumber:   magicNumber,
			ExpectedVersion:     s.Version,
			ActualVersion:       version,
		}
	}

	if kindByte == uint8(RequestKind_NONE) || kindByte > uint8(RequestKind_Commit) {
		return RequestKind_NONE, &errors.InvalidEnumValue{
			EnumName: "RequestKind",
			IntValue: kindByte,
		}
	}

	return RequestKind(kindByte), nil
}

//
// Requests

func (s WireSerializer) SerializeRequest(req *Request) ([]byte, error) {
	w := &wireWriter{buf: make([]byte, 0, 64)}
	s.writeHeader(w, req.Kind)

	missing := func(field string) ([]byte, error) {
		return nil, &errors.MissingFieldError{
			MessageName: "Request::" + req.Kind.String(),
			FieldName:   field,
		}
	}

	switch req.Kind {
	case RequestKind_Echo:
		if req.Echo == nil {
			return missing("Echo")
		}
		w.str(req.Echo.Message)
	case RequestKind_Flush, RequestKind_ListSnapshots, RequestKind_Commit:
		// no payload fields
	case RequestKind_Info:
		if req.Info == nil {
			return missing("Info")
		}
		w.str(req.Info.Version)
		w.u64(req.Info.BlockVersion)
		w.u64(req.Info.P2PVersion)
		w.str(req.Info.AbciVersion)
	case RequestKind_InitChain:
		if req.InitChain == nil {
			return missing("InitChain")
		}
		w.i64(req.InitChain.Time)
		w.str(req.InitChain.ChainId)
		w.i64(req.InitChain.InitialHeight)
		w.bytes(req.InitChain.AppStateBytes)
	case RequestKind_Query:
		if req.Query == nil {
			return missing("Query")
		}
		w.bytes(req.Query.Data)
		w.str(req.Query.Path)
		w.i64(req.Query.Height)
		w.boolean(req.Query.Prove)
	case RequestKind_CheckTx:
		if req.CheckTx == nil {
			return missing("CheckTx")
		}
		w.bytes(req.CheckTx.Tx)
		w.u8(uint8(req.CheckTx.Type))
	case RequestKind_OfferSnapshot:
		if req.OfferSnapshot == nil {
			return missing("OfferSnapshot")
		}
		w.u64(req.OfferSnapshot.Height)
		w.u32(req.OfferSnapshot.Format)
		w.u32(req.OfferSnapshot.Chunks)
		w.bytes(req.OfferSnapshot.Hash)
		w.bytes(req.OfferSnapshot.Metadata)
	case RequestKind_LoadSnapshotChunk:
		if req.LoadSnapshotChunk == nil {
			return missing("LoadSnapshotChunk")
		}
		w.u64(req.LoadSnapshotChunk.Height)
		w.u32(req.LoadSnapshotChunk.Format)
		w.u32(req.LoadSnapshotChunk.Chunk)
	case RequestKind_ApplySnapshotChunk:
		if req.ApplySnapshotChunk == nil {
			return missing("ApplySnapshotChunk")
		}
		w.u32(req.ApplySnapshotChunk.Index)
		w.bytes(req.ApplySnapshotChunk.Chunk)
		w.str(req.ApplySnapshotChunk.Sender)
	case RequestKind_PrepareProposal:
		if req.PrepareProposal == nil {
			return missing("PrepareProposal")
		}
		w.i64(req.PrepareProposal.MaxTxBytes)
		w.byteSlices(req.PrepareProposal.Txs)
		w.i64(req.PrepareProposal.Height)
		w.i64(req.PrepareProposal.Time)
		w.bytes(req.PrepareProposal.ProposerAddress)
	case RequestKind_ProcessProposal:
		if req.ProcessProposal == nil {
			return missing("ProcessProposal")
		}
		w.byteSlices(req.ProcessProposal.Txs)
		w.bytes(req.ProcessProposal.Hash)
		w.i64(req.ProcessProposal.Height)
		w.i64(req.ProcessProposal.Time)
		w.bytes(req.ProcessProposal.ProposerAddress)
	case RequestKind_ExtendVote:
		if req.ExtendVote == nil {
			return missing("ExtendVote")
		}
		w.bytes(req.ExtendVote.Hash)
		w.i64(req.ExtendVote.Height)
	case RequestKind_VerifyVoteExtension:
		if req.VerifyVoteExtension == nil {
			return missing("VerifyVoteExtension")
		}
		w.bytes(req.VerifyVoteExtension.Hash)
		w.bytes(req.VerifyVoteExtension.ValidatorAddress)
		w.i64(req.VerifyVoteExtension.Height)
		w.bytes(req.VerifyVoteExtension.VoteExtension)
	case RequestKind_FinalizeBlock:
		if req.FinalizeBlock == nil {
			return missing("FinalizeBlock")
		}
		w.byteSlices(req.FinalizeBlock.Txs)
		w.bytes(req.FinalizeBlock.Hash)
		w.i64(req.FinalizeBlock.Height)
		w.i64(req.FinalizeBlock.Time)
		w.bytes(req.FinalizeBlock.ProposerAddress)
	default:
		return nil, &errors.InvalidEnumValue{
			EnumName: "RequestKind",
			IntValue: uint8(req.Kind),
		}
	}

	return w.buf, nil
}

func (s WireSerializer) ParseRequest(msg []byte) (*Request, error) {
	r := &wireReader{name: "Request", msg: msg}

	kind, err := s.parseHeader(r)
	if err != nil {
		return nil, err
	}
	r.name = "Request::" + kind.String()

	req := &Request{Kind: kind}

	switch kind {
	case RequestKind_Echo:
		message, err := r.str()
		if err != nil {
			return nil, err
		}
		req.Echo = &EchoRequest{Message: message}
	case RequestKind_Flush, RequestKind_ListSnapshots, RequestKind_Commit:
		// no payload fields
	case RequestKind_Info:
		payload := &InfoRequest{}
		if payload.Version, err = r.str(); err != nil {
			return nil, err
		}
		if payload.BlockVersion, err = r.u64(); err != nil {
			return nil, err
		}
		if payload.P2PVersion, err = r.u64(); err != nil {
			return nil, err
		}
		if payload.AbciVersion, err = r.str(); err != nil {
			return nil, err
		}
		req.Info = payload
	case RequestKind_InitChain:
		payload := &InitChainRequest{}
		if payload.Time, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.ChainId, err = r.str(); err != nil {
			return nil, err
		}
		if payload.InitialHeight, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.AppStateBytes, err = r.bytes(); err != nil {
			return nil, err
		}
		req.InitChain = payload
	case RequestKind_Query:
		payload := &QueryRequest{}
		if payload.Data, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Path, err = r.str(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.Prove, err = r.boolean(); err != nil {
			return nil, err
		}
		req.Query = payload
	case RequestKind_CheckTx:
		payload := &CheckTxRequest{}
		if payload.Tx, err = r.bytes(); err != nil {
			return nil, err
		}
		checkTxType, err := r.u8()
		if err != nil {
			return nil, err
		}
		if checkTxType > uint8(CheckTxType_Recheck) {
			return nil, &errors.InvalidEnumValue{
				EnumName: "CheckTxType",
				IntValue: checkTxType,
			}
		}
		payload.Type = CheckTxType(checkTxType)
		req.CheckTx = payload
	case RequestKind_OfferSnapshot:
		payload := &OfferSnapshotRequest{}
		if payload.Height, err = r.u64(); err != nil {
			return nil, err
		}
		if payload.Format, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Chunks, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Hash, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Metadata, err = r.bytes(); err != nil {
			return nil, err
		}
		req.OfferSnapshot = payload
	case RequestKind_LoadSnapshotChunk:
		payload := &LoadSnapshotChunkRequest{}
		if payload.Height, err = r.u64(); err != nil {
			return nil, err
		}
		if payload.Format, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Chunk, err = r.u32(); err != nil {
			return nil, err
		}
		req.LoadSnapshotChunk = payload
	case RequestKind_ApplySnapshotChunk:
		payload := &ApplySnapshotChunkRequest{}
		if payload.Index, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Chunk, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Sender, err = r.str(); err != nil {
			return nil, err
		}
		req.ApplySnapshotChunk = payload
	case RequestKind_PrepareProposal:
		payload := &PrepareProposalRequest{}
		if payload.MaxTxBytes, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.Txs, err = r.byteSlices(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.Time, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.ProposerAddress, err = r.bytes(); err != nil {
			return nil, err
		}
		req.PrepareProposal = payload
	case RequestKind_ProcessProposal:
		payload := &ProcessProposalRequest{}
		if payload.Txs, err = r.byteSlices(); err != nil {
			return nil, err
		}
		if payload.Hash, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.Time, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.ProposerAddress, err = r.bytes(); err != nil {
			return nil, err
		}
		req.ProcessProposal = payload
	case RequestKind_ExtendVote:
		payload := &ExtendVoteRequest{}
		if payload.Hash, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		req.ExtendVote = payload
	case RequestKind_VerifyVoteExtension:
		payload := &VerifyVoteExtensionRequest{}
		if payload.Hash, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.ValidatorAddress, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.VoteExtension, err = r.bytes(); err != nil {
			return nil, err
		}
		req.VerifyVoteExtension = payload
	case RequestKind_FinalizeBlock:
		payload := &FinalizeBlockRequest{}
		if payload.Txs, err = r.byteSlices(); err != nil {
			return nil, err
		}
		if payload.Hash, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.Time, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.ProposerAddress, err = r.bytes(); err != nil {
			return nil, err
		}
		req.FinalizeBlock = payload
	}

	return req, nil
}

//
// Responses

func (s WireSerializer) SerializeResponse(resp *Response) ([]byte, error) {
	w := &wireWriter{buf: make([]byte, 0, 64)}
	s.writeHeader(w, resp.Kind)

	missing := func(field string) ([]byte, error) {
		return nil, &errors.MissingFieldError{
			MessageName: "Response::" + resp.Kind.String(),
			FieldName:   field,
		}
	}

	switch resp.Kind {
	case RequestKind_Echo:
		if resp.Echo == nil {
			return missing("Echo")
		}
		w.str(resp.Echo.Message)
	case RequestKind_Flush:
		// no payload fields
	case RequestKind_Info:
		if resp.Info == nil {
			return missing("Info")
		}
		w.str(resp.Info.Data)
		w.str(resp.Info.Version)
		w.u64(resp.Info.AppVersion)
		w.i64(resp.Info.LastBlockHeight)
		w.bytes(resp.Info.LastBlockAppHash)
	case RequestKind_InitChain:
		if resp.InitChain == nil {
			return missing("InitChain")
		}
		w.bytes(resp.InitChain.AppHash)
	case RequestKind_Query:
		if resp.Query == nil {
			return missing("Query")
		}
		w.u32(resp.Query.Code)
		w.str(resp.Query.Log)
		w.bytes(resp.Query.Key)
		w.bytes(resp.Query.Value)
		w.i64(resp.Query.Height)
	case RequestKind_CheckTx:
		if resp.CheckTx == nil {
			return missing("CheckTx")
		}
		w.u32(resp.CheckTx.Code)
		w.str(resp.CheckTx.Log)
		w.i64(resp.CheckTx.GasWanted)
		w.i64(resp.CheckTx.GasUsed)
	case RequestKind_ListSnapshots:
		if resp.ListSnapshots == nil {
			return missing("ListSnapshots")
		}
		w.u32(uint32(len(resp.ListSnapshots.Snapshots)))
		for _, snapshot := range resp.ListSnapshots.Snapshots {
			w.u64(snapshot.Height)
			w.u32(snapshot.Format)
			w.u32(snapshot.Chunks)
			w.bytes(snapshot.Hash)
			w.bytes(snapshot.Metadata)
		}
	case RequestKind_OfferSnapshot:
		if resp.OfferSnapshot == nil {
			return missing("OfferSnapshot")
		}
		w.u8(uint8(resp.OfferSnapshot.Result))
	case RequestKind_LoadSnapshotChunk:
		if resp.LoadSnapshotChunk == nil {
			return missing("LoadSnapshotChunk")
		}
		w.bytes(resp.LoadSnapshotChunk.Chunk)
	case RequestKind_ApplySnapshotChunk:
		if resp.ApplySnapshotChunk == nil {
			return missing("ApplySnapshotChunk")
		}
		w.u8(uint8(resp.ApplySnapshotChunk.Result))
		w.u32s(resp.ApplySnapshotChunk.RefetchChunks)
		w.strs(resp.ApplySnapshotChunk.RejectSenders)
	case RequestKind_PrepareProposal:
		if resp.PrepareProposal == nil {
			return missing("PrepareProposal")
		}
		w.byteSlices(resp.PrepareProposal.Txs)
	case RequestKind_ProcessProposal:
		if resp.ProcessProposal == nil {
			return missing("ProcessProposal")
		}
		w.boolean(resp.ProcessProposal.Accept)
	case RequestKind_ExtendVote:
		if resp.ExtendVote == nil {
			return missing("ExtendVote")
		}
		w.bytes(resp.ExtendVote.VoteExtension)
	case RequestKind_VerifyVoteExtension:
		if resp.VerifyVoteExtension == nil {
			return missing("VerifyVoteExtension")
		}
		w.boolean(resp.VerifyVoteExtension.Accept)
	case RequestKind_FinalizeBlock:
		if resp.FinalizeBlock == nil {
			return missing("FinalizeBlock")
		}
		w.u32(uint32(len(resp.FinalizeBlock.TxResults)))
		for _, txResult := range resp.FinalizeBlock.TxResults {
			w.u32(txResult.Code)
			w.str(txResult.Log)
			w.i64(txResult.GasWanted)
			w.i64(txResult.GasUsed)
		}
		w.bytes(resp.FinalizeBlock.AppHash)
	case RequestKind_Commit:
		if resp.Commit == nil {
			return missing("Commit")
		}
		w.i64(resp.Commit.RetainHeight)
	default:
		return nil, &errors.InvalidEnumValue{
			EnumName: "RequestKind",
			IntValue: uint8(resp.Kind),
		}
	}

	return w.buf, nil
}

func (s WireSerializer) ParseResponse(msg []byte) (*Response, error) {
	r := &wireReader{name: "Response", msg: msg}

	kind, err := s.parseHeader(r)
	if err != nil {
		return nil, err
	}
	r.name = "Response::" + kind.String()

	resp := &Response{Kind: kind}

	switch kind {
	case RequestKind_Echo:
		message, err := r.str()
		if err != nil {
			return nil, err
		}
		resp.Echo = &EchoResponse{Message: message}
	case RequestKind_Flush:
		// no payload fields
	case RequestKind_Info:
		payload := &InfoResponse{}
		if payload.Data, err = r.str(); err != nil {
			return nil, err
		}
		if payload.Version, err = r.str(); err != nil {
			return nil, err
		}
		if payload.AppVersion, err = r.u64(); err != nil {
			return nil, err
		}
		if payload.LastBlockHeight, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.LastBlockAppHash, err = r.bytes(); err != nil {
			return nil, err
		}
		resp.Info = payload
	case RequestKind_InitChain:
		payload := &InitChainResponse{}
		if payload.AppHash, err = r.bytes(); err != nil {
			return nil, err
		}
		resp.InitChain = payload
	case RequestKind_Query:
		payload := &QueryResponse{}
		if payload.Code, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Log, err = r.str(); err != nil {
			return nil, err
		}
		if payload.Key, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Value, err = r.bytes(); err != nil {
			return nil, err
		}
		if payload.Height, err = r.i64(); err != nil {
			return nil, err
		}
		resp.Query = payload
	case RequestKind_CheckTx:
		payload := &CheckTxResponse{}
		if payload.Code, err = r.u32(); err != nil {
			return nil, err
		}
		if payload.Log, err = r.str(); err != nil {
			return nil, err
		}
		if payload.GasWanted, err = r.i64(); err != nil {
			return nil, err
		}
		if payload.GasUsed, err = r.i64(); err != nil {
			return nil, err
		}
		resp.CheckTx = payload
	case RequestKind_ListSnapshots:
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		payload := &ListSnapshotsResponse{Snapshots: make([]Snapshot, 0, count)}
		for i := uint32(0); i < count; i++ {
			snapshot := Snapshot{}
			if snapshot.Height, err = r.u64(); err != nil {
				return nil, err
			}
			if snapshot.Format, err = r.u32(); err != nil {
				return nil, err
			}
			if snapshot.Chunks, err = r.u32(); err != nil {
				return nil, err
			}
			if snapshot.Hash, err = r.bytes(); err != nil {
				return nil, err
			}
			if snapshot.Metadata, err = r.bytes(); err != nil {
				return nil, err
			}
			payload.Snapshots = append(payload.Snapshots, snapshot)
		}
		resp.ListSnapshots = payload
	case RequestKind_OfferSnapshot:
		result, err := r.u8()
		if err != nil {
			return nil, err
		}
		if result > uint8(SnapshotResult_RejectSender) {
			return nil, &errors.InvalidEnumValue{
				EnumName: "SnapshotResult",
				IntValue: result,
			}
		}
		resp.OfferSnapshot = &OfferSnapshotResponse{Result: SnapshotResult(result)}
	case RequestKind_LoadSnapshotChunk:
		payload := &LoadSnapshotChunkResponse{}
		if payload.Chunk, err = r.bytes(); err != nil {
			return nil, err
		}
		resp.LoadSnapshotChunk = payload
	case RequestKind_ApplySnapshotChunk:
		payload := &ApplySnapshotChunkResponse{}
		result, err := r.u8()
		if err != nil {
			return nil, err
		}
		if result > uint8(SnapshotResult_RejectSender) {
			return nil, &errors.InvalidEnumValue{
				EnumName: "SnapshotResult",
				IntValue: result,
			}
		}
		payload.Result = SnapshotResult(result)
		if payload.RefetchChunks, err = r.u32s(); err != nil {
			return nil, err
		}
		if payload.RejectSenders, err = r.strs(); err != nil {
			return nil, err
		}
		resp.ApplySnapshotChunk = payload
	case RequestKind_PrepareProposal:
		payload := &PrepareProposalResponse{}
		if payload.Txs, err = r.byteSlices(); err != nil {
			return nil, err
		}
		resp.PrepareProposal = payload
	case RequestKind_ProcessProposal:
		payload := &ProcessProposalResponse{}
		if payload.Accept, err = r.boolean(); err != nil {
			return nil, err
		}
		resp.ProcessProposal = payload
	case RequestKind_ExtendVote:
		payload := &ExtendVoteResponse{}
		if payload.VoteExtension, err = r.bytes(); err != nil {
			return nil, err
		}
		resp.ExtendVote = payload
	case RequestKind_VerifyVoteExtension:
		payload := &VerifyVoteExtensionResponse{}
		if payload.Accept, err = r.boolean(); err != nil {
			return nil, err
		}
		resp.VerifyVoteExtension = payload
	case RequestKind_FinalizeBlock:
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		payload := &FinalizeBlockResponse{TxResults: make([]ExecTxResult, 0, count)}
		for i := uint32(0); i < count; i++ {
			txResult := ExecTxResult{}
			if txResult.Code, err = r.u32(); err != nil {
				return nil, err
			}
			if txResult.Log, err = r.str(); err != nil {
				return nil, err
			}
			if txResult.GasWanted, err = r.i64(); err != nil {
				return nil, err
			}
			if txResult.GasUsed, err = r.i64(); err != nil {
				return nil, err
			}
			payload.TxResults = append(payload.TxResults, txResult)
		}
		if payload.AppHash, err = r.bytes(); err != nil {
			return nil, err
		}
		resp.FinalizeBlock = payload
	case RequestKind_Commit:
		payload := &CommitResponse{}
		if payload.RetainHeight, err = r.i64(); err != nil {
			return nil, err
		}
		resp.Commit = payload
	}

	return resp, nil
}
