// Package abci defines the closed request/response message set spoken between
// a consensus engine and the application, the category classification used for
// priority dispatch, and the wire serialization for both.
package abci

import "context"

type RequestKind uint8

const (
	RequestKind_NONE RequestKind = iota
	RequestKind_Echo
	RequestKind_Flush
	RequestKind_Info
	RequestKind_InitChain
	RequestKind_Query
	RequestKind_CheckTx
	RequestKind_ListSnapshots
	RequestKind_OfferSnapshot
	RequestKind_LoadSnapshotChunk
	RequestKind_ApplySnapshotChunk
	RequestKind_PrepareProposal
	RequestKind_ProcessProposal
	RequestKind_ExtendVote
	RequestKind_VerifyVoteExtension
	RequestKind_FinalizeBlock
	RequestKind_Commit
)

func (k RequestKind) String() string {
	switch k {
	case RequestKind_Echo:
		return "Echo"
	case RequestKind_Flush:
		return "Flush"
	case RequestKind_Info:
		return "Info"
	case RequestKind_InitChain:
		return "InitChain"
	case RequestKind_Query:
		return "Query"
	case RequestKind_CheckTx:
		return "CheckTx"
	case RequestKind_ListSnapshots:
		return "ListSnapshots"
	case RequestKind_OfferSnapshot:
		return "OfferSnapshot"
	case RequestKind_LoadSnapshotChunk:
		return "LoadSnapshotChunk"
	case RequestKind_ApplySnapshotChunk:
		return "ApplySnapshotChunk"
	case RequestKind_PrepareProposal:
		return "PrepareProposal"
	case RequestKind_ProcessProposal:
		return "ProcessProposal"
	case RequestKind_ExtendVote:
		return "ExtendVote"
	case RequestKind_VerifyVoteExtension:
		return "VerifyVoteExtension"
	case RequestKind_FinalizeBlock:
		return "FinalizeBlock"
	case RequestKind_Commit:
		return "Commit"
	}
	return "NONE"
}

type CheckTxType uint8

const (
	CheckTxType_New CheckTxType = iota
	CheckTxType_Recheck
)

type EchoRequest struct {
	Message string
}

type InfoRequest struct {
	Version      string
	BlockVersion uint64
	P2PVersion   uint64
	AbciVersion  string
}

type InitChainRequest struct {
	Time          int64
	ChainId       string
	InitialHeight int64
	AppStateBytes []byte
}

type QueryRequest struct {
	Data   []byte
	Path   string
	Height int64
	Prove  bool
}

type CheckTxRequest struct {
	Tx   []byte
	Type CheckTxType
}

type OfferSnapshotRequest struct {
	Height   uint64
	Format   uint32
	Chunks   uint32
	Hash     []byte
	Metadata []byte
}

type LoadSnapshotChunkRequest struct {
	Height uint64
	Format uint32
	Chunk  uint32
}

type ApplySnapshotChunkRequest struct {
	Index  uint32
	Chunk  []byte
	Sender string
}

type PrepareProposalRequest struct {
	MaxTxBytes      int64
	Txs             [][]byte
	Height          int64
	Time            int64
	ProposerAddress []byte
}

type ProcessProposalRequest struct {
	Txs             [][]byte
	Hash            []byte
	Height          int64
	Time            int64
	ProposerAddress []byte
}

type ExtendVoteRequest struct {
	Hash   []byte
	Height int64
}

type VerifyVoteExtensionRequest struct {
	Hash             []byte
	ValidatorAddress []byte
	Height           int64
	VoteExtension    []byte
}

type FinalizeBlockRequest struct {
	Txs             [][]byte
	Hash            []byte
	Height          int64
	Time            int64
	ProposerAddress []byte
}

// Request is a closed tagged union - exactly one payload pointer matching Kind
// is set. Flush, ListSnapshots and Commit carry no payload. Requests are
// immutable once constructed.
type Request struct {
	Kind RequestKind

	Echo                *EchoRequest
	Info                *InfoRequest
	InitChain           *InitChainRequest
	Query               *QueryRequest
	CheckTx             *CheckTxRequest
	OfferSnapshot       *OfferSnapshotRequest
	LoadSnapshotChunk   *LoadSnapshotChunkRequest
	ApplySnapshotChunk  *ApplySnapshotChunkRequest
	PrepareProposal     *PrepareProposalRequest
	ProcessProposal     *ProcessProposalRequest
	ExtendVote          *ExtendVoteRequest
	VerifyVoteExtension *VerifyVoteExtensionRequest
	FinalizeBlock       *FinalizeBlockRequest
}

// Application is the external collaborator the dispatch engine protects:
// a stateful request processor that accepts one Request at a time and
// produces the Response of the matching kind, or an opaque error.
//
// Handle is only ever invoked from the engine's single worker goroutine, so
// implementations need no internal locking as long as their state is not
// shared elsewhere.
type Application interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}
