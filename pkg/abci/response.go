package abci

type SnapshotResult uint8

const (
	SnapshotResult_Unknown SnapshotResult = iota
	SnapshotResult_Accept
	SnapshotResult_Abort
	SnapshotResult_Reject
	SnapshotResult_RejectFormat
	SnapshotResult_RejectSender
)

type Snapshot struct {
	Height   uint64
	Format   uint32
	Chunks   uint32
	Hash     []byte
	Metadata []byte
}

type ExecTxResult struct {
	Code      uint32
	Log       string
	GasWanted int64
	GasUsed   int64
}

type EchoResponse struct {
	Message string
}

type InfoResponse struct {
	Data             string
	Version          string
	AppVersion       uint64
	LastBlockHeight  int64
	LastBlockAppHash []byte
}

type InitChainResponse struct {
	AppHash []byte
}

type QueryResponse struct {
	Code   uint32
	Log    string
	Key    []byte
	Value  []byte
	Height int64
}

type CheckTxResponse struct {
	Code      uint32
	Log       string
	GasWanted int64
	GasUsed   int64
}

type ListSnapshotsResponse struct {
	Snapshots []Snapshot
}

type OfferSnapshotResponse struct {
	Result SnapshotResult
}

type LoadSnapshotChunkResponse struct {
	Chunk []byte
}

type ApplySnapshotChunkResponse struct {
	Result        SnapshotResult
	RefetchChunks []uint32
	RejectSenders []string
}

type PrepareProposalResponse struct {
	Txs [][]byte
}

type ProcessProposalResponse struct {
	Accept bool
}

type ExtendVoteResponse struct {
	VoteExtension []byte
}

type VerifyVoteExtensionResponse struct {
	Accept bool
}

type FinalizeBlockResponse struct {
	TxResults []ExecTxResult
	AppHash   []byte
}

type CommitResponse struct {
	RetainHeight int64
}

// Response mirrors Request variant-for-variant; Kind always names the request
// kind this response answers. Flush carries no payload.
type Response struct {
	Kind RequestKind

	Echo                *EchoResponse
	Info                *InfoResponse
	InitChain           *InitChainResponse
	Query               *QueryResponse
	CheckTx             *CheckTxResponse
	ListSnapshots       *ListSnapshotsResponse
	OfferSnapshot       *OfferSnapshotResponse
	LoadSnapshotChunk   *LoadSnapshotChunkResponse
	ApplySnapshotChunk  *ApplySnapshotChunkResponse
	PrepareProposal     *PrepareProposalResponse
	ProcessProposal     *ProcessProposalResponse
	ExtendVote          *ExtendVoteResponse
	VerifyVoteExtension *VerifyVoteExtensionResponse
	FinalizeBlock       *FinalizeBlockResponse
	Commit              *CommitResponse
}
