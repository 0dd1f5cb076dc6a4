package abci

import "github.com/sessamekesh/abci-hub/pkg/errors"

// Category is one of the four fixed traffic classes used for priority
// dispatch. Lower numeric value means higher scheduling priority - consensus
// traffic must never be starved by mempool admission or read traffic, and
// admission throughput matters more than snapshot/info traffic.
type Category uint8

const (
	CategoryConsensus Category = iota
	CategoryMempool
	CategorySnapshot
	CategoryInfo
)

// NumCategories is the number of valid Category values.
const NumCategories = int(CategoryInfo) + 1

func (c Category) String() string {
	switch c {
	case CategoryConsensus:
		return "consensus"
	case CategoryMempool:
		return "mempool"
	case CategorySnapshot:
		return "snapshot"
	case CategoryInfo:
		return "info"
	}
	return "invalid"
}

// CategoryOf maps a request kind to the queue that must carry it. The mapping
// is total over the closed kind set and has no state - classifying the same
// kind twice always yields the same category. Echo and Flush are category
// agnostic on the wire and route to the info queue by convention.
func CategoryOf(kind RequestKind) (Category, error) {
	switch kind {
	case RequestKind_InitChain,
		RequestKind_PrepareProposal,
		RequestKind_ProcessProposal,
		RequestKind_ExtendVote,
		RequestKind_VerifyVoteExtension,
		RequestKind_FinalizeBlock,
		RequestKind_Commit:
		return CategoryConsensus, nil

	case RequestKind_CheckTx:
		return CategoryMempool, nil

	case RequestKind_ListSnapshots,
		RequestKind_OfferSnapshot,
		RequestKind_LoadSnapshotChunk,
		RequestKind_ApplySnapshotChunk:
		return CategorySnapshot, nil

	case RequestKind_Info,
		RequestKind_Query,
		RequestKind_Echo,
		RequestKind_Flush:
		return CategoryInfo, nil
	}

	return CategoryInfo, &errors.InvalidEnumValue{
		EnumName: "RequestKind",
		IntValue: uint8(kind),
	}
}

// Category is the classification shorthand for a constructed request.
func (r *Request) Category() (Category, error) {
	return CategoryOf(r.Kind)
}
