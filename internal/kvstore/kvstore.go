// Package kvstore is a sample ABCI application: an in-memory key-value store
// where transactions are "key=value" strings applied in FinalizeBlock, and
// the app hash is the big-endian store length. It exists to exercise the
// dispatch core, not to be a real chain application.
package kvstore

import (
	"context"
	"encoding/binary"
	"strings"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

type Store struct {
	data    map[string]string
	height  int64
	appHash []byte
}

var _ abci.Application = (*Store)(nil)

func CreateStore() *Store {
	return &Store{
		data:    make(map[string]string),
		appHash: make([]byte, 8),
	}
}

// Handle is only ever called from the dispatch worker, one request at a
// time, so the store needs no locking.
func (s *Store) Handle(_ context.Context, req *abci.Request) (*abci.Response, error) {
	resp := &abci.Response{Kind: req.Kind}

	switch req.Kind {
	case abci.RequestKind_Echo:
		resp.Echo = &abci.EchoResponse{Message: req.Echo.Message}
	case abci.RequestKind_Flush:
		// nothing to do
	case abci.RequestKind_Info:
		resp.Info = &abci.InfoResponse{
			Data:             "abci-hub-kvstore",
			Version:          "0.1.0",
			AppVersion:       1,
			LastBlockHeight:  s.height,
			LastBlockAppHash: append([]byte(nil), s.appHash...),
		}
	case abci.RequestKind_InitChain:
		resp.InitChain = &abci.InitChainResponse{
			AppHash: append([]byte(nil), s.appHash...),
		}
	case abci.RequestKind_Query:
		resp.Query = s.query(req.Query)
	case abci.RequestKind_CheckTx:
		resp.CheckTx = &abci.CheckTxResponse{Code: 0}
	case abci.RequestKind_ListSnapshots:
		resp.ListSnapshots = &abci.ListSnapshotsResponse{}
	case abci.RequestKind_OfferSnapshot:
		resp.OfferSnapshot = &abci.OfferSnapshotResponse{Result: abci.SnapshotResult_Reject}
	case abci.RequestKind_LoadSnapshotChunk:
		resp.LoadSnapshotChunk = &abci.LoadSnapshotChunkResponse{}
	case abci.RequestKind_ApplySnapshotChunk:
		resp.ApplySnapshotChunk = &abci.ApplySnapshotChunkResponse{Result: abci.SnapshotResult_Abort}
	case abci.RequestKind_PrepareProposal:
		resp.PrepareProposal = &abci.PrepareProposalResponse{Txs: req.PrepareProposal.Txs}
	case abci.RequestKind_ProcessProposal:
		resp.ProcessProposal = &abci.ProcessProposalResponse{Accept: true}
	case abci.RequestKind_ExtendVote:
		resp.ExtendVote = &abci.ExtendVoteResponse{}
	case abci.RequestKind_VerifyVoteExtension:
		resp.VerifyVoteExtension = &abci.VerifyVoteExtensionResponse{Accept: true}
	case abci.RequestKind_FinalizeBlock:
		resp.FinalizeBlock = s.finalizeBlock(req.FinalizeBlock)
	case abci.RequestKind_Commit:
		resp.Commit = s.commit()
	default:
		return nil, &UnhandledRequestError{Kind: req.Kind}
	}

	return resp, nil
}

func (s *Store) query(req *abci.QueryRequest) *abci.QueryResponse {
	key := string(req.Data)
	value, has := s.data[key]

	queryLog := "exists"
	if !has {
		queryLog = "does not exist"
	}

	return &abci.QueryResponse{
		Log:    queryLog,
		Key:    []byte(key),
		Value:  []byte(value),
		Height: s.height,
	}
}

func (s *Store) executeTx(tx []byte) abci.ExecTxResult {
	parts := strings.SplitN(string(tx), "=", 2)
	key, value := parts[0], parts[0]
	if len(parts) == 2 {
		value = parts[1]
	}
	s.data[key] = value

	return abci.ExecTxResult{Code: 0, Log: "applied " + key}
}

func (s *Store) finalizeBlock(req *abci.FinalizeBlockRequest) *abci.FinalizeBlockResponse {
	txResults := make([]abci.ExecTxResult, 0, len(req.Txs))
	for _, tx := range req.Txs {
		txResults = append(txResults, s.executeTx(tx))
	}

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   s.computeAppHash(),
	}
}

func (s *Store) commit() *abci.CommitResponse {
	retainHeight := s.height
	s.appHash = s.computeAppHash()
	s.height++

	return &abci.CommitResponse{RetainHeight: retainHeight}
}

// The "hash" is just the store length, as in the other kvstore examples.
func (s *Store) computeAppHash() []byte {
	hash := make([]byte, 8)
	binary.BigEndian.PutUint64(hash, uint64(len(s.data)))
	return hash
}

// Height reports the number of committed blocks.
func (s *Store) Height() int64 {
	return s.height
}

// Get reads a committed value directly; test helper.
func (s *Store) Get(key string) (string, bool) {
	value, has := s.data[key]
	return value, has
}

type UnhandledRequestError struct {
	Kind abci.RequestKind
}

func (e *UnhandledRequestError) Error() string {
	return "kvstore cannot handle request kind " + e.Kind.String()
}
