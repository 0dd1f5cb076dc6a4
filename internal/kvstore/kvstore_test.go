package kvstore

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

func handle(t *testing.T, store *Store, req *abci.Request) *abci.Response {
	t.Helper()
	resp, err := store.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle %s failed: %v", req.Kind, err)
	}
	if resp.Kind != req.Kind {
		t.Fatalf("response kind = %s for request %s", resp.Kind, req.Kind)
	}
	return resp
}

func TestFinalizeCommitQueryFlow(t *testing.T) {
	store := CreateStore()

	finalize := handle(t, store, &abci.Request{
		Kind: abci.RequestKind_FinalizeBlock,
		FinalizeBlock: &abci.FinalizeBlockRequest{
			Txs:    [][]byte{[]byte("color=blue"), []byte("flag")},
			Height: 1,
		},
	})
	if len(finalize.FinalizeBlock.TxResults) != 2 {
		t.Fatalf("tx results = %d, want 2", len(finalize.FinalizeBlock.TxResults))
	}
	for i, result := range finalize.FinalizeBlock.TxResults {
		if result.Code != 0 {
			t.Fatalf("tx %d failed with code %d", i, result.Code)
		}
	}

	commit := handle(t, store, &abci.Request{Kind: abci.RequestKind_Commit})
	if commit.Commit.RetainHeight != 0 {
		t.Fatalf("first commit retain height = %d, want 0", commit.Commit.RetainHeight)
	}
	if store.Height() != 1 {
		t.Fatalf("height after commit = %d, want 1", store.Height())
	}

	query := handle(t, store, &abci.Request{
		Kind:  abci.RequestKind_Query,
		Query: &abci.QueryRequest{Data: []byte("color")},
	})
	if string(query.Query.Value) != "blue" {
		t.Fatalf("query value = %q, want %q", query.Query.Value, "blue")
	}
	if query.Query.Log != "exists" {
		t.Fatalf("query log = %q, want exists", query.Query.Log)
	}

	// A bare "flag" tx stores the key as its own value.
	if value, has := store.Get("flag"); !has || value != "flag" {
		t.Fatalf("bare tx stored %q/%v, want flag/true", value, has)
	}
}

func TestQueryMissingKey(t *testing.T) {
	store := CreateStore()

	query := handle(t, store, &abci.Request{
		Kind:  abci.RequestKind_Query,
		Query: &abci.QueryRequest{Data: []byte("nothing")},
	})
	if query.Query.Log != "does not exist" {
		t.Fatalf("query log = %q, want does not exist", query.Query.Log)
	}
	if len(query.Query.Value) != 0 {
		t.Fatalf("missing key returned value %q", query.Query.Value)
	}
}

func TestAppHashTracksStoreSize(t *testing.T) {
	store := CreateStore()

	handle(t, store, &abci.Request{
		Kind: abci.RequestKind_FinalizeBlock,
		FinalizeBlock: &abci.FinalizeBlockRequest{
			Txs:    [][]byte{[]byte("a=1"), []byte("b=2"), []byte("c=3")},
			Height: 1,
		},
	})
	handle(t, store, &abci.Request{Kind: abci.RequestKind_Commit})

	info := handle(t, store, &abci.Request{
		Kind: abci.RequestKind_Info,
		Info: &abci.InfoRequest{},
	})
	if info.Info.LastBlockHeight != 1 {
		t.Fatalf("info height = %d, want 1", info.Info.LastBlockHeight)
	}
	if got := binary.BigEndian.Uint64(info.Info.LastBlockAppHash); got != 3 {
		t.Fatalf("app hash encodes %d entries, want 3", got)
	}
}

func TestEchoAndProposalPassthrough(t *testing.T) {
	store := CreateStore()

	echo := handle(t, store, &abci.Request{
		Kind: abci.RequestKind_Echo,
		Echo: &abci.EchoRequest{Message: "ping"},
	})
	if echo.Echo.Message != "ping" {
		t.Fatalf("echo message = %q", echo.Echo.Message)
	}

	txs := [][]byte{[]byte("a=1")}
	prepare := handle(t, store, &abci.Request{
		Kind:            abci.RequestKind_PrepareProposal,
		PrepareProposal: &abci.PrepareProposalRequest{MaxTxBytes: 1024, Txs: txs, Height: 1},
	})
	if len(prepare.PrepareProposal.Txs) != 1 || string(prepare.PrepareProposal.Txs[0]) != "a=1" {
		t.Fatalf("prepare proposal txs = %v", prepare.PrepareProposal.Txs)
	}

	process := handle(t, store, &abci.Request{
		Kind:            abci.RequestKind_ProcessProposal,
		ProcessProposal: &abci.ProcessProposalRequest{Txs: txs, Height: 1},
	})
	if !process.ProcessProposal.Accept {
		t.Fatal("process proposal should accept")
	}

	// Proposals do not mutate committed state.
	if _, has := store.Get("a"); has {
		t.Fatal("proposal handling leaked into the store")
	}
}
