package abci

import "testing"

func TestCategoryOfCoversEveryKind(t *testing.T) {
	expected := map[RequestKind]Category{
		RequestKind_Echo:                CategoryInfo,
		RequestKind_Flush:               CategoryInfo,
		RequestKind_Info:                CategoryInfo,
		RequestKind_Query:               CategoryInfo,
		RequestKind_InitChain:           CategoryConsensus,
		RequestKind_PrepareProposal:     CategoryConsensus,
		RequestKind_ProcessProposal:     CategoryConsensus,
		RequestKind_ExtendVote:          CategoryConsensus,
		RequestKind_VerifyVoteExtension: CategoryConsensus,
		RequestKind_FinalizeBlock:       CategoryConsensus,
		RequestKind_Commit:              CategoryConsensus,
		RequestKind_CheckTx:             CategoryMempool,
		RequestKind_ListSnapshots:       CategorySnapshot,
		RequestKind_OfferSnapshot:       CategorySnapshot,
		RequestKind_LoadSnapshotChunk:   CategorySnapshot,
		RequestKind_ApplySnapshotChunk:  CategorySnapshot,
	}

	for kind := RequestKind_Echo; kind <= RequestKind_Commit; kind++ {
		want, has := expected[kind]
		if !has {
			t.Fatalf("test table is missing kind %s", kind)
		}

		got, err := CategoryOf(kind)
		if err != nil {
			t.Fatalf("CategoryOf(%s) failed: %v", kind, err)
		}
		if got != want {
			t.Fatalf("CategoryOf(%s) = %s, want %s", kind, got, want)
		}
	}
}

func TestCategoryOfIsIdempotent(t *testing.T) {
	for kind := RequestKind_Echo; kind <= RequestKind_Commit; kind++ {
		first, err1 := CategoryOf(kind)
		second, err2 := CategoryOf(kind)
		if err1 != nil || err2 != nil {
			t.Fatalf("CategoryOf(%s) failed: %v / %v", kind, err1, err2)
		}
		if first != second {
			t.Fatalf("CategoryOf(%s) is not stable: %s then %s", kind, first, second)
		}
	}
}

func TestCategoryOfRejectsUnknownKind(t *testing.T) {
	if _, err := CategoryOf(RequestKind_NONE); err == nil {
		t.Fatal("expected error for RequestKind_NONE")
	}
	if _, err := CategoryOf(RequestKind(200)); err == nil {
		t.Fatal("expected error for out of range kind")
	}
}

func TestCategoryPriorityOrder(t *testing.T) {
	// The numeric order of the category constants is the scheduling
	// priority; the dispatch engine depends on it.
	if !(CategoryConsensus < CategoryMempool &&
		CategoryMempool < CategorySnapshot &&
		CategorySnapshot < CategoryInfo) {
		t.Fatal("category constants are not declared in priority order")
	}
	if NumCategories != 4 {
		t.Fatalf("NumCategories = %d, want 4", NumCategories)
	}
}
