package buffer

import (
	goerrs "errors"
	"fmt"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

var (
	// ErrEngineClosed resolves every queue slot that was still pending when
	// the engine shut down, and fails every send attempted afterwards.
	ErrEngineClosed = goerrs.New("dispatch engine closed")

	// ErrQueueFull is returned by TrySend when the category queue has no
	// space. Blocking sends never see it - they suspend instead.
	ErrQueueFull = goerrs.New("category queue full")
)

type CategoryMismatchError struct {
	HandleCategory  abci.Category
	RequestKind     abci.RequestKind
	RequestCategory abci.Category
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("Request kind %s belongs to category %s, not %s", e.RequestKind, e.RequestCategory, e.HandleCategory)
}

type KindMismatchError struct {
	Requested abci.RequestKind
	Produced  abci.RequestKind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("Application produced a %s response for a %s request", e.Produced, e.Requested)
}

type NilResponseError struct {
	Requested abci.RequestKind
}

func (e *NilResponseError) Error() string {
	return fmt.Sprintf("Application produced no response and no error for a %s request", e.Requested)
}
