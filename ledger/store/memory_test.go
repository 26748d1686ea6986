package store_test

import (
	"testing"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/ledger/store"
	"github.com/warp/store-ledger/ledger/storetest"
)

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Repository {
		return store.NewMemory()
	})
}
