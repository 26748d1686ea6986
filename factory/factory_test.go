package factory

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

func newTestFactory() *Factory {
	f := New(jakarta)
	f.Now = func() time.Time { return time.Date(2024, 3, 10, 9, 30, 0, 0, jakarta) }
	n := 0
	f.NewID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return f
}

func TestEffectiveAt(t *testing.T) {
	f := newTestFactory()

	at, err := f.EffectiveAt("")
	require.NoError(t, err)
	assert.Equal(t, ledger.FromTime(f.Now()), at)

	at, err = f.EffectiveAt("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, ledger.FromTime(time.Date(2024, 3, 1, 23, 59, 59, 0, jakarta)), at)

	_, err = f.EffectiveAt("01/03/2024")
	var vErr *ledger.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "date", vErr.Field)
}

func TestNewItemPurchase(t *testing.T) {
	// GIVEN: a new item form
	// WHEN: building the purchase
	// THEN: a non-debit transaction with the fixed description and a fresh item

	f := newTestFactory()

	tx, err := f.NewItemPurchase(NewItemForm{
		Name: "Cincin", Weight: "2½ sk", Model: "Polos", Quantity: 3, Price: 1500000,
	}, nil, "Ani")
	require.NoError(t, err)

	assert.Equal(t, "id2", tx.ID)
	assert.Equal(t, NewItemDescription, tx.Description)
	assert.False(t, tx.Debit)
	assert.Equal(t, "Ani", tx.DoneBy)
	require.NotNil(t, tx.Data)
	assert.Equal(t, "id1", tx.Data.Item.ID)
	assert.Equal(t, tx.CreatedAt, tx.Data.Item.CreatedAt)
	assert.Equal(t, int64(3), tx.QuantityDelta())
	assert.Equal(t, int64(-1500000), tx.BalanceDelta())
}

func TestNewItemPurchase_Rejections(t *testing.T) {
	f := newTestFactory()
	existing := []ledger.Item{{ID: "i1", Name: "Cincin", Weight: "2 sk", Model: "Polos"}}

	_, err := f.NewItemPurchase(NewItemForm{Name: "Cincin", Weight: "2 sk", Model: "Polos", Quantity: 1}, existing, "Ani")
	var dupErr *ledger.DuplicateItemError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "i1", dupErr.Existing.ID)

	_, err = f.NewItemPurchase(NewItemForm{Name: "Kalung", Weight: "1 gram", Model: "Rantai", Quantity: 0}, nil, "Ani")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)
}

func TestNewItemPurchase_RequiresEveryField(t *testing.T) {
	tests := []struct {
		form  NewItemForm
		field string
	}{
		{NewItemForm{Name: "  ", Weight: "1 gram", Model: "Polos", Quantity: 1}, "name"},
		{NewItemForm{Name: "Cincin", Weight: "", Model: "Polos", Quantity: 1}, "weight"},
		{NewItemForm{Name: "Cincin", Weight: "1 gram", Model: " ", Quantity: 1}, "model"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := newTestFactory().NewItemPurchase(tt.form, nil, "Ani")
			var vErr *ledger.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.True(t, ledger.IsClientError(err))
		})
	}
}

func TestTrade(t *testing.T) {
	f := newTestFactory()
	ring := ledger.Item{ID: "i1", Name: "Cincin", Weight: "2 sk", Model: "Polos"}

	sale, err := f.Trade(ring, TradeForm{Quantity: 2, Price: 900, Description: "jual", Date: "2024-03-02"}, true, "Budi")
	require.NoError(t, err)
	assert.True(t, sale.Debit)
	assert.Equal(t, int64(-2), sale.QuantityDelta())
	assert.Equal(t, ring, sale.Data.Item)
	assert.Equal(t, ledger.FromTime(time.Date(2024, 3, 2, 23, 59, 59, 0, jakarta)), sale.CreatedAt)

	purchase, err := f.Trade(ring, TradeForm{Quantity: 1, Price: 400}, false, "Budi")
	require.NoError(t, err)
	assert.False(t, purchase.Debit)

	_, err = f.Trade(ring, TradeForm{Quantity: 1, Description: "a, b"}, true, "Budi")
	assert.ErrorIs(t, err, ledger.ErrCommaInDescription)
}

func TestCustom(t *testing.T) {
	f := newTestFactory()

	tx, err := f.Custom(CustomForm{Description: "modal awal", Price: 5000000, Debit: true}, "Ani")
	require.NoError(t, err)
	assert.Nil(t, tx.Data)
	assert.True(t, tx.Debit)
	assert.Equal(t, int64(5000000), tx.BalanceDelta())

	_, err = f.Custom(CustomForm{Price: -1}, "Ani")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)

	_, err = f.Custom(CustomForm{Description: "listrik", Date: "kemarin"}, "Ani")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)
}

func TestStoreCodes(t *testing.T) {
	f := newTestFactory()

	s, err := f.Store(" Toko Emas ", "ani")
	require.NoError(t, err)
	assert.Equal(t, "Toko Emas", s.Name)
	assert.Equal(t, "ani", s.Owner)
	assert.True(t, IsStoreCode(s.ID), s.ID)
	assert.Equal(t, strings.ToLower(s.ID), s.ID)

	_, err = f.Store("", "ani")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)

	assert.True(t, IsStoreCode("ID-AB12CD"))
	assert.False(t, IsStoreCode("id-abc"))
	assert.False(t, IsStoreCode("Toko Emas"))
	assert.NotEqual(t, NewStoreCode(), NewStoreCode())
}
