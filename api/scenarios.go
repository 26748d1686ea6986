/*
scenarios.go - Demo store seeding

PURPOSE:
  Creates a store filled with realistic-looking random history so the web
  client and exports can be tried without typing data in. Names, models,
  quantities and prices come from gofakeit; a fixed seed reproduces the
  same store contents (ids aside).

HOW THE DEMO IS BUILT:
 1. Create a store owned by the caller
 2. Buy every demo item once, spread over the last 30 days
 3. Add random buys, sells (never below zero stock) and custom entries

USAGE VIA API:

	POST /api/scenarios/demo
	{"items": 5, "transactions": 20, "seed": 42}

SEE ALSO:
  - factory/factory.go: Builders used for every record
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warp/store-ledger/factory"
	"github.com/warp/store-ledger/ledger"
)

// =============================================================================
// DEMO DEFINITIONS
// =============================================================================

const (
	defaultDemoItems        = 5
	defaultDemoTransactions = 20
	maxDemoItems            = 50
	maxDemoTransactions     = 500
	demoDays                = 30
)

var (
	demoNames   = []string{"Cincin", "Gelang", "Kalung", "Anting", "Liontin", "Bros"}
	demoWeights = []string{"1 gram", "2.5 gram", "0.5 gr", "½ suku", "1¼ sk", "3 gram", "1 suku"}
	demoCustoms = []string{"Bayar listrik", "Gaji karyawan", "Sewa toko", "Jasa reparasi", "Ongkos kirim"}
)

// LoadDemo seeds a demo store owned by the caller.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req DemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := SeedDemo(r.Context(), h.Service, h.Factory, user, req, h.Now())
	if err != nil {
		h.handleError(w, "Gagal membuat toko demo", err)
		return
	}
	h.Logger.Info().Str("store", resp.Store.ID).Int("transactions", resp.Transactions).Msg("demo store seeded")
	h.success("Toko demo " + resp.Store.Name + " berhasil dibuat")
	writeJSON(w, http.StatusCreated, resp)
}

// SeedDemo creates a store for owner and fills it with random history ending
// at now.
func SeedDemo(ctx context.Context, svc *ledger.Service, f *factory.Factory, owner string, req DemoRequest, now time.Time) (DemoResponse, error) {
	req = normalizeDemo(req, now)
	fake := gofakeit.New(req.Seed)
	modelCase := cases.Title(language.Indonesian)

	store, err := f.Store("Toko "+fake.Company(), owner)
	if err != nil {
		return DemoResponse{}, err
	}
	if err := svc.CreateStore(ctx, store); err != nil {
		return DemoResponse{}, fmt.Errorf("create demo store: %w", err)
	}

	start := now.AddDate(0, 0, -demoDays)
	day := func(offset int) string {
		return start.AddDate(0, 0, offset).Format(factory.DateLayout)
	}

	var (
		items    []ledger.Item
		stock    = make(map[string]int64)
		recorded int
	)

	for i := 0; i < req.Items; i++ {
		form := factory.NewItemForm{
			Name:     fake.RandomString(demoNames),
			Weight:   fake.RandomString(demoWeights),
			Model:    modelCase.String(fake.Noun()),
			Quantity: int64(fake.Number(5, 20)),
			Price:    int64(fake.Number(10, 200)) * 10_000,
			Date:     day(i * demoDays / (2 * req.Items)),
		}
		tx, err := f.NewItemPurchase(form, items, owner)
		var dup *ledger.DuplicateItemError
		if errors.As(err, &dup) {
			continue
		}
		if err != nil {
			return DemoResponse{}, err
		}
		if err := svc.Record(ctx, store.ID, tx); err != nil {
			return DemoResponse{}, err
		}
		items = append(items, tx.Data.Item)
		stock[tx.Data.Item.ID] = tx.Data.Quantity
		recorded++
	}

	for i := 0; i < req.Transactions; i++ {
		date := day(demoDays/2 + i*(demoDays/2)/req.Transactions)
		tx, err := demoTransaction(fake, f, items, stock, date, owner)
		if err != nil {
			return DemoResponse{}, err
		}
		if err := svc.Record(ctx, store.ID, tx); err != nil {
			return DemoResponse{}, err
		}
		if tx.Data != nil {
			stock[tx.Data.Item.ID] += tx.QuantityDelta()
		}
		recorded++
	}

	return DemoResponse{Store: toStoreDTO(store), Items: len(items), Transactions: recorded}, nil
}

func demoTransaction(fake *gofakeit.Faker, f *factory.Factory, items []ledger.Item, stock map[string]int64, date, owner string) (ledger.Transaction, error) {
	if len(items) == 0 || fake.Number(1, 4) == 1 {
		return f.Custom(factory.CustomForm{
			Description: fake.RandomString(demoCustoms),
			Price:       int64(fake.Number(5, 100)) * 5_000,
			Debit:       fake.Bool(),
			Date:        date,
		}, owner)
	}

	item := items[fake.Number(0, len(items)-1)]
	sell := stock[item.ID] > 0 && fake.Bool()
	qty := int64(fake.Number(1, 5))
	desc := "Pembelian " + item.Name
	if sell {
		if qty > stock[item.ID] {
			qty = stock[item.ID]
		}
		desc = "Penjualan " + item.Name
	}
	return f.Trade(item, factory.TradeForm{
		Quantity:    qty,
		Price:       qty * int64(fake.Number(10, 250)) * 10_000,
		Description: desc,
		Date:        date,
	}, sell, owner)
}

func normalizeDemo(req DemoRequest, now time.Time) DemoRequest {
	if req.Items <= 0 {
		req.Items = defaultDemoItems
	}
	if req.Items > maxDemoItems {
		req.Items = maxDemoItems
	}
	if req.Transactions <= 0 {
		req.Transactions = defaultDemoTransactions
	}
	if req.Transactions > maxDemoTransactions {
		req.Transactions = maxDemoTransactions
	}
	if req.Seed == 0 {
		req.Seed = now.UnixNano()
	}
	return req
}
