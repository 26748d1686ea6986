/*
Package report turns a store's transaction log into a CSV document.

PURPOSE:
  The export is meant to be audited by hand in a spreadsheet. Each ledger row
  shows the item's stock before and after the transaction and the running
  money total, so every number can be traced back to the row that changed it.

LAYOUT (fixed order):
  1. Ledger header + one row per transaction, oldest first
  2. DATA SALDO         - opening / closing balance (only when requested)
  3. DATA BARANG        - every item with opening and closing stock and weight
  4. TOTAL BERAT ...    - total weight per unit across all items

UNKNOWN STOCK:
  A transaction whose item is not in the opening inventory has no known
  previous stock. Its STOK LAMA / STOK BARU cells are left empty and the
  running inventory is not touched; later rows continue normally.

SEE ALSO:
  - export.go: Selecting transactions for a date range and naming the file
  - ledger/snapshot.go: OpeningSnapshot
  - weight/weight.go: TOTAL BERAT parsing
*/
package report

import (
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/weight"
)

// Column and section labels.
var (
	LedgerHeader = []string{
		"TANGGAL", "JENIS TRANSAKSI", "DESKRIPSI", "NAMA", "BERAT", "MODEL",
		"STOK LAMA", "STOK BARU", "MUTASI STOK", "DEBIT", "KREDIT", "TOTAL MUTASI",
	}
	BalanceHeader = []string{"SALDO AWAL", "SALDO AKHIR"}
	ItemHeader    = []string{"NAMA", "BERAT", "MODEL", "STOK LAMA", "STOK BARU", "TOTAL BERAT"}
)

const (
	BalanceTitle     = "DATA SALDO"
	ItemTitle        = "DATA BARANG"
	PartialWarning   = "HIRAUKAN JIKA TIDAK MEMILIH SEMUA"
	WeightTotalTitle = "TOTAL BERAT SELURUH BARANG"

	LabelIncome  = "Pendapatan"
	LabelExpense = "Pengeluaran"
)

// Options controls rendering.
type Options struct {
	// Location for the TANGGAL column. Defaults to UTC.
	Location *time.Location
}

// Generate renders the report.
//
// txs may be in any order; rows are replayed oldest first. opening is the
// inventory before the first row and is not modified. openingBalance, when
// non-nil, adds the DATA SALDO section.
func Generate(txs []ledger.Transaction, opening ledger.Inventory, openingBalance *ledger.Balance, opts Options) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	write := func(record ...string) { _ = w.Write(record) }

	write(LedgerHeader...)

	running := opening.Clone()
	var total int64
	for _, tx := range ledger.SortChronological(txs) {
		var name, wt, model, before, after, mutation string
		if tx.Data != nil {
			name, wt, model = tx.Data.Item.Name, tx.Data.Item.Weight, tx.Data.Item.Model
			mutation = strconv.FormatInt(tx.Data.Quantity, 10)

			if s, ok := running[tx.Data.Item.ID]; ok {
				next := s.Quantity + tx.QuantityDelta()
				before = strconv.FormatInt(s.Quantity, 10)
				after = strconv.FormatInt(next, 10)
				running[tx.Data.Item.ID] = ledger.Stock{Item: tx.Data.Item, Quantity: next}
			}
		}

		total += tx.BalanceDelta()

		kind, debit, credit := LabelExpense, "", FormatMoney(tx.Price)
		if tx.Debit {
			kind, debit, credit = LabelIncome, FormatMoney(tx.Price), ""
		}

		write(
			FormatDate(tx.CreatedAt, opts.Location), kind, tx.Description,
			name, wt, model, before, after, mutation,
			debit, credit, FormatMoney(total),
		)
	}

	if openingBalance != nil {
		open := int64(*openingBalance)
		write("")
		write(BalanceTitle)
		write(BalanceHeader...)
		write(FormatMoney(open), FormatMoney(open+total))
	}

	write("")
	write(PartialWarning)
	write(ItemTitle)
	write(ItemHeader...)

	var totals weight.Totals
	for _, s := range sortForSummary(opening) {
		closing := running[s.Item.ID].Quantity
		cell := ""
		if wt, ok := weight.Total(s.Item.Weight, closing); ok {
			totals.Add(wt)
			cell = wt.String()
		}
		write(
			s.Item.Name, s.Item.Weight, s.Item.Model,
			strconv.FormatInt(s.Quantity, 10), strconv.FormatInt(closing, 10), cell,
		)
	}

	write("")
	write(WeightTotalTitle)
	for _, wt := range totals.Weights() {
		write(wt.String())
	}

	w.Flush()
	return b.String()
}

// sortForSummary orders stocks by name+weight+model, lower-cased with all
// whitespace removed, using Indonesian collation.
func sortForSummary(inv ledger.Inventory) []ledger.Stock {
	stocks := inv.Stocks()
	keys := make(map[string]string, len(stocks))
	for _, s := range stocks {
		keys[s.Item.ID] = summaryKey(s.Item)
	}

	c := collate.New(language.Indonesian)
	sort.SliceStable(stocks, func(i, j int) bool {
		return c.CompareString(keys[stocks[i].Item.ID], keys[stocks[j].Item.ID]) < 0
	})
	return stocks
}

func summaryKey(it ledger.Item) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, it.Name+it.Weight+it.Model))
}
