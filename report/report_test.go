package report_test

import (
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/report"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func tx(id string, at time.Time, it *ledger.Item, qty int64, price int64, debit bool, desc string) ledger.Transaction {
	t := ledger.Transaction{
		ID:          id,
		CreatedAt:   ledger.FromTime(at),
		Description: desc,
		Price:       price,
		Debit:       debit,
	}
	if it != nil {
		t.Data = &ledger.TransactionData{Item: *it, Quantity: qty}
	}
	return t
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// =============================================================================
// FORMATTERS
// =============================================================================

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{1000, "Rp 1.000"},
		{1500000, "Rp 1.500.000"},
		{123456789, "Rp 123.456.789"},
		{-500, "-Rp 500"},
		{-1000, "-Rp 1.000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, report.FormatMoney(tt.in))
		})
	}
}

func TestDisplayMoney_IndonesianGrouping(t *testing.T) {
	assert.Equal(t, "Rp 1.500.000,00", report.DisplayMoney(1500000))
	assert.Equal(t, "-Rp 2.000,00", report.DisplayMoney(-2000))
	assert.Equal(t, "Rp 0,00", report.DisplayMoney(0))
}

func TestFormatDateAndTime(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	ts := ledger.FromTime(time.Date(2024, 3, 1, 20, 5, 0, 0, time.UTC))

	assert.Equal(t, "01.03.2024", report.FormatDate(ts, time.UTC))
	assert.Equal(t, "02.03.2024", report.FormatDate(ts, jakarta))
	assert.Equal(t, "03:05", report.FormatTime(ts, jakarta))
	assert.Equal(t, "01.01.1970", report.FormatDate(0, nil))
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_PurchaseThenSale(t *testing.T) {
	// GIVEN: a purchase of 5 and a sale of 2 of the same item, which opens at 0
	// WHEN: generating the report
	// THEN: stock goes 0->5->3, TOTAL MUTASI -1000 then -500, summary shows 3 gram

	a := ledger.Item{ID: "i1", Name: "A", Weight: "1 gram", Model: "X"}
	txs := []ledger.Transaction{
		{ID: "t2", CreatedAt: 2000, Data: &ledger.TransactionData{Item: a, Quantity: 2}, Price: 500, Debit: true, Description: "sell"},
		{ID: "t1", CreatedAt: 1000, Data: &ledger.TransactionData{Item: a, Quantity: 5}, Price: 1000, Debit: false, Description: "buy"},
	}
	opening := ledger.Inventory{"i1": {Item: a}}

	got := report.Generate(txs, opening, nil, report.Options{})

	want := strings.Join([]string{
		"TANGGAL,JENIS TRANSAKSI,DESKRIPSI,NAMA,BERAT,MODEL,STOK LAMA,STOK BARU,MUTASI STOK,DEBIT,KREDIT,TOTAL MUTASI",
		"01.01.1970,Pengeluaran,buy,A,1 gram,X,0,5,5,,Rp 1.000,-Rp 1.000",
		"01.01.1970,Pendapatan,sell,A,1 gram,X,5,3,2,Rp 500,,-Rp 500",
		"",
		"HIRAUKAN JIKA TIDAK MEMILIH SEMUA",
		"DATA BARANG",
		"NAMA,BERAT,MODEL,STOK LAMA,STOK BARU,TOTAL BERAT",
		"A,1 gram,X,0,3,3 gram",
		"",
		"TOTAL BERAT SELURUH BARANG",
		"3 gram",
	}, "\n") + "\n"
	assert.Equal(t, want, got)

	assert.Equal(t, int64(0), opening["i1"].Quantity, "opening inventory is not modified")
}

func TestGenerate_UnknownItemLeavesStockEmpty(t *testing.T) {
	// GIVEN: an empty opening inventory
	// WHEN: a transaction references an item
	// THEN: STOK LAMA/STOK BARU are empty, MUTASI STOK is still filled

	a := ledger.Item{ID: "i1", Name: "A", Weight: "1 gram", Model: "X"}
	txs := []ledger.Transaction{
		{ID: "t1", CreatedAt: 1000, Data: &ledger.TransactionData{Item: a, Quantity: 5}, Price: 1000},
	}

	rows := lines(report.Generate(txs, ledger.Inventory{}, nil, report.Options{}))

	assert.Equal(t, "01.01.1970,Pengeluaran,,A,1 gram,X,,,5,,Rp 1.000,-Rp 1.000", rows[1])
	assert.Equal(t, "NAMA,BERAT,MODEL,STOK LAMA,STOK BARU,TOTAL BERAT", rows[5])
	assert.Equal(t, "", rows[6])
	assert.Equal(t, "TOTAL BERAT SELURUH BARANG", rows[7])
	assert.Len(t, rows, 8)
}

func TestGenerate_CustomTransactionsAndBalance(t *testing.T) {
	txs := []ledger.Transaction{
		{ID: "t1", CreatedAt: 1000, Price: 2500, Debit: true, Description: "modal"},
		{ID: "t2", CreatedAt: 2000, Price: 700, Description: "listrik"},
	}
	opening := ledger.Balance(10000)

	rows := lines(report.Generate(txs, ledger.Inventory{}, &opening, report.Options{}))

	assert.Equal(t, "01.01.1970,Pendapatan,modal,,,,,,,Rp 2.500,,Rp 2.500", rows[1])
	assert.Equal(t, "01.01.1970,Pengeluaran,listrik,,,,,,,,Rp 700,Rp 1.800", rows[2])
	assert.Equal(t, []string{"", "DATA SALDO", "SALDO AWAL,SALDO AKHIR", "Rp 10.000,Rp 11.800"}, rows[3:7])
	assert.Equal(t, "HIRAUKAN JIKA TIDAK MEMILIH SEMUA", rows[8])
}

func TestGenerate_ItemSummarySortedAndTotalledPerUnit(t *testing.T) {
	kalung := ledger.Item{ID: "k", Name: "Kalung", Weight: "2½ sk", Model: "Rantai"}
	anting := ledger.Item{ID: "a", Name: "anting", Weight: "3 gram", Model: "Bulat"}
	cincin := ledger.Item{ID: "c", Name: "Cincin", Weight: "1 sk", Model: "Polos"}
	tanpa := ledger.Item{ID: "z", Name: "Bros", Weight: "sebuah", Model: "Bunga"}
	opening := ledger.Inventory{
		"k": {Item: kalung, Quantity: 2},
		"a": {Item: anting, Quantity: 1},
		"c": {Item: cincin, Quantity: 4},
		"z": {Item: tanpa, Quantity: 1},
	}

	rows := lines(report.Generate(nil, opening, nil, report.Options{}))

	require.Len(t, rows, 13)
	assert.Equal(t, []string{
		"anting,3 gram,Bulat,1,1,3 gram",
		"Bros,sebuah,Bunga,1,1,",
		"Cincin,1 sk,Polos,4,4,4 sk",
		"Kalung,2½ sk,Rantai,2,2,5 sk",
	}, rows[5:9])
	assert.Equal(t, "TOTAL BERAT SELURUH BARANG", rows[10])
	// units in the order the sorted rows first produced them
	assert.Equal(t, []string{"3 gram", "9 sk"}, rows[11:13])
}

func TestGenerate_QuotesFieldsWithSeparators(t *testing.T) {
	it := ledger.Item{ID: "i1", Name: "Cincin, besar", Weight: "1 gram", Model: "X"}
	opening := ledger.Inventory{"i1": {Item: it}}

	got := report.Generate(nil, opening, nil, report.Options{})

	assert.Contains(t, got, "\"Cincin, besar\",1 gram,X,0,0,0 gram")
}

func TestGenerate_RunningItemFollowsLatestSnapshot(t *testing.T) {
	old := ledger.Item{ID: "i1", Name: "A", Weight: "1 gram", Model: "X"}
	renamed := ledger.Item{ID: "i1", Name: "A2", Weight: "1 gram", Model: "X"}
	txs := []ledger.Transaction{
		{ID: "t1", CreatedAt: 1000, Data: &ledger.TransactionData{Item: renamed, Quantity: 1}, Price: 10},
	}
	opening := ledger.Inventory{"i1": {Item: old, Quantity: 2}}

	rows := lines(report.Generate(txs, opening, nil, report.Options{}))

	assert.Equal(t, "01.01.1970,Pengeluaran,,A2,1 gram,X,2,3,1,,Rp 10,-Rp 10", rows[1])
	// the summary lists the opening snapshot of the item
	assert.Equal(t, "A,1 gram,X,2,3,3 gram", rows[6])
}

// =============================================================================
// EXPORT
// =============================================================================

func exportFixture() (ledger.Store, []ledger.Transaction, time.Time) {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	ring := ledger.Item{ID: "i1", Name: "Cincin", Weight: "2 gram", Model: "Polos"}
	chain := ledger.Item{ID: "i2", Name: "Kalung", Weight: "1 sk", Model: "Rantai"}

	txs := []ledger.Transaction{
		tx("t3", day(3, 9), &chain, 1, 200, false, "Pembelian barang baru"),
		tx("t0", day(1, 10), &ring, 10, 1000, false, "Pembelian barang baru"),
		tx("t1", day(2, 8), &ring, 2, 300, true, "jual"),
		tx("t2", day(2, 15), nil, 0, 50, false, "listrik"),
		tx("t4", day(5, 9), &ring, 1, 100, true, "setelah rentang"),
	}
	store := ledger.Store{ID: "id-abc123", Name: "Toko Emas Ani"}
	return store, txs, day(6, 12)
}

func TestExport_AllWithBalance(t *testing.T) {
	// GIVEN: history before, inside, and after a 2-3 March window
	// WHEN: exporting everything in the window
	// THEN: the title names the window, the opening balance covers 1 March and
	//       an item first bought inside the window opens at 0

	store, txs, now := exportFixture()
	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	doc := report.Export(report.ExportRequest{
		Store: store, Transactions: txs, Start: &start, End: &end,
		Kind: report.KindAll, Now: now, Location: time.UTC,
	})

	assert.Equal(t, 3, doc.Rows)
	assert.Equal(t, "toko-emas-ani-transaksi-02.03.2024-03.03.2024-"+strconv.FormatInt(now.UnixMilli(), 10)+".csv", doc.Filename)

	rows := lines(doc.Body)
	assert.Equal(t, "Transaksi toko Toko Emas Ani", rows[0])
	assert.Equal(t, "Dari tanggal 02.03.2024 sampai 03.03.2024", rows[1])
	assert.Equal(t, "", rows[2])
	assert.Equal(t, report.LedgerHeader, strings.Split(rows[3], ","))
	assert.Equal(t, "02.03.2024,Pendapatan,jual,Cincin,2 gram,Polos,10,8,2,Rp 300,,Rp 300", rows[4])
	assert.Equal(t, "02.03.2024,Pengeluaran,listrik,,,,,,,,Rp 50,Rp 250", rows[5])
	assert.Equal(t, "03.03.2024,Pengeluaran,Pembelian barang baru,Kalung,1 sk,Rantai,0,1,1,,Rp 200,Rp 50", rows[6])
	assert.Equal(t, "-Rp 1.000,-Rp 950", rows[10])
	assert.NotContains(t, doc.Body, "setelah rentang")
}

func TestExport_KindsShareOpeningStock(t *testing.T) {
	store, txs, now := exportFixture()
	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	req := report.ExportRequest{
		Store: store, Transactions: txs, Start: &start, End: &end,
		Now: now, Location: time.UTC,
	}

	req.Kind = report.KindIncome
	income := report.Export(req)
	assert.Equal(t, 1, income.Rows)
	assert.NotContains(t, income.Body, "DATA SALDO")
	assert.Contains(t, income.Body, "Cincin,2 gram,Polos,10,8,2,Rp 300,,Rp 300")

	req.Kind = report.KindExpense
	expense := report.Export(req)
	assert.Equal(t, 2, expense.Rows)
	assert.NotContains(t, expense.Body, "Pendapatan")
	// the sale is excluded, so Cincin still closes at 10
	assert.Contains(t, expense.Body, "Cincin,2 gram,Polos,10,10,20 gram")
}

func TestExport_DefaultsToWholeHistoryUntilNow(t *testing.T) {
	store, txs, now := exportFixture()

	doc := report.Export(report.ExportRequest{Store: store, Transactions: txs, Now: now, Location: time.UTC})

	assert.Equal(t, 5, doc.Rows)
	rows := lines(doc.Body)
	assert.Equal(t, "Dari tanggal 01.03.2024 sampai 06.03.2024", rows[1])
	assert.Contains(t, doc.Body, "SALDO AWAL,SALDO AKHIR\nRp 0,-Rp 850\n")
}

func TestExport_TitleQuotesStoreName(t *testing.T) {
	// GIVEN: a store name with a comma and a quote
	store, txs, now := exportFixture()
	store.Name = `Toko "Emas", Jaya`

	// WHEN: exporting
	doc := report.Export(report.ExportRequest{Store: store, Transactions: txs, Now: now, Location: time.UTC})

	// THEN: the title stays one quoted cell and the document parses as CSV
	assert.Equal(t, `"Transaksi toko Toko ""Emas"", Jaya"`, lines(doc.Body)[0])

	r := csv.NewReader(strings.NewReader(doc.Body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{`Transaksi toko Toko "Emas", Jaya`}, records[0])
	assert.Equal(t, report.LedgerHeader, records[2])
}

func TestParseKind(t *testing.T) {
	k, err := report.ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, report.KindAll, k)

	k, err = report.ParseKind("Income")
	require.NoError(t, err)
	assert.Equal(t, report.KindIncome, k)

	_, err = report.ParseKind("refund")
	assert.Error(t, err)
}
