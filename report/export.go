package report

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/store-ledger/ledger"
)

// Kind selects which transactions an export contains.
type Kind string

const (
	KindAll     Kind = "all"
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ParseKind reads a kind from a query value. Empty means KindAll.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAll:
		return KindAll, nil
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

func (k Kind) keep(tx ledger.Transaction) bool {
	switch k {
	case KindIncome:
		return tx.Debit
	case KindExpense:
		return !tx.Debit
	}
	return true
}

// ExportRequest describes one export of a store's history.
type ExportRequest struct {
	Store ledger.Store

	// Transactions is the store's full history, in any order.
	Transactions []ledger.Transaction

	// Start and End are calendar days. A nil Start means "from the first
	// transaction"; a nil End means Now. End is extended to 23:59:59.
	Start *time.Time
	End   *time.Time

	Kind     Kind
	Now      time.Time
	Location *time.Location
}

// Document is a rendered export.
type Document struct {
	Filename string
	Body     string

	// Rows is the number of ledger rows in Body.
	Rows int
}

// Export selects the transactions in the requested window, computes the
// opening snapshot from the full history and renders the CSV document.
//
// The opening snapshot is taken at the oldest transaction in the window
// regardless of Kind, so income-only and expense-only exports report the
// same STOK LAMA as the full export.
func Export(req ExportRequest) Document {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var window ledger.Range
	if req.Start != nil {
		s := ledger.FromTime(startOfDay(req.Start.In(loc)))
		window.Start = &s
	}
	end := now
	if req.End != nil {
		end = ledger.EndOfDay(req.End.In(loc))
	}
	e := ledger.FromTime(end)
	window.End = &e

	inWindow := window.Select(ledger.SortChronological(req.Transactions))
	opening := ledger.OpeningSnapshot(req.Transactions, inWindow)

	var selected []ledger.Transaction
	for _, tx := range inWindow {
		if req.Kind.keep(tx) {
			selected = append(selected, tx)
		}
	}

	var balance *ledger.Balance
	if req.Kind == KindAll || req.Kind == "" {
		b := opening.Balance
		balance = &b
	}

	var startTS ledger.Timestamp
	switch {
	case window.Start != nil:
		startTS = *window.Start
	case len(inWindow) > 0:
		startTS = inWindow[0].CreatedAt
	}
	startLabel := FormatDate(startTS, loc)
	endLabel := FormatDate(e, loc)

	var body strings.Builder
	w := csv.NewWriter(&body)
	_ = w.WriteAll([][]string{
		{"Transaksi toko " + req.Store.Name},
		{"Dari tanggal " + startLabel + " sampai " + endLabel},
		{""},
	})
	body.WriteString(Generate(selected, opening.Inventory, balance, Options{Location: loc}))

	return Document{
		Filename: Filename(req.Store.Name, startLabel, endLabel, now),
		Body:     body.String(),
		Rows:     len(selected),
	}
}

var filenameReplacer = strings.NewReplacer(" ", "-", "/", "-", "\\", "-")

// Filename builds "<store-name>-transaksi-<start>-<end>-<unix-ms>.csv" with
// spaces and path separators in the store name turned into hyphens and the
// name lower-cased.
func Filename(storeName, start, end string, now time.Time) string {
	name := strings.ToLower(filenameReplacer.Replace(storeName))
	return name + "-transaksi-" + start + "-" + end + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ".csv"
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
