/*
Package factory builds stores and transactions from user input.

PURPOSE:
  Forms submitted by the HTTP layer carry only what a user types: a name, a
  quantity, a price, maybe a date. The factory fills in everything else
  (ids, timestamps, descriptions, the debit flag) and validates the result,
  so handlers never assemble a ledger.Transaction by hand.

JSON FORMS:
  new item   {"name":"Cincin","weight":"2½ sk","model":"Polos","quantity":3,"price":1500000,"date":"2024-03-01"}
  trade      {"quantity":1,"price":900000,"description":"jual ke Bu Ani","date":""}
  custom     {"description":"listrik","price":250000,"debit":false}

DATES:
  "date" is optional, formatted YYYY-MM-DD. A transaction back-dated to a day
  is stamped 23:59:59 of that day in the factory's location, so it sorts
  after everything else recorded on that day. Without a date it is stamped now.

STORE CODES:
  A store id doubles as its join code: "id-" followed by six lowercase
  alphanumerics. Input that looks like a code joins; anything else creates.

SEE ALSO:
  - ledger/validate.go: Validate
  - api/handlers.go: Form decoding
*/
package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/store-ledger/ledger"
)

// NewItemDescription is the fixed description of a first purchase.
const NewItemDescription = "Pembelian barang baru"

// DateLayout is the accepted form date format.
const DateLayout = "2006-01-02"

const (
	codePrefix   = "id-"
	codeLength   = 6
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// =============================================================================
// FORM TYPES
// =============================================================================

// NewItemForm creates an item by purchasing it for the first time.
type NewItemForm struct {
	Name     string `json:"name"`
	Weight   string `json:"weight"`
	Model    string `json:"model"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Date     string `json:"date,omitempty"`
}

// TradeForm buys or sells more of an existing item.
type TradeForm struct {
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

// CustomForm records income or expense unrelated to stock.
type CustomForm struct {
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Debit       bool   `json:"debit"`
	Date        string `json:"date,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts forms into ledger records.
type Factory struct {
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
}

// New creates a factory stamping dates in loc.
func New(loc *time.Location) *Factory {
	if loc == nil {
		loc = time.UTC
	}
	return &Factory{
		Location: loc,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// EffectiveAt resolves an optional form date.
func (f *Factory) EffectiveAt(date string) (ledger.Timestamp, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return ledger.FromTime(f.Now()), nil
	}
	day, err := time.ParseInLocation(DateLayout, date, f.Location)
	if err != nil {
		return 0, &ledger.ValidationError{Field: "date", Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", date)}
	}
	return ledger.FromTime(ledger.EndOfDay(day)), nil
}

// NewItemPurchase builds the first purchase of a new item. existing is the
// store's current item list; an item with the same name, weight and model
// is rejected with a *ledger.DuplicateItemError.
func (f *Factory) NewItemPurchase(form NewItemForm, existing []ledger.Item, doneBy string) (ledger.Transaction, error) {
	if err := ledger.RequireItemFields(form.Name, form.Weight, form.Model); err != nil {
		return ledger.Transaction{}, err
	}

	it := ledger.Item{Name: form.Name, Weight: form.Weight, Model: form.Model}
	for _, e := range existing {
		if e.SameAttributes(it) {
			return ledger.Transaction{}, &ledger.DuplicateItemError{Existing: e}
		}
	}

	at, err := f.EffectiveAt(form.Date)
	if err != nil {
		return ledger.Transaction{}, err
	}
	it.ID = f.NewID()
	it.CreatedAt = at

	tx := ledger.Transaction{
		ID:          f.NewID(),
		CreatedAt:   at,
		Data:        &ledger.TransactionData{Item: it, Quantity: form.Quantity},
		Description: NewItemDescription,
		Price:       form.Price,
		Debit:       false,
		DoneBy:      doneBy,
	}
	return tx, ledger.Validate(tx)
}

// Trade builds a purchase (sell == false) or sale (sell == true) of item.
func (f *Factory) Trade(item ledger.Item, form TradeForm, sell bool, doneBy string) (ledger.Transaction, error) {
	at, err := f.EffectiveAt(form.Date)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx := ledger.Transaction{
		ID:          f.NewID(),
		CreatedAt:   at,
		Data:        &ledger.TransactionData{Item: item, Quantity: form.Quantity},
		Description: form.Description,
		Price:       form.Price,
		Debit:       sell,
		DoneBy:      doneBy,
	}
	return tx, ledger.Validate(tx)
}

// Custom builds a transaction without stock movement.
func (f *Factory) Custom(form CustomForm, doneBy string) (ledger.Transaction, error) {
	at, err := f.EffectiveAt(form.Date)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx := ledger.Transaction{
		ID:          f.NewID(),
		CreatedAt:   at,
		Description: form.Description,
		Price:       form.Price,
		Debit:       form.Debit,
		DoneBy:      doneBy,
	}
	return tx, ledger.Validate(tx)
}

// =============================================================================
// STORES
// =============================================================================

// Store builds a new store owned by owner with a fresh join code.
func (f *Factory) Store(name, owner string) (ledger.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Store{}, &ledger.ValidationError{Field: "name", Message: "required"}
	}
	return ledger.Store{
		ID:        NewStoreCode(),
		CreatedAt: ledger.FromTime(f.Now()),
		Name:      name,
		Owner:     owner,
	}, nil
}

// NewStoreCode returns "id-" followed by six random lowercase alphanumerics.
func NewStoreCode() string {
	raw := uuid.New()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[int(raw[i])%len(codeAlphabet)]
	}
	return codePrefix + string(b)
}

// IsStoreCode reports whether input should be treated as a join code rather
// than a new store name.
func IsStoreCode(input string) bool {
	return len(input) == len(codePrefix)+codeLength && strings.HasPrefix(strings.ToLower(input), codePrefix)
}
