/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract: money is returned both as
  a raw integer and as an Indonesian display string, timestamps both as epoch
  milliseconds and as local date/time labels.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

  Form bodies for writes reuse factory.NewItemForm, factory.TradeForm and
  factory.CustomForm directly.

VALIDATION:
  Validation is done by the factory and ledger.Validate, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: Form types
*/
package api

import (
	"time"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/report"
	"github.com/warp/store-ledger/weight"
)

// =============================================================================
// STORES
// =============================================================================

// StoreDTO represents a store. ID doubles as the join code.
type StoreDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	CreatedAt int64  `json:"createdAt"`
}

// StoreInputRequest creates a store from a name or joins one by code.
type StoreInputRequest struct {
	Input string `json:"input"`
}

func toStoreDTO(s ledger.Store) StoreDTO {
	return StoreDTO{ID: s.ID, Name: s.Name, Owner: s.Owner, CreatedAt: int64(s.CreatedAt)}
}

func toStoreDTOs(stores []ledger.Store) []StoreDTO {
	out := make([]StoreDTO, len(stores))
	for i, s := range stores {
		out[i] = toStoreDTO(s)
	}
	return out
}

// =============================================================================
// INVENTORY
// =============================================================================

// StockDTO is one inventory row.
type StockDTO struct {
	Item     ledger.Item `json:"item"`
	Quantity int64       `json:"quantity"`

	// TotalWeight is weight x quantity, empty when the weight is unparseable.
	TotalWeight string `json:"totalWeight"`
}

// InventoryDTO is the derived state of a store.
type InventoryDTO struct {
	StoreID        string     `json:"storeId"`
	Stocks         []StockDTO `json:"stocks"`
	Balance        int64      `json:"balance"`
	BalanceDisplay string     `json:"balanceDisplay"`
}

func toInventoryDTO(storeID string, inv ledger.Inventory, balance ledger.Balance) InventoryDTO {
	stocks := inv.Stocks()
	dtos := make([]StockDTO, len(stocks))
	for i, s := range stocks {
		dtos[i] = StockDTO{Item: s.Item, Quantity: s.Quantity}
		if w, ok := weight.Total(s.Item.Weight, s.Quantity); ok {
			dtos[i].TotalWeight = w.String()
		}
	}
	return InventoryDTO{
		StoreID:        storeID,
		Stocks:         dtos,
		Balance:        int64(balance),
		BalanceDisplay: report.DisplayMoney(int64(balance)),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID           string       `json:"id"`
	CreatedAt    int64        `json:"createdAt"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	Item         *ledger.Item `json:"item,omitempty"`
	Quantity     int64        `json:"quantity,omitempty"`
	Description  string       `json:"description"`
	Price        int64        `json:"price"`
	PriceDisplay string       `json:"priceDisplay"`
	Debit        bool         `json:"debit"`
	DoneBy       string       `json:"doneBy"`
}

// TransactionListResponse is a filtered history, newest first.
type TransactionListResponse struct {
	Transactions []TransactionDTO `json:"transactions"`

	// Total is the signed balance change of the listed transactions.
	Total        int64  `json:"total"`
	TotalDisplay string `json:"totalDisplay"`
}

func toTransactionDTO(tx ledger.Transaction, loc *time.Location) TransactionDTO {
	dto := TransactionDTO{
		ID:           tx.ID,
		CreatedAt:    int64(tx.CreatedAt),
		Date:         report.FormatDate(tx.CreatedAt, loc),
		Time:         report.FormatTime(tx.CreatedAt, loc),
		Description:  tx.Description,
		Price:        tx.Price,
		PriceDisplay: report.DisplayMoney(tx.BalanceDelta()),
		Debit:        tx.Debit,
		DoneBy:       tx.DoneBy,
	}
	if tx.Data != nil {
		item := tx.Data.Item
		dto.Item = &item
		dto.Quantity = tx.Data.Quantity
	}
	return dto
}

func toTransactionList(txs []ledger.Transaction, loc *time.Location) TransactionListResponse {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx, loc)
	}
	total := ledger.ReduceBalance(txs)
	return TransactionListResponse{
		Transactions: dtos,
		Total:        int64(total),
		TotalDisplay: report.DisplayMoney(int64(total)),
	}
}

// =============================================================================
// ITEMS
// =============================================================================

// RenameItemRequest changes an item's name, weight or model.
type RenameItemRequest struct {
	Name         string `json:"name"`
	Weight       string `json:"weight"`
	Model        string `json:"model"`
	ConfirmMerge bool   `json:"confirmMerge"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// DemoRequest configures the seeded demo store.
type DemoRequest struct {
	Items        int   `json:"items"`
	Transactions int   `json:"transactions"`
	Seed         int64 `json:"seed"`
}

// DemoResponse describes the seeded store.
type DemoResponse struct {
	Store        StoreDTO `json:"store"`
	Items        int      `json:"items"`
	Transactions int      `json:"transactions"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Existing is set when a write collides with an item of the same attributes.
	Existing *ledger.Item `json:"existing,omitempty"`
}
