/*
handlers.go - HTTP API handlers for the store ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the factory and ledger.Service.

ENDPOINTS:
  Stores:
    GET    /api/stores                          Stores the caller manages
    POST   /api/stores                          Create (name) or join (code)
    GET    /api/stores/{storeID}                Store details

  State:
    GET    /api/stores/{storeID}/inventory      Stocks and balance
    GET    /api/stores/{storeID}/transactions   History, newest first
    GET    /api/stores/{storeID}/export         CSV report download

  Writes:
    POST   /api/stores/{storeID}/transactions   Custom income/expense
    POST   /api/stores/{storeID}/items          First purchase of a new item
    POST   /api/stores/{storeID}/items/{itemID}/buy
    POST   /api/stores/{storeID}/items/{itemID}/sell
    PUT    /api/stores/{storeID}/items/{itemID} Rename

IDENTITY:
  The caller is named by the X-User-ID header. Authentication happens in
  front of this service; every store route checks manager membership.

ERROR HANDLING:
  Errors are returned as JSON {error, details} with:
  - 400: Validation errors, invalid input
  - 401: Missing X-User-ID
  - 403: Caller is not a manager of the store
  - 404: Store or item not found
  - 409: Duplicate item, already a manager
  - 500: Internal errors
  Each failed write also raises an error notification; each successful one
  a success notification.

SEE ALSO:
  - dto.go: Request/response data structures
  - stream.go: Server-sent event streams
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/store-ledger/factory"
	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/notify"
	"github.com/warp/store-ledger/realtime"
	"github.com/warp/store-ledger/report"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *ledger.Service
	Factory  *factory.Factory
	Hub      *realtime.Hub
	Notifier *notify.Notifier
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewHandler creates a handler. hub and notifier may be nil.
func NewHandler(svc *ledger.Service, f *factory.Factory, hub *realtime.Hub, n *notify.Notifier, loc *time.Location, logger zerolog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Service:  svc,
		Factory:  f,
		Hub:      hub,
		Notifier: n,
		Location: loc,
		Logger:   logger,
		Now:      time.Now,
	}
}

// =============================================================================
// STORE HANDLERS
// =============================================================================

// ListStores returns the stores the caller manages.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	stores, err := h.Service.StoresFor(r.Context(), user)
	if err != nil {
		h.handleError(w, "Failed to list stores", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreDTOs(stores))
}

// CreateOrJoinStore creates a store named by input, or joins the store whose
// code is input.
func (h *Handler) CreateOrJoinStore(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req StoreInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	input := strings.TrimSpace(req.Input)

	if factory.IsStoreCode(input) {
		store, err := h.Service.JoinStore(r.Context(), user, strings.ToLower(input))
		if err != nil {
			h.handleError(w, "Gagal bergabung ke toko", err)
			return
		}
		h.success("Berhasil bergabung ke toko " + store.Name)
		writeJSON(w, http.StatusOK, toStoreDTO(*store))
		return
	}

	store, err := h.Factory.Store(input, user)
	if err != nil {
		h.handleError(w, "Nama toko tidak valid", err)
		return
	}
	if err := h.Service.CreateStore(r.Context(), store); err != nil {
		h.handleError(w, "Gagal membuat toko", err)
		return
	}
	h.success("Toko " + store.Name + " berhasil dibuat")
	writeJSON(w, http.StatusCreated, toStoreDTO(store))
}

// GetStore returns a single store.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStoreDTO(*store))
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetInventory returns current stock per item and the balance.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	inv, balance, err := h.Service.State(r.Context(), store.ID)
	if err != nil {
		h.handleError(w, "Failed to load inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(store.ID, inv, balance))
}

// ListTransactions returns the history inside ?start=&end= (YYYY-MM-DD,
// both optional and inclusive), newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	start, end, err := h.dayRange(r)
	if err != nil {
		h.handleError(w, "Invalid date range", err)
		return
	}

	var rng ledger.Range
	if start != nil {
		ts := ledger.FromTime(*start)
		rng.Start = &ts
	}
	if end != nil {
		ts := ledger.FromTime(ledger.EndOfDay(*end))
		rng.End = &ts
	}
	txs, err := h.Service.TransactionsIn(r.Context(), store.ID, rng)
	if err != nil {
		h.handleError(w, "Failed to load transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionList(ledger.SortNewestFirst(txs), h.Location))
}

// Export renders the CSV report for ?start=&end=&kind=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	start, end, err := h.dayRange(r)
	if err != nil {
		h.handleError(w, "Invalid date range", err)
		return
	}
	kind, err := report.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		h.handleError(w, "Invalid export kind", &ledger.ValidationError{Field: "kind", Message: err.Error()})
		return
	}

	txs, err := h.Service.Transactions(r.Context(), store.ID)
	if err != nil {
		h.handleError(w, "Failed to load transactions", err)
		return
	}

	doc := report.Export(report.ExportRequest{
		Store:        *store,
		Transactions: txs,
		Start:        start,
		End:          end,
		Kind:         kind,
		Now:          h.Now(),
		Location:     h.Location,
	})

	h.Logger.Info().Str("store", store.ID).Int("rows", doc.Rows).Str("file", doc.Filename).Msg("export rendered")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Body))
}

// =============================================================================
// WRITE HANDLERS
// =============================================================================

// CreateTransaction records a custom income or expense.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var form factory.CustomForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Factory.Custom(form, h.userID(r))
	if err != nil {
		h.handleError(w, "Transaksi tidak valid", err)
		return
	}
	h.record(w, r, store.ID, tx, "Transaksi berhasil ditambahkan")
}

// CreateItem records the first purchase of a new item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var form factory.NewItemForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inv, _, err := h.Service.State(r.Context(), store.ID)
	if err != nil {
		h.handleError(w, "Failed to load inventory", err)
		return
	}
	tx, err := h.Factory.NewItemPurchase(form, inv.Items(), h.userID(r))
	if err != nil {
		h.handleError(w, "Barang tidak valid", err)
		return
	}
	h.record(w, r, store.ID, tx, "Barang "+tx.Data.Item.Label()+" berhasil ditambahkan")
}

// BuyItem records a purchase of an existing item.
func (h *Handler) BuyItem(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, false)
}

// SellItem records a sale of an existing item.
func (h *Handler) SellItem(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, true)
}

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, sell bool) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var form factory.TradeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txs, err := h.Service.Transactions(r.Context(), store.ID)
	if err != nil {
		h.handleError(w, "Failed to load transactions", err)
		return
	}
	itemID := chi.URLParam(r, "itemID")
	item, found := ledger.FindItem(txs, itemID)
	if !found {
		h.handleError(w, "Barang tidak ditemukan", fmt.Errorf("%s: %w", itemID, ledger.ErrItemNotFound))
		return
	}

	tx, err := h.Factory.Trade(item, form, sell, h.userID(r))
	if err != nil {
		h.handleError(w, "Transaksi tidak valid", err)
		return
	}
	verb := "dibeli"
	if sell {
		verb = "dijual"
	}
	h.record(w, r, store.ID, tx, fmt.Sprintf("%s berhasil %s", item.Label(), verb))
}

// RenameItem changes an item's identity across the store's history.
func (h *Handler) RenameItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var req RenameItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, err := h.Service.RenameItem(r.Context(), store.ID, chi.URLParam(r, "itemID"), ledger.RenameInput{
		Name:         strings.TrimSpace(req.Name),
		Weight:       strings.TrimSpace(req.Weight),
		Model:        strings.TrimSpace(req.Model),
		ConfirmMerge: req.ConfirmMerge,
	})
	if err != nil {
		h.handleError(w, "Gagal mengubah barang", err)
		return
	}
	h.success("Barang berhasil diubah menjadi " + item.Label())
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, storeID string, tx ledger.Transaction, message string) {
	if err := h.Service.Record(r.Context(), storeID, tx); err != nil {
		h.handleError(w, "Gagal menyimpan transaksi", err)
		return
	}
	h.success(message)
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx, h.Location))
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (h *Handler) userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := h.userID(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header", nil)
		return "", false
	}
	return user, true
}

// store resolves {storeID} and checks the caller manages it.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*ledger.Store, bool) {
	user, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	store, err := h.Service.Access(r.Context(), user, chi.URLParam(r, "storeID"))
	if err != nil {
		h.handleError(w, "Store unavailable", err)
		return nil, false
	}
	return store, true
}

// dayRange parses the optional ?start= and ?end= calendar days.
func (h *Handler) dayRange(r *http.Request) (start, end *time.Time, err error) {
	q := r.URL.Query()
	if start, err = h.parseDay("start", q.Get("start")); err != nil {
		return nil, nil, err
	}
	if end, err = h.parseDay("end", q.Get("end")); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, &ledger.ValidationError{Field: "end", Message: "must not be before start"}
	}
	return start, end, nil
}

func (h *Handler) parseDay(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(factory.DateLayout, v, h.Location)
	if err != nil {
		return nil, &ledger.ValidationError{Field: field, Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", v)}
	}
	return &day, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) success(message string) {
	if h.Notifier != nil {
		h.Notifier.Success(message)
	}
}

// handleError maps ledger errors to HTTP statuses.
func (h *Handler) handleError(w http.ResponseWriter, message string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).Msg(message)
	}
	if h.Notifier != nil {
		h.Notifier.Error(message + ": " + err.Error())
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}
	var dup *ledger.DuplicateItemError
	if errors.As(err, &dup) {
		existing := dup.Existing
		resp.Existing = &existing
	}
	writeJSON(w, status, resp)
}

func errorStatus(err error) int {
	switch {
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
