package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transparencia/internal/dto"
	"transparencia/internal/ledger"
	"transparencia/internal/models"
)

const (
	defaultPageSize = 5
	maxPageSize     = 100
)

// LedgerHandler serves the public read-only ledger. It never touches the
// database directly: requests run the query pipeline over the shared
// snapshot the change listener keeps fresh.
type LedgerHandler struct {
	cache  *ledger.Session
	logger *zap.Logger
}

func NewLedgerHandler(cache *ledger.Session, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		cache:  cache,
		logger: logger,
	}
}

// ListTransactions returns the filtered, sorted page of transactions for the
// requested view state plus the total match count for pagination controls.
func (h *LedgerHandler) ListTransactions(c *fiber.Ctx) error {
	view, err := parseViewState(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	snapshot, version, stale := h.cache.Snapshot()
	rows, total := ledger.Query(snapshot, view)

	c.Set("X-Ledger-Version", strconv.FormatUint(version, 10))
	if stale {
		c.Set("X-Ledger-Stale", "true")
	}

	resp := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(rows)),
		TotalCount:   total,
		Page:         view.Page,
		PageSize:     view.PageSize,
	}
	for i := range rows {
		// The public view does not disclose who registered the movement.
		resp.Transactions = append(resp.Transactions, toTransactionResponse(&rows[i], false))
	}
	return c.JSON(resp)
}

// Totals returns the income and expense sums over the whole collection.
func (h *LedgerHandler) Totals(c *fiber.Ctx) error {
	income, expense := h.cache.Totals()
	return c.JSON(dto.TotalsResponse{
		TotalIncome:  income,
		TotalExpense: expense,
	})
}

// LocateReceipt resolves a receipt number to its position in the receipts
// view (date descending) so the client can jump to the right page and
// highlight the row. An unknown number is a no-op: found=false, nothing else.
func (h *LedgerHandler) LocateReceipt(c *fiber.Ctx) error {
	receiptNumber := c.Query("n")
	pageSize := clampPageSize(c.QueryInt("page_size", defaultPageSize))

	snapshot, _, _ := h.cache.Snapshot()
	index, page, ok := ledger.Locate(snapshot, receiptNumber, pageSize)
	if !ok {
		h.logger.Warn("Receipt not found in eligible set",
			zap.String("receipt_number", receiptNumber))
		return c.JSON(dto.LocateReceiptResponse{
			Found:         false,
			ReceiptNumber: receiptNumber,
		})
	}

	return c.JSON(dto.LocateReceiptResponse{
		Found:         true,
		ReceiptNumber: receiptNumber,
		Index:         index,
		Page:          page,
	})
}

func parseViewState(c *fiber.Ctx) (ledger.ViewState, error) {
	view := ledger.DefaultView()

	tab, ok := ledger.ParseTab(c.Query("tab"))
	if !ok {
		return view, fiber.NewError(fiber.StatusBadRequest, "unknown tab")
	}
	view.Tab = tab
	view.MonthToken = c.Query("month", ledger.MonthAll)
	view.Query = c.Query("q")

	switch c.Query("sort", "date") {
	case "date":
		view.SortKey = ledger.SortByDate
	case "receiptNumber":
		view.SortKey = ledger.SortByReceiptNumber
	default:
		return view, fiber.NewError(fiber.StatusBadRequest, "unknown sort key")
	}

	switch c.Query("dir", "desc") {
	case "asc":
		view.SortDir = ledger.Ascending
	case "desc":
		view.SortDir = ledger.Descending
	default:
		return view, fiber.NewError(fiber.StatusBadRequest, "unknown sort direction")
	}

	view.Page = c.QueryInt("page", 0)
	if view.Page < 0 {
		view.Page = 0
	}
	view.PageSize = clampPageSize(c.QueryInt("page_size", defaultPageSize))
	return view, nil
}

func clampPageSize(size int) int {
	if size < 1 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

func toTransactionResponse(tx *models.Transaction, includeActor bool) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:                tx.ID.String(),
		Type:              string(tx.Type),
		Amount:            tx.Amount,
		Date:              tx.Date.Format(time.RFC3339),
		IsDateApproximate: tx.IsDateApproximate,
		Description:       tx.Description,
		ReceiptNumber:     tx.ReceiptNumber,
		ReceiptURL:        tx.ReceiptURL,
		CreatedAt:         tx.CreatedAt.Format(time.RFC3339),
	}
	if includeActor {
		resp.AddedBy = tx.AddedBy
	}
	return resp
}
