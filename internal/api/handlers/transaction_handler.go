package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"transparencia/internal/dto"
	"transparencia/internal/ledger"
	"transparencia/internal/models"
	"transparencia/internal/service"
)

// TransactionHandler exposes the admin-only CRUD surface.
type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// Create registers a new transaction from a multipart form. The optional
// "receipt" file part becomes the uploaded receipt image.
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	email, _ := c.Locals("email").(string)

	date, err := parseDateField(c.FormValue("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid date: expected YYYY-MM-DD",
		})
	}

	amount, err := parseAmountField(c.FormValue("amount"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid amount",
		})
	}

	in := service.CreateTransactionInput{
		Type:          models.TransactionType(c.FormValue("type")),
		Date:          date,
		Description:   c.FormValue("description"),
		Amount:        amount,
		IsApproximate: c.FormValue("is_approximate") == "true",
		AddedBy:       email,
	}

	fileHeader, err := c.FormFile("receipt")
	if err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "could not read receipt file",
			})
		}
		defer file.Close()
		in.Receipt = &service.ReceiptFile{
			Name:    fileHeader.Filename,
			Content: file,
		}
	}

	id, receiptNumber, err := h.txService.Create(c.Context(), in)
	if err != nil {
		return h.mapError(c, err, "Failed to create transaction")
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateTransactionResponse{
		ID:            id.String(),
		ReceiptNumber: receiptNumber,
	})
}

// Update edits an existing transaction; all form fields are optional and a
// "receipt" file part replaces the stored receipt image.
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid transaction id",
		})
	}

	var in service.UpdateTransactionInput

	if v := c.FormValue("type"); v != "" {
		t := models.TransactionType(v)
		in.Type = &t
	}
	if v := c.FormValue("description"); v != "" {
		in.Description = &v
	}
	if v := c.FormValue("amount"); v != "" {
		amount, err := parseAmountField(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid amount",
			})
		}
		in.Amount = &amount
	}
	if v := c.FormValue("date"); v != "" {
		date, err := parseDateField(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid date: expected YYYY-MM-DD",
			})
		}
		in.Date = &date
	}
	if v := c.FormValue("is_approximate"); v != "" {
		approximate := v == "true"
		in.IsApproximate = &approximate
	}

	fileHeader, err := c.FormFile("receipt")
	if err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "could not read receipt file",
			})
		}
		defer file.Close()
		in.Receipt = &service.ReceiptFile{
			Name:    fileHeader.Filename,
			Content: file,
		}
	}

	if err := h.txService.Update(c.Context(), id, in); err != nil {
		return h.mapError(c, err, "Failed to update transaction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid transaction id",
		})
	}

	if err := h.txService.Delete(c.Context(), id); err != nil {
		return h.mapError(c, err, "Failed to delete transaction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List serves the admin table: same pipeline as the public view but with the
// registering email included.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	view, err := parseViewState(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	txs, err := h.txService.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	rows, total := ledger.Query(txs, view)
	resp := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(rows)),
		TotalCount:   total,
		Page:         view.Page,
		PageSize:     view.PageSize,
	}
	for i := range rows {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(&rows[i], true))
	}
	return c.JSON(resp)
}

// Export streams the filtered, sorted rows of the requested view as a CSV
// report.
func (h *TransactionHandler) Export(c *fiber.Ctx) error {
	view, err := parseViewState(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	txs, err := h.txService.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list transactions for export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export transactions",
		})
	}

	filtered := ledger.Filter(txs, view.Tab, view.MonthToken, view.Query)
	sorted := ledger.Sort(filtered, view.SortKey, view.SortDir)

	kind := "ingreso"
	if view.Tab == ledger.TabExpense {
		kind = "egreso"
	}
	filename := fmt.Sprintf("Reporte_%ss_%s.csv", kind, time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	if err := service.WriteCSV(c.Response().BodyWriter(), sorted); err != nil {
		h.logger.Error("CSV export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export transactions",
		})
	}
	return nil
}

func (h *TransactionHandler) mapError(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case service.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	case errors.Is(err, service.ErrCounterMissing):
		h.logger.Error(logMsg, zap.Error(err))
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "The receipt counter is not initialized. Contact the administrator.",
		})
	case errors.Is(err, service.ErrUploadFailed):
		h.logger.Error(logMsg, zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Receipt upload failed. The transaction was not saved; please resubmit.",
		})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Operation failed",
		})
	}
}

func parseDateField(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("date is required")
	}
	return time.Parse("2006-01-02", v)
}

func parseAmountField(v string) (int64, error) {
	return strconv.ParseInt(v, 10, 64)
}
