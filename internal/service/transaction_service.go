package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"transparencia/internal/models"
	"transparencia/internal/storage"
)

type TransactionStore interface {
	Insert(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, id uuid.UUID, patch map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListAll(ctx context.Context) ([]models.Transaction, error)
}

type ReceiptCounter interface {
	Allocate(ctx context.Context) (int64, error)
}

type TransactionService struct {
	transactions TransactionStore
	counter      ReceiptCounter
	receipts     storage.ReceiptStore
	logger       *zap.Logger
}

func NewTransactionService(
	transactions TransactionStore,
	counter ReceiptCounter,
	receipts storage.ReceiptStore,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		counter:      counter,
		receipts:     receipts,
		logger:       logger,
	}
}

// ReceiptFile is an uploaded receipt image.
type ReceiptFile struct {
	Name    string
	Content io.Reader
}

type CreateTransactionInput struct {
	Type          models.TransactionType
	Date          time.Time
	Description   string
	Amount        int64
	IsApproximate bool
	Receipt       *ReceiptFile
	AddedBy       string
}

func (in *CreateTransactionInput) validate() error {
	if in.Type != models.TypeIncome && in.Type != models.TypeExpense {
		return &ValidationError{Field: "type", Message: "must be ingreso or egreso"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Message: "must not be empty"}
	}
	if in.Amount < 0 {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if strings.TrimSpace(in.AddedBy) == "" {
		return &ValidationError{Field: "added_by", Message: "actor identity is required"}
	}
	return nil
}

// Create registers a new transaction: validate, reserve the next receipt
// number inside the counter transaction, upload the receipt file if one was
// supplied, then insert the record. An upload or insert failure leaves a gap
// in the receipt sequence; the reservation is deliberately not rolled back,
// because releasing it could hand the same number to a concurrent submitter.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput) (uuid.UUID, string, error) {
	if err := in.validate(); err != nil {
		return uuid.Nil, "", err
	}

	date := in.Date
	if in.IsApproximate {
		// Month-precision dates are stored as the 1st of the month, so
		// sorting by exact timestamp stays well-defined.
		date = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	}

	number, err := s.counter.Allocate(ctx)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("allocate receipt number: %w", err)
	}
	receiptNumber := models.ReceiptNumberPrefix + strconv.FormatInt(number, 10)

	receiptURL := models.NoReceiptURL
	if in.Receipt != nil {
		url, err := s.receipts.Upload(ctx, receiptNumber+"-"+in.Receipt.Name, in.Receipt.Content)
		if err != nil {
			s.logger.Error("Receipt upload failed, skipping number",
				zap.String("receipt_number", receiptNumber), zap.Error(err))
			return uuid.Nil, "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		receiptURL = url
	}

	tx := &models.Transaction{
		ID:                uuid.New(),
		Type:              in.Type,
		Amount:            in.Amount,
		Date:              date,
		IsDateApproximate: in.IsApproximate,
		Description:       sanitizeUTF8(strings.TrimSpace(in.Description)),
		ReceiptNumber:     receiptNumber,
		ReceiptURL:        receiptURL,
		AddedBy:           in.AddedBy,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.transactions.Insert(ctx, tx); err != nil {
		// The uploaded object stays behind unreferenced; accepted leak.
		return uuid.Nil, "", fmt.Errorf("insert transaction: %w", err)
	}

	s.logger.Info("Transaction created",
		zap.String("id", tx.ID.String()),
		zap.String("receipt_number", receiptNumber),
		zap.String("added_by", tx.AddedBy),
	)
	return tx.ID, receiptNumber, nil
}

type UpdateTransactionInput struct {
	Type          *models.TransactionType
	Date          *time.Time
	Description   *string
	Amount        *int64
	IsApproximate *bool
	Receipt       *ReceiptFile
}

// Update edits an existing transaction. When a new receipt file replaces an
// old one the order is upload, then document update, then best-effort delete
// of the old object — never delete first, so a failed upload cannot lose the
// existing receipt. A failed delete of the old object is logged only; the
// user-visible operation has already succeeded by then.
func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, in UpdateTransactionInput) error {
	existing, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return err
	}

	patch := make(map[string]any)
	if in.Type != nil {
		if *in.Type != models.TypeIncome && *in.Type != models.TypeExpense {
			return &ValidationError{Field: "type", Message: "must be ingreso or egreso"}
		}
		patch["type"] = *in.Type
	}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return &ValidationError{Field: "description", Message: "must not be empty"}
		}
		patch["description"] = sanitizeUTF8(strings.TrimSpace(*in.Description))
	}
	if in.Amount != nil {
		if *in.Amount < 0 {
			return &ValidationError{Field: "amount", Message: "must not be negative"}
		}
		patch["amount"] = *in.Amount
	}
	if in.Date != nil || in.IsApproximate != nil {
		date := existing.Date
		approximate := existing.IsDateApproximate
		if in.Date != nil {
			date = *in.Date
		}
		if in.IsApproximate != nil {
			approximate = *in.IsApproximate
		}
		if approximate {
			date = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		}
		patch["date"] = date
		patch["is_date_approximate"] = approximate
	}

	var newURL string
	if in.Receipt != nil {
		name := fmt.Sprintf("%s-%d-%s", id, time.Now().UnixMilli(), in.Receipt.Name)
		newURL, err = s.receipts.Upload(ctx, name, in.Receipt.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		patch["receipt_url"] = newURL
	}

	if err := s.transactions.Update(ctx, id, patch); err != nil {
		return err
	}

	if in.Receipt != nil && existing.ReceiptURL != "" &&
		existing.ReceiptURL != models.NoReceiptURL && existing.ReceiptURL != newURL {
		if err := s.receipts.Delete(ctx, existing.ReceiptURL); err != nil {
			s.logger.Error("Failed to delete replaced receipt object",
				zap.String("url", existing.ReceiptURL), zap.Error(err))
		}
	}

	s.logger.Info("Transaction updated", zap.String("id", id.String()))
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.transactions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Transaction deleted", zap.String("id", id.String()))
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

func (s *TransactionService) List(ctx context.Context) ([]models.Transaction, error) {
	return s.transactions.ListAll(ctx)
}
