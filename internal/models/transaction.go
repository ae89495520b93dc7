package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "ingreso"
	TypeExpense TransactionType = "egreso"
)

// NoReceiptURL is the sentinel stored in ReceiptURL when a transaction
// was registered without an attached receipt image.
const NoReceiptURL = "#"

// ReceiptNumberPrefix prefixes every issued receipt number, e.g. "N°17".
const ReceiptNumberPrefix = "N°"

type Transaction struct {
	ID                uuid.UUID       `db:"id"`
	Type              TransactionType `db:"type"`
	Amount            int64           `db:"amount"`
	Date              time.Time       `db:"date"`
	IsDateApproximate bool            `db:"is_date_approximate"`
	Description       string          `db:"description"`
	ReceiptNumber     string          `db:"receipt_number"`
	ReceiptURL        string          `db:"receipt_url"`
	AddedBy           string          `db:"added_by"`
	CreatedAt         time.Time       `db:"created_at"`
}

// HasReceipt reports whether the transaction carries a viewable receipt
// image. Rows without one store the sentinel URL instead of an empty string.
func (t *Transaction) HasReceipt() bool {
	return t.ReceiptURL != "" && t.ReceiptURL != NoReceiptURL && t.ReceiptNumber != ""
}
