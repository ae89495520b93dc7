package dto

type TransactionResponse struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Amount            int64  `json:"amount"`
	Date              string `json:"date"`
	IsDateApproximate bool   `json:"is_date_approximate"`
	Description       string `json:"description"`
	ReceiptNumber     string `json:"receipt_number"`
	ReceiptURL        string `json:"receipt_url"`
	AddedBy           string `json:"added_by,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

type TotalsResponse struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
}

type LocateReceiptResponse struct {
	Found         bool   `json:"found"`
	ReceiptNumber string `json:"receipt_number"`
	Index         int    `json:"index"`
	Page          int    `json:"page"`
}

type CreateTransactionResponse struct {
	ID            string `json:"id"`
	ReceiptNumber string `json:"receipt_number"`
}
