package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"transparencia/internal/models"
)

var csvHeaders = []string{
	"Fecha", "N° Comp.", "Descripción", "Importe", "Comprobante URL", "Fecha Aprox?",
}

// WriteCSV writes the given rows as a UTF-8 CSV report with a byte-order
// mark so spreadsheet applications pick up the encoding, CRLF line endings
// and dd-mm-yyyy dates.
func WriteCSV(w io.Writer, txs []models.Transaction) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(csvHeaders); err != nil {
		return err
	}
	for i := range txs {
		tx := &txs[i]

		url := ""
		if tx.ReceiptURL != "" && tx.ReceiptURL != models.NoReceiptURL {
			url = tx.ReceiptURL
		}
		approximate := "No"
		if tx.IsDateApproximate {
			approximate = "Sí"
		}

		record := []string{
			tx.Date.Format("02-01-2006"),
			tx.ReceiptNumber,
			tx.Description,
			strconv.FormatInt(tx.Amount, 10),
			url,
			approximate,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
