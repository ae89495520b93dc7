// Package ledger implements the read-only projection over the transaction
// collection: category/month/search filtering, stable sorting, pagination and
// the receipt navigation assist. Everything here is a pure function of its
// inputs; persistence and HTTP live elsewhere.
package ledger

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"transparencia/internal/models"
)

type Tab int

const (
	TabIncome Tab = iota
	TabExpense
	TabReceipts
)

// ParseTab maps the public API tab names onto a Tab.
func ParseTab(s string) (Tab, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ingresos":
		return TabIncome, true
	case "egresos":
		return TabExpense, true
	case "comprobantes":
		return TabReceipts, true
	}
	return TabIncome, false
}

type SortKey string

const (
	SortByDate          SortKey = "date"
	SortByReceiptNumber SortKey = "receiptNumber"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// MonthAll is the month-filter token that disables month filtering.
const MonthAll = "Todos"

// Spanish three-letter month abbreviations, as used in the filter chips.
var monthAbbrevs = []string{
	"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

// ViewState is the ephemeral per-session selection driving the pipeline.
type ViewState struct {
	Tab        Tab
	MonthToken string
	Query      string
	SortKey    SortKey
	SortDir    SortDirection
	Page       int
	PageSize   int
}

// DefaultView mirrors the initial state of a freshly mounted view.
func DefaultView() ViewState {
	return ViewState{
		Tab:        TabIncome,
		MonthToken: MonthAll,
		SortKey:    SortByDate,
		SortDir:    Descending,
		Page:       0,
		PageSize:   5,
	}
}

// ParseMonthToken parses a "<MonthAbbrev> <YY>" token such as "Abr 25".
// The two-digit year is interpreted as 2000+YY. Returns ok=false for
// MonthAll and for anything unparseable; callers treat that as "no filter".
func ParseMonthToken(token string) (time.Month, int, bool) {
	if token == "" || token == MonthAll {
		return 0, 0, false
	}
	parts := strings.Fields(token)
	if len(parts) != 2 {
		return 0, 0, false
	}
	monthIdx := -1
	for i, abbrev := range monthAbbrevs {
		if abbrev == parts[0] {
			monthIdx = i
			break
		}
	}
	if monthIdx == -1 {
		return 0, 0, false
	}
	yy, err := strconv.Atoi(parts[1])
	if err != nil || yy < 0 {
		return 0, 0, false
	}
	return time.Month(monthIdx + 1), 2000 + yy, true
}

// ReceiptNumberValue extracts the numeric value of a receipt number string by
// stripping every non-digit character, so "N°10" orders after "N°9" even
// though it sorts before it lexically. Unparseable input yields 0.
func ReceiptNumberValue(s string) int {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

// Filter keeps the rows matching the active tab, the month token and the
// free-text query. The three filters compose with AND; a blank query and the
// MonthAll token each match everything.
func Filter(txs []models.Transaction, tab Tab, monthToken, query string) []models.Transaction {
	month, year, monthActive := ParseMonthToken(monthToken)
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		tx := txs[i]
		switch tab {
		case TabIncome:
			if tx.Type != models.TypeIncome {
				continue
			}
		case TabExpense:
			if tx.Type != models.TypeExpense {
				continue
			}
		case TabReceipts:
			if !tx.HasReceipt() {
				continue
			}
		}
		if monthActive && (tx.Date.Month() != month || tx.Date.Year() != year) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.ReceiptNumber), needle) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Sort returns a new slice ordered by the given key and direction. The sort
// is stable: ties keep their original relative order.
func Sort(txs []models.Transaction, key SortKey, dir SortDirection) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)

	sort.SliceStable(out, func(i, j int) bool {
		var cmp int
		switch key {
		case SortByReceiptNumber:
			cmp = ReceiptNumberValue(out[i].ReceiptNumber) - ReceiptNumberValue(out[j].ReceiptNumber)
		default:
			a, b := out[i].Date.UnixMilli(), out[j].Date.UnixMilli()
			switch {
			case a < b:
				cmp = -1
			case a > b:
				cmp = 1
			}
		}
		if dir == Descending {
			cmp = -cmp
		}
		return cmp < 0
	})
	return out
}

// Paginate returns the slice [page*size, page*size+size) clipped to bounds.
// Out-of-range pages yield an empty slice.
func Paginate(txs []models.Transaction, page, size int) []models.Transaction {
	if page < 0 || size <= 0 {
		return nil
	}
	start := page * size
	if start >= len(txs) {
		return nil
	}
	end := start + size
	if end > len(txs) {
		end = len(txs)
	}
	return txs[start:end]
}

// Query runs the full pipeline for a view state and returns the rows to
// display plus the pre-pagination match count for the pagination controls.
func Query(txs []models.Transaction, view ViewState) ([]models.Transaction, int) {
	filtered := Filter(txs, view.Tab, view.MonthToken, view.Query)
	sorted := Sort(filtered, view.SortKey, view.SortDir)
	return Paginate(sorted, view.Page, view.PageSize), len(filtered)
}

// Totals sums amounts over the whole collection, ignoring any filters.
func Totals(txs []models.Transaction) (income, expense int64) {
	for i := range txs {
		switch txs[i].Type {
		case models.TypeIncome:
			income += txs[i].Amount
		case models.TypeExpense:
			expense += txs[i].Amount
		}
	}
	return income, expense
}

// Locate finds a receipt within the receipts view ordering (receipt-eligible
// rows, date descending, no month filter) and returns its index and the page
// containing it for the given page size. ok is false when the receipt number
// is absent from the eligible set.
func Locate(txs []models.Transaction, receiptNumber string, pageSize int) (index, page int, ok bool) {
	if receiptNumber == "" || pageSize <= 0 {
		return 0, 0, false
	}
	eligible := Filter(txs, TabReceipts, MonthAll, "")
	ordered := Sort(eligible, SortByDate, Descending)
	for i := range ordered {
		if ordered[i].ReceiptNumber == receiptNumber {
			return i, i / pageSize, true
		}
	}
	return 0, 0, false
}
