package ledger

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"transparencia/internal/models"
)

// DefaultHighlightTTL is how long a located receipt row stays highlighted
// before clearing on its own.
const DefaultHighlightTTL = 1500 * time.Millisecond

// Session owns one view instance: a versioned snapshot of the transaction
// collection, the current view state and the transient row highlight used by
// the "view receipt" navigation assist.
//
// The snapshot is only ever replaced wholesale by the subscription callback;
// the query pipeline reads it and never mutates it in place. Every control
// change clears any pending highlight and cancels its auto-clear timer so a
// stale timer can never act on the new state.
type Session struct {
	mu sync.Mutex

	snapshot []models.Transaction
	version  uint64
	stale    bool

	view      ViewState
	highlight string
	timer     *time.Timer

	highlightTTL time.Duration
	logger       *zap.Logger
}

func NewSession(logger *zap.Logger) *Session {
	return &Session{
		view:         DefaultView(),
		highlightTTL: DefaultHighlightTTL,
		logger:       logger,
	}
}

// SetSnapshot replaces the cached collection. Called by the subscription
// callback on every change notification and once on initial load.
func (s *Session) SetSnapshot(txs []models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = txs
	s.version++
	s.stale = false
}

// MarkStale records that the live feed failed; the session keeps serving the
// last snapshot but reads report it as stale.
func (s *Session) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

// Snapshot returns the cached collection, its version and the stale flag.
func (s *Session) Snapshot() ([]models.Transaction, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.version, s.stale
}

// View returns a copy of the current view state.
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Rows runs the pipeline over the snapshot with the current view state.
func (s *Session) Rows() ([]models.Transaction, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Query(s.snapshot, s.view)
}

// Totals sums the full snapshot regardless of the active filters.
func (s *Session) Totals() (income, expense int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals(s.snapshot)
}

// SetTab switches the active tab, resets the page to 0 and clears any
// pending highlight: the previous page index is meaningless in the new
// filtered set.
func (s *Session) SetTab(tab Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Tab = tab
	s.view.Page = 0
	s.clearHighlightLocked()
}

func (s *Session) SetMonthFilter(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.MonthToken = token
	s.view.Page = 0
	s.clearHighlightLocked()
}

func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Query = query
	s.view.Page = 0
	s.clearHighlightLocked()
}

// RequestSort toggles direction when the active key is requested again in
// ascending order, otherwise sorts ascending by the new key.
func (s *Session) RequestSort(key SortKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.SortKey == key && s.view.SortDir == Ascending {
		s.view.SortDir = Descending
	} else {
		s.view.SortKey = key
		s.view.SortDir = Ascending
	}
	s.view.Page = 0
	s.clearHighlightLocked()
}

func (s *Session) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Page = page
	s.clearHighlightLocked()
}

func (s *Session) SetPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PageSize = size
	s.view.Page = 0
	s.clearHighlightLocked()
}

// ViewReceipt implements the navigation assist: switch to the receipts tab,
// jump to the page containing the receipt in date-descending order and
// highlight its row until the TTL elapses or any control changes. When the
// receipt is absent from the eligible set the session state is left
// untouched and only a diagnostic is logged.
func (s *Session) ViewReceipt(receiptNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if receiptNumber == "" {
		return false
	}
	s.clearHighlightLocked()

	_, page, ok := Locate(s.snapshot, receiptNumber, s.view.PageSize)
	if !ok {
		s.logger.Warn("receipt not found in eligible set",
			zap.String("receipt_number", receiptNumber))
		return false
	}

	s.view.Tab = TabReceipts
	s.view.Page = page
	s.highlight = receiptNumber
	s.timer = time.AfterFunc(s.highlightTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.highlight == receiptNumber {
			s.highlight = ""
			s.timer = nil
		}
	})
	return true
}

// Highlighted returns the receipt number currently highlighted, if any.
func (s *Session) Highlighted() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight
}

// Close releases the highlight timer. Call on view unmount.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearHighlightLocked()
}

func (s *Session) clearHighlightLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.highlight = ""
}
