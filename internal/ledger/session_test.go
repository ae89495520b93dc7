package ledger

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"transparencia/internal/models"
)

func newTestSession(t *testing.T, txs []models.Transaction) *Session {
	t.Helper()
	s := NewSession(zap.NewNop())
	s.SetSnapshot(txs)
	t.Cleanup(s.Close)
	return s
}

func receiptSnapshot(t *testing.T) []models.Transaction {
	t.Helper()
	return []models.Transaction{
		mkTx(t, models.TypeIncome, 10, "2025-04-01", "N°1", "https://example.com/1.jpg", "a"),
		mkTx(t, models.TypeExpense, 20, "2025-04-03", "N°2", "https://example.com/2.jpg", "b"),
		mkTx(t, models.TypeIncome, 30, "2025-04-02", "N°3", "https://example.com/3.jpg", "c"),
	}
}

func TestSessionSnapshotVersioning(t *testing.T) {
	s := newTestSession(t, nil)

	_, v1, stale := s.Snapshot()
	if stale {
		t.Fatal("fresh snapshot reported stale")
	}

	s.MarkStale()
	if _, _, stale := s.Snapshot(); !stale {
		t.Error("MarkStale did not set the stale flag")
	}

	s.SetSnapshot(receiptSnapshot(t))
	txs, v2, stale := s.Snapshot()
	if stale {
		t.Error("SetSnapshot did not clear the stale flag")
	}
	if v2 <= v1 {
		t.Errorf("version did not advance: %d -> %d", v1, v2)
	}
	if len(txs) != 3 {
		t.Errorf("snapshot has %d rows, want 3", len(txs))
	}
}

func TestSessionControlsResetPage(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Session)
	}{
		{"tab change", func(s *Session) { s.SetTab(TabExpense) }},
		{"month filter", func(s *Session) { s.SetMonthFilter("Abr 25") }},
		{"search query", func(s *Session) { s.SetQuery("rifa") }},
		{"sort request", func(s *Session) { s.RequestSort(SortByReceiptNumber) }},
		{"page size", func(s *Session) { s.SetPageSize(10) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, receiptSnapshot(t))
			s.SetPage(3)
			tt.apply(s)
			if got := s.View().Page; got != 0 {
				t.Errorf("page = %d after %s, want 0", got, tt.name)
			}
		})
	}
}

func TestSessionRequestSortToggles(t *testing.T) {
	s := newTestSession(t, nil)

	s.RequestSort(SortByReceiptNumber)
	if v := s.View(); v.SortKey != SortByReceiptNumber || v.SortDir != Ascending {
		t.Fatalf("first request = %s %s, want receiptNumber asc", v.SortKey, v.SortDir)
	}

	s.RequestSort(SortByReceiptNumber)
	if v := s.View(); v.SortDir != Descending {
		t.Fatalf("second request on the same key should flip to desc, got %s", v.SortDir)
	}

	// Switching keys always restarts ascending.
	s.RequestSort(SortByDate)
	if v := s.View(); v.SortKey != SortByDate || v.SortDir != Ascending {
		t.Fatalf("key switch = %s %s, want date asc", v.SortKey, v.SortDir)
	}
}

func TestSessionViewReceipt(t *testing.T) {
	s := newTestSession(t, receiptSnapshot(t))
	s.SetPageSize(2)

	// Date descending the eligible set is N°2, N°3, N°1: N°1 sits on page 1.
	if !s.ViewReceipt("N°1") {
		t.Fatal("ViewReceipt(N°1) = false, want true")
	}
	v := s.View()
	if v.Tab != TabReceipts {
		t.Errorf("tab = %v, want receipts", v.Tab)
	}
	if v.Page != 1 {
		t.Errorf("page = %d, want 1", v.Page)
	}
	if got := s.Highlighted(); got != "N°1" {
		t.Errorf("highlight = %q, want N°1", got)
	}
}

func TestSessionViewReceiptMissLeavesViewUntouched(t *testing.T) {
	s := newTestSession(t, receiptSnapshot(t))
	s.SetMonthFilter("Abr 25")
	before := s.View()

	if s.ViewReceipt("N°99") {
		t.Fatal("ViewReceipt(N°99) = true for an absent receipt")
	}
	if after := s.View(); after != before {
		t.Errorf("view changed on miss: %+v -> %+v", before, after)
	}
	if got := s.Highlighted(); got != "" {
		t.Errorf("highlight = %q on miss, want empty", got)
	}
}

func TestSessionHighlightExpires(t *testing.T) {
	s := newTestSession(t, receiptSnapshot(t))
	s.highlightTTL = 10 * time.Millisecond

	if !s.ViewReceipt("N°2") {
		t.Fatal("ViewReceipt(N°2) = false, want true")
	}

	deadline := time.Now().Add(time.Second)
	for s.Highlighted() != "" {
		if time.Now().After(deadline) {
			t.Fatal("highlight never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionControlChangeClearsHighlight(t *testing.T) {
	s := newTestSession(t, receiptSnapshot(t))

	if !s.ViewReceipt("N°2") {
		t.Fatal("ViewReceipt(N°2) = false, want true")
	}
	s.SetPage(0)
	if got := s.Highlighted(); got != "" {
		t.Errorf("highlight = %q after control change, want empty", got)
	}

	// The stale auto-clear timer from the first highlight must not be able to
	// wipe a later one.
	s.highlightTTL = time.Hour
	if !s.ViewReceipt("N°3") {
		t.Fatal("ViewReceipt(N°3) = false, want true")
	}
	time.Sleep(DefaultHighlightTTL + 100*time.Millisecond)
	if got := s.Highlighted(); got != "N°3" {
		t.Errorf("highlight = %q, want N°3 to survive the old timer", got)
	}
}
