package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"transparencia/internal/models"
)

// opLog records the order of remote effects across the fakes so tests can
// assert on sequencing, not just on outcomes.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakeTransactionStore struct {
	log *opLog

	mu        sync.Mutex
	inserted  []*models.Transaction
	patches   []map[string]any
	existing  *models.Transaction
	insertErr error
	updateErr error
}

func (f *fakeTransactionStore) Insert(_ context.Context, tx *models.Transaction) error {
	f.log.add("insert")
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, tx)
	return nil
}

func (f *fakeTransactionStore) Update(_ context.Context, _ uuid.UUID, patch map[string]any) error {
	f.log.add("update")
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeTransactionStore) Delete(_ context.Context, _ uuid.UUID) error {
	f.log.add("delete-row")
	return nil
}

func (f *fakeTransactionStore) GetByID(_ context.Context, _ uuid.UUID) (*models.Transaction, error) {
	f.log.add("get")
	if f.existing == nil {
		return nil, ErrNotFound
	}
	cp := *f.existing
	return &cp, nil
}

func (f *fakeTransactionStore) ListAll(context.Context) ([]models.Transaction, error) {
	return nil, nil
}

type fakeCounter struct {
	log *opLog

	mu    sync.Mutex
	next  int64
	err   error
	calls int
}

func (f *fakeCounter) Allocate(context.Context) (int64, error) {
	f.log.add("allocate")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	return f.next, nil
}

type fakeReceiptStore struct {
	log *opLog

	mu        sync.Mutex
	uploads   []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeReceiptStore) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	f.log.add("upload")
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, name)
	return "https://example.com/receipts/" + name, nil
}

func (f *fakeReceiptStore) Delete(_ context.Context, url string) error {
	f.log.add("delete-object")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func newFakes() (*fakeTransactionStore, *fakeCounter, *fakeReceiptStore, *TransactionService) {
	log := &opLog{}
	store := &fakeTransactionStore{log: log}
	counter := &fakeCounter{log: log}
	receipts := &fakeReceiptStore{log: log}
	svc := NewTransactionService(store, counter, receipts, zap.NewNop())
	return store, counter, receipts, svc
}

func validInput() CreateTransactionInput {
	return CreateTransactionInput{
		Type:        models.TypeIncome,
		Date:        time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
		Description: "cuota de socios",
		Amount:      100,
		AddedBy:     "tesorera@example.com",
	}
}

func TestCreateValidationRejectsBeforeAnyRemoteEffect(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateTransactionInput)
		field  string
	}{
		{"bad type", func(in *CreateTransactionInput) { in.Type = "prestamo" }, "type"},
		{"zero date", func(in *CreateTransactionInput) { in.Date = time.Time{} }, "date"},
		{"blank description", func(in *CreateTransactionInput) { in.Description = "   " }, "description"},
		{"negative amount", func(in *CreateTransactionInput) { in.Amount = -1 }, "amount"},
		{"missing actor", func(in *CreateTransactionInput) { in.AddedBy = "" }, "added_by"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, counter, _, svc := newFakes()
			in := validInput()
			tt.mutate(&in)

			_, _, err := svc.Create(context.Background(), in)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if counter.calls != 0 {
				t.Error("counter was consumed by invalid input")
			}
			if len(store.log.list()) != 0 {
				t.Errorf("remote effects on invalid input: %v", store.log.list())
			}
		})
	}
}

func TestCreateWithoutReceipt(t *testing.T) {
	store, _, receipts, svc := newFakes()

	id, number, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == uuid.Nil {
		t.Error("returned nil id")
	}
	if number != "N°1" {
		t.Errorf("receipt number = %q, want N°1", number)
	}
	if len(receipts.uploads) != 0 {
		t.Errorf("unexpected uploads: %v", receipts.uploads)
	}

	tx := store.inserted[0]
	if tx.ReceiptURL != models.NoReceiptURL {
		t.Errorf("receipt url = %q, want %q", tx.ReceiptURL, models.NoReceiptURL)
	}
	if tx.ReceiptNumber != "N°1" {
		t.Errorf("stored receipt number = %q, want N°1", tx.ReceiptNumber)
	}
	if tx.AddedBy != "tesorera@example.com" {
		t.Errorf("added_by = %q", tx.AddedBy)
	}
}

func TestCreateWithReceiptUploadsUnderAllocatedName(t *testing.T) {
	store, _, receipts, svc := newFakes()

	in := validInput()
	in.Receipt = &ReceiptFile{Name: "recibo.jpg", Content: strings.NewReader("jpeg bytes")}

	_, number, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if number != "N°1" {
		t.Errorf("receipt number = %q, want N°1", number)
	}
	if len(receipts.uploads) != 1 || receipts.uploads[0] != "N°1-recibo.jpg" {
		t.Errorf("uploads = %v, want [N°1-recibo.jpg]", receipts.uploads)
	}
	if got := store.inserted[0].ReceiptURL; got != "https://example.com/receipts/N°1-recibo.jpg" {
		t.Errorf("stored url = %q", got)
	}
}

func TestCreateApproximateDateNormalizedToFirstOfMonth(t *testing.T) {
	store, _, _, svc := newFakes()

	in := validInput()
	in.IsApproximate = true
	in.Date = time.Date(2025, time.April, 23, 14, 30, 0, 0, time.UTC)

	if _, _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if got := store.inserted[0].Date; !got.Equal(want) {
		t.Errorf("stored date = %v, want %v", got, want)
	}
	if !store.inserted[0].IsDateApproximate {
		t.Error("approximate flag was dropped")
	}
}

func TestCreateMissingCounterAbortsBeforeUpload(t *testing.T) {
	store, counter, receipts, svc := newFakes()
	counter.err = ErrCounterMissing

	in := validInput()
	in.Receipt = &ReceiptFile{Name: "recibo.jpg", Content: strings.NewReader("x")}

	_, _, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrCounterMissing) {
		t.Fatalf("error = %v, want ErrCounterMissing", err)
	}
	if len(receipts.uploads) != 0 || len(store.inserted) != 0 {
		t.Error("remote effects happened after a failed allocation")
	}
}

func TestCreateUploadFailureLeavesCounterGap(t *testing.T) {
	store, counter, receipts, svc := newFakes()
	receipts.uploadErr = errors.New("bucket unreachable")

	in := validInput()
	in.Receipt = &ReceiptFile{Name: "recibo.jpg", Content: strings.NewReader("x")}

	_, _, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("error = %v, want ErrUploadFailed", err)
	}
	if len(store.inserted) != 0 {
		t.Error("transaction inserted despite failed upload")
	}
	if counter.calls != 1 {
		t.Errorf("counter calls = %d, want 1", counter.calls)
	}

	// The burned number is never reissued: the next submission gets N°2.
	receipts.uploadErr = nil
	_, number, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if number != "N°2" {
		t.Errorf("receipt number after gap = %q, want N°2", number)
	}
}

func TestCreateConcurrentAllocationsAreUnique(t *testing.T) {
	store, _, _, svc := newFakes()

	const workers = 20
	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, number, err := svc.Create(context.Background(), validInput())
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		if seen[number] {
			t.Errorf("receipt number %s issued twice", number)
		}
		seen[number] = true
	}
	for i := 1; i <= workers; i++ {
		want := fmt.Sprintf("%s%d", models.ReceiptNumberPrefix, i)
		if !seen[want] {
			t.Errorf("missing receipt number %s", want)
		}
	}
	if len(store.inserted) != workers {
		t.Errorf("inserted %d rows, want %d", len(store.inserted), workers)
	}
}

func existingTransaction() *models.Transaction {
	return &models.Transaction{
		ID:            uuid.New(),
		Type:          models.TypeIncome,
		Amount:        100,
		Date:          time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
		Description:   "cuota",
		ReceiptNumber: "N°1",
		ReceiptURL:    "https://example.com/receipts/old.jpg",
		AddedBy:       "tesorera@example.com",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestUpdateReplacesReceiptInSafeOrder(t *testing.T) {
	store, _, receipts, svc := newFakes()
	store.existing = existingTransaction()

	err := svc.Update(context.Background(), store.existing.ID, UpdateTransactionInput{
		Receipt: &ReceiptFile{Name: "nuevo.jpg", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Upload the new object first, commit the row, only then drop the old
	// object; a crash anywhere leaves the row pointing at a live object.
	want := []string{"get", "upload", "update", "delete-object"}
	if got := store.log.list(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("operation order = %v, want %v", got, want)
	}
	if len(receipts.deleted) != 1 || receipts.deleted[0] != "https://example.com/receipts/old.jpg" {
		t.Errorf("deleted = %v, want the replaced object", receipts.deleted)
	}

	patch := store.patches[0]
	url, _ := patch["receipt_url"].(string)
	if !strings.HasPrefix(url, "https://example.com/receipts/") || !strings.HasSuffix(url, "-nuevo.jpg") {
		t.Errorf("patched url = %q", url)
	}
	if !strings.Contains(url, store.existing.ID.String()) {
		t.Errorf("replacement object name does not carry the row id: %q", url)
	}
}

func TestUpdateUploadFailurePreservesOldReceipt(t *testing.T) {
	store, _, receipts, svc := newFakes()
	store.existing = existingTransaction()
	receipts.uploadErr = errors.New("bucket unreachable")

	err := svc.Update(context.Background(), store.existing.ID, UpdateTransactionInput{
		Receipt: &ReceiptFile{Name: "nuevo.jpg", Content: strings.NewReader("x")},
	})
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("error = %v, want ErrUploadFailed", err)
	}
	if len(store.patches) != 0 {
		t.Error("row updated despite failed upload")
	}
	if len(receipts.deleted) != 0 {
		t.Error("old receipt deleted despite failed upload")
	}
}

func TestUpdateOldObjectDeleteFailureIsNotSurfaced(t *testing.T) {
	store, _, receipts, svc := newFakes()
	store.existing = existingTransaction()
	receipts.deleteErr = errors.New("object store down")

	err := svc.Update(context.Background(), store.existing.ID, UpdateTransactionInput{
		Receipt: &ReceiptFile{Name: "nuevo.jpg", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("Update surfaced a best-effort delete failure: %v", err)
	}
	if len(store.patches) != 1 {
		t.Error("row update did not go through")
	}
}

func TestUpdateTurningDateApproximateNormalizesIt(t *testing.T) {
	store, _, _, svc := newFakes()
	store.existing = existingTransaction()

	approximate := true
	err := svc.Update(context.Background(), store.existing.ID, UpdateTransactionInput{
		IsApproximate: &approximate,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	patch := store.patches[0]
	want := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if got, _ := patch["date"].(time.Time); !got.Equal(want) {
		t.Errorf("patched date = %v, want %v", got, want)
	}
	if got, _ := patch["is_date_approximate"].(bool); !got {
		t.Error("approximate flag not patched")
	}
}

func TestUpdateUnknownTransaction(t *testing.T) {
	_, _, _, svc := newFakes()

	err := svc.Update(context.Background(), uuid.New(), UpdateTransactionInput{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	store, _, _, svc := newFakes()
	store.existing = existingTransaction()

	bad := models.TransactionType("prestamo")
	err := svc.Update(context.Background(), store.existing.ID, UpdateTransactionInput{Type: &bad})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(store.patches) != 0 {
		t.Error("invalid patch reached the store")
	}
}
