package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type stubInvoiceRepo struct {
	rows map[uuid.UUID]*models.Invoice
	last *models.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{rows: map[uuid.UUID]*models.Invoice{}}
}

func (s *stubInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	invoice.ID = uuid.New()
	s.rows[invoice.ID] = invoice
	s.last = invoice
	return nil
}

func (s *stubInvoiceRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	if invoice, ok := s.rows[id]; ok && invoice.UserID == userID {
		return invoice, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubInvoiceRepo) FindLastByUser(ctx context.Context, userID uuid.UUID) (*models.Invoice, error) {
	if s.last != nil && s.last.UserID == userID {
		return s.last, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubInvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]models.Invoice, error) {
	var rows []models.Invoice
	for _, invoice := range s.rows {
		if invoice.UserID != userID {
			continue
		}
		if status != nil && invoice.Status != *status {
			continue
		}
		rows = append(rows, *invoice)
	}
	return rows, nil
}

func (s *stubInvoiceRepo) Update(ctx context.Context, invoice *models.Invoice) error {
	s.rows[invoice.ID] = invoice
	return nil
}

func (s *stubInvoiceRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	delete(s.rows, id)
	return nil
}

func (s *stubInvoiceRepo) CountInMonth(ctx context.Context, userID uuid.UUID, year int, month time.Month) (int64, error) {
	return int64(len(s.rows)), nil
}

type stubClientLookup struct {
	owned map[uuid.UUID]uuid.UUID // client id -> owner
}

func (s *stubClientLookup) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	if owner, ok := s.owned[id]; ok && owner == userID {
		return &models.Client{ID: id, UserID: owner}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newInvoiceService(t *testing.T, repo *stubInvoiceRepo, clients *stubClientLookup) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Clients: clients,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validInput(clientID uuid.UUID) InvoiceInput {
	return InvoiceInput{
		ClientID:  clientID,
		Subtotal:  decimal.RequireFromString("100.00"),
		TaxRate:   decimal.RequireFromString("21.00"),
		IssueDate: time.Now().UTC(),
	}
}

func TestCreateComputesTaxAndTotal(t *testing.T) {
	userID := uuid.New()
	clientID := uuid.New()
	repo := newStubInvoiceRepo()
	svc := newInvoiceService(t, repo, &stubClientLookup{owned: map[uuid.UUID]uuid.UUID{clientID: userID}})

	dto, err := svc.Create(context.Background(), userID, validInput(clientID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !dto.TaxAmount.Equal(decimal.RequireFromString("21.00")) {
		t.Fatalf("expected tax 21.00, got %s", dto.TaxAmount)
	}
	if !dto.Total.Equal(decimal.RequireFromString("121.00")) {
		t.Fatalf("expected total 121.00, got %s", dto.Total)
	}
	if dto.Status != enums.InvoiceStatusDraft {
		t.Fatalf("expected draft status, got %q", dto.Status)
	}
}

func TestCreateNumbersSequentially(t *testing.T) {
	userID := uuid.New()
	clientID := uuid.New()
	repo := newStubInvoiceRepo()
	svc := newInvoiceService(t, repo, &stubClientLookup{owned: map[uuid.UUID]uuid.UUID{clientID: userID}})

	first, err := svc.Create(context.Background(), userID, validInput(clientID))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.InvoiceNumber != "INV-001" {
		t.Fatalf("expected INV-001, got %q", first.InvoiceNumber)
	}

	second, err := svc.Create(context.Background(), userID, validInput(clientID))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.InvoiceNumber != "INV-002" {
		t.Fatalf("expected INV-002, got %q", second.InvoiceNumber)
	}
}

func TestCreateRejectsForeignClient(t *testing.T) {
	userID := uuid.New()
	clientID := uuid.New()
	repo := newStubInvoiceRepo()
	// Client belongs to a different tenant.
	svc := newInvoiceService(t, repo, &stubClientLookup{owned: map[uuid.UUID]uuid.UUID{clientID: uuid.New()}})

	_, err := svc.Create(context.Background(), userID, validInput(clientID))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatal("foreign client must not create an invoice")
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	userID := uuid.New()
	clientID := uuid.New()
	repo := newStubInvoiceRepo()
	svc := newInvoiceService(t, repo, &stubClientLookup{owned: map[uuid.UUID]uuid.UUID{clientID: userID}})

	created, err := svc.Create(context.Background(), userID, validInput(clientID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	paid, err := svc.MarkPaid(context.Background(), userID, created.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid || paid.PaidDate == nil {
		t.Fatal("expected paid status with paid date")
	}
	firstPaidAt := *paid.PaidDate

	again, err := svc.MarkPaid(context.Background(), userID, created.ID)
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if !again.PaidDate.Equal(firstPaidAt) {
		t.Fatal("second mark paid must not move the paid date")
	}
}

func TestUpdateRejectsPaidInvoice(t *testing.T) {
	userID := uuid.New()
	clientID := uuid.New()
	repo := newStubInvoiceRepo()
	svc := newInvoiceService(t, repo, &stubClientLookup{owned: map[uuid.UUID]uuid.UUID{clientID: userID}})

	created, err := svc.Create(context.Background(), userID, validInput(clientID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.MarkPaid(context.Background(), userID, created.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	_, err = svc.Update(context.Background(), userID, created.ID, validInput(clientID))
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}
