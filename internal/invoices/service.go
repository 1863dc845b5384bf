package invoices

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type clientLookup interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
}

// InvoiceInput carries the editable fields. Tax amount and total are always
// derived server-side from subtotal and tax rate.
type InvoiceInput struct {
	ClientID  uuid.UUID       `json:"clientId"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	IssueDate time.Time       `json:"issueDate"`
	DueDate   *time.Time      `json:"dueDate"`
	Notes     string          `json:"notes"`
}

// Service manages a tenant's issued invoices.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]InvoiceDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*InvoiceDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input InvoiceInput) (*InvoiceDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input InvoiceInput) (*InvoiceDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	MarkPaid(ctx context.Context, userID, id uuid.UUID) (*InvoiceDTO, error)
}

type ServiceParams struct {
	Repo    Repository
	Clients clientLookup
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	clients clientLookup
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoices repo required")
	}
	if params.Clients == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clients repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:    params.Repo,
		clients: params.Clients,
		logg:    params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]InvoiceDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	dtos := make([]InvoiceDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(invoice), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input InvoiceInput) (*InvoiceDTO, error) {
	if err := s.validateInput(ctx, userID, input); err != nil {
		return nil, err
	}

	number, err := s.nextInvoiceNumber(ctx, userID)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		UserID:        userID,
		InvoiceNumber: number,
		Status:        enums.InvoiceStatusDraft,
	}
	applyInput(invoice, input)

	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	return FromModel(invoice), nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input InvoiceInput) (*InvoiceDTO, error) {
	if err := s.validateInput(ctx, userID, input); err != nil {
		return nil, err
	}
	invoice, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "paid invoices cannot be edited")
	}
	applyInput(invoice, input)
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice")
	}
	return FromModel(invoice), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete invoice")
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, userID, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		return FromModel(invoice), nil
	}

	now := time.Now().UTC()
	invoice.Status = enums.InvoiceStatusPaid
	invoice.PaidDate = &now
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
	}
	return FromModel(invoice), nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) validateInput(ctx context.Context, userID uuid.UUID, input InvoiceInput) error {
	if input.ClientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if input.Subtotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}
	if input.TaxRate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate must not be negative")
	}
	if input.IssueDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "issue date is required")
	}

	if _, err := s.clients.FindByID(ctx, userID, input.ClientID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	return nil
}

var invoiceNumberPattern = regexp.MustCompile(`(\d+)`)

// nextInvoiceNumber continues the tenant's INV-NNN sequence from the most
// recent invoice.
func (s *service) nextInvoiceNumber(ctx context.Context, userID uuid.UUID) (string, error) {
	last, err := s.repo.FindLastByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "INV-001", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last invoice")
	}

	next := 1
	if match := invoiceNumberPattern.FindString(last.InvoiceNumber); match != "" {
		if n, convErr := strconv.Atoi(match); convErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("INV-%03d", next), nil
}

func applyInput(invoice *models.Invoice, input InvoiceInput) {
	taxAmount := input.Subtotal.Mul(input.TaxRate).Div(decimal.NewFromInt(100)).Round(2)

	invoice.ClientID = input.ClientID
	invoice.Subtotal = input.Subtotal
	invoice.TaxRate = input.TaxRate
	invoice.TaxAmount = taxAmount
	invoice.Total = input.Subtotal.Add(taxAmount)
	invoice.IssueDate = input.IssueDate
	invoice.DueDate = input.DueDate
	invoice.Notes = strings.TrimSpace(input.Notes)
}
