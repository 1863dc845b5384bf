package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type invoiceSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) ([]models.Invoice, error)
}

type clientSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Client, error)
}

// File is a rendered export ready to stream to the caller.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service renders tenant data as CSV downloads.
type Service interface {
	Invoices(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) (*File, error)
	Clients(ctx context.Context, userID uuid.UUID) (*File, error)
}

type ServiceParams struct {
	Invoices invoiceSource
	Clients  clientSource
	Logger   *logger.Logger
}

type service struct {
	invoices invoiceSource
	clients  clientSource
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice source required")
	}
	if params.Clients == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "client source required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{invoices: params.Invoices, clients: params.Clients, logg: params.Logger}, nil
}

func (s *service) Invoices(ctx context.Context, userID uuid.UUID, status *enums.InvoiceStatus) (*File, error) {
	rows, err := s.invoices.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices for export")
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{
		"invoice_number", "client_id", "status", "issue_date", "due_date",
		"subtotal", "tax_rate", "tax_amount", "total", "paid_date", "notes",
	})
	for i := range rows {
		inv := &rows[i]
		records = append(records, []string{
			inv.InvoiceNumber,
			inv.ClientID.String(),
			string(inv.Status),
			inv.IssueDate.Format("2006-01-02"),
			formatDate(inv.DueDate),
			inv.Subtotal.StringFixed(2),
			inv.TaxRate.StringFixed(2),
			inv.TaxAmount.StringFixed(2),
			inv.Total.StringFixed(2),
			formatDate(inv.PaidDate),
			inv.Notes,
		})
	}

	data, err := renderCSV(records)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "rows": len(rows)}), "invoices exported")
	return &File{
		Name:        "invoices-" + time.Now().UTC().Format("2006-01-02") + ".csv",
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

func (s *service) Clients(ctx context.Context, userID uuid.UUID) (*File, error) {
	rows, err := s.clients.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients for export")
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{
		"name", "email", "phone", "address", "city", "postal_code", "country",
	})
	for i := range rows {
		client := &rows[i]
		records = append(records, []string{
			client.Name,
			client.Email,
			client.Phone,
			client.Address,
			client.City,
			client.PostalCode,
			client.Country,
		})
	}

	data, err := renderCSV(records)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "rows": len(rows)}), "clients exported")
	return &File{
		Name:        "clients-" + time.Now().UTC().Format("2006-01-02") + ".csv",
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

func renderCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render csv")
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
