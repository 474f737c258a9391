package invoices

import (
	"context"
	"time"

	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/records"
)

// Service exposes invoice operations to the API layer and to the billing
// and payment flows.
type Service interface {
	List(ctx context.Context) (*ListResult, error)
	ListFailed(ctx context.Context) (*ListResult, error)
	ListByCustomer(ctx context.Context, customerID string) (*ListResult, error)
	Get(ctx context.Context, id string) (*records.Invoice, error)
	Create(ctx context.Context, params CreateParams) (*records.Invoice, error)
	Update(ctx context.Context, id string, params UpdateParams) (*records.Invoice, error)
	MarkPaid(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService wires the invoice service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context) (*ListResult, error) {
	return s.repo.List(ctx)
}

func (s *service) ListFailed(ctx context.Context) (*ListResult, error) {
	return s.repo.ListByStatus(ctx, enums.PaymentStatusFailed)
}

func (s *service) ListByCustomer(ctx context.Context, customerID string) (*ListResult, error) {
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *service) Get(ctx context.Context, id string) (*records.Invoice, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) Create(ctx context.Context, params CreateParams) (*records.Invoice, error) {
	return s.repo.Create(ctx, params)
}

func (s *service) Update(ctx context.Context, id string, params UpdateParams) (*records.Invoice, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	return s.repo.Update(ctx, id, params)
}

// MarkPaid transitions the invoice to paid and stamps the payment date.
// Paid is terminal, so re-marking a paid invoice is a no-op.
func (s *service) MarkPaid(ctx context.Context, id string) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.IsPaid() {
		return nil
	}
	paidAt := s.now().UTC()
	status := enums.PaymentStatusPaid
	_, err = s.repo.Update(ctx, id, UpdateParams{
		PaymentStatus: &status,
		PaymentDate:   &paidAt,
	})
	return err
}

// MarkFailed transitions the invoice to failed and clears the payment date,
// leaving it eligible for the next retry pass. Paid invoices stay paid.
func (s *service) MarkFailed(ctx context.Context, id string) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.IsPaid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is already paid")
	}
	status := enums.PaymentStatusFailed
	_, err = s.repo.Update(ctx, id, UpdateParams{
		PaymentStatus:    &status,
		ClearPaymentDate: true,
	})
	return err
}
