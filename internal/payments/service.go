package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/records"
)

// Gateway is the acquirer boundary. A real processor integration sits
// behind this interface; the engine only needs the resulting status.
type Gateway interface {
	Charge(ctx context.Context, method enums.PaymentMethod, amount decimal.Decimal) (enums.PaymentStatus, error)
}

// InvoiceReporter receives the outcome of a payment attempt. The API
// service wires the local invoice service; the retry worker wires the
// invoice HTTP client.
type InvoiceReporter interface {
	MarkPaid(ctx context.Context, invoiceID string) error
	MarkFailed(ctx context.Context, invoiceID string) error
}

// Result is the outcome of one payment attempt. The Payment record itself
// is append-only; Status reports how the attempt resolved.
type Result struct {
	Payment *records.Payment    `json:"payment"`
	Status  enums.PaymentStatus `json:"status"`
}

// Service processes payment attempts: charge the gateway, append the
// audit-trail record, and report the outcome to the invoice owner.
type Service interface {
	List(ctx context.Context) (*ListResult, error)
	ListByInvoice(ctx context.Context, invoiceID string) (*ListResult, error)
	Get(ctx context.Context, id string) (*records.Payment, error)
	Process(ctx context.Context, params CreateParams) (*Result, error)
}

type service struct {
	repo     *Repository
	gateway  Gateway
	reporter InvoiceReporter
	logg     *logger.Logger
}

// ServiceParams wire the payment service dependencies.
type ServiceParams struct {
	Repository *Repository
	Gateway    Gateway
	Reporter   InvoiceReporter
	Logger     *logger.Logger
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment repository required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if params.Reporter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice reporter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Repository,
		gateway:  params.Gateway,
		reporter: params.Reporter,
		logg:     params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context) (*ListResult, error) {
	return s.repo.List(ctx)
}

func (s *service) ListByInvoice(ctx context.Context, invoiceID string) (*ListResult, error) {
	if invoiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	return s.repo.ListByInvoice(ctx, invoiceID)
}

func (s *service) Get(ctx context.Context, id string) (*records.Payment, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	return s.repo.Get(ctx, id)
}

// Process runs one payment attempt end to end. The attempt record is
// appended whether the charge settles or not; only the reported outcome
// differs.
func (s *service) Process(ctx context.Context, params CreateParams) (*Result, error) {
	status, err := s.gateway.Charge(ctx, params.PaymentMethod, params.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charge payment")
	}

	payment, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithInvoiceID(ctx, params.InvoiceID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"payment_id": payment.ID,
		"status":     status,
	})

	switch status {
	case enums.PaymentStatusPaid:
		if err := s.reporter.MarkPaid(ctx, params.InvoiceID); err != nil {
			s.logg.Error(logCtx, "failed to report successful payment", err)
			return nil, err
		}
	default:
		status = enums.PaymentStatusFailed
		if err := s.reporter.MarkFailed(ctx, params.InvoiceID); err != nil {
			s.logg.Error(logCtx, "failed to report failed payment", err)
			return nil, err
		}
	}

	s.logg.Info(logCtx, "payment attempt recorded")
	return &Result{Payment: payment, Status: status}, nil
}
