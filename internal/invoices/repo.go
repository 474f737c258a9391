package invoices

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/records"
)

// KeyPrefix namespaces invoice records in the store.
const KeyPrefix = "v1:invoice:"

// Repository persists invoices as serialized blobs in the record store.
type Repository struct {
	store kv.Store
}

// NewRepository wires the invoice repository.
func NewRepository(store kv.Store) (*Repository, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "record store required")
	}
	return &Repository{store: store}, nil
}

// CreateParams are the required fields for a new invoice.
type CreateParams struct {
	CustomerID    string
	Amount        decimal.Decimal
	DueDate       time.Time
	PaymentStatus enums.PaymentStatus
}

// UpdateParams is a merge-patch: nil fields leave the stored value unchanged.
// ClearPaymentDate distinguishes "set payment_date to null" from "leave it".
type UpdateParams struct {
	CustomerID       *string
	Amount           *decimal.Decimal
	DueDate          *time.Time
	PaymentStatus    *enums.PaymentStatus
	PaymentDate      *time.Time
	ClearPaymentDate bool
}

// ListResult carries the loaded invoices plus the number of records that
// could not be fetched or parsed. Callers use Dropped to tell "no data"
// apart from a partial read.
type ListResult struct {
	Invoices []records.Invoice `json:"invoices"`
	Dropped  int               `json:"dropped,omitempty"`
}

func invoiceKey(id string) string {
	return KeyPrefix + id
}

// List loads every invoice under the prefix. Records that fail to load or
// deserialize are counted, not fatal.
func (r *Repository) List(ctx context.Context) (*ListResult, error) {
	keys, err := r.store.ListKeys(ctx, KeyPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoice keys")
	}
	result := &ListResult{Invoices: make([]records.Invoice, 0, len(keys))}
	for _, key := range keys {
		value, ok, err := r.store.Get(ctx, key)
		if err != nil || !ok {
			result.Dropped++
			continue
		}
		var invoice records.Invoice
		if err := json.Unmarshal([]byte(value), &invoice); err != nil {
			result.Dropped++
			continue
		}
		result.Invoices = append(result.Invoices, invoice)
	}
	return result, nil
}

// ListByCustomer filters the prefix scan down to one customer's invoices.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) (*ListResult, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := &ListResult{Dropped: all.Dropped, Invoices: make([]records.Invoice, 0, len(all.Invoices))}
	for _, invoice := range all.Invoices {
		if invoice.CustomerID == customerID {
			filtered.Invoices = append(filtered.Invoices, invoice)
		}
	}
	return filtered, nil
}

// ListByStatus filters the prefix scan down to invoices in one payment state.
func (r *Repository) ListByStatus(ctx context.Context, status enums.PaymentStatus) (*ListResult, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := &ListResult{Dropped: all.Dropped, Invoices: make([]records.Invoice, 0, len(all.Invoices))}
	for _, invoice := range all.Invoices {
		if invoice.PaymentStatus == status {
			filtered.Invoices = append(filtered.Invoices, invoice)
		}
	}
	return filtered, nil
}

// Get loads a single invoice by ID.
func (r *Repository) Get(ctx context.Context, id string) (*records.Invoice, error) {
	value, ok, err := r.store.Get(ctx, invoiceKey(id))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	var invoice records.Invoice
	if err := json.Unmarshal([]byte(value), &invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode invoice")
	}
	return &invoice, nil
}

// Create validates the required fields, generates an identifier, and
// persists the invoice with a null payment date.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*records.Invoice, error) {
	if params.CustomerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if params.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date is required")
	}
	if !params.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment status is required")
	}

	invoice := records.Invoice{
		ID:            uuid.NewString(),
		CustomerID:    params.CustomerID,
		Amount:        params.Amount,
		DueDate:       params.DueDate,
		PaymentStatus: params.PaymentStatus,
		PaymentDate:   nil,
	}
	if err := r.put(ctx, invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Update loads the invoice, applies only the supplied fields, and writes
// the merged record back.
func (r *Repository) Update(ctx context.Context, id string, params UpdateParams) (*records.Invoice, error) {
	invoice, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.CustomerID != nil {
		invoice.CustomerID = *params.CustomerID
	}
	if params.Amount != nil {
		invoice.Amount = *params.Amount
	}
	if params.DueDate != nil {
		invoice.DueDate = *params.DueDate
	}
	if params.PaymentStatus != nil {
		invoice.PaymentStatus = *params.PaymentStatus
	}
	if params.ClearPaymentDate {
		invoice.PaymentDate = nil
	} else if params.PaymentDate != nil {
		invoice.PaymentDate = params.PaymentDate
	}

	if err := r.put(ctx, *invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *Repository) put(ctx context.Context, invoice records.Invoice) error {
	blob, err := json.Marshal(invoice)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode invoice")
	}
	if err := r.store.Put(ctx, invoiceKey(invoice.ID), string(blob)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store invoice")
	}
	return nil
}
