package payments

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

// KeyPrefix namespaces payment records in the store.
const KeyPrefix = "v1:payment:"

// Repository persists payments as a write-once audit trail. There is no
// update or delete: every attempt appends a new record.
type Repository struct {
	store kv.Store
	now   func() time.Time
}

// NewRepository wires the payment repository.
func NewRepository(store kv.Store) (*Repository, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "record store required")
	}
	return &Repository{store: store, now: time.Now}, nil
}

// CreateParams are the required fields for a payment attempt. The payment
// date is stamped server-side; callers cannot backdate.
type CreateParams struct {
	InvoiceID     string
	Amount        decimal.Decimal
	PaymentMethod enums.PaymentMethod
}

// ListResult carries the loaded payments plus the number of records that
// could not be fetched or parsed.
type ListResult struct {
	Payments []records.Payment `json:"payments"`
	Dropped  int               `json:"dropped,omitempty"`
}

func paymentKey(id string) string {
	return KeyPrefix + id
}

// List loads every payment under the prefix. Records that fail to load or
// deserialize are counted, not fatal.
func (r *Repository) List(ctx context.Context) (*ListResult, error) {
	keys, err := r.store.ListKeys(ctx, KeyPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment keys")
	}
	result := &ListResult{Payments: make([]records.Payment, 0, len(keys))}
	for _, key := range keys {
		value, ok, err := r.store.Get(ctx, key)
		if err != nil || !ok {
			result.Dropped++
			continue
		}
		var payment records.Payment
		if err := json.Unmarshal([]byte(value), &payment); err != nil {
			result.Dropped++
			continue
		}
		result.Payments = append(result.Payments, payment)
	}
	return result, nil
}

// ListByInvoice filters the prefix scan down to one invoice's attempts.
func (r *Repository) ListByInvoice(ctx context.Context, invoiceID string) (*ListResult, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := &ListResult{Dropped: all.Dropped, Payments: make([]records.Payment, 0, len(all.Payments))}
	for _, payment := range all.Payments {
		if payment.InvoiceID == invoiceID {
			filtered.Payments = append(filtered.Payments, payment)
		}
	}
	return filtered, nil
}

// Get loads a single payment by ID.
func (r *Repository) Get(ctx context.Context, id string) (*records.Payment, error) {
	value, ok, err := r.store.Get(ctx, paymentKey(id))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	var payment records.Payment
	if err := json.Unmarshal([]byte(value), &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode payment")
	}
	return &payment, nil
}

// Create validates the required fields and appends a new payment record
// stamped with the current time.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*records.Payment, error) {
	if params.InvoiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !params.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is not recognized")
	}

	payment := records.Payment{
		ID:            uuid.NewString(),
		InvoiceID:     params.InvoiceID,
		Amount:        params.Amount,
		PaymentMethod: params.PaymentMethod,
		PaymentDate:   r.now().UTC(),
	}
	blob, err := json.Marshal(payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment")
	}
	if err := r.store.Put(ctx, paymentKey(payment.ID), string(blob)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment")
	}
	return &payment, nil
}
