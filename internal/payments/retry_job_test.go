package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billifyhq/billify-backend/pkg/enums"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/records"
)

type fakeFailedInvoiceSource struct {
	invoices []records.Invoice
	err      error
}

func (f *fakeFailedInvoiceSource) ListFailed(ctx context.Context) ([]records.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invoices, nil
}

type fakePaymentHistory struct {
	byInvoice map[string][]records.Payment
	err       error
}

func (f *fakePaymentHistory) ListByInvoice(ctx context.Context, invoiceID string) (*ListResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ListResult{Payments: f.byInvoice[invoiceID]}, nil
}

type fakeProcessor struct {
	status enums.PaymentStatus
	err    error

	mu       sync.Mutex
	attempts []CreateParams
}

func (f *fakeProcessor) Process(ctx context.Context, params CreateParams) (*Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, params)
	return &Result{
		Payment: &records.Payment{
			ID:            "pay-new",
			InvoiceID:     params.InvoiceID,
			Amount:        params.Amount,
			PaymentMethod: params.PaymentMethod,
		},
		Status: f.status,
	}, nil
}

func failedInvoice(id string) records.Invoice {
	return records.Invoice{
		ID:            id,
		CustomerID:    "cust-1",
		Amount:        decimal.NewFromInt(49),
		DueDate:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		PaymentStatus: enums.PaymentStatusFailed,
	}
}

func attempt(invoiceID string, method enums.PaymentMethod, amount int64, at time.Time) records.Payment {
	return records.Payment{
		ID:            invoiceID + "-" + at.Format("150405"),
		InvoiceID:     invoiceID,
		Amount:        decimal.NewFromInt(amount),
		PaymentMethod: method,
		PaymentDate:   at,
	}
}

func newTestRetryJob(t *testing.T, src *fakeFailedInvoiceSource, history *fakePaymentHistory, processor *fakeProcessor) *RetryJob {
	t.Helper()

	job, err := NewRetryJob(RetryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Invoices:  src,
		History:   history,
		Processor: processor,
		Workers:   2,
	})
	require.NoError(t, err)
	return job
}

func TestRetryReplaysLatestAttempt(t *testing.T) {
	older := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)
	src := &fakeFailedInvoiceSource{invoices: []records.Invoice{failedInvoice("inv-1")}}
	history := &fakePaymentHistory{byInvoice: map[string][]records.Payment{
		"inv-1": {
			attempt("inv-1", enums.PaymentMethodCreditCard, 49, older),
			attempt("inv-1", enums.PaymentMethodPayPal, 59, newer),
		},
	}}
	processor := &fakeProcessor{status: enums.PaymentStatusPaid}
	job := newTestRetryJob(t, src, history, processor)

	report, err := job.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Paid)

	require.Len(t, processor.attempts, 1)
	assert.Equal(t, "inv-1", processor.attempts[0].InvoiceID)
	assert.Equal(t, enums.PaymentMethodPayPal, processor.attempts[0].PaymentMethod)
	assert.True(t, decimal.NewFromInt(59).Equal(processor.attempts[0].Amount))
}

func TestRetrySkipsInvoiceWithoutHistory(t *testing.T) {
	src := &fakeFailedInvoiceSource{invoices: []records.Invoice{failedInvoice("inv-1")}}
	history := &fakePaymentHistory{byInvoice: map[string][]records.Payment{}}
	processor := &fakeProcessor{status: enums.PaymentStatusPaid}
	job := newTestRetryJob(t, src, history, processor)

	report, err := job.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.NoHistory)
	assert.Empty(t, processor.attempts)
}

func TestRetryCountsStillFailedAttempts(t *testing.T) {
	src := &fakeFailedInvoiceSource{invoices: []records.Invoice{failedInvoice("inv-1")}}
	history := &fakePaymentHistory{byInvoice: map[string][]records.Payment{
		"inv-1": {attempt("inv-1", enums.PaymentMethodMada, 49, time.Now().UTC())},
	}}
	processor := &fakeProcessor{status: enums.PaymentStatusFailed}
	job := newTestRetryJob(t, src, history, processor)

	report, err := job.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.StillFailed)
	assert.Len(t, processor.attempts, 1)
}

func TestRetryCollectsPerInvoiceErrors(t *testing.T) {
	src := &fakeFailedInvoiceSource{invoices: []records.Invoice{failedInvoice("inv-1"), failedInvoice("inv-2")}}
	history := &fakePaymentHistory{byInvoice: map[string][]records.Payment{
		"inv-1": {attempt("inv-1", enums.PaymentMethodBinance, 49, time.Now().UTC())},
		"inv-2": {attempt("inv-2", enums.PaymentMethodBinance, 49, time.Now().UTC())},
	}}
	processor := &fakeProcessor{err: errors.New("gateway down")}
	job := newTestRetryJob(t, src, history, processor)

	report, err := job.RunPass(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, report.Errored)
}

func TestRetryInvoiceFeedOutageIsFatal(t *testing.T) {
	src := &fakeFailedInvoiceSource{err: errors.New("invoice service down")}
	job := newTestRetryJob(t, src, &fakePaymentHistory{}, &fakeProcessor{})

	_, err := job.RunPass(context.Background())
	require.Error(t, err)
}
