package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
)

func setupTestService(t *testing.T) (Service, *Repository) {
	t.Helper()

	repo, _ := setupTestRepo(t)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestMarkPaidStampsPaymentDate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)
	require.NoError(t, svc.MarkPaid(ctx, invoice.ID))

	loaded, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, loaded.PaymentStatus)
	require.NotNil(t, loaded.PaymentDate)
	assert.WithinDuration(t, time.Now().UTC(), *loaded.PaymentDate, time.Minute)
}

func TestMarkPaidTwiceKeepsFirstPaymentDate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)
	require.NoError(t, svc.MarkPaid(ctx, invoice.ID))

	first, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PaymentDate)

	require.NoError(t, svc.MarkPaid(ctx, invoice.ID))

	second, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, second.PaymentDate)
	assert.True(t, first.PaymentDate.Equal(*second.PaymentDate))
}

func TestMarkFailedClearsPaymentDate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)
	require.NoError(t, svc.MarkFailed(ctx, invoice.ID))

	loaded, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, loaded.PaymentStatus)
	assert.Nil(t, loaded.PaymentDate)
}

func TestMarkFailedRejectsPaidInvoice(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)
	require.NoError(t, svc.MarkPaid(ctx, invoice.ID))

	err := svc.MarkFailed(ctx, invoice.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListFailedFiltersStatus(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	createTestInvoice(t, repo)
	failed, err := repo.Create(ctx, CreateParams{
		CustomerID:    "cust-9",
		Amount:        decimal.NewFromInt(20),
		DueDate:       time.Now(),
		PaymentStatus: enums.PaymentStatusFailed,
	})
	require.NoError(t, err)

	result, err := svc.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, result.Invoices, 1)
	assert.Equal(t, failed.ID, result.Invoices[0].ID)
}
