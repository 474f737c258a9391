package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/records"
)

func setupTestRepo(t *testing.T) (*Repository, *kv.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	store := kv.NewFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() {
		_ = store.Close()
	})

	repo, err := NewRepository(store)
	require.NoError(t, err)
	return repo, store
}

func createTestInvoice(t *testing.T, repo *Repository) *records.Invoice {
	t.Helper()

	invoice, err := repo.Create(context.Background(), CreateParams{
		CustomerID:    "cust-1",
		Amount:        decimal.NewFromInt(49),
		DueDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentStatus: enums.PaymentStatusPending,
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateAndGetInvoice(t *testing.T) {
	repo, _ := setupTestRepo(t)

	invoice := createTestInvoice(t, repo)
	assert.NotEmpty(t, invoice.ID)
	assert.Nil(t, invoice.PaymentDate)

	loaded, err := repo.Get(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.CustomerID, loaded.CustomerID)
	assert.True(t, invoice.Amount.Equal(loaded.Amount))
	assert.Equal(t, enums.PaymentStatusPending, loaded.PaymentStatus)
}

func TestGetMissingInvoice(t *testing.T) {
	repo, _ := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCreateInvoiceValidation(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{
		Amount:        decimal.NewFromInt(10),
		DueDate:       time.Now(),
		PaymentStatus: enums.PaymentStatusPending,
	})
	require.Error(t, err)

	_, err = repo.Create(ctx, CreateParams{
		CustomerID:    "cust-1",
		Amount:        decimal.NewFromInt(-5),
		DueDate:       time.Now(),
		PaymentStatus: enums.PaymentStatusPending,
	})
	require.Error(t, err)

	_, err = repo.Create(ctx, CreateParams{
		CustomerID:    "cust-1",
		Amount:        decimal.NewFromInt(10),
		DueDate:       time.Now(),
		PaymentStatus: enums.PaymentStatus("bogus"),
	})
	require.Error(t, err)
}

func TestUpdateMergesOnlySuppliedFields(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)

	paid := enums.PaymentStatusPaid
	paidAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, invoice.ID, UpdateParams{
		PaymentStatus: &paid,
		PaymentDate:   &paidAt,
	})
	require.NoError(t, err)

	assert.Equal(t, invoice.CustomerID, updated.CustomerID)
	assert.True(t, invoice.Amount.Equal(updated.Amount))
	assert.True(t, invoice.DueDate.Equal(updated.DueDate))
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaymentDate)
	assert.True(t, paidAt.Equal(*updated.PaymentDate))
}

func TestUpdateClearsPaymentDate(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	invoice := createTestInvoice(t, repo)

	paid := enums.PaymentStatusPaid
	paidAt := time.Now().UTC()
	_, err := repo.Update(ctx, invoice.ID, UpdateParams{PaymentStatus: &paid, PaymentDate: &paidAt})
	require.NoError(t, err)

	failed := enums.PaymentStatusFailed
	updated, err := repo.Update(ctx, invoice.ID, UpdateParams{
		PaymentStatus:    &failed,
		ClearPaymentDate: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.PaymentDate)
	assert.Equal(t, enums.PaymentStatusFailed, updated.PaymentStatus)
}

func TestListCountsUnreadableRecords(t *testing.T) {
	repo, store := setupTestRepo(t)
	ctx := context.Background()

	createTestInvoice(t, repo)
	require.NoError(t, store.Put(ctx, KeyPrefix+"corrupt", "not-json"))

	result, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Invoices, 1)
	assert.Equal(t, 1, result.Dropped)
}

func TestListByCustomerAndStatus(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	first := createTestInvoice(t, repo)
	_, err := repo.Create(ctx, CreateParams{
		CustomerID:    "cust-2",
		Amount:        decimal.NewFromInt(99),
		DueDate:       time.Now(),
		PaymentStatus: enums.PaymentStatusFailed,
	})
	require.NoError(t, err)

	byCustomer, err := repo.ListByCustomer(ctx, first.CustomerID)
	require.NoError(t, err)
	require.Len(t, byCustomer.Invoices, 1)
	assert.Equal(t, first.ID, byCustomer.Invoices[0].ID)

	failed, err := repo.ListByStatus(ctx, enums.PaymentStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed.Invoices, 1)
	assert.Equal(t, "cust-2", failed.Invoices[0].CustomerID)
}
