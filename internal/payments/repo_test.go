package payments

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
	"github.com/billifyhq/billify-backend/pkg/kv"
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

func TestCreateStampsPaymentDateServerSide(t *testing.T) {
	repo, _ := setupTestRepo(t)
	fixed := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	payment, err := repo.Create(context.Background(), CreateParams{
		InvoiceID:     "inv-1",
		Amount:        decimal.NewFromInt(49),
		PaymentMethod: enums.PaymentMethodCreditCard,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.True(t, fixed.Equal(payment.PaymentDate))
}

func TestCreateValidation(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: enums.PaymentMethodCreditCard,
	})
	require.Error(t, err)

	_, err = repo.Create(ctx, CreateParams{
		InvoiceID:     "inv-1",
		Amount:        decimal.Zero,
		PaymentMethod: enums.PaymentMethodCreditCard,
	})
	require.Error(t, err)

	_, err = repo.Create(ctx, CreateParams{
		InvoiceID:     "inv-1",
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: enums.PaymentMethod("wire"),
	})
	require.Error(t, err)
}

func TestEveryAttemptAppendsANewRecord(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	params := CreateParams{
		InvoiceID:     "inv-1",
		Amount:        decimal.NewFromInt(49),
		PaymentMethod: enums.PaymentMethodPayPal,
	}
	first, err := repo.Create(ctx, params)
	require.NoError(t, err)
	second, err := repo.Create(ctx, params)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	result, err := repo.ListByInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Len(t, result.Payments, 2)
}

func TestListCountsUnreadablePayments(t *testing.T) {
	repo, store := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{
		InvoiceID:     "inv-1",
		Amount:        decimal.NewFromInt(49),
		PaymentMethod: enums.PaymentMethodMada,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, KeyPrefix+"corrupt", "{"))

	result, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Payments, 1)
	assert.Equal(t, 1, result.Dropped)
}
