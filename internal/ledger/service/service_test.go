package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upeosms/upeo/internal/clock"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) ledgerdomain.Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// The concurrency tests hammer one in-memory handle; a single
	// connection keeps sqlite from returning busy errors.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(&ledgerdomain.Account{}, &ledgerdomain.LedgerEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.New(),
	})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTopUpAndBalance(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "Acme Distributors", "KES")
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())

	entry, err := svc.TopUp(ctx, account.ID, dec("100.00"), "mpesa-ref-1", map[string]any{"channel": "mpesa"})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryTypeTopUp, entry.Type)
	assert.True(t, dec("100.00").Equal(entry.Amount))

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("100.00").Equal(got.Balance))

	// Replaying the same reference must not double-credit.
	again, err := svc.TopUp(ctx, account.ID, dec("100.00"), "mpesa-ref-1", nil)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)

	got, err = svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("100.00").Equal(got.Balance))
}

func TestChargeDebitsAndIsIdempotent(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "test", "KES")
	require.NoError(t, err)
	_, err = svc.TopUp(ctx, account.ID, dec("10.00"), "seed", nil)
	require.NoError(t, err)

	entry, err := svc.Charge(ctx, account.ID, dec("4.00"), "sms-1-charge", nil)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryTypeCharge, entry.Type)
	assert.True(t, dec("-4.00").Equal(entry.Amount), "charges are stored as debits")

	// Same reference again: no-op, no double debit.
	again, err := svc.Charge(ctx, account.ID, dec("4.00"), "sms-1-charge", nil)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("6.00").Equal(got.Balance))
}

func TestChargeInsufficientBalance(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "broke", "KES")
	require.NoError(t, err)
	_, err = svc.TopUp(ctx, account.ID, dec("1.00"), "seed", nil)
	require.NoError(t, err)

	_, err = svc.Charge(ctx, account.ID, dec("2.00"), "sms-2-charge", nil)
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientBalance)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("1.00").Equal(got.Balance), "failed charge must not move the balance")

	ok, err := svc.CanAfford(ctx, account.ID, dec("1.00"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CanAfford(ctx, account.ID, dec("1.01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefundIsIdempotent(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "test", "KES")
	require.NoError(t, err)
	_, err = svc.TopUp(ctx, account.ID, dec("10.00"), "seed", nil)
	require.NoError(t, err)
	_, err = svc.Charge(ctx, account.ID, dec("4.00"), "sms-3-charge", nil)
	require.NoError(t, err)

	refund, err := svc.Refund(ctx, account.ID, dec("4.00"), "sms-3-refund", nil)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryTypeRefund, refund.Type)

	again, err := svc.Refund(ctx, account.ID, dec("4.00"), "sms-3-refund", nil)
	require.NoError(t, err)
	assert.Equal(t, refund.ID, again.ID)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(got.Balance))

	entries, err := svc.Entries(ctx, account.ID, pagination.Pagination{})
	require.NoError(t, err)
	refunds := 0
	for _, e := range entries {
		if e.Type == ledgerdomain.EntryTypeRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds, "exactly one refund entry despite the replay")
}

func TestConcurrentChargesNeverOverdraw(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "race", "KES")
	require.NoError(t, err)

	// Balance covers exactly 50 of the 100 concurrent charges.
	_, err = svc.TopUp(ctx, account.ID, dec("50.00"), "seed", nil)
	require.NoError(t, err)

	const attempts = 100
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Charge(ctx, account.ID, dec("1.00"), fmt.Sprintf("race-%d", n), nil)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientBalance):
			rejected++
		}
	}

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 50, rejected)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero(), "final balance must be exactly zero, got %s", got.Balance)
}

func TestChargeUnknownAccount(t *testing.T) {
	svc := newTestLedger(t)

	_, err := svc.Charge(context.Background(), snowflake.ID(42), dec("1.00"), "ref", nil)
	assert.ErrorIs(t, err, ledgerdomain.ErrAccountNotFound)
}

func TestInvalidAmounts(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "test", "KES")
	require.NoError(t, err)

	_, err = svc.Charge(ctx, account.ID, decimal.Zero, "ref-a", nil)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)
	_, err = svc.TopUp(ctx, account.ID, dec("-5"), "ref-b", nil)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)
	_, err = svc.Refund(ctx, account.ID, decimal.Zero, "ref-c", nil)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)
}
