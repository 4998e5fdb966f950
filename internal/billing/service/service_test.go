package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingdomain "github.com/upeosms/upeo/internal/billing/domain"
	"github.com/upeosms/upeo/internal/clock"
	"github.com/upeosms/upeo/internal/config"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	ledgerservice "github.com/upeosms/upeo/internal/ledger/service"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	"github.com/upeosms/upeo/internal/observability"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	pricingservice "github.com/upeosms/upeo/internal/pricing/service"
	ratingservice "github.com/upeosms/upeo/internal/rating/service"
	"github.com/upeosms/upeo/internal/sms"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	billing billingdomain.Service
	pricing pricingdomain.Service
	ledger  ledgerdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&pricingdomain.PricingRule{},
		&pricingdomain.RuleTier{},
		&ledgerdomain.Account{},
		&ledgerdomain.LedgerEntry{},
		&messagedomain.Message{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	clk := clock.New()

	cfg := config.Config{
		Billing: config.BillingConfig{
			Currency:            "KES",
			ProviderCostPerPart: "0.60",
		},
	}

	pricingSvc := pricingservice.NewService(pricingservice.ServiceParam{
		DB:     conn,
		Log:    logger,
		GenID:  node,
		Clock:  clk,
		Config: cfg,
	})

	ratingSvc, err := ratingservice.NewService(ratingservice.ServiceParam{
		Log:    logger,
		Config: cfg,
	})
	require.NoError(t, err)

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:    conn,
		Log:   logger,
		GenID: node,
		Clock: clk,
	})

	metrics := observability.NewMetrics(observability.NewRegistry())

	billingSvc := NewService(ServiceParam{
		DB:      conn,
		Log:     logger,
		GenID:   node,
		Clock:   clk,
		Pricing: pricingSvc,
		Rating:  ratingSvc,
		Ledger:  ledgerSvc,
		Metrics: metrics,
	})

	return &fixture{billing: billingSvc, pricing: pricingSvc, ledger: ledgerSvc}
}

func (f *fixture) globalPerPart(t *testing.T, price string, refundOnFailure bool) {
	t.Helper()
	_, err := f.pricing.UpsertGlobal(context.Background(), pricingdomain.RuleSpec{
		Mode:            pricingdomain.ModePerPart,
		PricePerPart:    decimal.RequireFromString(price),
		RefundOnFailure: refundOnFailure,
	})
	require.NoError(t, err)
}

func (f *fixture) fundedAccount(t *testing.T, balance string) snowflake.ID {
	t.Helper()
	ctx := context.Background()
	account, err := f.ledger.CreateAccount(ctx, "test account", "KES")
	require.NoError(t, err)
	if balance != "" {
		_, err = f.ledger.TopUp(ctx, account.ID, decimal.RequireFromString(balance), "", nil)
		require.NoError(t, err)
	}
	return account.ID
}

func TestPreviewHelloWorld(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "")

	comp, err := f.billing.Preview(context.Background(), accountID, "Hello World")
	require.NoError(t, err)

	assert.Equal(t, sms.EncodingGSM7, comp.Encoding)
	assert.Equal(t, 11, comp.CharacterCount)
	assert.Equal(t, 1, comp.Parts)
	assert.Equal(t, "2.00", comp.ChargedAmount.StringFixed(2))
	assert.Equal(t, "0.60", comp.ProviderCost.StringFixed(2))
	assert.Equal(t, "1.40", comp.Profit.StringFixed(2))
}

func TestPreviewMultiPart(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "")

	// 200 GSM-7 chars: ceil(200/153) = 2 parts.
	comp, err := f.billing.Preview(context.Background(), accountID, strings.Repeat("a", 200))
	require.NoError(t, err)
	assert.Equal(t, 2, comp.Parts)
	assert.Equal(t, "4.00", comp.ChargedAmount.StringFixed(2))
}

func TestPreviewUsesAccountOverride(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "1.00", true) // global is cheaper
	accountID := f.fundedAccount(t, "")

	_, err := f.pricing.UpsertAccountRule(context.Background(), accountID, pricingdomain.RuleSpec{
		Mode:         pricingdomain.ModePerPart,
		PricePerPart: decimal.RequireFromString("3.50"),
	})
	require.NoError(t, err)

	comp, err := f.billing.Preview(context.Background(), accountID, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "3.50", comp.ChargedAmount.StringFixed(2), "override wins even when global is cheaper")

	// Another account still gets the global rule.
	other := f.fundedAccount(t, "")
	comp, err = f.billing.Preview(context.Background(), other, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "1.00", comp.ChargedAmount.StringFixed(2))
}

func TestPreviewErrors(t *testing.T) {
	f := newFixture(t)
	accountID := f.fundedAccount(t, "")

	_, err := f.billing.Preview(context.Background(), accountID, "")
	assert.ErrorIs(t, err, billingdomain.ErrEmptyMessage)

	// No global rule provisioned yet.
	_, err = f.billing.Preview(context.Background(), accountID, "Hello")
	assert.ErrorIs(t, err, pricingdomain.ErrNoGlobalRule)
}

func TestSendAndCharge(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "10.00")
	ctx := context.Background()

	message, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	require.NoError(t, err)
	assert.Equal(t, messagedomain.StatusPending, message.Status)
	assert.Equal(t, 1, message.Parts)
	assert.Equal(t, "2.00", message.ChargedAmount.StringFixed(2))
	assert.True(t, message.RefundOnFailure)

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "8.00", account.Balance.StringFixed(2))

	got, err := f.billing.GetMessage(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, message.ID, got.ID)

	list, err := f.billing.ListMessages(ctx, accountID, pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSendAndChargeInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "1.00")
	ctx := context.Background()

	_, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientBalance)

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "1.00", account.Balance.StringFixed(2))

	list, err := f.billing.ListMessages(ctx, accountID, pagination.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, list, "no message record for a rejected send")
}

func TestSettleFailedRefundsOnce(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "10.00")
	ctx := context.Background()

	message, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	require.NoError(t, err)

	require.NoError(t, f.billing.SettleOutcome(ctx, message.ID, messagedomain.StatusFailed))
	// Duplicate webhook callback.
	require.NoError(t, f.billing.SettleOutcome(ctx, message.ID, messagedomain.StatusFailed))

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", account.Balance.StringFixed(2), "charge fully refunded, exactly once")

	entries, err := f.ledger.Entries(ctx, accountID, pagination.Pagination{})
	require.NoError(t, err)
	refunds := 0
	for _, e := range entries {
		if e.Type == ledgerdomain.EntryTypeRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds)

	got, err := f.billing.GetMessage(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, messagedomain.StatusFailed, got.Status)
	assert.NotNil(t, got.SettledAt)
}

func TestSettleFailedWithoutRefundPolicy(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", false)
	accountID := f.fundedAccount(t, "10.00")
	ctx := context.Background()

	message, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	require.NoError(t, err)

	require.NoError(t, f.billing.SettleOutcome(ctx, message.ID, messagedomain.StatusFailed))

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "8.00", account.Balance.StringFixed(2), "charge retained when refund_on_failure is off")
}

func TestSettleDelivered(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "10.00")
	ctx := context.Background()

	message, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	require.NoError(t, err)

	require.NoError(t, f.billing.SettleOutcome(ctx, message.ID, messagedomain.StatusDelivered))

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "8.00", account.Balance.StringFixed(2), "success keeps the charge")
}

func TestSettleValidation(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	ctx := context.Background()

	err := f.billing.SettleOutcome(ctx, snowflake.ID(99), messagedomain.StatusPending)
	assert.ErrorIs(t, err, messagedomain.ErrNotTerminal)

	err = f.billing.SettleOutcome(ctx, snowflake.ID(99), messagedomain.StatusFailed)
	assert.ErrorIs(t, err, messagedomain.ErrMessageNotFound)
}

func TestSettlePolicySnapshotAtSendTime(t *testing.T) {
	f := newFixture(t)
	f.globalPerPart(t, "2.00", true)
	accountID := f.fundedAccount(t, "10.00")
	ctx := context.Background()

	message, err := f.billing.SendAndCharge(ctx, accountID, "Hello World")
	require.NoError(t, err)

	// Admin flips the refund policy off after the send.
	f.globalPerPart(t, "2.00", false)

	require.NoError(t, f.billing.SettleOutcome(ctx, message.ID, messagedomain.StatusFailed))

	account, err := f.ledger.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", account.Balance.StringFixed(2), "policy captured at send time still applies")
}
