// Package seed provisions the baseline data a fresh deployment needs:
// the global pricing rule and, optionally, a funded demo account.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	"github.com/upeosms/upeo/internal/sms"
	"gorm.io/gorm"
)

const (
	demoAccountName     = "Demo Account"
	demoCreditReference = "seed-demo-initial-credit"
	demoInitialCredit   = "100.00"
	defaultPricePerPart = "1.00"
)

// EnsureGlobalRule seeds the default global pricing rule when none
// exists. Safe to run on every startup.
func EnsureGlobalRule(db *gorm.DB, currency string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&pricingdomain.PricingRule{}).
			Where("scope = ?", pricingdomain.ScopeGlobal).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		caps := sms.DefaultCapacities()
		now := time.Now().UTC()
		rule := &pricingdomain.PricingRule{
			ID:       node.Generate(),
			Scope:    pricingdomain.ScopeGlobal,
			Currency: currency,
			Mode:     pricingdomain.ModePerPart,

			GSM7SingleCapacity:       caps.GSM7Single,
			GSM7ContinuationCapacity: caps.GSM7Continuation,
			UCS2SingleCapacity:       caps.UCS2Single,
			UCS2ContinuationCapacity: caps.UCS2Continuation,

			PricePerPart:    decimal.RequireFromString(defaultPricePerPart),
			RefundOnFailure: true,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.Create(rule).Error
	})
}

// EnsureDemoAccount seeds a funded account for local development.
func EnsureDemoAccount(db *gorm.DB, currency string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ledgerdomain.Account{}).
			Where("name = ?", demoAccountName).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		credit := decimal.RequireFromString(demoInitialCredit)
		now := time.Now().UTC()
		account := &ledgerdomain.Account{
			ID:        node.Generate(),
			Name:      demoAccountName,
			Currency:  currency,
			Balance:   credit,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(account).Error; err != nil {
			return err
		}

		// The balance must stay explainable from the ledger alone.
		entry := &ledgerdomain.LedgerEntry{
			ID:        node.Generate(),
			AccountID: account.ID,
			Type:      ledgerdomain.EntryTypeTopUp,
			Amount:    credit,
			Reference: demoCreditReference,
			Status:    ledgerdomain.EntryStatusCompleted,
			CreatedAt: now,
		}
		return tx.Create(entry).Error
	})
}
