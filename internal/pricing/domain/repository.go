package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindGlobal returns the singleton global rule, or nil when absent.
	FindGlobal(ctx context.Context, db *gorm.DB) (*PricingRule, error)
	// FindByAccount returns the account override, or nil when absent.
	FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*PricingRule, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PricingRule, error)
	Insert(ctx context.Context, db *gorm.DB, rule *PricingRule) error
	// Update replaces a rule in place, guarded by its version, and
	// rewrites its tier rows.
	Update(ctx context.Context, db *gorm.DB, rule *PricingRule) error
	DeleteByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB) ([]PricingRule, error)
}
