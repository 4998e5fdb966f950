package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	FindAccount(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)

	// DebitIfSufficient atomically decrements the balance when it covers
	// amount; reports whether the debit happened. This is the guard that
	// closes the check-then-act window across concurrent sends.
	DebitIfSufficient(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount decimal.Decimal, at time.Time) (bool, error)
	Credit(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount decimal.Decimal, at time.Time) error

	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	FindEntryByReference(ctx context.Context, db *gorm.DB, reference string) (*LedgerEntry, error)
	ListEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]LedgerEntry, error)
}
