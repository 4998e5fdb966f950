package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/pkg/db/pagination"
)

type Service interface {
	CreateAccount(ctx context.Context, name, currency string) (*Account, error)
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)

	// CanAfford is the pre-send affordability check. It is advisory:
	// the charge path re-verifies atomically.
	CanAfford(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal) (bool, error)

	// TopUp credits an account. An empty reference gets a generated one;
	// a repeated reference is a no-op returning the original entry.
	TopUp(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*LedgerEntry, error)

	// Charge debits amount (stored as a negative entry). Idempotent by
	// reference. ErrInsufficientBalance when the balance cannot cover it.
	Charge(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*LedgerEntry, error)

	// Refund credits amount back. Idempotent by reference.
	Refund(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*LedgerEntry, error)

	Entries(ctx context.Context, accountID snowflake.ID, page pagination.Pagination) ([]LedgerEntry, error)
}
