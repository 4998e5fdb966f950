package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() ledgerdomain.Repository {
	return &repository{}
}

func (r *repository) InsertAccount(ctx context.Context, db *gorm.DB, account *ledgerdomain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccount(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ledgerdomain.Account, error) {
	var account ledgerdomain.Account
	err := db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) DebitIfSufficient(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount decimal.Decimal, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&ledgerdomain.Account{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Credit(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount decimal.Decimal, at time.Time) error {
	result := db.WithContext(ctx).
		Model(&ledgerdomain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrAccountNotFound
	}
	return nil
}

func (r *repository) InsertEntry(ctx context.Context, db *gorm.DB, entry *ledgerdomain.LedgerEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindEntryByReference(ctx context.Context, db *gorm.DB, reference string) (*ledgerdomain.LedgerEntry, error) {
	var entry ledgerdomain.LedgerEntry
	err := db.WithContext(ctx).Where("reference = ?", reference).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]ledgerdomain.LedgerEntry, error) {
	var entries []ledgerdomain.LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&entries).Error
	return entries, err
}
