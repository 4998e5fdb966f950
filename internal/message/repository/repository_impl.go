package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() messagedomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, message *messagedomain.Message) error {
	return db.WithContext(ctx).Create(message).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*messagedomain.Message, error) {
	var message messagedomain.Message
	err := db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *repository) MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, status messagedomain.DeliveryStatus, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&messagedomain.Message{}).
		Where("id = ? AND settled_at IS NULL", id).
		Updates(map[string]any{
			"status":     status,
			"settled_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]messagedomain.Message, error) {
	var messages []messagedomain.Message
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&messages).Error
	return messages, err
}
