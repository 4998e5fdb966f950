// Package domain holds the outbound message record.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/internal/sms"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Terminal reports whether the status ends the billing lifecycle. Sent
// counts as terminal success: carriers do not always report delivery.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusFailed
}

// Message snapshots the cost computation and the refund policy that was
// in effect at send time, so settlement stays deterministic even when
// the pricing rule changes afterwards.
type Message struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID snowflake.ID `json:"account_id" gorm:"not null;index"`
	Body      string       `json:"body" gorm:"type:text;not null"`

	Encoding       sms.Encoding    `json:"encoding" gorm:"type:text;not null"`
	CharacterCount int             `json:"character_count" gorm:"not null"`
	Units          int             `json:"units" gorm:"not null"`
	Parts          int             `json:"parts" gorm:"not null"`
	Currency       string          `json:"currency" gorm:"type:text;not null"`
	ChargedAmount  decimal.Decimal `json:"charged_amount" gorm:"type:numeric(20,4);not null"`
	ProviderCost   decimal.Decimal `json:"provider_cost" gorm:"type:numeric(20,4);not null"`
	Profit         decimal.Decimal `json:"profit" gorm:"type:numeric(20,4);not null"`

	RefundOnFailure bool `json:"refund_on_failure" gorm:"not null"`

	Status    DeliveryStatus `json:"status" gorm:"type:text;not null;index"`
	SettledAt *time.Time     `json:"settled_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (Message) TableName() string { return "messages" }

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotTerminal     = errors.New("delivery outcome is not terminal")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, message *Message) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Message, error)
	// MarkSettled transitions a message to its terminal status exactly
	// once; reports whether this call performed the transition.
	MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, status DeliveryStatus, at time.Time) (bool, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]Message, error)
}
