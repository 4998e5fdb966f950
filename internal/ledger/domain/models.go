// Package domain holds the account balance and ledger-entry models.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Account carries the authoritative credit balance. All balance movement
// goes through ledger entries; the column is never written directly by
// callers.
type Account struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric(20,4);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

type EntryType string

const (
	EntryTypeTopUp  EntryType = "top_up"
	EntryTypeCharge EntryType = "charge"
	EntryTypeRefund EntryType = "refund"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// LedgerEntry is an immutable record of one balance-affecting event.
// Amount is signed: charges are negative, top-ups and refunds positive.
// Reference is the idempotency key; the unique index makes replays
// detectable at the database level.
type LedgerEntry struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	AccountID snowflake.ID    `json:"account_id" gorm:"not null;index"`
	Type      EntryType       `json:"type" gorm:"type:text;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,4);not null"`
	Reference string          `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	Status    EntryStatus     `json:"status" gorm:"type:text;not null"`
	Metadata  datatypes.JSON  `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance is raised by the affordability pre-check
	// and by the charge path itself; surfaced as an "add funds" condition.
	ErrInsufficientBalance = errors.New("insufficient account balance")

	ErrInvalidAmount = errors.New("ledger amounts must be positive")
)
