// Package domain holds the pricing-rule model and resolution contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/internal/sms"
)

type RuleScope string

const (
	// ScopeGlobal marks the singleton platform-wide rule. Exactly one
	// global rule exists at any time.
	ScopeGlobal RuleScope = "global"
	// ScopeAccount marks a per-account override; at most one per account.
	ScopeAccount RuleScope = "account"
)

type PricingMode string

const (
	ModePerPart PricingMode = "per_part"
	ModePerSMS  PricingMode = "per_sms"
	ModeTiered  PricingMode = "tiered"
)

// PricingRule governs how messages are priced for the accounts it covers.
// Mode selects which price fields apply: PricePerPart for per_part,
// PricePerSMS for per_sms, Tiers for tiered.
type PricingRule struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	Scope     RuleScope     `json:"scope" gorm:"type:text;not null;index"`
	AccountID *snowflake.ID `json:"account_id,omitempty" gorm:"uniqueIndex"`
	Currency  string        `json:"currency" gorm:"type:text;not null"`
	Mode      PricingMode   `json:"mode" gorm:"type:text;not null"`

	GSM7SingleCapacity       int `json:"gsm7_single_capacity" gorm:"not null;default:160"`
	GSM7ContinuationCapacity int `json:"gsm7_continuation_capacity" gorm:"not null;default:153"`
	UCS2SingleCapacity       int `json:"ucs2_single_capacity" gorm:"not null;default:70"`
	UCS2ContinuationCapacity int `json:"ucs2_continuation_capacity" gorm:"not null;default:67"`

	PricePerPart decimal.Decimal `json:"price_per_part" gorm:"type:numeric(20,4);not null"`
	PricePerSMS  decimal.Decimal `json:"price_per_sms" gorm:"type:numeric(20,4);not null"`
	Tiers        []RuleTier      `json:"tiers,omitempty" gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`

	ChargeOnFailure bool `json:"charge_on_failure" gorm:"not null"`
	RefundOnFailure bool `json:"refund_on_failure" gorm:"not null"`

	Version   int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (PricingRule) TableName() string { return "pricing_rules" }

// RuleTier maps an inclusive segment-count range to a per-part rate.
type RuleTier struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	RuleID       snowflake.ID    `json:"-" gorm:"not null;index"`
	FromPart     int             `json:"from_part" gorm:"not null"`
	ToPart       int             `json:"to_part" gorm:"not null"`
	PricePerPart decimal.Decimal `json:"price_per_part" gorm:"type:numeric(20,4);not null"`
}

func (RuleTier) TableName() string { return "rule_tiers" }

// Capacities maps the rule's segment budgets onto the segmenter's input.
func (r *PricingRule) Capacities() sms.Capacities {
	return sms.Capacities{
		GSM7Single:       r.GSM7SingleCapacity,
		GSM7Continuation: r.GSM7ContinuationCapacity,
		UCS2Single:       r.UCS2SingleCapacity,
		UCS2Continuation: r.UCS2ContinuationCapacity,
	}
}

// Validate checks mode-specific invariants before a rule is persisted.
func (r *PricingRule) Validate() error {
	if r.Currency == "" {
		return ErrInvalidCurrency
	}
	if r.GSM7SingleCapacity <= 0 || r.GSM7ContinuationCapacity <= 0 ||
		r.UCS2SingleCapacity <= 0 || r.UCS2ContinuationCapacity <= 0 {
		return ErrInvalidCapacity
	}

	switch r.Mode {
	case ModePerPart:
		if r.PricePerPart.IsNegative() {
			return ErrNegativePrice
		}
	case ModePerSMS:
		if r.PricePerSMS.IsNegative() {
			return ErrNegativePrice
		}
	case ModeTiered:
		if len(r.Tiers) == 0 {
			return ErrEmptyTiers
		}
		for _, tier := range r.Tiers {
			if tier.FromPart < 1 || tier.ToPart < tier.FromPart {
				return ErrInvalidTierRange
			}
			if tier.PricePerPart.IsNegative() {
				return ErrNegativePrice
			}
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

// RuleSpec is the admin-facing payload for creating or replacing a rule.
type RuleSpec struct {
	Currency string      `json:"currency"`
	Mode     PricingMode `json:"mode" binding:"required"`

	GSM7SingleCapacity       int `json:"gsm7_single_capacity"`
	GSM7ContinuationCapacity int `json:"gsm7_continuation_capacity"`
	UCS2SingleCapacity       int `json:"ucs2_single_capacity"`
	UCS2ContinuationCapacity int `json:"ucs2_continuation_capacity"`

	PricePerPart decimal.Decimal `json:"price_per_part"`
	PricePerSMS  decimal.Decimal `json:"price_per_sms"`
	Tiers        []TierSpec      `json:"tiers"`

	ChargeOnFailure bool `json:"charge_on_failure"`
	RefundOnFailure bool `json:"refund_on_failure"`
}

type TierSpec struct {
	FromPart     int             `json:"from_part"`
	ToPart       int             `json:"to_part"`
	PricePerPart decimal.Decimal `json:"price_per_part"`
}

// ApplyDefaults fills unset capacities and currency.
func (s *RuleSpec) ApplyDefaults(currency string) {
	caps := sms.DefaultCapacities()
	if s.Currency == "" {
		s.Currency = currency
	}
	if s.GSM7SingleCapacity == 0 {
		s.GSM7SingleCapacity = caps.GSM7Single
	}
	if s.GSM7ContinuationCapacity == 0 {
		s.GSM7ContinuationCapacity = caps.GSM7Continuation
	}
	if s.UCS2SingleCapacity == 0 {
		s.UCS2SingleCapacity = caps.UCS2Single
	}
	if s.UCS2ContinuationCapacity == 0 {
		s.UCS2ContinuationCapacity = caps.UCS2Continuation
	}
}
