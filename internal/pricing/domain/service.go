package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Resolve returns the rule in effect for an account: the account
	// override when present, otherwise the global rule. ErrNoGlobalRule
	// when neither exists.
	Resolve(ctx context.Context, accountID snowflake.ID) (*PricingRule, error)

	// EnsureGlobal provisions the default global rule when missing.
	EnsureGlobal(ctx context.Context) (*PricingRule, error)

	GetGlobal(ctx context.Context) (*PricingRule, error)
	UpsertGlobal(ctx context.Context, spec RuleSpec) (*PricingRule, error)
	UpsertAccountRule(ctx context.Context, accountID snowflake.ID, spec RuleSpec) (*PricingRule, error)
	DeleteAccountRule(ctx context.Context, accountID snowflake.ID) error
	List(ctx context.Context) ([]PricingRule, error)
}
