// Package domain defines the cost-computation output and contracts.
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	"github.com/upeosms/upeo/internal/sms"
)

// Computation is the priced footprint of one message under a resolved
// rule. It is computed at preview/send time and snapshotted onto the
// message record.
type Computation struct {
	Encoding       sms.Encoding    `json:"encoding"`
	CharacterCount int             `json:"character_count"`
	Units          int             `json:"units"`
	Parts          int             `json:"parts"`
	Currency       string          `json:"currency"`
	ChargedAmount  decimal.Decimal `json:"charged_amount"`
	ProviderCost   decimal.Decimal `json:"provider_cost"`
	Profit         decimal.Decimal `json:"profit"`
}

var (
	// ErrNoMatchingTier means a tiered rule has no tier covering the
	// message's part count. Configuration error; never masked with a
	// fallback price.
	ErrNoMatchingTier = errors.New("no pricing tier covers the part count")

	// ErrZeroParts means the profile has no transmission parts, so
	// there is nothing to charge for.
	ErrZeroParts = errors.New("cannot price a message with zero parts")
)

type Service interface {
	Calculate(rule *pricingdomain.PricingRule, profile sms.Profile) (Computation, error)
}
