package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/internal/config"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	ratingdomain "github.com/upeosms/upeo/internal/rating/domain"
	"github.com/upeosms/upeo/internal/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log *zap.Logger

	// What the upstream carrier charges the platform per segment.
	// Platform-wide, not part of any account's rule.
	providerCostPerPart decimal.Decimal
}

type ServiceParam struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
}

func NewService(p ServiceParam) (ratingdomain.Service, error) {
	cost, err := decimal.NewFromString(p.Config.Billing.ProviderCostPerPart)
	if err != nil {
		return nil, fmt.Errorf("parse billing.provider_cost_per_part: %w", err)
	}
	if cost.IsNegative() {
		return nil, fmt.Errorf("billing.provider_cost_per_part must not be negative")
	}

	return &Service{
		log:                 p.Log.Named("rating.service"),
		providerCostPerPart: cost,
	}, nil
}

// Calculate prices a transmission profile under a resolved rule. The
// charged amount is rounded half-up to the currency's two minor-unit
// decimals; profit is charged amount minus the platform's carrier cost.
func (s *Service) Calculate(rule *pricingdomain.PricingRule, profile sms.Profile) (ratingdomain.Computation, error) {
	if profile.Parts <= 0 {
		return ratingdomain.Computation{}, ratingdomain.ErrZeroParts
	}

	charged, err := chargeForParts(rule, profile.Parts)
	if err != nil {
		return ratingdomain.Computation{}, err
	}
	charged = roundCharge(charged)

	providerCost := s.providerCostPerPart.Mul(decimal.NewFromInt(int64(profile.Parts)))

	return ratingdomain.Computation{
		Encoding:       profile.Encoding,
		CharacterCount: profile.CharacterCount,
		Units:          profile.Units,
		Parts:          profile.Parts,
		Currency:       rule.Currency,
		ChargedAmount:  charged,
		ProviderCost:   providerCost,
		Profit:         charged.Sub(providerCost),
	}, nil
}

func chargeForParts(rule *pricingdomain.PricingRule, parts int) (decimal.Decimal, error) {
	qty := decimal.NewFromInt(int64(parts))

	switch rule.Mode {
	case pricingdomain.ModePerSMS:
		// Flat per message; parts still recorded for analytics.
		return rule.PricePerSMS, nil
	case pricingdomain.ModePerPart:
		return rule.PricePerPart.Mul(qty), nil
	case pricingdomain.ModeTiered:
		tier, ok := tierFor(rule.Tiers, parts)
		if !ok {
			return decimal.Zero, ratingdomain.ErrNoMatchingTier
		}
		return tier.PricePerPart.Mul(qty), nil
	default:
		return decimal.Zero, pricingdomain.ErrInvalidMode
	}
}

func tierFor(tiers []pricingdomain.RuleTier, parts int) (pricingdomain.RuleTier, bool) {
	for _, tier := range tiers {
		if parts >= tier.FromPart && parts <= tier.ToPart {
			return tier, true
		}
	}
	return pricingdomain.RuleTier{}, false
}

// roundCharge rounds half-up to two decimal places.
func roundCharge(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
