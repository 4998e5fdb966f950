package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upeosms/upeo/internal/config"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	ratingdomain "github.com/upeosms/upeo/internal/rating/domain"
	"github.com/upeosms/upeo/internal/sms"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, providerCost string) ratingdomain.Service {
	t.Helper()
	svc, err := NewService(ServiceParam{
		Log: zap.NewNop(),
		Config: config.Config{
			Billing: config.BillingConfig{
				Currency:            "KES",
				ProviderCostPerPart: providerCost,
			},
		},
	})
	require.NoError(t, err)
	return svc
}

func gsm7Profile(parts int) sms.Profile {
	return sms.Profile{
		Encoding:       sms.EncodingGSM7,
		CharacterCount: parts * 100,
		Units:          parts * 100,
		Parts:          parts,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculatePerPart(t *testing.T) {
	svc := newTestService(t, "0.60")

	rule := &pricingdomain.PricingRule{
		Currency:     "KES",
		Mode:         pricingdomain.ModePerPart,
		PricePerPart: dec("2.00"),
	}

	comp, err := svc.Calculate(rule, gsm7Profile(3))
	require.NoError(t, err)
	assert.True(t, dec("6.00").Equal(comp.ChargedAmount), comp.ChargedAmount.String())
	assert.True(t, dec("1.80").Equal(comp.ProviderCost), comp.ProviderCost.String())
	assert.True(t, dec("4.20").Equal(comp.Profit), comp.Profit.String())
	assert.Equal(t, "KES", comp.Currency)
	assert.Equal(t, 3, comp.Parts)
}

func TestCalculatePerSMSIgnoresParts(t *testing.T) {
	svc := newTestService(t, "0.50")

	rule := &pricingdomain.PricingRule{
		Currency:    "KES",
		Mode:        pricingdomain.ModePerSMS,
		PricePerSMS: dec("5.00"),
	}

	for _, parts := range []int{1, 3, 10} {
		comp, err := svc.Calculate(rule, gsm7Profile(parts))
		require.NoError(t, err)
		assert.True(t, dec("5.00").Equal(comp.ChargedAmount))
		assert.Equal(t, parts, comp.Parts, "parts still recorded")
	}
}

func TestCalculateTiered(t *testing.T) {
	svc := newTestService(t, "0.60")

	rule := &pricingdomain.PricingRule{
		Currency: "KES",
		Mode:     pricingdomain.ModeTiered,
		Tiers: []pricingdomain.RuleTier{
			{FromPart: 1, ToPart: 1, PricePerPart: dec("3.00")},
			{FromPart: 2, ToPart: 5, PricePerPart: dec("2.50")},
		},
	}

	comp, err := svc.Calculate(rule, gsm7Profile(2))
	require.NoError(t, err)
	assert.True(t, dec("5.00").Equal(comp.ChargedAmount), comp.ChargedAmount.String())

	comp, err = svc.Calculate(rule, gsm7Profile(1))
	require.NoError(t, err)
	assert.True(t, dec("3.00").Equal(comp.ChargedAmount))

	_, err = svc.Calculate(rule, gsm7Profile(10))
	assert.ErrorIs(t, err, ratingdomain.ErrNoMatchingTier)
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	svc := newTestService(t, "0")

	rule := &pricingdomain.PricingRule{
		Currency:     "KES",
		Mode:         pricingdomain.ModePerPart,
		PricePerPart: dec("1.1250"),
	}

	comp, err := svc.Calculate(rule, gsm7Profile(1))
	require.NoError(t, err)
	assert.Equal(t, "1.13", comp.ChargedAmount.StringFixed(2))

	comp, err = svc.Calculate(rule, gsm7Profile(3))
	require.NoError(t, err)
	// 3.3750 rounds up to 3.38.
	assert.Equal(t, "3.38", comp.ChargedAmount.StringFixed(2))
}

func TestCalculateZeroParts(t *testing.T) {
	svc := newTestService(t, "0.60")

	rule := &pricingdomain.PricingRule{
		Currency:     "KES",
		Mode:         pricingdomain.ModePerPart,
		PricePerPart: dec("2.00"),
	}

	_, err := svc.Calculate(rule, sms.Profile{Encoding: sms.EncodingGSM7})
	assert.ErrorIs(t, err, ratingdomain.ErrZeroParts)
}

func TestNewServiceRejectsBadProviderCost(t *testing.T) {
	_, err := NewService(ServiceParam{
		Log: zap.NewNop(),
		Config: config.Config{
			Billing: config.BillingConfig{ProviderCostPerPart: "not-a-number"},
		},
	})
	assert.Error(t, err)

	_, err = NewService(ServiceParam{
		Log: zap.NewNop(),
		Config: config.Config{
			Billing: config.BillingConfig{ProviderCostPerPart: "-1"},
		},
	})
	assert.Error(t, err)
}
