package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	"gorm.io/gorm"
)

type repository struct{}

func NewRepository() pricingdomain.Repository {
	return &repository{}
}

func (r *repository) FindGlobal(ctx context.Context, db *gorm.DB) (*pricingdomain.PricingRule, error) {
	var rule pricingdomain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers").
		Where("scope = ?", pricingdomain.ScopeGlobal).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*pricingdomain.PricingRule, error) {
	var rule pricingdomain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers").
		Where("scope = ? AND account_id = ?", pricingdomain.ScopeAccount, accountID).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pricingdomain.PricingRule, error) {
	var rule pricingdomain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers").
		Where("id = ?", id).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, rule *pricingdomain.PricingRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, rule *pricingdomain.PricingRule) error {
	result := db.WithContext(ctx).
		Model(&pricingdomain.PricingRule{}).
		Where("id = ? AND version = ?", rule.ID, rule.Version).
		Updates(map[string]any{
			"currency":                   rule.Currency,
			"mode":                       rule.Mode,
			"gsm7_single_capacity":       rule.GSM7SingleCapacity,
			"gsm7_continuation_capacity": rule.GSM7ContinuationCapacity,
			"ucs2_single_capacity":       rule.UCS2SingleCapacity,
			"ucs2_continuation_capacity": rule.UCS2ContinuationCapacity,
			"price_per_part":             rule.PricePerPart,
			"price_per_sms":              rule.PricePerSMS,
			"charge_on_failure":          rule.ChargeOnFailure,
			"refund_on_failure":          rule.RefundOnFailure,
			"version":                    rule.Version + 1,
			"updated_at":                 rule.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pricingdomain.ErrVersionConflict
	}
	rule.Version++

	if err := db.WithContext(ctx).
		Where("rule_id = ?", rule.ID).
		Delete(&pricingdomain.RuleTier{}).Error; err != nil {
		return err
	}
	if len(rule.Tiers) == 0 {
		return nil
	}
	for i := range rule.Tiers {
		rule.Tiers[i].RuleID = rule.ID
	}
	return db.WithContext(ctx).Create(&rule.Tiers).Error
}

func (r *repository) DeleteByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (bool, error) {
	rule, err := r.FindByAccount(ctx, db, accountID)
	if err != nil {
		return false, err
	}
	if rule == nil {
		return false, nil
	}

	if err := db.WithContext(ctx).
		Where("rule_id = ?", rule.ID).
		Delete(&pricingdomain.RuleTier{}).Error; err != nil {
		return false, err
	}
	if err := db.WithContext(ctx).Delete(&pricingdomain.PricingRule{}, rule.ID).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]pricingdomain.PricingRule, error) {
	var rules []pricingdomain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers").
		Order("scope, account_id").
		Find(&rules).Error
	return rules, err
}
