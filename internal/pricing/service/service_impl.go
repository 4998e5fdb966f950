package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/internal/clock"
	"github.com/upeosms/upeo/internal/config"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	"github.com/upeosms/upeo/internal/pricing/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clk             clock.Clock
	repo            pricingdomain.Repository
	defaultCurrency string

	// Serializes rule mutations per scope key so concurrent admin
	// writes cannot produce a duplicate global rule or duplicate
	// account override.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
}

func NewService(p ServiceParam) pricingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("pricing.service"),

		genID:           p.GenID,
		clk:             p.Clock,
		repo:            repository.NewRepository(),
		defaultCurrency: p.Config.Billing.Currency,
		locks:           make(map[string]*sync.Mutex),
	}
}

func (s *Service) Resolve(ctx context.Context, accountID snowflake.ID) (*pricingdomain.PricingRule, error) {
	override, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, fmt.Errorf("resolve account rule: %w", err)
	}
	if override != nil {
		return override, nil
	}

	global, err := s.repo.FindGlobal(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("resolve global rule: %w", err)
	}
	if global == nil {
		return nil, pricingdomain.ErrNoGlobalRule
	}
	return global, nil
}

func (s *Service) EnsureGlobal(ctx context.Context) (*pricingdomain.PricingRule, error) {
	unlock := s.lockScope(globalLockKey)
	defer unlock()

	existing, err := s.repo.FindGlobal(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	rule := s.defaultGlobalRule()
	now := s.clk.Now(ctx)
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := s.repo.Insert(ctx, s.db, rule); err != nil {
		return nil, fmt.Errorf("provision global rule: %w", err)
	}
	s.log.Info("provisioned default global pricing rule",
		zap.String("rule_id", rule.ID.String()),
		zap.String("currency", rule.Currency))
	return rule, nil
}

func (s *Service) GetGlobal(ctx context.Context) (*pricingdomain.PricingRule, error) {
	rule, err := s.repo.FindGlobal(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, pricingdomain.ErrNoGlobalRule
	}
	return rule, nil
}

// UpsertGlobal replaces the global rule in place. The rule row is never
// deleted and recreated, so a reader can never observe zero global rules.
func (s *Service) UpsertGlobal(ctx context.Context, spec pricingdomain.RuleSpec) (*pricingdomain.PricingRule, error) {
	unlock := s.lockScope(globalLockKey)
	defer unlock()

	return s.upsert(ctx, pricingdomain.ScopeGlobal, nil, spec)
}

func (s *Service) UpsertAccountRule(ctx context.Context, accountID snowflake.ID, spec pricingdomain.RuleSpec) (*pricingdomain.PricingRule, error) {
	unlock := s.lockScope(accountLockKey(accountID))
	defer unlock()

	return s.upsert(ctx, pricingdomain.ScopeAccount, &accountID, spec)
}

func (s *Service) DeleteAccountRule(ctx context.Context, accountID snowflake.ID) error {
	unlock := s.lockScope(accountLockKey(accountID))
	defer unlock()

	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.DeleteByAccount(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return pricingdomain.ErrRuleNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]pricingdomain.PricingRule, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) upsert(ctx context.Context, scope pricingdomain.RuleScope, accountID *snowflake.ID, spec pricingdomain.RuleSpec) (*pricingdomain.PricingRule, error) {
	spec.ApplyDefaults(s.defaultCurrency)

	var out *pricingdomain.PricingRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing *pricingdomain.PricingRule
		var err error
		if scope == pricingdomain.ScopeGlobal {
			existing, err = s.repo.FindGlobal(ctx, tx)
		} else {
			existing, err = s.repo.FindByAccount(ctx, tx, *accountID)
		}
		if err != nil {
			return err
		}

		now := s.clk.Now(ctx)

		if existing == nil {
			rule := s.ruleFromSpec(scope, accountID, spec)
			rule.CreatedAt = now
			rule.UpdatedAt = now
			if err := rule.Validate(); err != nil {
				return err
			}
			if err := s.repo.Insert(ctx, tx, rule); err != nil {
				return err
			}
			out = rule
			return nil
		}

		s.applySpec(existing, spec)
		existing.UpdatedAt = now
		if err := existing.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ruleFromSpec(scope pricingdomain.RuleScope, accountID *snowflake.ID, spec pricingdomain.RuleSpec) *pricingdomain.PricingRule {
	rule := &pricingdomain.PricingRule{
		ID:        s.genID.Generate(),
		Scope:     scope,
		AccountID: accountID,
		Version:   1,
	}
	s.applySpec(rule, spec)
	return rule
}

func (s *Service) applySpec(rule *pricingdomain.PricingRule, spec pricingdomain.RuleSpec) {
	rule.Currency = spec.Currency
	rule.Mode = spec.Mode
	rule.GSM7SingleCapacity = spec.GSM7SingleCapacity
	rule.GSM7ContinuationCapacity = spec.GSM7ContinuationCapacity
	rule.UCS2SingleCapacity = spec.UCS2SingleCapacity
	rule.UCS2ContinuationCapacity = spec.UCS2ContinuationCapacity
	rule.PricePerPart = spec.PricePerPart
	rule.PricePerSMS = spec.PricePerSMS
	rule.ChargeOnFailure = spec.ChargeOnFailure
	rule.RefundOnFailure = spec.RefundOnFailure

	tiers := make([]pricingdomain.RuleTier, 0, len(spec.Tiers))
	for _, t := range spec.Tiers {
		tiers = append(tiers, pricingdomain.RuleTier{
			ID:           s.genID.Generate(),
			RuleID:       rule.ID,
			FromPart:     t.FromPart,
			ToPart:       t.ToPart,
			PricePerPart: t.PricePerPart,
		})
	}
	rule.Tiers = tiers
}

func (s *Service) defaultGlobalRule() *pricingdomain.PricingRule {
	caps := pricingdomain.RuleSpec{
		Currency:     s.defaultCurrency,
		Mode:         pricingdomain.ModePerPart,
		PricePerPart: decimal.RequireFromString("1.00"),
	}
	caps.ApplyDefaults(s.defaultCurrency)
	rule := s.ruleFromSpec(pricingdomain.ScopeGlobal, nil, caps)
	rule.RefundOnFailure = true
	return rule
}

const globalLockKey = "global"

func accountLockKey(accountID snowflake.ID) string {
	return "account:" + accountID.String()
}

func (s *Service) lockScope(key string) func() {
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
