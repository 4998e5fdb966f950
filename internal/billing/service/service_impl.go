package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/upeosms/upeo/internal/billing/domain"
	"github.com/upeosms/upeo/internal/clock"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	messagerepo "github.com/upeosms/upeo/internal/message/repository"
	"github.com/upeosms/upeo/internal/observability"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	quotadomain "github.com/upeosms/upeo/internal/quota/domain"
	ratingdomain "github.com/upeosms/upeo/internal/rating/domain"
	"github.com/upeosms/upeo/internal/sms"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clk     clock.Clock
	pricing pricingdomain.Service
	rating  ratingdomain.Service
	ledger  ledgerdomain.Service
	quota   quotadomain.Service
	repo    messagedomain.Repository
	metrics *observability.Metrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Pricing pricingdomain.Service
	Rating  ratingdomain.Service
	Ledger  ledgerdomain.Service
	Quota   quotadomain.Service `optional:"true"`
	Metrics *observability.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("billing.service"),

		genID:   p.GenID,
		clk:     p.Clock,
		pricing: p.Pricing,
		rating:  p.Rating,
		ledger:  p.Ledger,
		quota:   p.Quota,
		repo:    messagerepo.NewRepository(),
		metrics: p.Metrics,
	}
}

func (s *Service) Preview(ctx context.Context, accountID snowflake.ID, body string) (ratingdomain.Computation, error) {
	_, comp, err := s.price(ctx, accountID, body)
	return comp, err
}

func (s *Service) SendAndCharge(ctx context.Context, accountID snowflake.ID, body string) (*messagedomain.Message, error) {
	rule, comp, err := s.price(ctx, accountID, body)
	if err != nil {
		return nil, err
	}

	if s.quota != nil {
		if err := s.quota.AllowSend(ctx, accountID); err != nil {
			s.metrics.RejectedByQuota.Inc()
			return nil, err
		}
	}

	// Advisory pre-check; the charge below re-verifies atomically.
	affordable, err := s.ledger.CanAfford(ctx, accountID, comp.ChargedAmount)
	if err != nil {
		return nil, err
	}
	if !affordable {
		s.metrics.RejectedNoBalance.Inc()
		return nil, ledgerdomain.ErrInsufficientBalance
	}

	messageID := s.genID.Generate()

	_, err = s.ledger.Charge(ctx, accountID, comp.ChargedAmount, chargeReference(messageID), map[string]any{
		"message_id": messageID.String(),
		"parts":      comp.Parts,
		"encoding":   string(comp.Encoding),
	})
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrInsufficientBalance) {
			s.metrics.RejectedNoBalance.Inc()
		}
		return nil, err
	}

	now := s.clk.Now(ctx)
	message := &messagedomain.Message{
		ID:        messageID,
		AccountID: accountID,
		Body:      body,

		Encoding:       comp.Encoding,
		CharacterCount: comp.CharacterCount,
		Units:          comp.Units,
		Parts:          comp.Parts,
		Currency:       comp.Currency,
		ChargedAmount:  comp.ChargedAmount,
		ProviderCost:   comp.ProviderCost,
		Profit:         comp.Profit,

		RefundOnFailure: rule.RefundOnFailure,

		Status:    messagedomain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, message); err != nil {
		// The charge is already committed; compensate rather than leak
		// a debit with no message behind it.
		if _, refundErr := s.ledger.Refund(ctx, accountID, comp.ChargedAmount, revertReference(messageID), map[string]any{
			"message_id": messageID.String(),
			"reason":     "message_insert_failed",
		}); refundErr != nil {
			s.log.Error("failed to revert charge for unrecorded message",
				zap.String("message_id", messageID.String()),
				zap.Error(refundErr))
		}
		return nil, fmt.Errorf("record message: %w", err)
	}

	s.metrics.MessagesSent.Inc()
	s.metrics.SegmentsSent.Add(float64(comp.Parts))
	s.metrics.ChargesApplied.Inc()

	s.log.Info("message charged",
		zap.String("message_id", messageID.String()),
		zap.String("account_id", accountID.String()),
		zap.Int("parts", comp.Parts),
		zap.String("charged", comp.ChargedAmount.StringFixed(2)))

	return message, nil
}

func (s *Service) SettleOutcome(ctx context.Context, messageID snowflake.ID, outcome messagedomain.DeliveryStatus) error {
	if !outcome.Terminal() {
		return messagedomain.ErrNotTerminal
	}

	message, err := s.repo.FindByID(ctx, s.db, messageID)
	if err != nil {
		return err
	}
	if message == nil {
		return messagedomain.ErrMessageNotFound
	}
	if message.SettledAt != nil {
		s.metrics.DuplicateSettles.Inc()
		return nil
	}

	// Refund before marking settled: the refund reference is the
	// idempotency guard, so a crash in between is safe to replay.
	if outcome == messagedomain.StatusFailed && message.RefundOnFailure {
		_, err := s.ledger.Refund(ctx, message.AccountID, message.ChargedAmount, refundReference(messageID), map[string]any{
			"message_id": messageID.String(),
			"reason":     "delivery_failed",
		})
		if err != nil {
			return fmt.Errorf("refund failed delivery: %w", err)
		}
		s.metrics.RefundsIssued.Inc()
	}

	settled, err := s.repo.MarkSettled(ctx, s.db, messageID, outcome, s.clk.Now(ctx))
	if err != nil {
		return err
	}
	if !settled {
		// Lost a race with a duplicate callback; the other writer won.
		s.metrics.DuplicateSettles.Inc()
		return nil
	}

	s.log.Info("message settled",
		zap.String("message_id", messageID.String()),
		zap.String("outcome", string(outcome)))
	return nil
}

func (s *Service) GetMessage(ctx context.Context, id snowflake.ID) (*messagedomain.Message, error) {
	message, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, messagedomain.ErrMessageNotFound
	}
	return message, nil
}

func (s *Service) ListMessages(ctx context.Context, accountID snowflake.ID, page pagination.Pagination) ([]messagedomain.Message, error) {
	return s.repo.ListByAccount(ctx, s.db, accountID, page)
}

func (s *Service) price(ctx context.Context, accountID snowflake.ID, body string) (*pricingdomain.PricingRule, ratingdomain.Computation, error) {
	if len(body) == 0 {
		return nil, ratingdomain.Computation{}, billingdomain.ErrEmptyMessage
	}

	rule, err := s.pricing.Resolve(ctx, accountID)
	if err != nil {
		return nil, ratingdomain.Computation{}, err
	}

	profile := sms.Inspect(body, rule.Capacities())
	comp, err := s.rating.Calculate(rule, profile)
	if err != nil {
		return nil, ratingdomain.Computation{}, err
	}
	return rule, comp, nil
}

func chargeReference(messageID snowflake.ID) string {
	return fmt.Sprintf("sms-%s-charge", messageID)
}

func refundReference(messageID snowflake.ID) string {
	return fmt.Sprintf("sms-%s-refund", messageID)
}

func revertReference(messageID snowflake.ID) string {
	return fmt.Sprintf("sms-%s-charge-revert", messageID)
}
