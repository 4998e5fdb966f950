package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/upeosms/upeo/internal/clock"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	"github.com/upeosms/upeo/internal/ledger/repository"
	"github.com/upeosms/upeo/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxWriteAttempts = 3

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clk   clock.Clock
	repo  ledgerdomain.Repository

	// Serializes the charge/refund critical section per account, so two
	// concurrent sends cannot both pass an affordability check on a
	// balance that only covers one of them.
	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("ledger.service"),

		genID: p.GenID,
		clk:   p.Clock,
		repo:  repository.NewRepository(),
		locks: make(map[snowflake.ID]*sync.Mutex),
	}
}

func (s *Service) CreateAccount(ctx context.Context, name, currency string) (*ledgerdomain.Account, error) {
	now := s.clk.Now(ctx)
	account := &ledgerdomain.Account{
		ID:        s.genID.Generate(),
		Name:      strings.TrimSpace(name),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertAccount(ctx, s.db, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id snowflake.ID) (*ledgerdomain.Account, error) {
	account, err := s.repo.FindAccount(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) CanAfford(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal) (bool, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.Balance.GreaterThanOrEqual(amount), nil
}

func (s *Service) TopUp(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*ledgerdomain.LedgerEntry, error) {
	if reference == "" {
		reference = "topup-" + ulid.Make().String()
	}
	return s.credit(ctx, accountID, amount, ledgerdomain.EntryTypeTopUp, reference, metadata)
}

func (s *Service) Charge(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*ledgerdomain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	unlock := s.lockAccount(accountID)
	defer unlock()

	var entry *ledgerdomain.LedgerEntry
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.repo.FindEntryByReference(ctx, tx, reference)
			if err != nil {
				return err
			}
			if existing != nil {
				entry = existing
				return nil
			}

			account, err := s.repo.FindAccount(ctx, tx, accountID)
			if err != nil {
				return err
			}
			if account == nil {
				return ledgerdomain.ErrAccountNotFound
			}

			debited, err := s.repo.DebitIfSufficient(ctx, tx, accountID, amount, s.clk.Now(ctx))
			if err != nil {
				return err
			}
			if !debited {
				return ledgerdomain.ErrInsufficientBalance
			}

			entry = s.newEntry(ctx, accountID, ledgerdomain.EntryTypeCharge, amount.Neg(), reference, metadata)
			return s.repo.InsertEntry(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Refund(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, reference string, metadata map[string]any) (*ledgerdomain.LedgerEntry, error) {
	return s.credit(ctx, accountID, amount, ledgerdomain.EntryTypeRefund, reference, metadata)
}

func (s *Service) Entries(ctx context.Context, accountID snowflake.ID, page pagination.Pagination) ([]ledgerdomain.LedgerEntry, error) {
	return s.repo.ListEntries(ctx, s.db, accountID, page)
}

func (s *Service) credit(ctx context.Context, accountID snowflake.ID, amount decimal.Decimal, entryType ledgerdomain.EntryType, reference string, metadata map[string]any) (*ledgerdomain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	unlock := s.lockAccount(accountID)
	defer unlock()

	var entry *ledgerdomain.LedgerEntry
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.repo.FindEntryByReference(ctx, tx, reference)
			if err != nil {
				return err
			}
			if existing != nil {
				entry = existing
				return nil
			}

			if err := s.repo.Credit(ctx, tx, accountID, amount, s.clk.Now(ctx)); err != nil {
				return err
			}

			entry = s.newEntry(ctx, accountID, entryType, amount, reference, metadata)
			return s.repo.InsertEntry(ctx, tx, entry)
		})
	})
	if err != nil {
		// A replayed reference that raced past the pre-check lands on
		// the unique index; fetch and return the original entry.
		if isUniqueViolation(err) {
			existing, findErr := s.repo.FindEntryByReference(ctx, s.db, reference)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return entry, nil
}

func (s *Service) newEntry(ctx context.Context, accountID snowflake.ID, entryType ledgerdomain.EntryType, amount decimal.Decimal, reference string, metadata map[string]any) *ledgerdomain.LedgerEntry {
	entry := &ledgerdomain.LedgerEntry{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Type:      entryType,
		Amount:    amount,
		Reference: reference,
		Status:    ledgerdomain.EntryStatusCompleted,
		CreatedAt: s.clk.Now(ctx),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	return entry
}

func (s *Service) lockAccount(accountID snowflake.ID) func() {
	s.mu.Lock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// withRetry re-runs fn on transient write conflicts; domain errors
// surface immediately.
func (s *Service) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
