// Package domain defines the send/charge/settle orchestration contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	ratingdomain "github.com/upeosms/upeo/internal/rating/domain"
	"github.com/upeosms/upeo/pkg/db/pagination"
)

var (
	// ErrEmptyMessage rejects zero-length bodies before any ledger
	// mutation.
	ErrEmptyMessage = errors.New("message body is empty")
)

type Service interface {
	// Preview prices a message without touching the ledger.
	Preview(ctx context.Context, accountID snowflake.ID, body string) (ratingdomain.Computation, error)

	// SendAndCharge applies the up-front charge and records the message.
	// The charge is committed before dispatch; a later failed outcome is
	// handled through the refund path, never by rolling the charge back.
	SendAndCharge(ctx context.Context, accountID snowflake.ID, body string) (*messagedomain.Message, error)

	// SettleOutcome finalizes billing once a terminal delivery status is
	// known. Duplicate callbacks for an already-settled message are
	// successful no-ops.
	SettleOutcome(ctx context.Context, messageID snowflake.ID, outcome messagedomain.DeliveryStatus) error

	GetMessage(ctx context.Context, id snowflake.ID) (*messagedomain.Message, error)
	ListMessages(ctx context.Context, accountID snowflake.ID, page pagination.Pagination) ([]messagedomain.Message, error)
}
