// Package domain defines the per-account send-rate quota contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrSendRateExceeded = errors.New("account send rate exceeded")

type Service interface {
	// AllowSend consumes one send slot for the account in the current
	// window. ErrSendRateExceeded when the account is over its limit.
	AllowSend(ctx context.Context, accountID snowflake.ID) error
}
