package domain

import "errors"

var (
	// ErrNoGlobalRule means the singleton global rule is missing. This is
	// a system misconfiguration: sends are blocked until an admin fixes it.
	ErrNoGlobalRule = errors.New("no global pricing rule configured")

	ErrRuleNotFound     = errors.New("pricing rule not found")
	ErrVersionConflict  = errors.New("pricing rule was modified concurrently")
	ErrInvalidCurrency  = errors.New("pricing rule currency is required")
	ErrInvalidMode      = errors.New("unknown pricing mode")
	ErrInvalidCapacity  = errors.New("segment capacities must be positive")
	ErrEmptyTiers       = errors.New("tiered mode requires at least one tier")
	ErrInvalidTierRange = errors.New("tier part range is invalid")
	ErrNegativePrice    = errors.New("prices must not be negative")
)
