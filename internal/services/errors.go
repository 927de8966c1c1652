package services

import "errors"

// Failure kinds surfaced to callers. Handlers map these onto HTTP statuses;
// anything not listed here is an internal persistence failure, rolled back
// entirely and surfaced generically.
var (
	ErrBetTooSmall           = errors.New("stake below minimum bet")
	ErrBetTooLarge           = errors.New("stake above maximum bet")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrRateLimited           = errors.New("too many bets, slow down")
	ErrInvalidIdempotencyKey = errors.New("idempotency key belongs to another account")
	ErrRequestInFlight       = errors.New("request with this idempotency key still in flight")
	ErrAlreadyActive         = errors.New("an active wager already exists for this game")
	ErrBetNotActive          = errors.New("wager is not active")
	ErrNotOwner              = errors.New("wager belongs to another account")
	ErrSeedNotCommitted      = errors.New("server seed hash not committed")
	ErrRoundUnavailable      = errors.New("no round available yet, retry shortly")
	ErrBettingClosed         = errors.New("betting window is closed")
)
