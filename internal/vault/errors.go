package vault

import (
	"errors"
	"fmt"
)

// Operation errors. Input errors are caller-correctable; authorization and
// arithmetic errors are terminal for the request and never retried here.
var (
	// ErrInvalidAmount is returned for zero or otherwise non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidPubkey is returned when an address argument is not a valid
	// base58 pubkey, or is not usable in the role it was given for.
	ErrInvalidPubkey = errors.New("invalid pubkey")

	// ErrMathOverflow is returned when a checked multiplication, addition or
	// down-cast would lose information. Never silently clamped.
	ErrMathOverflow = errors.New("math overflow")

	// ErrDivisionByZero is returned when share math hits a zero denominator.
	// Reachable only through a prior invariant breach.
	ErrDivisionByZero = errors.New("division by zero: vault has no backing for its shares")

	// ErrUnauthorized is returned when the caller is not the vault authority.
	ErrUnauthorized = errors.New("unauthorized: only the vault authority can perform this action")

	// ErrProtocolNotApproved is the externally observed denial for both
	// unknown and disabled targets. Callers should match on this sentinel;
	// the two wrapped variants below exist for audit logging.
	ErrProtocolNotApproved = errors.New("protocol not approved")

	// ErrProtocolNotWhitelisted means the target was never added.
	ErrProtocolNotWhitelisted = fmt.Errorf("%w: target not in whitelist", ErrProtocolNotApproved)

	// ErrProtocolDisabled means the target is known but currently disabled.
	ErrProtocolDisabled = fmt.Errorf("%w: target disabled", ErrProtocolNotApproved)

	// ErrProtocolAlreadyApproved is returned by duplicate adds.
	ErrProtocolAlreadyApproved = errors.New("protocol already exists in registry")

	// ErrProtocolNotFound is returned when toggling an absent target.
	ErrProtocolNotFound = errors.New("protocol not found in registry")

	// ErrRegistryFull is returned when the registry capacity is exhausted.
	ErrRegistryFull = errors.New("protocol registry is full")

	// ErrNameTooLong is returned for protocol labels over the limit.
	ErrNameTooLong = errors.New("protocol name too long")

	// ErrInsufficientBalance is returned when an investment exceeds the
	// vault's on-hand balance.
	ErrInsufficientBalance = errors.New("insufficient vault balance for investment")

	// ErrInvestTooLarge is returned when an investment exceeds the tracked
	// total assets.
	ErrInvestTooLarge = errors.New("invest amount exceeds vault total assets")

	// ErrNotImplemented is returned by withdrawal-path operations, which
	// are refused rather than approximated in this version.
	ErrNotImplemented = errors.New("not implemented in this version")
)
