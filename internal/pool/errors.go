package pool

import (
	"errors"
	"fmt"
)

// Kind groups program errors by how a caller should react.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuthorization: resubmit with the correct identity.
	KindAuthorization
	// KindStateConflict: an operational mistake, do not retry.
	KindStateConflict
	// KindPoolUnavailable: check pool status before retrying.
	KindPoolUnavailable
	// KindAssetMismatch: supply or derive the correct holding.
	KindAssetMismatch
	// KindInvalidArgument: the request itself is malformed.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindPoolUnavailable:
		return "pool_unavailable"
	case KindAssetMismatch:
		return "asset_mismatch"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is a program rejection. Every rejection discards the whole instruction.
type Error struct {
	Code uint32
	Name string
	Msg  string
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

var (
	ErrInvalidTokenAccountOwner = &Error{6000, "InvalidTokenAccountOwnerError", "Signer is not the owner of the token account", KindAuthorization}
	ErrInvalidAssociatedAccount = &Error{6001, "InvalidAssociatedTokenAccount", "Invalid associated token account", KindAssetMismatch}
	ErrStateAlreadyInitialized  = &Error{6002, "StateAlreadyInitialized", "State already initialized", KindStateConflict}
	ErrPoolClosed               = &Error{6003, "PoolClosedError", "Pool is closed", KindPoolUnavailable}
	ErrPoolFrozen               = &Error{6004, "PoolFrozenError", "Pool is frozen", KindPoolUnavailable}
	ErrZeroDepositAmount        = &Error{6005, "ZeroDepositAmount", "Deposit amount must be greater than zero", KindInvalidArgument}
	ErrInvalidDepositAsset      = &Error{6006, "InvalidDepositAsset", "Source holding is not for the pool asset", KindAssetMismatch}
	ErrInvalidPoolVault         = &Error{6007, "InvalidPoolVault", "Vault is not the pool's vault holding", KindAssetMismatch}
	ErrRegistryNotInitialized   = &Error{6008, "RegistryNotInitialized", "Registry is not initialized", KindStateConflict}
	ErrPoolNotFound             = &Error{6009, "PoolNotFound", "Pool does not exist", KindInvalidArgument}
	ErrMissingSigner            = &Error{6010, "MissingSigner", "Required signer is missing", KindAuthorization}
)

// KindOf returns the kind of the program error wrapped in err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Temporary reports whether the rejection can clear without the caller changing the
// request. Only a frozen pool qualifies; a closed pool never accepts deposits again.
func Temporary(err error) bool {
	return errors.Is(err, ErrPoolFrozen)
}

func errorName(err error) string {
	if err == nil {
		return "ok"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Name
	}
	return "error"
}
