package wallet

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrVerificationFailed  = errors.New("on-chain verification failed")
	ErrNotConfigured       = errors.New("on-chain purchases are not configured")
	ErrInternal            = errors.New("internal error")
)
