package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested registry entry doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrWriteAfterLock is returned when a registry write is attempted after the
	// storage initialised flag has been set. It must never be swallowed.
	ErrWriteAfterLock = errors.New("registry is locked: write after lock")

	// ErrInvalidInput is returned when key derivation input is malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPlan is returned when a manifest cannot be turned into a deployment plan
	ErrInvalidPlan = errors.New("invalid deployment plan")

	// ErrNotResumable is returned when a persisted bootstrap cannot be resumed
	ErrNotResumable = errors.New("bootstrap not resumable")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")
)

// DeployError reports a failed component construction. It is fatal to the plan.
type DeployError struct {
	Component string
	Cause     error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy %s: %v", e.Component, e.Cause)
}

func (e *DeployError) Unwrap() error {
	return e.Cause
}

// TransferError reports a failed seed funding transfer. It is never fatal.
type TransferError struct {
	Component string
	To        common.Address
	Cause     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("fund %s (%s): %v", e.Component, e.To.Hex(), e.Cause)
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// RegistrationError reports a failed registry write during the registration pass.
type RegistrationError struct {
	Component string
	Key       common.Hash
	Cause     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s (key %s): %v", e.Component, e.Key.Hex(), e.Cause)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}
