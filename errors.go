// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import "errors"

var (
	// ErrContentTooLarge is returned when message content exceeds
	// MaxContentSize bytes.
	ErrContentTooLarge = errors.New("content exceeds maximum size")

	// ErrUnauthorized is returned when an actor is not permitted to perform
	// the operation on the target record.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIdentityExists is returned when an owner registers twice.
	ErrIdentityExists = errors.New("identity already registered")

	// ErrIdentityNotFound is returned when an operation references an owner
	// with no registered identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrMessageNotFound is returned when an operation references a message
	// slot that was never written.
	ErrMessageNotFound = errors.New("message not found")

	// ErrDuplicateAddress is returned when a record is created at an address
	// that is already occupied.
	ErrDuplicateAddress = errors.New("record already exists at address")

	// ErrComputationPending is returned when a computation ID is reused
	// while its previous computation has not settled.
	ErrComputationPending = errors.New("computation already pending")

	// ErrAbortedComputation is the terminal failure of an access check: the
	// cluster aborted the computation or its output failed verification. No
	// result notice is published.
	ErrAbortedComputation = errors.New("computation aborted")

	// ErrNotConfigured is returned when a computation is requested before
	// its definition has been initialized.
	ErrNotConfigured = errors.New("computation definition not initialized")

	// ErrUnknownComputation is returned when a settlement arrives for a
	// computation ID that is not pending.
	ErrUnknownComputation = errors.New("no pending computation with this id")
)
