// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package utils holds small helpers shared by the daemon and clients.
package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
)

// WithRetriesTimeout runs the operation under exponential backoff until it
// succeeds or the timeout elapses. Cluster definition registration uses this
// to ride out nodes that are still coming up.
func WithRetriesTimeout(
	logger log.Logger,
	operation backoff.Operation,
	timeout time.Duration,
) error {
	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(timeout),
	)
	notify := func(err error, duration time.Duration) {
		logger.Warn("operation failed, retrying...",
			log.Err(err),
		)
	}
	return backoff.RetryNotify(operation, expBackOff, notify)
}
