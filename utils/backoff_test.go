// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestWithRetriesTimeout(t *testing.T) {
	require := require.New(t)

	attempts := 0
	err := WithRetriesTimeout(log.NoLog{}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 10*time.Second)
	require.NoError(err)
	require.Equal(3, attempts)

	err = WithRetriesTimeout(log.NoLog{}, func() error {
		return errors.New("always fails")
	}, 100*time.Millisecond)
	require.Error(err)
}
