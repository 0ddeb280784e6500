// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	require := require.New(t)

	c := NewLRU[uint64, string](2)
	c.Put(1, "one")
	c.Put(2, "two")

	v, ok := c.Get(1)
	require.True(ok)
	require.Equal("one", v)

	// 2 is now least recently used and gets evicted.
	c.Put(3, "three")
	_, ok = c.Get(2)
	require.False(ok)
	require.Equal(2, c.Len())

	v, ok = c.Get(3)
	require.True(ok)
	require.Equal("three", v)
}
