// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestAddressDerivation(t *testing.T) {
	require := require.New(t)

	a := ids.GenerateTestID()
	b := ids.GenerateTestID()

	// Deterministic.
	require.Equal(IdentityAddress(a), IdentityAddress(a))
	require.Equal(PlainMessageAddress(a, b, 0), PlainMessageAddress(a, b, 0))
	require.Equal(ConfidentialMessageAddress(a, 0), ConfidentialMessageAddress(a, 0))

	// Distinct across fields and tags.
	require.NotEqual(IdentityAddress(a), IdentityAddress(b))
	require.NotEqual(PlainMessageAddress(a, b, 0), PlainMessageAddress(b, a, 0))
	require.NotEqual(PlainMessageAddress(a, b, 0), PlainMessageAddress(a, b, 1))
	require.NotEqual(ConfidentialMessageAddress(a, 0), ConfidentialMessageAddress(a, 1))
	require.NotEqual(IdentityAddress(a), ConfidentialMessageAddress(a, 0))
}

func TestCommitmentOf(t *testing.T) {
	require := require.New(t)

	a := ids.GenerateTestID()
	b := ids.GenerateTestID()
	require.Equal(CommitmentOf(a), CommitmentOf(a))
	require.NotEqual(CommitmentOf(a), CommitmentOf(b))
	require.NotEqual(Commitment(a), CommitmentOf(a))
}
