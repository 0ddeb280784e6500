// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSharedKeyAgreement(t *testing.T) {
	require := require.New(t)

	aPriv, aPub, err := GenerateKey()
	require.NoError(err)
	bPriv, bPub, err := GenerateKey()
	require.NoError(err)

	ab, err := sharedKey(aPriv, bPub)
	require.NoError(err)
	ba, err := sharedKey(bPriv, aPub)
	require.NoError(err)
	require.Equal(ab, ba)
}

func TestSealBlockRoundTrip(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	var nonce [16]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	copy(nonce[:], "fedcba9876543210")

	var block [32]byte
	for i := range block {
		block[i] = byte(i)
	}

	ct, err := sealBlock(key, nonce, SlotSender, block)
	require.NoError(err)
	require.NotEqual(block, ct)

	pt, err := sealBlock(key, nonce, SlotSender, ct)
	require.NoError(err)
	require.Equal(block, pt)
}

func TestSealBlockSlotsDiffer(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	var nonce [16]byte
	key[0] = 1

	var block [32]byte
	senderCT, err := sealBlock(key, nonce, SlotSender, block)
	require.NoError(err)
	recipientCT, err := sealBlock(key, nonce, SlotRecipient, block)
	require.NoError(err)
	require.NotEqual(senderCT, recipientCT)
}

func TestResultRoundTrip(t *testing.T) {
	require := require.New(t)

	var key [32]byte
	var nonce [16]byte
	key[31] = 7
	nonce[0] = 9

	block := [16]byte{1: 1, 15: 255}
	ct, err := sealResult(key, nonce, block)
	require.NoError(err)

	pt, err := openResult(key, nonce, ct)
	require.NoError(err)
	require.Equal(block, pt)

	// Tampering must fail authentication.
	ct[0] ^= 1
	_, err = openResult(key, nonce, ct)
	require.Error(err)
}

func TestSessionRoundTrip(t *testing.T) {
	require := require.New(t)

	clusterPriv, clusterPub, err := GenerateKey()
	require.NoError(err)

	session, err := NewSession(clusterPub)
	require.NoError(err)

	var block [32]byte
	copy(block[:], "the quick brown fox jumps over a")
	ct, err := session.Seal(SlotSender, block)
	require.NoError(err)

	// The cluster side reconstructs the key from the session public key.
	key, err := sharedKey(clusterPriv, session.PublicKey())
	require.NoError(err)
	nonce, err := NonceBytes(session.Nonce())
	require.NoError(err)
	pt, err := sealBlock(key, nonce, SlotSender, ct)
	require.NoError(err)
	require.Equal(block, pt)
}

func TestNonceBytes(t *testing.T) {
	tests := []struct {
		name        string
		nonce       *uint256.Int
		expectedErr error
	}{
		{
			name:  "zero",
			nonce: uint256.NewInt(0),
		},
		{
			name:  "small",
			nonce: uint256.NewInt(0x1234),
		},
		{
			name:  "max u128",
			nonce: new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1)),
		},
		{
			name:        "nil",
			nonce:       nil,
			expectedErr: ErrNonceRange,
		},
		{
			name:        "overflow",
			nonce:       new(uint256.Int).Lsh(uint256.NewInt(1), 128),
			expectedErr: ErrNonceRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			b, err := NonceBytes(tt.nonce)
			if tt.expectedErr != nil {
				require.ErrorIs(err, tt.expectedErr)
				return
			}
			require.NoError(err)
			require.Equal(tt.nonce, NonceFromBytes(b))
		})
	}
}
