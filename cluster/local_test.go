// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

// queueAccessCheck seals a recipient commitment under a sender session and a
// claimed commitment under a requester session, queues the comparison, and
// returns the settled output together with the requester session.
func queueAccessCheck(t *testing.T, local *Local, recipient, claimed [32]byte) (SignedOutput, *Session) {
	require := require.New(t)
	ctx := context.Background()
	require.NoError(local.InitDefinition(ctx, KindAccessCheck))

	sender, err := NewSession(local.MetadataKey())
	require.NoError(err)
	storedCT, err := sender.Seal(SlotRecipient, recipient)
	require.NoError(err)

	requester, err := NewSession(local.MetadataKey())
	require.NoError(err)
	claimedCT, err := requester.Seal(SlotRequester, claimed)
	require.NoError(err)

	senderKey := sender.PublicKey()
	senderNonce, err := NonceBytes(sender.Nonce())
	require.NoError(err)

	args, err := NewArgs(requester.PublicKey(), requester.Nonce())
	require.NoError(err)
	args.Encrypted(storedCT[:]).
		Plaintext(senderKey[:]).
		Plaintext(senderNonce[:]).
		Encrypted(claimedCT[:])

	results := make(chan SignedOutput, 1)
	err = local.Queue(ctx, KindAccessCheck, 1, args, func(_ uint64, out SignedOutput) error {
		results <- out
		return nil
	}, 1, 0)
	require.NoError(err)

	select {
	case out := <-results:
		return out, requester
	case <-time.After(5 * time.Second):
		require.FailNow("computation did not settle")
		return SignedOutput{}, nil
	}
}

func TestLocalAccessCheck(t *testing.T) {
	var match [32]byte
	copy(match[:], "recipient commitment, 32 bytes!!")

	lastByteDiffers := match
	lastByteDiffers[31] ^= 1

	tests := []struct {
		name     string
		claimed  [32]byte
		expected byte
	}{
		{
			name:     "match",
			claimed:  match,
			expected: 1,
		},
		{
			name:     "mismatch",
			claimed:  [32]byte{},
			expected: 0,
		},
		{
			name:     "last byte differs",
			claimed:  lastByteDiffers,
			expected: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			local, err := NewLocal(log.NoLog{})
			require.NoError(err)

			out, requester := queueAccessCheck(t, local, match, tt.claimed)
			require.False(out.Aborted)
			require.NoError(out.Verify(local.PublicKey()))

			block, err := requester.OpenResult(out.Ciphertext, out.Nonce)
			require.NoError(err)
			require.Equal(tt.expected, block[0])
		})
	}
}

func TestLocalProbeAdd(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	local, err := NewLocal(log.NoLog{})
	require.NoError(err)
	require.NoError(local.InitDefinition(ctx, KindProbeAdd))

	session, err := NewSession(local.MetadataKey())
	require.NoError(err)
	var block [32]byte
	block[0] = 200
	block[1] = 100
	ct, err := session.Seal(SlotProbe, block)
	require.NoError(err)

	args, err := NewArgs(session.PublicKey(), session.Nonce())
	require.NoError(err)
	args.Encrypted(ct[:])

	results := make(chan SignedOutput, 1)
	err = local.Queue(ctx, KindProbeAdd, 7, args, func(id uint64, out SignedOutput) error {
		require.Equal(uint64(7), id)
		results <- out
		return nil
	}, 1, 0)
	require.NoError(err)

	out := <-results
	require.False(out.Aborted)
	require.NoError(out.Verify(local.PublicKey()))

	result, err := session.OpenResult(out.Ciphertext, out.Nonce)
	require.NoError(err)
	// 200 + 100 = 300 = 0x012C, little endian.
	require.Equal(byte(0x2C), result[0])
	require.Equal(byte(0x01), result[1])
}

func TestLocalQueueValidation(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	local, err := NewLocal(log.NoLog{})
	require.NoError(err)

	session, err := NewSession(local.MetadataKey())
	require.NoError(err)
	args, err := NewArgs(session.PublicKey(), session.Nonce())
	require.NoError(err)
	cb := func(uint64, SignedOutput) error { return nil }

	err = local.Queue(ctx, KindProbeAdd, 1, args, cb, 1, 0)
	require.ErrorIs(err, ErrDefinitionMissing)

	require.NoError(local.InitDefinition(ctx, KindProbeAdd))

	err = local.Queue(ctx, Kind(99), 1, args, cb, 1, 0)
	require.ErrorIs(err, ErrUnknownKind)

	err = local.Queue(ctx, KindProbeAdd, 1, args, cb, 2, 0)
	require.ErrorIs(err, ErrShardCount)

	err = local.Queue(ctx, KindProbeAdd, 1, nil, cb, 1, 0)
	require.ErrorIs(err, ErrMalformedArgs)

	err = local.Queue(ctx, KindProbeAdd, 1, args, nil, 1, 0)
	require.ErrorIs(err, ErrMalformedArgs)
}

func TestLocalMalformedBundleAborts(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	local, err := NewLocal(log.NoLog{})
	require.NoError(err)
	require.NoError(local.InitDefinition(ctx, KindAccessCheck))

	session, err := NewSession(local.MetadataKey())
	require.NoError(err)
	args, err := NewArgs(session.PublicKey(), session.Nonce())
	require.NoError(err)
	args.Plaintext([]byte{1}) // wrong shape for an access check

	results := make(chan SignedOutput, 1)
	err = local.Queue(ctx, KindAccessCheck, 3, args, func(_ uint64, out SignedOutput) error {
		results <- out
		return nil
	}, 1, 0)
	require.NoError(err)

	out := <-results
	require.True(out.Aborted)
	require.Equal([CiphertextLen]byte{}, out.Ciphertext)
	require.NoError(out.Verify(local.PublicKey()))
}

func TestSignedOutputRoundTrip(t *testing.T) {
	require := require.New(t)

	sk, err := bls.NewSecretKey()
	require.NoError(err)

	out := SignedOutput{
		Kind:    KindAccessCheck,
		ID:      42,
		Aborted: false,
	}
	out.Ciphertext[0] = 0xFF
	out.Nonce[15] = 0x11
	require.NoError(out.Sign(sk))
	require.NoError(out.Verify(sk.PublicKey()))

	b, err := out.MarshalBinary()
	require.NoError(err)
	parsed, err := ParseSignedOutput(b)
	require.NoError(err)
	require.Equal(out, *parsed)

	// A different key must not verify.
	other, err := bls.NewSecretKey()
	require.NoError(err)
	require.ErrorIs(parsed.Verify(other.PublicKey()), ErrBadOutputSignature)

	// Flipping the abort flag breaks the signature.
	parsed.Aborted = true
	require.ErrorIs(parsed.Verify(sk.PublicKey()), ErrBadOutputSignature)

	_, err = ParseSignedOutput(b[:20])
	require.ErrorIs(err, ErrMalformedOutput)
}

func TestNodeHandlerServesQueue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	local, err := NewLocal(log.NoLog{})
	require.NoError(err)
	handler := NewNodeHandler(log.NoLog{}, local)

	var commitment [32]byte
	commitment[5] = 9

	sender, err := NewSession(local.MetadataKey())
	require.NoError(err)
	storedCT, err := sender.Seal(SlotRecipient, commitment)
	require.NoError(err)
	requester, err := NewSession(local.MetadataKey())
	require.NoError(err)
	claimedCT, err := requester.Seal(SlotRequester, commitment)
	require.NoError(err)

	senderKey := sender.PublicKey()
	senderNonce, err := NonceBytes(sender.Nonce())
	require.NoError(err)
	args, err := NewArgs(requester.PublicKey(), requester.Nonce())
	require.NoError(err)
	args.Encrypted(storedCT[:]).
		Plaintext(senderKey[:]).
		Plaintext(senderNonce[:]).
		Encrypted(claimedCT[:])
	argsBytes, err := args.MarshalBinary()
	require.NoError(err)

	// Queueing before the definition registers is refused.
	nodeID := ids.GenerateTestNodeID()
	queueReq := marshalClusterRequest(reqQueue, KindAccessCheck, 8, 1, 0, argsBytes)
	_, appErr := handler.Request(ctx, nodeID, time.Time{}, queueReq)
	require.NotNil(appErr)
	require.Equal(int32(404), appErr.Code)

	initReq := marshalClusterRequest(reqInitDefinition, KindAccessCheck, 0, 1, 0, nil)
	_, appErr = handler.Request(ctx, nodeID, time.Time{}, initReq)
	require.Nil(appErr)

	responseBytes, appErr := handler.Request(ctx, nodeID, time.Time{}, queueReq)
	require.Nil(appErr)

	out, err := ParseSignedOutput(responseBytes)
	require.NoError(err)
	require.False(out.Aborted)
	require.Equal(uint64(8), out.ID)
	require.NoError(out.Verify(local.PublicKey()))

	block, err := requester.OpenResult(out.Ciphertext, out.Nonce)
	require.NoError(err)
	require.Equal(byte(1), block[0])
}
