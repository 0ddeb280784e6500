// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestArgsRoundTrip(t *testing.T) {
	require := require.New(t)

	var resultKey [32]byte
	resultKey[0] = 0xAA
	args, err := NewArgs(resultKey, uint256.NewInt(42))
	require.NoError(err)
	args.Encrypted(make([]byte, 32)).
		Plaintext([]byte{1, 2, 3}).
		Encrypted([]byte{4})

	b, err := args.MarshalBinary()
	require.NoError(err)

	parsed, err := ParseArgs(b)
	require.NoError(err)
	require.Equal(args.ResultKey, parsed.ResultKey)
	require.Equal(args.ResultNonce, parsed.ResultNonce)
	require.Equal(args.Items, parsed.Items)
}

func TestParseArgsMalformed(t *testing.T) {
	var resultKey [32]byte
	args, err := NewArgs(resultKey, uint256.NewInt(1))
	require.NoError(t, err)
	valid, err := args.Plaintext([]byte{1, 2}).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty",
			data: nil,
		},
		{
			name: "truncated header",
			data: valid[:40],
		},
		{
			name: "truncated item",
			data: valid[:len(valid)-1],
		},
		{
			name: "trailing bytes",
			data: append(append([]byte{}, valid...), 0),
		},
		{
			name: "bad tag",
			data: func() []byte {
				d := append([]byte{}, valid...)
				d[32+16+1] = 99
				return d
			}(),
		},
		{
			name: "item count overflow",
			data: func() []byte {
				d := append([]byte{}, valid...)
				d[32+16] = maxArgItems + 1
				return d
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.data)
			require.ErrorIs(t, err, ErrMalformedArgs)
		})
	}
}

func TestClusterRequestRoundTrip(t *testing.T) {
	require := require.New(t)

	argsBytes := []byte{1, 2, 3, 4, 5}
	b := marshalClusterRequest(reqQueue, KindAccessCheck, 77, 1, 0, argsBytes)

	req, err := parseClusterRequest(b)
	require.NoError(err)
	require.Equal(reqQueue, req.reqType)
	require.Equal(KindAccessCheck, req.kind)
	require.Equal(uint64(77), req.id)
	require.Equal(uint8(1), req.shards)
	require.Equal(argsBytes, req.args)

	_, err = parseClusterRequest(b[:10])
	require.ErrorIs(err, errMalformedRequest)

	b[0] = 99
	_, err = parseClusterRequest(b)
	require.ErrorIs(err, errMalformedRequest)
}
