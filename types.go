// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
)

// Identity is a registered participant. The public key is an x25519 key
// other participants encrypt message content to; it is intentionally public,
// as are key rotations.
type Identity struct {
	Owner        ids.ID
	PublicKey    [32]byte
	MessageCount uint64
	Salt         byte
}

// PlainMessage is a message with public metadata. The content is an opaque
// ciphertext produced by the client; Nonce is its cipher nonce.
type PlainMessage struct {
	Sender    ids.ID
	Recipient ids.ID
	Content   []byte
	Nonce     [ContentNonceLen]byte
	Timestamp int64
	Read      bool
}

// ConfidentialMessage is a message whose sender and recipient appear only as
// commitments sealed to the cluster's metadata key. MetaKey and MetaNonce
// are the sender session's public half, stored so the cluster can later
// rebuild the cipher context when an access check references this record.
type ConfidentialMessage struct {
	SenderCommitment    Commitment
	RecipientCommitment Commitment
	Content             []byte
	Nonce               [ContentNonceLen]byte
	Timestamp           int64
	MetaKey             [32]byte
	MetaNonce           *uint256.Int
	Salt                byte
}
