// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package veil implements the core of a confidential-metadata messaging
// protocol. Identities register x25519 public keys; messages are stored
// either with plain metadata (sender and recipient visible, content already
// encrypted by the client) or confidentially, where sender and recipient
// appear only as encrypted commitments and the public record reveals nothing
// but a sequence index and a timestamp. Whether a confidential message is
// addressed to a given identity is decided off-chain by a secure-computation
// cluster; the protocol only queues the check and publishes the encrypted,
// signed result.
package veil

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

const (
	// MaxContentSize bounds the stored ciphertext of a single message.
	MaxContentSize = 256

	// ContentNonceLen is the length of the client-side content cipher nonce
	// stored alongside a message. The protocol never interprets it.
	ContentNonceLen = 24
)

// Commitment is a 32-byte identity commitment. In confidential records it is
// stored encrypted to the cluster's metadata key, so equality of two stored
// commitments reveals nothing to an observer.
type Commitment [32]byte

const commitmentTag = "veil/commitment"

// CommitmentOf derives the canonical plaintext commitment for an owner.
// Clients seal this value to the cluster before it ever touches a record.
func CommitmentOf(owner ids.ID) Commitment {
	h := sha256.New()
	h.Write([]byte(commitmentTag))
	h.Write(owner[:])
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}
