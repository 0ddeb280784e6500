// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/ids"
)

// Record addresses are derived deterministically from a tag and the fields
// that identify the record, so independent nodes agree on the address of
// every record and duplicate creation is detectable by address alone.

const (
	identityTag     = "veil/identity"
	plainTag        = "veil/message"
	confidentialTag = "veil/private_message"
)

func address(tag string, fields ...[]byte) ids.ID {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, f := range fields {
		h.Write(f)
	}
	var id ids.ID
	copy(id[:], h.Sum(nil))
	return id
}

// IdentityAddress is the address of an owner's identity record.
func IdentityAddress(owner ids.ID) ids.ID {
	return address(identityTag, owner[:])
}

// PlainMessageAddress is the address of a plain message slot. The index is
// the recipient's message count at send time.
func PlainMessageAddress(sender, recipient ids.ID, index uint64) ids.ID {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return address(plainTag, sender[:], recipient[:], idx[:])
}

// ConfidentialMessageAddress is the address of a confidential message slot.
// The index is chosen by the sender; only (sender, index) pairs collide.
func ConfidentialMessageAddress(sender ids.ID, index uint64) ids.ID {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return address(confidentialTag, sender[:], idx[:])
}
