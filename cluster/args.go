// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ArgTag marks how the cluster treats a bundle item.
type ArgTag uint8

const (
	// ArgPlaintext items are visible to the cluster as-is: public keys,
	// nonces, and other cipher context.
	ArgPlaintext ArgTag = iota

	// ArgEncrypted items are ciphertexts evaluated inside the computation.
	ArgEncrypted
)

// maxArgItems bounds a bundle so a malformed frame cannot force a large
// allocation during parsing.
const maxArgItems = 16

var (
	// ErrNonceRange is returned when a metadata nonce does not fit the
	// 128-bit wire representation.
	ErrNonceRange = errors.New("nonce exceeds 128 bits")

	// ErrMalformedArgs is returned when an argument frame cannot be parsed.
	ErrMalformedArgs = errors.New("malformed argument bundle")
)

// Arg is a single item of an argument bundle.
type Arg struct {
	Tag   ArgTag
	Value []byte
}

// Args is the opaque bundle submitted with a queued computation. ResultKey
// and ResultNonce name the ephemeral X25519 key and u128 nonce the cluster
// uses to re-encrypt its result for the requester; the same pair is the
// cipher context for any requester-sealed encrypted items in the bundle.
type Args struct {
	ResultKey   [32]byte
	ResultNonce [16]byte
	Items       []Arg
}

// NewArgs starts an argument bundle for the given result session.
func NewArgs(resultKey [32]byte, resultNonce *uint256.Int) (*Args, error) {
	nonce, err := NonceBytes(resultNonce)
	if err != nil {
		return nil, err
	}
	return &Args{
		ResultKey:   resultKey,
		ResultNonce: nonce,
	}, nil
}

// Plaintext appends a cluster-visible item.
func (a *Args) Plaintext(v []byte) *Args {
	a.Items = append(a.Items, Arg{Tag: ArgPlaintext, Value: v})
	return a
}

// Encrypted appends a ciphertext item.
func (a *Args) Encrypted(v []byte) *Args {
	a.Items = append(a.Items, Arg{Tag: ArgEncrypted, Value: v})
	return a
}

// MarshalBinary frames the bundle for the wire.
// Format: resultKey(32) + resultNonce(16) + count(1) + items, each item
// being tag(1) + len(4, big endian) + value.
func (a *Args) MarshalBinary() ([]byte, error) {
	if len(a.Items) > maxArgItems {
		return nil, fmt.Errorf("%w: %d items", ErrMalformedArgs, len(a.Items))
	}
	size := 32 + 16 + 1
	for _, item := range a.Items {
		size += 1 + 4 + len(item.Value)
	}
	buf := make([]byte, size)
	offset := 0
	copy(buf[offset:], a.ResultKey[:])
	offset += 32
	copy(buf[offset:], a.ResultNonce[:])
	offset += 16
	buf[offset] = byte(len(a.Items))
	offset++
	for _, item := range a.Items {
		buf[offset] = byte(item.Tag)
		offset++
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(item.Value)))
		offset += 4
		copy(buf[offset:], item.Value)
		offset += len(item.Value)
	}
	return buf, nil
}

// ParseArgs decodes a bundle framed by MarshalBinary.
func ParseArgs(data []byte) (*Args, error) {
	if len(data) < 32+16+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedArgs, len(data))
	}
	a := &Args{}
	offset := 0
	copy(a.ResultKey[:], data[offset:offset+32])
	offset += 32
	copy(a.ResultNonce[:], data[offset:offset+16])
	offset += 16
	count := int(data[offset])
	offset++
	if count > maxArgItems {
		return nil, fmt.Errorf("%w: %d items", ErrMalformedArgs, count)
	}
	a.Items = make([]Arg, 0, count)
	for i := 0; i < count; i++ {
		if offset+5 > len(data) {
			return nil, fmt.Errorf("%w: truncated item %d", ErrMalformedArgs, i)
		}
		tag := ArgTag(data[offset])
		if tag != ArgPlaintext && tag != ArgEncrypted {
			return nil, fmt.Errorf("%w: item %d tag %d", ErrMalformedArgs, i, tag)
		}
		offset++
		length := int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
		if offset+length > len(data) {
			return nil, fmt.Errorf("%w: item %d length %d", ErrMalformedArgs, i, length)
		}
		value := make([]byte, length)
		copy(value, data[offset:offset+length])
		offset += length
		a.Items = append(a.Items, Arg{Tag: tag, Value: value})
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedArgs, len(data)-offset)
	}
	return a, nil
}

// NonceBytes encodes a u128 nonce as 16 little-endian bytes, the layout the
// cluster uses on the wire and in result notices.
func NonceBytes(n *uint256.Int) ([16]byte, error) {
	var out [16]byte
	if n == nil {
		return out, fmt.Errorf("%w: nil", ErrNonceRange)
	}
	if n.BitLen() > 128 {
		return out, fmt.Errorf("%w: %d bits", ErrNonceRange, n.BitLen())
	}
	be := n.Bytes32()
	for i := 0; i < 16; i++ {
		out[i] = be[31-i]
	}
	return out, nil
}

// NonceFromBytes decodes a 16-byte little-endian nonce.
func NonceFromBytes(b [16]byte) *uint256.Int {
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	return new(uint256.Int).SetBytes(be[:])
}
