// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/crypto/bls"
)

const (
	// CiphertextLen is the length of a result ciphertext.
	CiphertextLen = 32

	// OutputNonceLen is the length of a result nonce (u128, little endian).
	OutputNonceLen = 16
)

var (
	// ErrBadOutputSignature is returned when a signed output does not
	// verify against the cluster's public key.
	ErrBadOutputSignature = errors.New("invalid output signature")

	// ErrAborted is the cluster-signalled failure of a computation.
	ErrAborted = errors.New("computation aborted by cluster")

	// ErrMalformedOutput is returned when an output frame cannot be parsed.
	ErrMalformedOutput = errors.New("malformed signed output")
)

// SignedOutput is the authenticated result of a queued computation. The
// ciphertext is opaque to everyone but the requester, who derives the
// decryption key from the ephemeral session used in the request. Aborted
// outputs carry no ciphertext.
type SignedOutput struct {
	Kind       Kind
	ID         uint64
	Aborted    bool
	Ciphertext [CiphertextLen]byte
	Nonce      [OutputNonceLen]byte
	Signature  [bls.SignatureLen]byte
}

// digest is the canonical byte string the cluster signs.
func (o *SignedOutput) digest() []byte {
	var header [13]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(o.Kind))
	binary.BigEndian.PutUint64(header[4:12], o.ID)
	if o.Aborted {
		header[12] = 1
	}
	h := sha256.New()
	h.Write(header[:])
	h.Write(o.Ciphertext[:])
	h.Write(o.Nonce[:])
	return h.Sum(nil)
}

// Sign signs the output with the cluster's secret key.
func (o *SignedOutput) Sign(sk *bls.SecretKey) error {
	sig, err := sk.Sign(o.digest())
	if err != nil {
		return fmt.Errorf("failed to sign output: %w", err)
	}
	copy(o.Signature[:], bls.SignatureToBytes(sig))
	return nil
}

// Verify checks the output signature against the cluster's public key. It
// does not interpret the abort flag; callers decide how aborts surface.
func (o *SignedOutput) Verify(pk *bls.PublicKey) error {
	sig, err := bls.SignatureFromBytes(o.Signature[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOutputSignature, err)
	}
	if !bls.Verify(pk, sig, o.digest()) {
		return ErrBadOutputSignature
	}
	return nil
}

// MarshalBinary frames the output for the wire.
func (o *SignedOutput) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 13+CiphertextLen+OutputNonceLen+bls.SignatureLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(o.Kind))
	binary.BigEndian.PutUint64(buf[4:12], o.ID)
	if o.Aborted {
		buf[12] = 1
	}
	offset := 13
	copy(buf[offset:], o.Ciphertext[:])
	offset += CiphertextLen
	copy(buf[offset:], o.Nonce[:])
	offset += OutputNonceLen
	copy(buf[offset:], o.Signature[:])
	return buf, nil
}

// ParseSignedOutput decodes an output framed by MarshalBinary.
func ParseSignedOutput(data []byte) (*SignedOutput, error) {
	if len(data) != 13+CiphertextLen+OutputNonceLen+bls.SignatureLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedOutput, len(data))
	}
	o := &SignedOutput{
		Kind:    Kind(binary.BigEndian.Uint32(data[0:4])),
		ID:      binary.BigEndian.Uint64(data[4:12]),
		Aborted: data[12] == 1,
	}
	offset := 13
	copy(o.Ciphertext[:], data[offset:offset+CiphertextLen])
	offset += CiphertextLen
	copy(o.Nonce[:], data[offset:offset+OutputNonceLen])
	offset += OutputNonceLen
	copy(o.Signature[:], data[offset:])
	return o, nil
}
