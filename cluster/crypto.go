// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// Keystream slots for the fields a single session may seal. Each slot
// selects a distinct ChaCha20 block so two fields sealed under one session
// never share keystream.
const (
	SlotSender    uint32 = 0
	SlotRecipient uint32 = 1
	SlotRequester uint32 = 0
	SlotProbe     uint32 = 0
)

var errShortResult = errors.New("result ciphertext too short")

// GenerateKey returns a fresh X25519 key pair for the metadata cipher.
func GenerateKey() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], p)
	return priv, pub, nil
}

// sharedKey derives the symmetric metadata key for a (private, public) pair.
// Both sides of the exchange arrive at the same key.
func sharedKey(priv, pub [32]byte) ([32]byte, error) {
	var key [32]byte
	secret, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return key, fmt.Errorf("failed to derive shared secret: %w", err)
	}
	return sha256.Sum256(secret), nil
}

// sealBlock XORs a 32-byte block with the session keystream at the given
// slot. Sealing and opening are the same operation.
func sealBlock(key [32]byte, nonce [16]byte, slot uint32, block [32]byte) ([32]byte, error) {
	var out [32]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:chacha20.NonceSize])
	if err != nil {
		return out, err
	}
	c.SetCounter(slot)
	c.XORKeyStream(out[:], block[:])
	return out, nil
}

// sealResult authenticates and encrypts a 16-byte result block, producing
// exactly CiphertextLen bytes (block plus AEAD tag).
func sealResult(key [32]byte, nonce [16]byte, block [16]byte) ([32]byte, error) {
	var out [32]byte
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return out, err
	}
	sealed := aead.Seal(nil, nonce[:chacha20poly1305.NonceSize], block[:], nil)
	copy(out[:], sealed)
	return out, nil
}

// openResult reverses sealResult.
func openResult(key [32]byte, nonce [16]byte, ct [32]byte) ([16]byte, error) {
	var out [16]byte
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return out, err
	}
	opened, err := aead.Open(nil, nonce[:chacha20poly1305.NonceSize], ct[:], nil)
	if err != nil {
		return out, fmt.Errorf("failed to open result: %w", err)
	}
	if len(opened) != 16 {
		return out, errShortResult
	}
	copy(out[:], opened)
	return out, nil
}

// Session is the client side of the metadata cipher: an ephemeral X25519
// key agreed with the cluster's metadata key, plus a random u128 nonce.
// A sender uses a session to seal identity commitments into a message; a
// requester uses one to seal its claimed commitment and to open the
// encrypted result the cluster returns.
type Session struct {
	priv  [32]byte
	pub   [32]byte
	nonce [16]byte
	key   [32]byte
}

// NewSession creates a session against the cluster's metadata public key.
func NewSession(clusterKey [32]byte) (*Session, error) {
	priv, pub, err := GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate session nonce: %w", err)
	}
	key, err := sharedKey(priv, clusterKey)
	if err != nil {
		return nil, err
	}
	return &Session{priv: priv, pub: pub, nonce: nonce, key: key}, nil
}

// PublicKey returns the session's ephemeral public key. It is stored with
// sealed data so the cluster can rebuild the shared key.
func (s *Session) PublicKey() [32]byte {
	return s.pub
}

// Nonce returns the session nonce as a u128.
func (s *Session) Nonce() *uint256.Int {
	return NonceFromBytes(s.nonce)
}

// Seal encrypts a 32-byte block at the given keystream slot.
func (s *Session) Seal(slot uint32, block [32]byte) ([32]byte, error) {
	return sealBlock(s.key, s.nonce, slot, block)
}

// OpenResult decrypts a result ciphertext returned by the cluster under
// this session. The nonce is the one carried next to the ciphertext in the
// settle notice, not the session nonce.
func (s *Session) OpenResult(ct [32]byte, nonce [16]byte) ([16]byte, error) {
	return openResult(s.key, nonce, ct)
}
