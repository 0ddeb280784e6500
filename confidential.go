// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	"github.com/luxfi/veil/cluster"
)

// SendConfidential stores a message whose participants are hidden. Both
// commitments must already be sealed to the cluster's metadata key under the
// sender's session (metaKey, metaNonce); the store never sees a plaintext
// commitment. The sender chooses the slot index; the global sequence counter
// advances on every send and its post-increment value is returned.
//
// The published notice carries only the slot index and a timestamp.
func (e *Engine) SendConfidential(
	sender ids.ID,
	index uint64,
	encSender Commitment,
	encRecipient Commitment,
	content []byte,
	nonce [ContentNonceLen]byte,
	metaKey [32]byte,
	metaNonce *uint256.Int,
) (uint64, error) {
	if len(content) > MaxContentSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(content))
	}
	if _, err := cluster.NonceBytes(metaNonce); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	addr := ConfidentialMessageAddress(sender, index)
	if _, ok := e.confidential[addr]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateAddress, addr)
	}

	timestamp := e.now()
	e.confidential[addr] = &ConfidentialMessage{
		SenderCommitment:    encSender,
		RecipientCommitment: encRecipient,
		Content:             append([]byte(nil), content...),
		Nonce:               nonce,
		Timestamp:           timestamp,
		MetaKey:             metaKey,
		MetaNonce:           metaNonce.Clone(),
		Salt:                salt(addr),
	}
	e.sequence++

	e.metrics.IncConfidentialSent()
	e.log.Debug("confidential message stored")
	e.emit(&ConfidentialSent{
		Index:     index,
		Timestamp: uint64(timestamp),
	})
	return e.sequence, nil
}

// Sequence returns the global confidential-message counter.
func (e *Engine) Sequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// ConfidentialMessage returns a copy of the message at (sender, index).
func (e *Engine) ConfidentialMessage(sender ids.ID, index uint64) (ConfidentialMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.confidential[ConfidentialMessageAddress(sender, index)]
	if !ok {
		return ConfidentialMessage{}, fmt.Errorf("%w: (%s, %d)", ErrMessageNotFound, sender, index)
	}
	out := *msg
	out.Content = append([]byte(nil), msg.Content...)
	out.MetaNonce = msg.MetaNonce.Clone()
	return out, nil
}
