// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// SendPlain stores a message with public sender and recipient metadata. The
// content is an opaque client-side ciphertext. The message occupies the slot
// (sender, recipient, n) where n is the recipient's message count at send
// time; the count then advances and the returned index is the advanced
// count, matching the index carried by the notice.
func (e *Engine) SendPlain(sender, recipient ids.ID, content []byte, nonce [ContentNonceLen]byte) (uint64, error) {
	if len(content) > MaxContentSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(content))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	identity, ok := e.identities[IdentityAddress(recipient)]
	if !ok {
		return 0, fmt.Errorf("%w: recipient %s", ErrIdentityNotFound, recipient)
	}

	addr := PlainMessageAddress(sender, recipient, identity.MessageCount)
	if _, ok := e.plain[addr]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateAddress, addr)
	}

	timestamp := e.now()
	e.plain[addr] = &PlainMessage{
		Sender:    sender,
		Recipient: recipient,
		Content:   append([]byte(nil), content...),
		Nonce:     nonce,
		Timestamp: timestamp,
	}
	identity.MessageCount++

	e.metrics.IncPlainSent()
	e.log.Debug("plain message stored",
		log.Stringer("sender", sender),
		log.Stringer("recipient", recipient),
	)
	e.emit(&MessageSent{
		Sender:    sender,
		Recipient: recipient,
		Timestamp: uint64(timestamp),
		Index:     identity.MessageCount,
	})
	return identity.MessageCount, nil
}

// MarkRead flags a plain message as read. Only the recipient may mark; the
// flag is idempotent but a read notice is published on every call.
func (e *Engine) MarkRead(reader, sender, recipient ids.ID, index uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.plain[PlainMessageAddress(sender, recipient, index)]
	if !ok {
		return fmt.Errorf("%w: (%s, %s, %d)", ErrMessageNotFound, sender, recipient, index)
	}
	if reader != msg.Recipient {
		return fmt.Errorf("%w: %s is not the recipient", ErrUnauthorized, reader)
	}

	msg.Read = true
	e.emit(&MessageRead{
		Sender:    sender,
		Recipient: recipient,
		Timestamp: uint64(e.now()),
	})
	return nil
}

// PlainMessage returns a copy of the message at (sender, recipient, index).
func (e *Engine) PlainMessage(sender, recipient ids.ID, index uint64) (PlainMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.plain[PlainMessageAddress(sender, recipient, index)]
	if !ok {
		return PlainMessage{}, fmt.Errorf("%w: (%s, %s, %d)", ErrMessageNotFound, sender, recipient, index)
	}
	out := *msg
	out.Content = append([]byte(nil), msg.Content...)
	return out, nil
}
