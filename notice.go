// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Notice type IDs
const (
	// IdentityRegisteredID notice type ID
	IdentityRegisteredID byte = iota
	// KeyRotatedID notice type ID
	KeyRotatedID
	// MessageSentID notice type ID
	MessageSentID
	// MessageReadID notice type ID
	MessageReadID
	// ConfidentialSentID notice type ID
	ConfidentialSentID
	// AccessVerifiedID notice type ID
	AccessVerifiedID
	// ProbeSettledID notice type ID
	ProbeSettledID
)

// ErrInvalidNotice is returned when a notice frame cannot be decoded.
var ErrInvalidNotice = errors.New("invalid notice")

// Notice is a public protocol event. Notices are the only output channel of
// the protocol core; what a notice carries is part of the privacy contract,
// so each type enumerates its fields explicitly.
type Notice interface {
	// Type returns the notice type ID.
	Type() byte
}

// NoticeType is the stringer form of a notice type ID, used in log fields.
type NoticeType byte

func (t NoticeType) String() string {
	switch byte(t) {
	case IdentityRegisteredID:
		return "identity_registered"
	case KeyRotatedID:
		return "key_rotated"
	case MessageSentID:
		return "message_sent"
	case MessageReadID:
		return "message_read"
	case ConfidentialSentID:
		return "confidential_sent"
	case AccessVerifiedID:
		return "access_verified"
	case ProbeSettledID:
		return "probe_settled"
	default:
		return fmt.Sprintf("notice(%d)", byte(t))
	}
}

// IdentityRegistered announces a new identity. Owner and key are public.
type IdentityRegistered struct {
	Owner     ids.ID   `serialize:"true"`
	PublicKey [32]byte `serialize:"true"`
}

func (*IdentityRegistered) Type() byte { return IdentityRegisteredID }

// KeyRotated announces a key rotation.
type KeyRotated struct {
	Owner     ids.ID   `serialize:"true"`
	PublicKey [32]byte `serialize:"true"`
}

func (*KeyRotated) Type() byte { return KeyRotatedID }

// MessageSent announces a plain message. Sender and recipient are public on
// this path; only the content is client-encrypted.
type MessageSent struct {
	Sender    ids.ID `serialize:"true"`
	Recipient ids.ID `serialize:"true"`
	Timestamp uint64 `serialize:"true"`
	Index     uint64 `serialize:"true"`
}

func (*MessageSent) Type() byte { return MessageSentID }

// MessageRead announces that a recipient marked a plain message read.
type MessageRead struct {
	Sender    ids.ID `serialize:"true"`
	Recipient ids.ID `serialize:"true"`
	Timestamp uint64 `serialize:"true"`
}

func (*MessageRead) Type() byte { return MessageReadID }

// ConfidentialSent announces a confidential message. It deliberately carries
// nothing but the sequence index and a timestamp: no sender, no recipient,
// no commitments.
type ConfidentialSent struct {
	Index     uint64 `serialize:"true"`
	Timestamp uint64 `serialize:"true"`
}

func (*ConfidentialSent) Type() byte { return ConfidentialSentID }

// AccessVerified announces the settlement of an access check. The result is
// encrypted to the requester's session; observers learn only that some check
// settled.
type AccessVerified struct {
	Result [32]byte `serialize:"true"`
	Nonce  [16]byte `serialize:"true"`
}

func (*AccessVerified) Type() byte { return AccessVerifiedID }

// ProbeSettled announces the settlement of a probe computation.
type ProbeSettled struct {
	Result [32]byte `serialize:"true"`
	Nonce  [16]byte `serialize:"true"`
}

func (*ProbeSettled) Type() byte { return ProbeSettledID }

// MarshalNotice frames a notice as a type byte followed by the RLP-encoded
// body.
func MarshalNotice(n Notice) ([]byte, error) {
	body, err := rlp.EncodeToBytes(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	return append([]byte{n.Type()}, body...), nil
}

// ParseNotice decodes a notice framed by MarshalNotice.
func ParseNotice(b []byte) (Notice, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNotice)
	}
	var n Notice
	switch b[0] {
	case IdentityRegisteredID:
		n = &IdentityRegistered{}
	case KeyRotatedID:
		n = &KeyRotated{}
	case MessageSentID:
		n = &MessageSent{}
	case MessageReadID:
		n = &MessageRead{}
	case ConfidentialSentID:
		n = &ConfidentialSent{}
	case AccessVerifiedID:
		n = &AccessVerified{}
	case ProbeSettledID:
		n = &ProbeSettled{}
	default:
		return nil, fmt.Errorf("%w: type %d", ErrInvalidNotice, b[0])
	}
	if err := rlp.DecodeBytes(b[1:], n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	return n, nil
}

// Emitter consumes protocol notices. Emit is called with the store lock
// held, so implementations must not call back into the engine.
type Emitter interface {
	Emit(Notice)
}

// ChannelEmitter buffers notices on a channel for a consumer goroutine.
// When the buffer is full the notice is dropped rather than blocking a
// protocol operation.
type ChannelEmitter struct {
	log log.Logger
	ch  chan Notice
}

// NewChannelEmitter creates an emitter with the given buffer size.
func NewChannelEmitter(logger log.Logger, size int) *ChannelEmitter {
	return &ChannelEmitter{
		log: logger,
		ch:  make(chan Notice, size),
	}
}

// Notices returns the receive side of the emitter.
func (e *ChannelEmitter) Notices() <-chan Notice {
	return e.ch
}

// Emit implements Emitter.
func (e *ChannelEmitter) Emit(n Notice) {
	select {
	case e.ch <- n:
	default:
		e.log.Warn("dropping notice: buffer full",
			log.Stringer("type", NoticeType(n.Type())),
		)
	}
}

// LogEmitter writes notices to a logger.
type LogEmitter struct {
	Log log.Logger
}

// Emit implements Emitter.
func (e LogEmitter) Emit(n Notice) {
	e.Log.Info("notice",
		log.Stringer("type", NoticeType(n.Type())),
	)
}

// Tee fans a notice out to multiple emitters.
type Tee []Emitter

// Emit implements Emitter.
func (t Tee) Emit(n Notice) {
	for _, e := range t {
		e.Emit(n)
	}
}
