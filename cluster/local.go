// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/log"
)

var _ Cluster = (*Local)(nil)

// Local is an in-process reference cluster. It holds the cluster metadata
// key and a BLS signing key, evaluates the fixed computations over sealed
// inputs, and delivers signed results asynchronously on its own goroutines.
// It is the cluster used by the dev node and the test suite; a production
// deployment replaces it with a RemoteClient pointed at real cluster nodes.
type Local struct {
	log    log.Logger
	signer *bls.SecretKey
	pk     *bls.PublicKey
	secret [32]byte
	public [32]byte

	mu   sync.Mutex
	defs map[Kind]uint32
}

// NewLocal creates a local cluster with fresh metadata and signing keys.
func NewLocal(logger log.Logger) (*Local, error) {
	sk, err := bls.NewSecretKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cluster signing key: %w", err)
	}
	priv, pub, err := GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cluster metadata key: %w", err)
	}
	return &Local{
		log:    logger,
		signer: sk,
		pk:     sk.PublicKey(),
		secret: priv,
		public: pub,
		defs:   make(map[Kind]uint32),
	}, nil
}

// PublicKey returns the key outputs are verified against.
func (l *Local) PublicKey() *bls.PublicKey {
	return l.pk
}

// MetadataKey returns the X25519 public key clients seal commitments to.
func (l *Local) MetadataKey() [32]byte {
	return l.public
}

// InitDefinition registers a computation kind. Repeated registration of the
// same kind is a no-op.
func (l *Local) InitDefinition(_ context.Context, kind Kind) error {
	if err := kind.Valid(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.defs[kind]; !ok {
		l.defs[kind] = DefinitionOffset(kind)
		l.log.Info("registered computation definition",
			log.Stringer("kind", kind),
		)
	}
	return nil
}

func (l *Local) initialized(kind Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.defs[kind]
	return ok
}

// Queue evaluates the bundle on a fresh goroutine and delivers the signed
// output to cb. Delivery is detached from ctx: once queued, a computation
// resolves only by success or abort, mirroring the real cluster.
func (l *Local) Queue(_ context.Context, kind Kind, id uint64, args *Args, cb Callback, shards int, _ uint64) error {
	if err := kind.Valid(); err != nil {
		return err
	}
	if shards != 1 {
		return fmt.Errorf("%w: %d", ErrShardCount, shards)
	}
	if args == nil || cb == nil {
		return fmt.Errorf("%w: nil args or callback", ErrMalformedArgs)
	}
	if !l.initialized(kind) {
		return fmt.Errorf("%w: %s", ErrDefinitionMissing, kind)
	}

	go func() {
		out := l.evaluate(kind, id, args)
		if err := cb(id, out); err != nil {
			l.log.Debug("result callback failed",
				log.Stringer("kind", kind),
				log.Err(err),
			)
		}
	}()
	return nil
}

// evaluate runs the computation and seals the result for the requester.
// Failures never leak partial state: they produce a signed abort output
// with a zero ciphertext.
func (l *Local) evaluate(kind Kind, id uint64, args *Args) SignedOutput {
	out := SignedOutput{Kind: kind, ID: id}

	block, err := l.run(kind, args)
	if err == nil {
		err = l.seal(&out, args, block)
	}
	if err != nil {
		l.log.Debug("computation aborted",
			log.Stringer("kind", kind),
			log.Err(err),
		)
		out.Aborted = true
		out.Ciphertext = [CiphertextLen]byte{}
		out.Nonce = [OutputNonceLen]byte{}
	}

	if err := out.Sign(l.signer); err != nil {
		l.log.Error("failed to sign output", log.Err(err))
	}
	return out
}

// seal encrypts the result block under the requester's session with a
// fresh nonce.
func (l *Local) seal(out *SignedOutput, args *Args, block [16]byte) error {
	key, err := sharedKey(l.secret, args.ResultKey)
	if err != nil {
		return err
	}
	if _, err := rand.Read(out.Nonce[:]); err != nil {
		return err
	}
	out.Ciphertext, err = sealResult(key, out.Nonce, block)
	return err
}

func (l *Local) run(kind Kind, args *Args) ([16]byte, error) {
	switch kind {
	case KindAccessCheck:
		return l.runAccessCheck(args)
	case KindProbeAdd:
		return l.runProbeAdd(args)
	default:
		return [16]byte{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// runAccessCheck compares the stored recipient commitment against the
// requester's claimed commitment. Expected bundle layout:
//
//	0: encrypted recipient commitment (32 bytes, sender session)
//	1: plaintext sender session key (32 bytes)
//	2: plaintext sender session nonce (16 bytes)
//	3: encrypted requester commitment (32 bytes, requester session)
//
// The comparison covers all 32 bytes unconditionally so the evaluation
// trace is independent of the position of the first differing byte.
func (l *Local) runAccessCheck(args *Args) ([16]byte, error) {
	var block [16]byte
	if err := expectItems(args,
		item{ArgEncrypted, 32},
		item{ArgPlaintext, 32},
		item{ArgPlaintext, 16},
		item{ArgEncrypted, 32},
	); err != nil {
		return block, err
	}

	var metaKey [32]byte
	var metaNonce [16]byte
	copy(metaKey[:], args.Items[1].Value)
	copy(metaNonce[:], args.Items[2].Value)

	storedKey, err := sharedKey(l.secret, metaKey)
	if err != nil {
		return block, err
	}
	var storedCT [32]byte
	copy(storedCT[:], args.Items[0].Value)
	recipient, err := sealBlock(storedKey, metaNonce, SlotRecipient, storedCT)
	if err != nil {
		return block, err
	}

	requesterKey, err := sharedKey(l.secret, args.ResultKey)
	if err != nil {
		return block, err
	}
	var claimedCT [32]byte
	copy(claimedCT[:], args.Items[3].Value)
	claimed, err := sealBlock(requesterKey, args.ResultNonce, SlotRequester, claimedCT)
	if err != nil {
		return block, err
	}

	block[0] = byte(subtle.ConstantTimeCompare(recipient[:], claimed[:]))
	return block, nil
}

// runProbeAdd sums the first two plaintext bytes of a single sealed block.
func (l *Local) runProbeAdd(args *Args) ([16]byte, error) {
	var block [16]byte
	if err := expectItems(args, item{ArgEncrypted, 32}); err != nil {
		return block, err
	}

	key, err := sharedKey(l.secret, args.ResultKey)
	if err != nil {
		return block, err
	}
	var ct [32]byte
	copy(ct[:], args.Items[0].Value)
	pt, err := sealBlock(key, args.ResultNonce, SlotProbe, ct)
	if err != nil {
		return block, err
	}

	sum := uint16(pt[0]) + uint16(pt[1])
	binary.LittleEndian.PutUint16(block[:2], sum)
	return block, nil
}

type item struct {
	tag ArgTag
	len int
}

func expectItems(args *Args, want ...item) error {
	if len(args.Items) != len(want) {
		return fmt.Errorf("%w: %d items, want %d", ErrMalformedArgs, len(args.Items), len(want))
	}
	for i, w := range want {
		got := args.Items[i]
		if got.Tag != w.tag || len(got.Value) != w.len {
			return fmt.Errorf("%w: item %d tag %d len %d", ErrMalformedArgs, i, got.Tag, len(got.Value))
		}
	}
	return nil
}
