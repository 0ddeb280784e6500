// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/veil/cache"
	"github.com/luxfi/veil/cluster"
	"github.com/luxfi/veil/metrics"
)

// settledCacheSize bounds the retained settlement notices.
const settledCacheSize = 1024

// Config wires an Engine to its collaborators.
type Config struct {
	Log     log.Logger
	Emitter Emitter
	Cluster cluster.Cluster

	// ClusterKey is the public key signed outputs are verified against. If
	// nil, settlement skips verification; tests use this with hand-built
	// outputs, production deployments must set it.
	ClusterKey *bls.PublicKey

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Now supplies record timestamps; defaults to the wall clock.
	Now func() int64
}

type pendingComputation struct {
	kind      cluster.Kind
	requester ids.ID
}

// Engine is the protocol core: the identity registry, both message stores,
// and the access-verification state machine, guarded by a single mutex so
// every operation is one atomic state transition.
type Engine struct {
	log        log.Logger
	emitter    Emitter
	cluster    cluster.Cluster
	clusterKey *bls.PublicKey
	metrics    *metrics.Metrics
	now        func() int64

	mu           sync.Mutex
	identities   map[ids.ID]*Identity
	plain        map[ids.ID]*PlainMessage
	confidential map[ids.ID]*ConfidentialMessage
	sequence     uint64
	initialized  set.Set[cluster.Kind]
	sessions     set.Set[ids.ID]
	pending      map[uint64]pendingComputation
	settled      *cache.LRU[uint64, Notice]
}

// New creates an engine. Cluster and Emitter may be nil for embedders that
// use only the store operations; queueing a computation without a cluster
// returns ErrNotConfigured.
func New(cfg Config) *Engine {
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Engine{
		log:          logger,
		emitter:      cfg.Emitter,
		cluster:      cfg.Cluster,
		clusterKey:   cfg.ClusterKey,
		metrics:      cfg.Metrics,
		now:          now,
		identities:   make(map[ids.ID]*Identity),
		plain:        make(map[ids.ID]*PlainMessage),
		confidential: make(map[ids.ID]*ConfidentialMessage),
		initialized:  set.NewSet[cluster.Kind](2),
		sessions:     set.NewSet[ids.ID](16),
		pending:      make(map[uint64]pendingComputation),
		settled:      cache.NewLRU[uint64, Notice](settledCacheSize),
	}
}

// emit publishes a notice if an emitter is configured. Called with e.mu held.
func (e *Engine) emit(n Notice) {
	if e.emitter != nil {
		e.emitter.Emit(n)
	}
}

// salt derives the record salt for an address, a stable byte stored with
// records whose address derivation is versioned.
func salt(addr ids.ID) byte {
	return addr[31]
}

// Register creates the identity record for an owner.
func (e *Engine) Register(owner ids.ID, publicKey [32]byte) (*Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr := IdentityAddress(owner)
	if _, ok := e.identities[addr]; ok {
		return nil, fmt.Errorf("%w: owner %s", ErrIdentityExists, owner)
	}

	identity := &Identity{
		Owner:     owner,
		PublicKey: publicKey,
		Salt:      salt(addr),
	}
	e.identities[addr] = identity
	e.metrics.IncIdentitiesRegistered()
	e.log.Info("identity registered",
		log.Stringer("owner", owner),
	)
	e.emit(&IdentityRegistered{
		Owner:     owner,
		PublicKey: publicKey,
	})
	return identity, nil
}

// RotateKey replaces the owner's public key. Only the owner may rotate.
func (e *Engine) RotateKey(actor, owner ids.ID, newKey [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	identity, ok := e.identities[IdentityAddress(owner)]
	if !ok {
		return fmt.Errorf("%w: owner %s", ErrIdentityNotFound, owner)
	}
	if actor != identity.Owner {
		return fmt.Errorf("%w: %s cannot rotate key of %s", ErrUnauthorized, actor, owner)
	}

	identity.PublicKey = newKey
	e.log.Info("key rotated",
		log.Stringer("owner", owner),
	)
	e.emit(&KeyRotated{
		Owner:     owner,
		PublicKey: newKey,
	})
	return nil
}

// Identity returns a copy of the owner's identity record.
func (e *Engine) Identity(owner ids.ID) (Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	identity, ok := e.identities[IdentityAddress(owner)]
	if !ok {
		return Identity{}, fmt.Errorf("%w: owner %s", ErrIdentityNotFound, owner)
	}
	return *identity, nil
}
