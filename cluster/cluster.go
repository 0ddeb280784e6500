// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cluster defines the boundary to the secure-computation cluster:
// computation kinds, argument bundles, signed outputs, and the client
// interface used to queue work. The cluster evaluates a fixed computation
// over encrypted inputs and returns an authenticated, still-encrypted
// result; no party outside the cluster observes the plaintext inputs.
package cluster

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrDefinitionMissing is returned when a computation is queued before
	// its definition has been registered with the cluster.
	ErrDefinitionMissing = errors.New("computation definition not registered")

	// ErrUnknownKind is returned for kinds outside the fixed enumeration.
	ErrUnknownKind = errors.New("unknown computation kind")

	// ErrShardCount is returned when the requested shard count cannot be
	// served. This protocol always requests a single shard.
	ErrShardCount = errors.New("unsupported shard count")
)

// Kind identifies a pre-registered computation shape. A kind must be
// initialized once, via InitDefinition, before it can be queued.
type Kind uint32

const (
	// KindAccessCheck compares a requester identity commitment against a
	// stored recipient commitment and returns an encrypted 0/1 byte.
	KindAccessCheck Kind = iota

	// KindProbeAdd sums two encrypted bytes. It exists to exercise the
	// queue/settle path without touching any message state.
	KindProbeAdd
)

func (k Kind) String() string {
	switch k {
	case KindAccessCheck:
		return "access_check"
	case KindProbeAdd:
		return "probe_add"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Valid returns nil if the kind is part of the fixed enumeration.
func (k Kind) Valid() error {
	switch k {
	case KindAccessCheck, KindProbeAdd:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint32(k))
	}
}

// DefinitionOffset derives the stable registration offset for a kind from
// its name, so that independently operated clusters agree on it.
func DefinitionOffset(k Kind) uint32 {
	h := sha256.Sum256([]byte(k.String()))
	return binary.BigEndian.Uint32(h[:4])
}

// Callback consumes the signed output of a previously queued computation.
// It is invoked exactly once per queued computation, at an arbitrary later
// time, on a cluster-owned goroutine.
type Callback func(id uint64, out SignedOutput) error

// Cluster is the client interface to the secure-computation cluster.
type Cluster interface {
	// InitDefinition registers the shape of a computation kind with the
	// cluster. It must complete once per kind before the first Queue of
	// that kind; repeated registration is a no-op.
	InitDefinition(ctx context.Context, kind Kind) error

	// Queue submits an argument bundle for asynchronous evaluation. The
	// result is delivered to cb together with the caller-chosen id. shards
	// is the number of output shards expected (always 1 here) and delay is
	// the confirmation depth to wait before the result is released (always
	// 0 here: the result is accepted as soon as produced).
	Queue(ctx context.Context, kind Kind, id uint64, args *Args, cb Callback, shards int, delay uint64) error
}
