// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package veil

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/veil/cluster"
)

// InitDefinition registers a computation kind with the cluster and marks it
// usable. It must complete once per kind before the first request of that
// kind; calling it again is harmless.
func (e *Engine) InitDefinition(ctx context.Context, kind cluster.Kind) error {
	if e.cluster == nil {
		return fmt.Errorf("%w: no cluster", ErrNotConfigured)
	}
	if err := e.cluster.InitDefinition(ctx, kind); err != nil {
		return fmt.Errorf("failed to initialize definition: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialized.Add(kind)
	return nil
}

// RequestAccessCheck queues a confidential access check: does the requester's
// claimed commitment match the recipient commitment stored in the message at
// msgAddr? encRequester must be sealed under the session identified by
// resultKey and resultNonce; the cluster re-encrypts its verdict to the same
// session. The computationID names the request until it settles and may be
// reused afterwards.
func (e *Engine) RequestAccessCheck(
	ctx context.Context,
	requester ids.ID,
	computationID uint64,
	msgAddr ids.ID,
	encRequester Commitment,
	resultKey [32]byte,
	resultNonce *uint256.Int,
) error {
	args, err := e.prepareAccessArgs(computationID, requester, msgAddr, encRequester, resultKey, resultNonce)
	if err != nil {
		return err
	}
	return e.queue(ctx, cluster.KindAccessCheck, computationID, args)
}

// prepareAccessArgs validates the request, records the pending computation,
// and builds the argument bundle as one atomic transition.
func (e *Engine) prepareAccessArgs(
	computationID uint64,
	requester ids.ID,
	msgAddr ids.ID,
	encRequester Commitment,
	resultKey [32]byte,
	resultNonce *uint256.Int,
) (*cluster.Args, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized.Contains(cluster.KindAccessCheck) {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, cluster.KindAccessCheck)
	}
	if _, ok := e.pending[computationID]; ok {
		return nil, fmt.Errorf("%w: %d", ErrComputationPending, computationID)
	}
	msg, ok := e.confidential[msgAddr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, msgAddr)
	}

	metaNonce, err := cluster.NonceBytes(msg.MetaNonce)
	if err != nil {
		return nil, err
	}
	args, err := cluster.NewArgs(resultKey, resultNonce)
	if err != nil {
		return nil, err
	}
	args.Encrypted(msg.RecipientCommitment[:]).
		Plaintext(msg.MetaKey[:]).
		Plaintext(metaNonce[:]).
		Encrypted(encRequester[:])

	e.sessions.Add(requester)
	e.pending[computationID] = pendingComputation{
		kind:      cluster.KindAccessCheck,
		requester: requester,
	}
	return args, nil
}

// RequestProbe queues the addition probe: the cluster sums the first two
// bytes of the sealed block and returns the encrypted sum. It exercises the
// queue/settle path without touching message state.
func (e *Engine) RequestProbe(
	ctx context.Context,
	requester ids.ID,
	computationID uint64,
	encValue [32]byte,
	resultKey [32]byte,
	resultNonce *uint256.Int,
) error {
	if err := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()

		if !e.initialized.Contains(cluster.KindProbeAdd) {
			return fmt.Errorf("%w: %s", ErrNotConfigured, cluster.KindProbeAdd)
		}
		if _, ok := e.pending[computationID]; ok {
			return fmt.Errorf("%w: %d", ErrComputationPending, computationID)
		}
		e.sessions.Add(requester)
		e.pending[computationID] = pendingComputation{
			kind:      cluster.KindProbeAdd,
			requester: requester,
		}
		return nil
	}(); err != nil {
		return err
	}

	args, err := cluster.NewArgs(resultKey, resultNonce)
	if err != nil {
		e.dropPending(computationID)
		return err
	}
	args.Encrypted(encValue[:])
	return e.queue(ctx, cluster.KindProbeAdd, computationID, args)
}

// queue submits a prepared bundle. The pending record must already exist; it
// is released again if the cluster refuses the request.
func (e *Engine) queue(ctx context.Context, kind cluster.Kind, computationID uint64, args *cluster.Args) error {
	if e.cluster == nil {
		e.dropPending(computationID)
		return fmt.Errorf("%w: no cluster", ErrNotConfigured)
	}
	if err := e.cluster.Queue(ctx, kind, computationID, args, e.onComputationResult, 1, 0); err != nil {
		e.dropPending(computationID)
		return fmt.Errorf("failed to queue computation: %w", err)
	}
	e.metrics.IncComputationsQueued()
	e.log.Debug("computation queued",
		log.Stringer("kind", kind),
	)
	return nil
}

func (e *Engine) dropPending(computationID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, computationID)
}

// onComputationResult settles a computation. The pending record is consumed
// exactly once whether the outcome is a verified result or an abort; after
// settlement the computation ID is free for reuse.
func (e *Engine) onComputationResult(id uint64, out cluster.SignedOutput) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownComputation, id)
	}
	delete(e.pending, id)

	if err := e.checkOutput(id, p.kind, out); err != nil {
		e.metrics.IncComputationsAborted()
		e.log.Warn("computation aborted",
			log.Stringer("kind", p.kind),
			log.Err(err),
		)
		return err
	}

	var n Notice
	switch p.kind {
	case cluster.KindProbeAdd:
		n = &ProbeSettled{
			Result: out.Ciphertext,
			Nonce:  out.Nonce,
		}
	default:
		n = &AccessVerified{
			Result: out.Ciphertext,
			Nonce:  out.Nonce,
		}
	}
	e.emit(n)
	e.settled.Put(id, n)
	e.metrics.IncComputationsSettled()
	e.log.Debug("computation settled",
		log.Stringer("kind", p.kind),
	)
	return nil
}

// checkOutput authenticates a signed output against the pending record.
func (e *Engine) checkOutput(id uint64, kind cluster.Kind, out cluster.SignedOutput) error {
	if out.Kind != kind || out.ID != id {
		return fmt.Errorf("%w: output for %s/%d", ErrAbortedComputation, out.Kind, out.ID)
	}
	if e.clusterKey != nil {
		if err := out.Verify(e.clusterKey); err != nil {
			return fmt.Errorf("%w: %v", ErrAbortedComputation, err)
		}
	}
	if out.Aborted {
		return fmt.Errorf("%w: cluster abort", ErrAbortedComputation)
	}
	return nil
}

// Settlement returns the retained result notice of a recently settled
// computation ID. Aborted computations leave no settlement; a reused ID
// shadows the previous settlement.
func (e *Engine) Settlement(computationID uint64) (Notice, bool) {
	return e.settled.Get(computationID)
}

// Pending reports whether a computation ID is awaiting settlement.
func (e *Engine) Pending(computationID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[computationID]
	return ok
}

// HasSession reports whether a requester has queued at least one computation.
func (e *Engine) HasSession(requester ids.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.Contains(requester)
}
