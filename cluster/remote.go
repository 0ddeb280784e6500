// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/p2p"
)

// Cluster request types.
const (
	reqInitDefinition byte = iota
	reqQueue
)

var (
	_ Cluster = (*RemoteClient)(nil)

	// ErrNoClusterNodes is returned when a remote client is created
	// without any node to talk to.
	ErrNoClusterNodes = errors.New("no cluster nodes configured")

	errMalformedRequest = errors.New("malformed cluster request")
)

// RemoteClient queues computations on cluster nodes over the p2p network.
// A node evaluates the bundle and responds with its signed output; the
// response handler dispatches the callback, so settlement arrives at an
// arbitrary later time just as with an out-of-process cluster.
type RemoteClient struct {
	log    log.Logger
	client *p2p.Client
	nodes  set.Set[ids.NodeID]
}

// NewRemoteClient creates a client for the given cluster node IDs.
func NewRemoteClient(logger log.Logger, client *p2p.Client, nodes []ids.NodeID) (*RemoteClient, error) {
	if len(nodes) == 0 {
		return nil, ErrNoClusterNodes
	}
	return &RemoteClient{
		log:    logger,
		client: client,
		nodes:  set.Of(nodes...),
	}, nil
}

// InitDefinition registers a kind with the cluster nodes and blocks until
// the first acknowledgement or context cancellation.
func (c *RemoteClient) InitDefinition(ctx context.Context, kind Kind) error {
	if err := kind.Valid(); err != nil {
		return err
	}
	request := marshalClusterRequest(reqInitDefinition, kind, 0, 1, 0, nil)

	acks := make(chan error, c.nodes.Len())
	onResponse := func(_ context.Context, nodeID ids.NodeID, _ []byte, err error) {
		if err != nil {
			err = fmt.Errorf("node %s: %w", nodeID, err)
		}
		acks <- err
	}
	if err := c.client.Request(ctx, c.nodes, request, onResponse); err != nil {
		return fmt.Errorf("failed to send definition request: %w", err)
	}

	var lastErr error
	for i := 0; i < c.nodes.Len(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-acks:
			if err == nil {
				return nil
			}
			lastErr = err
		}
	}
	return lastErr
}

// Queue submits a bundle to the cluster nodes. The callback fires when the
// first well-formed signed output arrives; a request that never receives a
// response leaves the computation permanently unsettled, which the caller's
// pending bookkeeping must tolerate.
func (c *RemoteClient) Queue(ctx context.Context, kind Kind, id uint64, args *Args, cb Callback, shards int, delay uint64) error {
	if err := kind.Valid(); err != nil {
		return err
	}
	if shards != 1 {
		return fmt.Errorf("%w: %d", ErrShardCount, shards)
	}
	if args == nil || cb == nil {
		return fmt.Errorf("%w: nil args or callback", ErrMalformedArgs)
	}
	argsBytes, err := args.MarshalBinary()
	if err != nil {
		return err
	}
	request := marshalClusterRequest(reqQueue, kind, id, uint8(shards), delay, argsBytes)

	onResponse := func(_ context.Context, nodeID ids.NodeID, responseBytes []byte, err error) {
		if err != nil {
			c.log.Debug("dropping cluster response",
				log.Stringer("nodeID", nodeID),
				log.Err(err),
			)
			return
		}
		out, err := ParseSignedOutput(responseBytes)
		if err != nil {
			c.log.Debug("dropping malformed cluster response",
				log.Stringer("nodeID", nodeID),
				log.Err(err),
			)
			return
		}
		if err := cb(id, *out); err != nil {
			c.log.Debug("result callback failed",
				log.Stringer("kind", kind),
				log.Err(err),
			)
		}
	}
	if err := c.client.Request(ctx, c.nodes, request, onResponse); err != nil {
		return fmt.Errorf("failed to send queue request: %w", err)
	}
	return nil
}

// marshalClusterRequest frames a cluster request.
// Format: type(1) + kind(4) + id(8) + shards(1) + delay(8) + args.
func marshalClusterRequest(reqType byte, kind Kind, id uint64, shards uint8, delay uint64, args []byte) []byte {
	buf := make([]byte, 1+4+8+1+8+len(args))
	buf[0] = reqType
	binary.BigEndian.PutUint32(buf[1:5], uint32(kind))
	binary.BigEndian.PutUint64(buf[5:13], id)
	buf[13] = shards
	binary.BigEndian.PutUint64(buf[14:22], delay)
	copy(buf[22:], args)
	return buf
}

type clusterRequest struct {
	reqType byte
	kind    Kind
	id      uint64
	shards  uint8
	delay   uint64
	args    []byte
}

func parseClusterRequest(data []byte) (*clusterRequest, error) {
	if len(data) < 22 {
		return nil, fmt.Errorf("%w: %d bytes", errMalformedRequest, len(data))
	}
	r := &clusterRequest{
		reqType: data[0],
		kind:    Kind(binary.BigEndian.Uint32(data[1:5])),
		id:      binary.BigEndian.Uint64(data[5:13]),
		shards:  data[13],
		delay:   binary.BigEndian.Uint64(data[14:22]),
		args:    data[22:],
	}
	if r.reqType != reqInitDefinition && r.reqType != reqQueue {
		return nil, fmt.Errorf("%w: type %d", errMalformedRequest, r.reqType)
	}
	return r, nil
}
