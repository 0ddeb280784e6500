// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cluster

import (
	"context"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/p2p"
)

var _ p2p.Handler = (*NodeHandler)(nil)

// NodeHandler serves cluster requests from RemoteClient peers. It wraps a
// Local evaluator and implements p2p.Handler so it can be registered with
// the p2p router on a cluster node.
type NodeHandler struct {
	log   log.Logger
	local *Local
}

// NewNodeHandler creates a handler serving requests with the given evaluator.
func NewNodeHandler(logger log.Logger, local *Local) *NodeHandler {
	return &NodeHandler{
		log:   logger,
		local: local,
	}
}

// Gossip implements p2p.Handler. Cluster nodes do not use gossip.
func (h *NodeHandler) Gossip(context.Context, ids.NodeID, []byte) {}

// Request implements p2p.Handler. Definition requests are acknowledged with
// an empty response; queue requests are evaluated inline and answered with
// the framed signed output.
func (h *NodeHandler) Request(ctx context.Context, nodeID ids.NodeID, _ time.Time, requestBytes []byte) ([]byte, *p2p.Error) {
	req, err := parseClusterRequest(requestBytes)
	if err != nil {
		h.log.Debug("dropping malformed cluster request",
			log.Stringer("nodeID", nodeID),
			log.Err(err),
		)
		return nil, &p2p.Error{
			Code:    400,
			Message: err.Error(),
		}
	}

	switch req.reqType {
	case reqInitDefinition:
		if err := h.local.InitDefinition(ctx, req.kind); err != nil {
			return nil, &p2p.Error{
				Code:    400,
				Message: err.Error(),
			}
		}
		return []byte{}, nil

	default:
		return h.handleQueue(req)
	}
}

func (h *NodeHandler) handleQueue(req *clusterRequest) ([]byte, *p2p.Error) {
	if err := req.kind.Valid(); err != nil {
		return nil, &p2p.Error{
			Code:    400,
			Message: err.Error(),
		}
	}
	if !h.local.initialized(req.kind) {
		return nil, &p2p.Error{
			Code:    404,
			Message: ErrDefinitionMissing.Error(),
		}
	}
	if req.shards != 1 {
		return nil, &p2p.Error{
			Code:    400,
			Message: ErrShardCount.Error(),
		}
	}
	args, err := ParseArgs(req.args)
	if err != nil {
		return nil, &p2p.Error{
			Code:    400,
			Message: err.Error(),
		}
	}

	out := h.local.evaluate(req.kind, req.id, args)
	response, err := out.MarshalBinary()
	if err != nil {
		h.log.Error("failed to marshal signed output", log.Err(err))
		return nil, &p2p.Error{
			Code:    500,
			Message: err.Error(),
		}
	}
	return response, nil
}
