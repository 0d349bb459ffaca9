/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package replica

import (
	"context"
	"time"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// RunGossipLoop is the background task of spec.md §4.4.c. It runs
// until ctx is cancelled, taking the replica's mutex for the same
// short operations RPC handlers use and releasing it before every
// sleep and before any outbound RPC (spec.md §5: "Gossip RPCs out of a
// replica happen without holding the local mutex").
func (r *Replica) RunGossipLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		online, ownSyncTS := r.gossipTickLocked()

		select {
		case <-time.After(r.cfg.GossipPeriod):
		case <-ctx.Done():
			return
		}

		if !online {
			continue
		}

		for _, peer := range r.selectGossipPeers() {
			r.gossipWithPeer(ctx, peer, ownSyncTS)
		}
	}
}

// gossipTickLocked performs step 1 of the gossip-loop tick (spec.md
// §4.4.c): flips is_online under SimulateFlakiness, applies any new
// gossip, or reconstructs when idle long enough. It returns whether
// the replica is online and a snapshot of sync_ts for outbound
// gossip.
func (r *Replica) gossipTickLocked() (online bool, ownSyncTS vclock.Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roundsSinceReconstruct++

	if r.cfg.SimulateFlakiness {
		r.isOnline = r.randFloat() < 0.75
	}

	if r.hasNewGossip {
		r.hasNewGossip = false
		r.needReconstruct = true
		r.stateTS, r.buffer = r.engine.Run(r.stateTS, r.db, &r.log, r.buffer)
		r.roundsSinceReconstruct = 0
	} else if r.roundsSinceReconstruct >= r.cfg.ReconstructEvery && r.needReconstruct && len(r.buffer) == 0 {
		if err := r.reconstructLocked(); err == nil {
			r.roundsSinceReconstruct = 0
		}
	}

	return !r.forcedOffline && r.isOnline, r.syncTS.Clone()
}

// selectGossipPeers picks up to GossipFanout random online replicas,
// excluding self (spec.md §4.4.c step 3).
func (r *Replica) selectGossipPeers() []*Client {
	listing, err := r.reg.List(registry.TagReplica)
	if err != nil {
		r.logger.Debug("gossip: registry list failed", "err", err.Error())
		return nil
	}

	var candidates []string
	selfName := registry.ReplicaName(r.id)
	for name, addr := range listing {
		if name == selfName || addr == r.addr {
			continue
		}
		candidates = append(candidates, addr)
	}

	r.rngMu.Lock()
	r.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	r.rngMu.Unlock()

	var peers []*Client
	for _, addr := range candidates {
		if len(peers) >= r.cfg.GossipFanout {
			break
		}
		client := NewClient(r.client, addr)
		status, err := client.Status(context.Background())
		if err != nil || status != "online" {
			continue
		}
		peers = append(peers, client)
	}
	return peers
}

// gossipWithPeer implements the exchange of spec.md §4.4.c step 3:
// skip if the peer's sync_ts already equals ours, otherwise compute
// the payload and call peer.sync. Transport and status errors are
// ignored per peer (spec.md §7: "Gossip ignores TransportFailure and
// ReplicaOffline silently").
func (r *Replica) gossipWithPeer(ctx context.Context, peer *Client, ownSyncTS vclock.Clock) {
	peerTS, err := peer.GetTimestamp(ctx)
	if err != nil {
		return
	}
	if vclock.Equal(peerTS, ownSyncTS) {
		return
	}

	payload := r.gossipPayload(peerTS)
	if len(payload) == 0 {
		return
	}

	raw := make([]kvmodel.RawEntry, len(payload))
	for i, e := range payload {
		raw[i] = e.Encode()
	}

	peer.Sync(ctx, raw, ownSyncTS)
}

// gossipPayload implements spec.md §4.4.c's payload-selection rule:
// entries from log ∪ buffer if peer_ts does not strictly dominate our
// state_ts, or from buffer alone if it does; retaining only entries
// concurrent with or ahead of peer_ts.
func (r *Replica) gossipPayload(peerTS vclock.Clock) []kvmodel.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []kvmodel.Entry
	if !vclock.GreaterThan(peerTS, r.stateTS) {
		candidates = make([]kvmodel.Entry, 0, len(r.log)+len(r.buffer))
		candidates = append(candidates, r.log...)
		candidates = append(candidates, r.buffer...)
	} else {
		candidates = make([]kvmodel.Entry, len(r.buffer))
		copy(candidates, r.buffer)
	}

	out := candidates[:0:0]
	for _, e := range candidates {
		if vclock.Compare(e.TS, peerTS) >= 0 {
			out = append(out, e)
		}
	}
	return out
}
