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

/*
Package replica implements bayoukv's replica state machine (spec.md
§4.4): the tentative update buffer, the causal dependency checks
gating both reads and applies, the pairwise gossip protocol, and
periodic full reconstruction.

One Replica owns exactly one mutex guarding every piece of mutable
state (spec.md §5: "Each replica has one mutex guarding db, log,
buffer, state_ts, sync_ts, executed_ids/uids, tentative, and the
boolean flags"). Every exposed operation acquires it; the read spin
and the gossip-loop sleep are the only suspension points, and both
release the mutex while suspended.
*/
package replica

import (
	"math/rand"
	"sync"
	"time"

	"github.com/firefly-oss/bayoukv/internal/apply"
	"github.com/firefly-oss/bayoukv/internal/dataset"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/logging"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// Config bundles the tunables spec.md §4.4/§9 call out as
// configurable (simulated flakiness, gossip timing, reconstruction
// cadence, read-spin patience).
type Config struct {
	GossipPeriod      time.Duration
	GossipFanout      int
	ReconstructEvery  int
	ReadSpinPatience  int
	SimulateFlakiness bool
}

// DefaultConfig returns the defaults spec.md names: 2s gossip period,
// fanout 5, reconstruct every 5 idle rounds, read-spin patience 10.
func DefaultConfig() Config {
	return Config{
		GossipPeriod:      2 * time.Second,
		GossipFanout:      5,
		ReconstructEvery:  5,
		ReadSpinPatience:  10,
		SimulateFlakiness: false,
	}
}

// tentativeEntry is what accept_update stashes for a later
// commit_update call (spec.md §4.4 table, "tentative (map id -> (op,
// prev) for 2PC)").
type tentativeEntry struct {
	op   kvmodel.Operation
	prev vclock.Clock
}

// Replica is one bayoukv replica's full state machine.
type Replica struct {
	mu sync.Mutex

	id   string
	addr string

	db      *kvmodel.DB
	log     []kvmodel.Entry
	buffer  []kvmodel.Entry
	stateTS vclock.Clock
	syncTS  vclock.Clock
	engine  *apply.Engine

	tentative map[string]tentativeEntry

	hasNewGossip    bool
	needReconstruct bool
	isOnline        bool
	forcedOffline   bool

	roundsSinceReconstruct int

	cfg    Config
	ds     dataset.Dataset
	reg    registry.Registry
	client transport.Client
	logger *logging.Logger
	rng    *rand.Rand
	rngMu  sync.Mutex
}

// New constructs a Replica with id, loading its initial DB from ds
// (spec.md §4.4.e: "Initial: both VCs empty, db loaded from dataset,
// log/buffer empty, is_online=true").
func New(id, addr string, ds dataset.Dataset, reg registry.Registry, client transport.Client, cfg Config) (*Replica, error) {
	db, err := ds.Load()
	if err != nil {
		return nil, err
	}
	return &Replica{
		id:        id,
		addr:      addr,
		db:        db,
		stateTS:   vclock.Empty(),
		syncTS:    vclock.Empty(),
		engine:    apply.NewEngine(),
		tentative: make(map[string]tentativeEntry),
		isOnline:  true,
		cfg:       cfg,
		ds:        ds,
		reg:       reg,
		client:    client,
		logger:    logging.NewLogger("replica").With("id", id),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// ID returns the replica's assigned id.
func (r *Replica) ID() string { return r.id }

// Addr returns the endpoint this replica is reachable at.
func (r *Replica) Addr() string { return r.addr }

func (r *Replica) randFloat() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}
