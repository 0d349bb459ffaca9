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
	"testing"
	"time"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

type fixtureDataset struct{}

func (fixtureDataset) Load() (*kvmodel.DB, error) { return kvmodel.NewDB(), nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GossipPeriod = 10 * time.Millisecond
	cfg.ReadSpinPatience = 3
	return cfg
}

func newTestReplica(t *testing.T, id, addr string, net *transport.LocalNetwork, reg registry.Registry) *Replica {
	t.Helper()
	r, err := New(id, addr, fixtureDataset{}, reg, net.Client(), testConfig())
	if err != nil {
		t.Fatalf("New(%s) error: %v", id, err)
	}
	srv := net.NewServer(addr)
	RegisterHandlers(srv, r)
	reg.Register(registry.ReplicaName(id), addr, []string{registry.TagReplica})
	return r
}

func TestReadYourWrite(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	ts, err := r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 4.5}, vclock.Empty())
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !vclock.Equal(ts, vclock.Clock{"R1": 1}) {
		t.Errorf("expected ts {R1:1}, got %v", ts)
	}

	data, stateTS, err := r1.Get(context.Background(), "7", ts)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if data.Ratings["42"] != 4.5 {
		t.Errorf("expected rating 4.5, got %v", data.Ratings["42"])
	}
	if !vclock.Equal(stateTS, vclock.Clock{"R1": 1}) {
		t.Errorf("expected state_ts {R1:1}, got %v", stateTS)
	}
}

func TestCausalReadAcrossReplicasAfterGossip(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)
	r2 := newTestReplica(t, "R2", "R2:9902", net, reg)

	ts, err := r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 4.0}, vclock.Empty())
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	raw := make([]kvmodel.RawEntry, 0)
	for _, e := range r1.GetLog() {
		raw = append(raw, e.Encode())
	}
	if err := r2.Sync(raw, ts); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	r2.gossipTickLocked() // drive the apply step the background loop would perform

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, stateTS, err := r2.Get(ctx, "7", ts)
	if err != nil {
		t.Fatalf("Get on R2 error: %v", err)
	}
	if data.Ratings["42"] != 4.0 {
		t.Errorf("expected R2 to see rating 4.0 after gossip, got %v", data.Ratings["42"])
	}
	if !vclock.Geq(stateTS, ts) {
		t.Errorf("expected R2 state_ts to dominate %v, got %v", ts, stateTS)
	}
}

func TestReadSpinExhaustsToCannotServe(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err := r1.Get(ctx, "7", vclock.Clock{"R1": 1})
	if err == nil {
		t.Fatal("expected CannotServe when dependency never arrives")
	}
}

func TestStatusOfflineWhenForced(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	r1.SetForcedOffline(true)
	if got := r1.Status(); got != "offline" {
		t.Errorf("expected offline status, got %q", got)
	}

	_, err := r1.Update(kvmodel.UpdateRating{UserID: "u", MovieID: "m", Value: 1}, vclock.Empty())
	if err == nil {
		t.Error("expected Update to fail while forced offline")
	}
}

func TestAcceptAndCommitUpdateMajorityPath(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	id := kvmodel.GenerateID()
	op := kvmodel.UpdateMovie{MovieID: "m1", Name: "Dune", Genres: []string{"scifi"}}

	if err := r1.AcceptUpdate(id, op, vclock.Empty()); err != nil {
		t.Fatalf("AcceptUpdate error: %v", err)
	}

	ts, err := r1.CommitUpdate(id)
	if err != nil {
		t.Fatalf("CommitUpdate error: %v", err)
	}
	if !vclock.Equal(ts, vclock.Clock{"R1": 1}) {
		t.Errorf("expected ts {R1:1}, got %v", ts)
	}

	detail, _, err := r1.GetMovie(context.Background(), "m1", ts)
	if err != nil {
		t.Fatalf("GetMovie error: %v", err)
	}
	if detail == nil || detail.Name != "Dune" {
		t.Errorf("expected movie Dune, got %+v", detail)
	}
}

func TestCommitUpdateUnknownID(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	if _, err := r1.CommitUpdate("does-not-exist"); err == nil {
		t.Error("expected error committing unknown tentative id")
	}
}

func TestIdempotentSync(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)
	r2 := newTestReplica(t, "R2", "R2:9902", net, reg)

	ts, _ := r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 4.0}, vclock.Empty())
	raw := make([]kvmodel.RawEntry, 0)
	for _, e := range r1.GetLog() {
		raw = append(raw, e.Encode())
	}

	r2.Sync(raw, ts)
	r2.gossipTickLocked()
	state1 := r2.GetState()

	r2.Sync(raw, ts)
	r2.gossipTickLocked()
	state2 := r2.GetState()

	if !vclock.Equal(state1.StateTS, state2.StateTS) {
		t.Errorf("expected state_ts unchanged after re-delivery: %v vs %v", state1.StateTS, state2.StateTS)
	}
	if len(state1.Log) != len(state2.Log) {
		t.Errorf("expected log length unchanged after re-delivery: %d vs %d", len(state1.Log), len(state2.Log))
	}
}

func TestConcurrentDivergentWritesConvergeAfterReconstruct(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)
	r2 := newTestReplica(t, "R2", "R2:9902", net, reg)

	r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 3.0}, vclock.Empty())
	r2.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 5.0}, vclock.Empty())

	raw1 := make([]kvmodel.RawEntry, 0)
	for _, e := range r1.GetLog() {
		raw1 = append(raw1, e.Encode())
	}
	raw2 := make([]kvmodel.RawEntry, 0)
	for _, e := range r2.GetLog() {
		raw2 = append(raw2, e.Encode())
	}

	r1ts, _ := r1.GetTimestamp()
	r2ts, _ := r2.GetTimestamp()

	r2.Sync(raw1, r1ts)
	r1.Sync(raw2, r2ts)

	r1.mu.Lock()
	r1.reconstructLocked()
	r1.mu.Unlock()
	r2.mu.Lock()
	r2.reconstructLocked()
	r2.mu.Unlock()

	s1 := r1.GetState()
	s2 := r2.GetState()
	if len(s1.Log) != len(s2.Log) {
		t.Fatalf("expected identical log lengths after reconstruction, got %d vs %d", len(s1.Log), len(s2.Log))
	}
	for i := range s1.Log {
		if s1.Log[i].ID != s2.Log[i].ID {
			t.Fatalf("expected identical log order after reconstruction at index %d: %s vs %s", i, s1.Log[i].ID, s2.Log[i].ID)
		}
	}
	if s1.DB.Ratings["7"]["42"] != s2.DB.Ratings["7"]["42"] {
		t.Errorf("expected both replicas to agree on the winning rating, got %v vs %v",
			s1.DB.Ratings["7"]["42"], s2.DB.Ratings["7"]["42"])
	}
}

func TestDeleteRatingDeletesOnlyOneKey(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := newTestReplica(t, "R1", "R1:9901", net, reg)

	ts, _ := r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "42", Value: 4.0}, vclock.Empty())
	ts, _ = r1.Update(kvmodel.UpdateRating{UserID: "7", MovieID: "43", Value: 2.0}, ts)
	ts, _ = r1.Update(kvmodel.DeleteRating{UserID: "7", MovieID: "42"}, ts)

	data, _, err := r1.Get(context.Background(), "7", ts)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if _, ok := data.Ratings["42"]; ok {
		t.Error("expected rating for movie 42 to be deleted")
	}
	if v, ok := data.Ratings["43"]; !ok || v != 2.0 {
		t.Errorf("expected rating for movie 43 to survive, got %v ok=%v", v, ok)
	}
}
