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

package frontend

import (
	"context"
	"testing"
	"time"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/replica"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

type memDataset struct{}

func (memDataset) Load() (*kvmodel.DB, error) { return kvmodel.NewDB(), nil }

func testSessionConfig() Config {
	return Config{Patience: 2, RoundDelay: 5 * time.Millisecond, RPCTimeout: time.Second}
}

func spinUpReplica(t *testing.T, id, addr string, net *transport.LocalNetwork, reg registry.Registry) *replica.Replica {
	t.Helper()
	cfg := replica.DefaultConfig()
	cfg.GossipPeriod = 10 * time.Millisecond
	r, err := replica.New(id, addr, memDataset{}, reg, net.Client(), cfg)
	if err != nil {
		t.Fatalf("New(%s): %v", id, err)
	}
	srv := net.NewServer(addr)
	replica.RegisterHandlers(srv, r)
	reg.Register(registry.ReplicaName(id), addr, []string{registry.TagReplica})
	return r
}

func TestSendUpdateReadYourWrite(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	ts, err := sess.AddRating(context.Background(), "7", "42", 4.5)
	if err != nil {
		t.Fatalf("AddRating error: %v", err)
	}
	if !vclock.Equal(ts, vclock.Clock{"R1": 1}) {
		t.Errorf("expected ts {R1:1}, got %v", ts)
	}

	data, err := sess.GetUserData(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetUserData error: %v", err)
	}
	if data.Ratings["42"] != 4.5 {
		t.Errorf("expected rating 4.5, got %v", data.Ratings["42"])
	}
}

func TestReplicaCandidatesNoReplicaAvailable(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	sess := NewSession(reg, net.Client(), testSessionConfig())

	_, err := sess.GetUserData(context.Background(), "7")
	if err == nil {
		t.Fatal("expected NoReplicaAvailable with an empty registry")
	}
}

func TestForgetClearsSessionState(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	sess.AddRating(context.Background(), "7", "42", 4.5)
	if len(sess.SessionTS()) == 0 {
		t.Fatal("expected non-empty session_ts after an update")
	}

	sess.Forget()
	if len(sess.SessionTS()) != 0 {
		t.Errorf("expected empty session_ts after Forget, got %v", sess.SessionTS())
	}
}

func TestCausalReadWaitsForGossip(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := spinUpReplica(t, "R1", "R1:1", net, reg)
	r2 := spinUpReplica(t, "R2", "R2:2", net, reg)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	ts, err := sess.AddRating(context.Background(), "7", "42", 4.0)
	if err != nil {
		t.Fatalf("AddRating error: %v", err)
	}

	raw := make([]kvmodel.RawEntry, 0)
	for _, e := range r1.GetLog() {
		raw = append(raw, e.Encode())
	}
	r2.Sync(raw, ts)
	r2.gossipTickLocked()

	sess2 := NewSession(reg, net.Client(), testSessionConfig())
	sess2.mu.Lock()
	sess2.sessionTS = ts.Clone()
	sess2.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := sess2.GetUserData(ctx, "7")
	if err != nil {
		t.Fatalf("GetUserData error: %v", err)
	}
	if data.Ratings["42"] != 4.0 {
		t.Errorf("expected rating 4.0 after gossip, got %v", data.Ratings["42"])
	}
}

func TestAddMovieMajorityCommit(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := spinUpReplica(t, "R1", "R1:1", net, reg)
	r2 := spinUpReplica(t, "R2", "R2:2", net, reg)
	r3 := spinUpReplica(t, "R3", "R3:3", net, reg)
	gossipCtx, stopGossip := context.WithCancel(context.Background())
	defer stopGossip()
	for _, r := range []*replica.Replica{r1, r2, r3} {
		go r.RunGossipLoop(gossipCtx)
	}

	sess := NewSession(reg, net.Client(), testSessionConfig())
	movieID, ts, err := sess.AddMovie(context.Background(), "Dune", []string{"scifi"})
	if err != nil {
		t.Fatalf("AddMovie error: %v", err)
	}
	if movieID == "" {
		t.Fatal("expected non-empty movie id")
	}
	if len(ts) == 0 {
		t.Fatal("expected non-empty ts after majority commit")
	}

	detail, err := sess.GetMovie(context.Background(), movieID)
	if err != nil {
		t.Fatalf("GetMovie error: %v", err)
	}
	if detail == nil || detail.Name != "Dune" {
		t.Errorf("expected movie Dune, got %+v", detail)
	}
}

func TestAddMovieSucceedsWithOneReplicaUnreachable(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	spinUpReplica(t, "R2", "R2:2", net, reg)
	r3 := spinUpReplica(t, "R3", "R3:3", net, reg)
	r3.SetForcedOffline(true)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	_, ts, err := sess.AddMovie(context.Background(), "Dune", []string{"scifi"})
	if err != nil {
		t.Fatalf("expected majority add_movie to succeed with one replica offline, got: %v", err)
	}
	if len(ts) == 0 {
		t.Fatal("expected non-empty ts")
	}
}

func TestListMoviesDefaultIsCausalNotMaximal(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	r2 := spinUpReplica(t, "R2", "R2:2", net, reg)
	r3 := spinUpReplica(t, "R3", "R3:3", net, reg)
	r2.SetForcedOffline(true)
	r3.SetForcedOffline(true)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	if _, err := sess.ListMovies(context.Background(), false); err != nil {
		t.Fatalf("expected causal ListMovies to succeed with a single live replica, got: %v", err)
	}
}

func TestListMoviesMaximalRequiresMajority(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	r2 := spinUpReplica(t, "R2", "R2:2", net, reg)
	r3 := spinUpReplica(t, "R3", "R3:3", net, reg)
	r2.SetForcedOffline(true)
	r3.SetForcedOffline(true)

	sess := NewSession(reg, net.Client(), testSessionConfig())
	if _, err := sess.ListMovies(context.Background(), true); err == nil {
		t.Fatal("expected maximal ListMovies to fail without a majority of live replicas")
	}
}

func TestListMoviesMaximalSeesMajorityCommittedWrite(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	r1 := spinUpReplica(t, "R1", "R1:1", net, reg)
	r2 := spinUpReplica(t, "R2", "R2:2", net, reg)
	r3 := spinUpReplica(t, "R3", "R3:3", net, reg)
	gossipCtx, stopGossip := context.WithCancel(context.Background())
	defer stopGossip()
	for _, r := range []*replica.Replica{r1, r2, r3} {
		go r.RunGossipLoop(gossipCtx)
	}

	sess := NewSession(reg, net.Client(), testSessionConfig())
	movieID, _, err := sess.AddMovie(context.Background(), "Dune", []string{"scifi"})
	if err != nil {
		t.Fatalf("AddMovie error: %v", err)
	}

	// A brand new session has no session_ts at all; the maximal path
	// reads against the merged sync_ts of a majority, so the serving
	// replica answers only once gossip has brought it every acceptor's
	// copy of the movie.
	sess2 := NewSession(reg, net.Client(), testSessionConfig())
	movies, err := sess2.ListMovies(context.Background(), true)
	if err != nil {
		t.Fatalf("ListMovies(maximal=true) error: %v", err)
	}
	if _, ok := movies[movieID]; !ok {
		t.Errorf("expected maximal read to include freshly committed movie %s, got %v", movieID, movies)
	}
}

func TestMajorityOf(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3}
	for n, want := range cases {
		if got := majorityOf(n); got != want {
			t.Errorf("majorityOf(%d) = %d, want %d", n, got, want)
		}
	}
}
