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

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// overloadedProbability matches spec.md §4.4's status() table: "Random
// draw for overloaded (p=0.25)".
const overloadedProbability = 0.25

// Status implements status(). It does not check online status itself
// (spec.md §4.4: status/sync/get_log/get_state are the exceptions
// that never raise ReplicaOffline).
func (r *Replica) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Replica) statusLocked() string {
	if r.forcedOffline || !r.isOnline {
		return "offline"
	}
	if r.cfg.SimulateFlakiness && r.randFloat() < overloadedProbability {
		return "overloaded"
	}
	return "online"
}

// checkOnlineLocked raises ReplicaOffline for every exposed operation
// except status/sync/get_log/get_state (spec.md §4.4).
func (r *Replica) checkOnlineLocked() error {
	if r.forcedOffline || !r.isOnline {
		return flyerrors.ReplicaOffline()
	}
	return nil
}

// GetTimestamp implements get_timestamp(), returning sync_ts.
func (r *Replica) GetTimestamp() (vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, err
	}
	return r.syncTS.Clone(), nil
}

// Sync implements sync(entries, peer_ts): appends to the buffer,
// merges sync_ts, and flags has_new_gossip for the next gossip-loop
// tick to apply (spec.md §4.4 table).
func (r *Replica) Sync(entries []kvmodel.RawEntry, peerTS vclock.Clock) error {
	decoded := make([]kvmodel.Entry, 0, len(entries))
	for _, raw := range entries {
		e, err := kvmodel.DecodeEntry(raw)
		if err != nil {
			return flyerrors.InvalidInput(err.Error())
		}
		decoded = append(decoded, e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = append(r.buffer, decoded...)
	r.syncTS = vclock.Merge(r.syncTS, peerTS)
	r.hasNewGossip = true
	return nil
}

// waitForLocked implements the read spin of spec.md §4.4.a: it must
// release the mutex between checks, so it takes and returns with the
// lock held but unlocks internally during each sleep.
func (r *Replica) waitForLocked(ctx context.Context, q vclock.Clock) error {
	for round := 0; ; round++ {
		if vclock.Geq(r.stateTS, q) {
			return nil
		}
		if round >= r.cfg.ReadSpinPatience {
			return flyerrors.CannotServe()
		}
		r.mu.Unlock()
		select {
		case <-time.After(r.cfg.GossipPeriod):
		case <-ctx.Done():
			r.mu.Lock()
			return ctx.Err()
		}
		r.mu.Lock()
	}
}

// ListMovies implements list_movies(ts).
func (r *Replica) ListMovies(ctx context.Context, ts vclock.Clock) (map[string]string, vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, nil, err
	}
	if err := r.waitForLocked(ctx, ts); err != nil {
		return nil, nil, err
	}
	return r.db.ListMovies(), r.stateTS.Clone(), nil
}

// Search implements search(name, genres, ts).
func (r *Replica) Search(ctx context.Context, name string, genres []string, ts vclock.Clock) (map[string]string, vclock.Clock, error) {
	genreSet := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		genreSet[g] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, nil, err
	}
	if err := r.waitForLocked(ctx, ts); err != nil {
		return nil, nil, err
	}
	return r.db.Search(name, genreSet), r.stateTS.Clone(), nil
}

// GetMovie implements get_movie(id, ts).
func (r *Replica) GetMovie(ctx context.Context, movieID string, ts vclock.Clock) (*kvmodel.MovieDetail, vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, nil, err
	}
	if err := r.waitForLocked(ctx, ts); err != nil {
		return nil, nil, err
	}
	return r.db.GetMovie(movieID), r.stateTS.Clone(), nil
}

// Get implements get(user_id, ts).
func (r *Replica) Get(ctx context.Context, userID string, ts vclock.Clock) (kvmodel.UserData, vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return kvmodel.UserData{}, nil, err
	}
	if err := r.waitForLocked(ctx, ts); err != nil {
		return kvmodel.UserData{}, nil, err
	}
	return r.db.GetUser(userID), r.stateTS.Clone(), nil
}

// Update implements update(raw_op, prev): the tentative single-replica
// path (spec.md §4.4 table, detailed in §4.4.b).
func (r *Replica) Update(op kvmodel.Operation, prev vclock.Clock) (vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, err
	}
	return r.applyLocalLocked(kvmodel.GenerateID(), op, prev), nil
}

// AcceptUpdate implements accept_update(id, raw_op, prev): phase 1 of
// majority-commit, recording the proposal in tentative without
// touching the buffer yet.
func (r *Replica) AcceptUpdate(id string, op kvmodel.Operation, prev vclock.Clock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return err
	}
	r.tentative[id] = tentativeEntry{op: op, prev: prev}
	return nil
}

// CommitUpdate implements commit_update(id): phase 2, promoting a
// previously accepted tentative entry into the buffer via the same
// local-update path as Update, but with the caller-supplied id so
// every acceptor produces the identical entry id.
func (r *Replica) CommitUpdate(id string) (vclock.Clock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOnlineLocked(); err != nil {
		return nil, err
	}
	t, ok := r.tentative[id]
	if !ok {
		return nil, flyerrors.InvalidInput("commit_update: unknown tentative id " + id)
	}
	delete(r.tentative, id)
	return r.applyLocalLocked(id, t.op, t.prev), nil
}

// applyLocalLocked implements spec.md §4.4.b, the shared machinery
// behind both Update and CommitUpdate.
func (r *Replica) applyLocalLocked(id string, op kvmodel.Operation, prev vclock.Clock) vclock.Clock {
	newSyncTS := r.syncTS.Increment(r.id)
	ts := prev.Clone()
	ts[r.id] = newSyncTS[r.id]

	entry := kvmodel.Entry{
		ID:       id,
		OriginID: r.id,
		Op:       op,
		Prev:     prev,
		TS:       ts,
		Time:     time.Now().Unix(),
	}
	r.buffer = append(r.buffer, entry)
	r.stateTS, r.buffer = r.engine.Run(r.stateTS, r.db, &r.log, r.buffer)
	r.needReconstruct = true
	r.syncTS = newSyncTS
	return ts
}

// GetLog implements get_log(), a testing hook (spec.md §4.4 table).
func (r *Replica) GetLog() []kvmodel.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kvmodel.Entry, len(r.log))
	copy(out, r.log)
	return out
}

// State is the snapshot get_state() returns: a testing hook exposing
// the full replica state (spec.md §4.4 table).
type State struct {
	DB      *kvmodel.DB
	Log     []kvmodel.Entry
	Buffer  []kvmodel.Entry
	StateTS vclock.Clock
	SyncTS  vclock.Clock
}

// GetState implements get_state().
func (r *Replica) GetState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]kvmodel.Entry, len(r.buffer))
	copy(buf, r.buffer)
	log := make([]kvmodel.Entry, len(r.log))
	copy(log, r.log)
	return State{
		DB:      r.db,
		Log:     log,
		Buffer:  buf,
		StateTS: r.stateTS.Clone(),
		SyncTS:  r.syncTS.Clone(),
	}
}

// SetForcedOffline implements set_forced_offline(bool), used by tests
// and diagnostics to simulate a replica being taken out of rotation.
func (r *Replica) SetForcedOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forcedOffline = offline
}
