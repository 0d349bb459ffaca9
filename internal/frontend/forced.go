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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/replica"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// majorityOf returns ceil((n+1)/2), spec.md §4.5's quorum size.
func majorityOf(n int) int {
	return (n + 2) / 2
}

// liveCandidates returns every replica client currently reporting
// online, regardless of session caching (the majority path needs the
// full live set, not the lazy single-candidate sequence reads use).
// It fails with NoConsensus when fewer than a majority of the
// registered replicas report online.
func (s *Session) liveCandidates(ctx context.Context) ([]*replica.Client, error) {
	listing, err := s.reg.List(registry.TagReplica)
	if err != nil {
		return nil, flyerrors.TransportFailure(err)
	}

	var mu sync.Mutex
	var out []*replica.Client
	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range listing {
		addr := addr
		g.Go(func() error {
			c := replica.NewClient(s.client, addr)
			callCtx, cancel := s.timeoutCtx(gctx)
			defer cancel()
			status, err := c.Status(callCtx)
			if err != nil || status != "online" {
				return nil
			}
			mu.Lock()
			out = append(out, c)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(out) == 0 {
		return nil, flyerrors.NoReplicaAvailable()
	}
	if len(out) < majorityOf(len(listing)) {
		return nil, flyerrors.NoConsensus()
	}
	return out, nil
}

// getMaxTimestamp implements get_max_timestamp() (spec.md §4.5 step
// 1): broadcast get_timestamp and merge responses from a majority of
// replicas. Fails with NoConsensus if fewer than a majority respond.
func (s *Session) getMaxTimestamp(ctx context.Context, candidates []*replica.Client) (vclock.Clock, error) {
	need := majorityOf(len(candidates))

	var mu sync.Mutex
	merged := vclock.Empty()
	responded := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			callCtx, cancel := s.timeoutCtx(gctx)
			defer cancel()
			ts, err := c.GetTimestamp(callCtx)
			if err != nil {
				return nil
			}
			mu.Lock()
			merged = vclock.Merge(merged, ts)
			responded++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if responded < need {
		return nil, flyerrors.NoConsensus()
	}
	return merged, nil
}

// forcedUpdate implements forced_update(op) (spec.md §4.5): a two-phase
// majority-commit used for operations like add_movie that need a
// global-ordering guarantee without full consensus.
//
//  1. dep = get_max_timestamp() over a majority.
//  2. Generate a fresh update id.
//  3. Phase 1: accept_update(id, op, dep) on a majority.
//  4. Phase 2: commit_update(id) on every replica that accepted,
//     each retried up to Patience attempts; merge the returned ts.
func (s *Session) forcedUpdate(ctx context.Context, op kvmodel.Operation) (vclock.Clock, error) {
	candidates, err := s.liveCandidates(ctx)
	if err != nil {
		return nil, err
	}

	dep, err := s.getMaxTimestamp(ctx, candidates)
	if err != nil {
		return nil, err
	}

	id := kvmodel.GenerateID()
	raw := kvmodel.EncodeOperation(op)
	need := majorityOf(len(candidates))

	var mu sync.Mutex
	var acceptors []*replica.Client
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			callCtx, cancel := s.timeoutCtx(gctx)
			defer cancel()
			if err := c.AcceptUpdate(callCtx, id, raw, dep); err != nil {
				return nil
			}
			mu.Lock()
			acceptors = append(acceptors, c)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(acceptors) < need {
		return nil, flyerrors.NoConsensus()
	}

	merged := vclock.Empty()
	var mergeMu sync.Mutex
	cg, cgctx := errgroup.WithContext(ctx)
	for _, c := range acceptors {
		c := c
		cg.Go(func() error {
			return s.commitWithRetry(cgctx, c, id, &merged, &mergeMu)
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, err
	}

	s.rememberSuccess(acceptors[0], merged)
	return merged, nil
}

// commitWithRetry implements phase 2's "retrying over flakiness until
// all acknowledge" (spec.md §4.5 step 4): up to Patience attempts,
// RoundDelay apart, then NoConsensus; it also stops as soon as ctx is
// done, so a permanently unreachable acceptor cannot hang
// forced_update forever.
func (s *Session) commitWithRetry(ctx context.Context, c *replica.Client, id string, merged *vclock.Clock, mu *sync.Mutex) error {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := s.timeoutCtx(ctx)
		ts, err := c.CommitUpdate(callCtx, id)
		cancel()
		if err == nil {
			mu.Lock()
			*merged = vclock.Merge(*merged, ts)
			mu.Unlock()
			return nil
		}
		if attempt >= s.cfg.Patience {
			return flyerrors.NoConsensus()
		}
		select {
		case <-ctx.Done():
			return flyerrors.NoConsensus()
		case <-time.After(s.cfg.RoundDelay):
		}
	}
}

// AddMovie implements add_movie(name, genres) -> movie_id via the
// majority-commit path (spec.md §4.5: "used for add_movie").
func (s *Session) AddMovie(ctx context.Context, name string, genres []string) (string, vclock.Clock, error) {
	movieID := kvmodel.GenerateID()
	ts, err := s.forcedUpdate(ctx, kvmodel.UpdateMovie{MovieID: movieID, Name: name, Genres: genres})
	if err != nil {
		return "", nil, err
	}
	return movieID, ts, nil
}
