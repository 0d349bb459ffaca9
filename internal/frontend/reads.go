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

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/replica"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// readPath walks replicaCandidates in order, calling attempt against
// each until one succeeds; on transport failure it moves to the next
// candidate, per spec.md §4.5's "semantically at-most-one replica
// handles a given call" and §7's "frontend retries by moving to the
// next replica in the lazy sequence".
func (s *Session) readPath(ctx context.Context, attempt func(context.Context, *replica.Client) error) error {
	candidates, err := s.replicaCandidates(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, c := range candidates {
		callCtx, cancel := s.timeoutCtx(ctx)
		err := attempt(callCtx, c)
		cancel()
		if err == nil {
			return nil
		}
		if flyerrors.IsCannotServe(err) {
			return err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = flyerrors.NoReplicaAvailable()
	}
	return lastErr
}

// maximalReadPath implements the "maximal" read variant used by
// list_movies(maximal=true) (spec.md §6, confirmed by
// original_source's client.py calling list_movies(maximal=True) before
// a duplicate-name check in create_movie): it broadcasts
// get_max_timestamp() over a majority and uses that merged clock,
// rather than the session's own possibly-stale session_ts, as the
// read's causal dependency. A replica that hasn't yet gossiped the
// absolute latest writes will read-spin until it has, so the caller
// sees data at least as fresh as whatever a majority has already
// accepted.
func (s *Session) maximalReadPath(ctx context.Context, attempt func(context.Context, *replica.Client, vclock.Clock) error) error {
	candidates, err := s.liveCandidates(ctx)
	if err != nil {
		return err
	}
	dep, err := s.getMaxTimestamp(ctx, candidates)
	if err != nil {
		return err
	}

	var lastErr error
	for _, c := range candidates {
		callCtx, cancel := s.timeoutCtx(ctx)
		err := attempt(callCtx, c, dep)
		cancel()
		if err == nil {
			return nil
		}
		if flyerrors.IsCannotServe(err) {
			return err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = flyerrors.NoReplicaAvailable()
	}
	return lastErr
}

// GetUserData implements get_user_data(user_id).
func (s *Session) GetUserData(ctx context.Context, userID string) (kvmodel.UserData, error) {
	var out kvmodel.UserData
	err := s.readPath(ctx, func(callCtx context.Context, c *replica.Client) error {
		data, ts, err := c.Get(callCtx, userID, s.SessionTS())
		if err != nil {
			return err
		}
		out = data
		s.rememberSuccess(c, ts)
		return nil
	})
	return out, err
}

// ListMovies implements list_movies(maximal) (spec.md §6). With
// maximal=false (the default, e.g. get_user_data's listings) it reads
// against the session's own causally-consistent view. With
// maximal=true (e.g. create_movie's duplicate-name check in
// original_source's client.py) it instead reads against
// get_max_timestamp() merged over a majority, so the caller sees every
// write a majority of replicas has already accepted rather than
// whatever this session happens to have seen so far.
func (s *Session) ListMovies(ctx context.Context, maximal bool) (map[string]string, error) {
	var out map[string]string
	if maximal {
		err := s.maximalReadPath(ctx, func(callCtx context.Context, c *replica.Client, dep vclock.Clock) error {
			movies, ts, err := c.ListMovies(callCtx, dep)
			if err != nil {
				return err
			}
			out = movies
			s.rememberSuccess(c, ts)
			return nil
		})
		return out, err
	}

	err := s.readPath(ctx, func(callCtx context.Context, c *replica.Client) error {
		movies, ts, err := c.ListMovies(callCtx, s.SessionTS())
		if err != nil {
			return err
		}
		out = movies
		s.rememberSuccess(c, ts)
		return nil
	})
	return out, err
}

// Search implements search(name, genres).
func (s *Session) Search(ctx context.Context, name string, genres []string) (map[string]string, error) {
	var out map[string]string
	err := s.readPath(ctx, func(callCtx context.Context, c *replica.Client) error {
		movies, ts, err := c.Search(callCtx, name, genres, s.SessionTS())
		if err != nil {
			return err
		}
		out = movies
		s.rememberSuccess(c, ts)
		return nil
	})
	return out, err
}

// GetMovie implements get_movie(id).
func (s *Session) GetMovie(ctx context.Context, movieID string) (*kvmodel.MovieDetail, error) {
	var out *kvmodel.MovieDetail
	err := s.readPath(ctx, func(callCtx context.Context, c *replica.Client) error {
		detail, ts, err := c.GetMovie(callCtx, movieID, s.SessionTS())
		if err != nil {
			return err
		}
		out = detail
		s.rememberSuccess(c, ts)
		return nil
	})
	return out, err
}
