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
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// sendUpdate implements send_update(op) (spec.md §4.5): call
// update(op, session_ts) on each replica candidate in order until one
// succeeds, merging the returned ts. If every candidate fails, the
// last candidate's error is returned.
func (s *Session) sendUpdate(ctx context.Context, op kvmodel.Operation) (vclock.Clock, error) {
	candidates, err := s.replicaCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, c := range candidates {
		callCtx, cancel := s.timeoutCtx(ctx)
		ts, err := c.Update(callCtx, kvmodel.EncodeOperation(op), s.SessionTS())
		cancel()
		if err == nil {
			s.rememberSuccess(c, ts)
			return ts, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = flyerrors.NoReplicaAvailable()
	}
	return nil, lastErr
}

// AddRating implements add_rating(user, movie, value).
func (s *Session) AddRating(ctx context.Context, userID, movieID string, value float64) (vclock.Clock, error) {
	return s.sendUpdate(ctx, kvmodel.UpdateRating{UserID: userID, MovieID: movieID, Value: value})
}

// DeleteRating implements delete_rating(user, movie).
func (s *Session) DeleteRating(ctx context.Context, userID, movieID string) (vclock.Clock, error) {
	return s.sendUpdate(ctx, kvmodel.DeleteRating{UserID: userID, MovieID: movieID})
}

// AddTag implements add_tag(user, movie, tags).
func (s *Session) AddTag(ctx context.Context, userID, movieID string, tags []string) (vclock.Clock, error) {
	return s.sendUpdate(ctx, kvmodel.AddTag{UserID: userID, MovieID: movieID, Tags: tags})
}

// RemoveTag implements remove_tag(user, movie, tags).
func (s *Session) RemoveTag(ctx context.Context, userID, movieID string, tags []string) (vclock.Clock, error) {
	return s.sendUpdate(ctx, kvmodel.RemoveTag{UserID: userID, MovieID: movieID, Tags: tags})
}

