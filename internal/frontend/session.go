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
Package frontend implements the client-facing session of spec.md §4.5:
lazy replica selection, session-VC merging for read-your-writes and
monotonic reads, the single-replica tentative update path, and the
two-phase majority-commit path used for operations (like add_movie)
that need a global-ordering guarantee without full consensus.

Distinct Sessions share no state. Each Session guards its own
session_ts and cached replica with a mutex, so one Session may be used
from several goroutines at once.
*/
package frontend

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/logging"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/replica"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// Config bundles the session's tunables (spec.md §4.5).
type Config struct {
	Patience   int
	RoundDelay time.Duration
	RPCTimeout time.Duration
}

// DefaultConfig returns spec.md's named defaults: patience 3 rounds,
// ~50ms between rounds.
func DefaultConfig() Config {
	return Config{
		Patience:   3,
		RoundDelay: 50 * time.Millisecond,
		RPCTimeout: 5 * time.Second,
	}
}

// Session is one client login's view of the cluster (spec.md §4.5).
type Session struct {
	mu sync.Mutex

	sessionTS vclock.Clock
	cached    *replica.Client

	reg    registry.Registry
	client transport.Client
	cfg    Config
	logger *logging.Logger
	rng    *rand.Rand
}

// NewSession returns a fresh Session with an empty session VC and no
// cached replica.
func NewSession(reg registry.Registry, client transport.Client, cfg Config) *Session {
	return &Session{
		sessionTS: vclock.Empty(),
		reg:       reg,
		client:    client,
		cfg:       cfg,
		logger:    logging.NewLogger("frontend"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Forget implements forget(): clears session_ts so a client can
// re-establish consistency after a long outage rather than wait
// indefinitely for a stale VC to be dominated (spec.md §4.5).
func (s *Session) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionTS = vclock.Empty()
	s.cached = nil
}

// SessionTS returns a copy of the session's current VC, useful for
// tests and diagnostics.
func (s *Session) SessionTS() vclock.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionTS.Clone()
}

// replicaCandidates implements the lazy sequence of replicas() (spec.md
// §4.5): first the cached replica if online, then up to Patience
// rounds of a shuffled registry listing, sleeping RoundDelay between
// rounds. It returns the full ordered candidate list rather than a
// true lazy generator, since Go has no free-standing yield — callers
// walk it in order and stop at the first replica that actually serves
// the call, which is behaviorally identical.
func (s *Session) replicaCandidates(ctx context.Context) ([]*replica.Client, error) {
	var out []*replica.Client
	seen := make(map[string]struct{})

	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	if cached != nil {
		if status, err := cached.Status(ctx); err == nil && status == "online" {
			out = append(out, cached)
			seen[cached.Addr()] = struct{}{}
		}
	}

	for round := 0; round < s.cfg.Patience; round++ {
		listing, err := s.reg.List(registry.TagReplica)
		if err == nil {
			addrs := make([]string, 0, len(listing))
			for _, addr := range listing {
				if _, dup := seen[addr]; dup {
					continue
				}
				addrs = append(addrs, addr)
			}
			s.rng.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })

			for _, addr := range addrs {
				c := replica.NewClient(s.client, addr)
				status, err := c.Status(ctx)
				if err != nil || status != "online" {
					continue
				}
				out = append(out, c)
				seen[addr] = struct{}{}
			}
		}

		if len(out) > 0 {
			break
		}
		if round < s.cfg.Patience-1 {
			select {
			case <-time.After(s.cfg.RoundDelay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
	}

	if len(out) == 0 {
		return nil, flyerrors.NoReplicaAvailable()
	}
	return out, nil
}

func (s *Session) rememberSuccess(c *replica.Client, ts vclock.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = c
	s.sessionTS = vclock.Merge(s.sessionTS, ts)
}

func (s *Session) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RPCTimeout)
}
