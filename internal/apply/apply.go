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
Package apply implements the single deterministic replay routine
(spec.md §4.3) every replica uses both for ordinary gossip application
and for full reconstruction.

ApplyUpdates takes a state vector clock, a DB, the double bookkeeping
sets that guard against double execution, the already-applied log, and
a buffer of pending entries; it returns the new state vector clock and
whatever remains unappliable (still blocked on a causal dependency that
has not yet arrived).
*/
package apply

import (
	"sort"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// UID identifies a logical update by (id, origin), the dual
// bookkeeping key spec.md §4.3 requires so that the same id delivered
// with a different origin is still tracked separately.
type UID struct {
	ID     string
	Origin string
}

// Engine holds the double-execution guard sets and the applied log
// across repeated calls to Run, so a replica can carry this state
// between gossip rounds without re-deriving it each time.
type Engine struct {
	ExecutedIDs  map[string]struct{}
	ExecutedUIDs map[UID]struct{}
}

// NewEngine returns an Engine with empty bookkeeping sets.
func NewEngine() *Engine {
	return &Engine{
		ExecutedIDs:  make(map[string]struct{}),
		ExecutedUIDs: make(map[UID]struct{}),
	}
}

// Reset clears the bookkeeping sets, used by Reconstruct (spec.md
// §4.4.d: "clears executed_ids/uids").
func (e *Engine) Reset() {
	e.ExecutedIDs = make(map[string]struct{})
	e.ExecutedUIDs = make(map[UID]struct{})
}

// Run executes the apply_updates algorithm of spec.md §4.3 against
// db, log, and buffer, mutating db and *log in place and returning the
// new state timestamp and the residual (still causally blocked)
// buffer. log is a pointer because successfully applied entries are
// appended to it.
func (e *Engine) Run(stateTS vclock.Clock, db *kvmodel.DB, log *[]kvmodel.Entry, buffer []kvmodel.Entry) (vclock.Clock, []kvmodel.Entry) {
	pending := make([]kvmodel.Entry, len(buffer))
	copy(pending, buffer)
	sort.SliceStable(pending, func(i, j int) bool {
		return kvmodel.Less(pending[i], pending[j])
	})

	for {
		progress := false
		residual := pending[:0:0]

		for _, entry := range pending {
			uid := UID{ID: entry.ID, Origin: entry.OriginID}

			if _, seen := e.ExecutedIDs[entry.ID]; seen {
				stateTS = vclock.Merge(stateTS, entry.TS)
				if _, seenUID := e.ExecutedUIDs[uid]; !seenUID {
					*log = append(*log, entry)
					e.ExecutedUIDs[uid] = struct{}{}
				}
				continue
			}

			if vclock.Geq(stateTS, entry.Prev) {
				entry.Op.Apply(db)
				stateTS = vclock.Merge(stateTS, entry.TS)
				e.ExecutedIDs[entry.ID] = struct{}{}
				e.ExecutedUIDs[uid] = struct{}{}
				*log = append(*log, entry)
				progress = true
				continue
			}

			residual = append(residual, entry)
		}

		pending = residual
		if !progress || len(pending) == 0 {
			break
		}
	}

	return stateTS, pending
}
