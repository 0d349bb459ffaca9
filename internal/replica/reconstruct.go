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
	"strconv"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// reconstructLocked implements spec.md §4.4.d: resets state_ts,
// reloads db from the source dataset, clears executed_ids/uids, moves
// log into the buffer (log becomes empty), and re-runs ApplyEngine.
// Caller must hold r.mu.
func (r *Replica) reconstructLocked() error {
	db, err := r.ds.Load()
	if err != nil {
		r.logger.Error("reconstruct: failed to reload dataset", "err", err.Error())
		return err
	}

	r.db = db
	r.stateTS = vclock.Empty()
	r.engine.Reset()

	merged := make([]kvmodel.Entry, 0, len(r.log)+len(r.buffer))
	merged = append(merged, r.log...)
	merged = append(merged, r.buffer...)
	r.log = r.log[:0]
	r.buffer = merged

	r.stateTS, r.buffer = r.engine.Run(r.stateTS, r.db, &r.log, r.buffer)
	r.needReconstruct = false
	r.logger.Debug("reconstructed", "log_len", strconv.Itoa(len(r.log)))
	return nil
}
