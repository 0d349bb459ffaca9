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

import "github.com/firefly-oss/bayoukv/internal/transport"

// RPC surface, Replica (spec.md §6).
const (
	CallStatus           transport.Call = "status"
	CallGetTimestamp     transport.Call = "get_timestamp"
	CallSync             transport.Call = "sync"
	CallListMovies       transport.Call = "list_movies"
	CallSearch           transport.Call = "search"
	CallGetMovie         transport.Call = "get_movie"
	CallGet              transport.Call = "get"
	CallUpdate           transport.Call = "update"
	CallAcceptUpdate     transport.Call = "accept_update"
	CallCommitUpdate     transport.Call = "commit_update"
	CallGetLog           transport.Call = "get_log"
	CallGetState         transport.Call = "get_state"
	CallSetForcedOffline transport.Call = "set_forced_offline"
)
