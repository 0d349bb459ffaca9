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

import "github.com/firefly-oss/bayoukv/internal/transport"

// RPC surface, Frontend (spec.md §6).
const (
	CallForget       transport.Call = "forget"
	CallGetTimestamp transport.Call = "get_timestamp"
	CallGetUserData  transport.Call = "get_user_data"
	CallListMovies   transport.Call = "list_movies"
	CallSearch       transport.Call = "search"
	CallGetMovie     transport.Call = "get_movie"
	CallAddRating    transport.Call = "add_rating"
	CallDeleteRating transport.Call = "delete_rating"
	CallAddTag       transport.Call = "add_tag"
	CallRemoveTag    transport.Call = "remove_tag"
	CallAddMovie     transport.Call = "add_movie"
)
