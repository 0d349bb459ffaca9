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
Package registry abstracts the name-service directory bayoukv's
replicas and frontends register with and discover each other through
(spec.md §2, §4.6): "the only requirement: list(tag) -> {name ->
endpoint} and register(name, endpoint, tags) / remove(name). Any
directory service satisfying these suffices."

Two implementations are provided: Local, an in-memory directory for
single-process tests, and MDNS, a real local-network directory backed
by github.com/hashicorp/mdns (spec.md leaves the registry external;
flydb's cmd/flydb-discover tool already assumes an mDNS-backed
directory exists for this kind of cluster, so that is the concrete
backing this repo wires in).
*/
package registry

// Tag used for replica registrations (spec.md §6: "Registry tags:
// 'replica' (on replica entries)").
const TagReplica = "replica"

// Replica name prefix and the frontend's fixed name (spec.md §6:
// "Replica names are 'replica:<id>'; frontend name is 'frontend'").
const (
	ReplicaNamePrefix = "replica:"
	FrontendName      = "frontend"
)

// Registry is the directory abstraction every replica and frontend
// depends on.
type Registry interface {
	// List returns every registered name->endpoint pair carrying tag.
	List(tag string) (map[string]string, error)
	// Register advertises name at endpoint under the given tags.
	Register(name, endpoint string, tags []string) error
	// Remove withdraws a prior registration.
	Remove(name string) error
}

// ReplicaName formats a replica id into its registry name.
func ReplicaName(id string) string {
	return ReplicaNamePrefix + id
}
