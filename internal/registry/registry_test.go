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

package registry

import "testing"

func TestLocalRegisterAndList(t *testing.T) {
	r := NewLocal()
	if err := r.Register(ReplicaName("R1"), "127.0.0.1:9901", []string{TagReplica}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(FrontendName, "127.0.0.1:9800", []string{"frontend"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	replicas, err := r.List(TagReplica)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(replicas) != 1 || replicas["replica:R1"] != "127.0.0.1:9901" {
		t.Errorf("unexpected replica list: %v", replicas)
	}
}

func TestLocalRemove(t *testing.T) {
	r := NewLocal()
	r.Register(ReplicaName("R1"), "127.0.0.1:9901", []string{TagReplica})
	r.Remove(ReplicaName("R1"))

	replicas, err := r.List(TagReplica)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(replicas) != 0 {
		t.Errorf("expected empty list after Remove, got %v", replicas)
	}
}

func TestReplicaName(t *testing.T) {
	if got, want := ReplicaName("R1"), "replica:R1"; got != want {
		t.Errorf("ReplicaName(R1) = %q, want %q", got, want)
	}
}

func TestDecodeTXT(t *testing.T) {
	name, endpoint, tags := decodeTXT([]string{"name=replica:R1", "endpoint=10.0.0.1:9901", "tags=replica,online"})
	if name != "replica:R1" || endpoint != "10.0.0.1:9901" {
		t.Errorf("decodeTXT unexpected name/endpoint: %q %q", name, endpoint)
	}
	if !hasTag(tags, "online") {
		t.Errorf("expected tags to include 'online', got %v", tags)
	}
}

func TestSanitizeInstance(t *testing.T) {
	if got, want := sanitizeInstance("replica:R1"), "replica-R1"; got != want {
		t.Errorf("sanitizeInstance = %q, want %q", got, want)
	}
}
