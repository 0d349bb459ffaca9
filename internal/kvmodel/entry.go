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

package kvmodel

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// Entry is an immutable record of one update, carrying its causal
// metadata (spec.md §3).
type Entry struct {
	ID       string
	OriginID string
	Op       Operation
	Prev     vclock.Clock
	TS       vclock.Clock
	Time     int64
}

// idHex is the number of hex characters in a generated Entry ID (10
// characters, per spec.md §3: "id (opaque unique string, 10 chars)").
const idHex = 10

// GenerateID returns a fresh random opaque id, 10 hex characters,
// matching flydb's crypto/rand-backed id generation
// (internal/sdk/id.go's generateID) rather than a counter-based
// scheme, since entry ids must be globally unique across independently
// operating replicas with no shared counter.
func GenerateID() string {
	buf := make([]byte, idHex/2)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("kvmodel: crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

// RawEntry is the wire tuple shape for an Entry: (id, origin,
// (op-tag, op-fields...), prev, ts, time) per spec.md §4.2.
type RawEntry struct {
	ID       string       `json:"id"`
	OriginID string       `json:"origin"`
	Op       RawOperation `json:"op"`
	Prev     vclock.Clock `json:"prev"`
	TS       vclock.Clock `json:"ts"`
	Time     int64        `json:"time"`
}

// Encode converts e to its wire tuple.
func (e Entry) Encode() RawEntry {
	return RawEntry{
		ID:       e.ID,
		OriginID: e.OriginID,
		Op:       EncodeOperation(e.Op),
		Prev:     e.Prev,
		TS:       e.TS,
		Time:     e.Time,
	}
}

// DecodeEntry reconstructs a typed Entry from its wire tuple.
func DecodeEntry(raw RawEntry) (Entry, error) {
	op, err := DecodeOperation(raw.Op)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:       raw.ID,
		OriginID: raw.OriginID,
		Op:       op,
		Prev:     raw.Prev,
		TS:       raw.TS,
		Time:     raw.Time,
	}, nil
}

// Less orders two entries by the (time, id) key spec.md §4.3 step 1
// sorts buffers by. It is ApplyEngine's only pre-pass sort key, so it
// also fixes the replay order during reconstruction; the entries'
// vector clocks take no part in that order.
func Less(a, b Entry) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.ID < b.ID
}
