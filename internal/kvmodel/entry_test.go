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
	"reflect"
	"testing"

	"github.com/firefly-oss/bayoukv/internal/vclock"
)

func TestGenerateIDLength(t *testing.T) {
	id := GenerateID()
	if len(id) != idHex {
		t.Errorf("expected id of length %d, got %d (%q)", idHex, len(id), id)
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected two generated ids to differ")
	}
}

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{
		ID:       GenerateID(),
		OriginID: "R1",
		Op:       UpdateRating{UserID: "u1", MovieID: "m1", Value: 4.5},
		Prev:     vclock.Clock{"R1": 1},
		TS:       vclock.Clock{"R1": 2},
		Time:     1700000000,
	}

	raw := e.Encode()
	got, err := DecodeEntry(raw)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	if !reflect.DeepEqual(got, e) {
		t.Errorf("round trip mismatch: got %#v, want %#v", got, e)
	}
}

func TestLessOrdersByTimeThenID(t *testing.T) {
	a := Entry{ID: "aaaa", Time: 100}
	b := Entry{ID: "bbbb", Time: 200}
	if !Less(a, b) {
		t.Error("expected earlier time to sort first")
	}

	c := Entry{ID: "aaaa", Time: 100}
	d := Entry{ID: "bbbb", Time: 100}
	if !Less(c, d) {
		t.Error("expected equal time to fall back to id ordering")
	}
}
