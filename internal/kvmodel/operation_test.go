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
)

func TestOperationRoundTrip(t *testing.T) {
	tests := []Operation{
		UpdateRating{UserID: "u1", MovieID: "m1", Value: 4.5},
		DeleteRating{UserID: "u1", MovieID: "m1"},
		UpdateMovie{MovieID: "m1", Name: "Dune", Genres: []string{"scifi", "drama"}},
		AddTag{UserID: "u1", MovieID: "m1", Tags: []string{"classic"}},
		RemoveTag{UserID: "u1", MovieID: "m1", Tags: []string{"classic"}},
	}

	for _, op := range tests {
		raw := EncodeOperation(op)
		got, err := DecodeOperation(raw)
		if err != nil {
			t.Fatalf("DecodeOperation(%v) error: %v", raw, err)
		}
		if !reflect.DeepEqual(got, op) {
			t.Errorf("round trip mismatch: got %#v, want %#v", got, op)
		}
	}
}

func TestDecodeOperationUnknownTag(t *testing.T) {
	if _, err := DecodeOperation(RawOperation{Tag: "Z"}); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestUpdateRatingApply(t *testing.T) {
	db := NewDB()
	UpdateRating{UserID: "u1", MovieID: "m1", Value: 3.5}.Apply(db)
	if db.Ratings["u1"]["m1"] != 3.5 {
		t.Errorf("expected rating 3.5, got %v", db.Ratings["u1"]["m1"])
	}
}

func TestDeleteRatingOnlyDeletesOneKey(t *testing.T) {
	db := NewDB()
	UpdateRating{UserID: "u1", MovieID: "m1", Value: 3.5}.Apply(db)
	UpdateRating{UserID: "u1", MovieID: "m2", Value: 2.0}.Apply(db)

	DeleteRating{UserID: "u1", MovieID: "m1"}.Apply(db)

	if _, ok := db.Ratings["u1"]["m1"]; ok {
		t.Error("expected m1 rating to be deleted")
	}
	if v, ok := db.Ratings["u1"]["m2"]; !ok || v != 2.0 {
		t.Errorf("expected m2 rating to survive deletion, got %v, ok=%v", v, ok)
	}
}

func TestAddAndRemoveTags(t *testing.T) {
	db := NewDB()
	AddTag{UserID: "u1", MovieID: "m1", Tags: []string{"funny", "sad"}}.Apply(db)
	if _, ok := db.Tags["u1"]["m1"]["funny"]; !ok {
		t.Error("expected funny tag present")
	}
	RemoveTag{UserID: "u1", MovieID: "m1", Tags: []string{"funny"}}.Apply(db)
	if _, ok := db.Tags["u1"]["m1"]["funny"]; ok {
		t.Error("expected funny tag removed")
	}
	if _, ok := db.Tags["u1"]["m1"]["sad"]; !ok {
		t.Error("expected sad tag to survive removal of funny")
	}
}

func TestUpdateMovie(t *testing.T) {
	db := NewDB()
	UpdateMovie{MovieID: "m1", Name: "Dune", Genres: []string{"scifi"}}.Apply(db)
	m, ok := db.Movies["m1"]
	if !ok || m.Name != "Dune" {
		t.Fatalf("expected movie m1 Dune, got %+v ok=%v", m, ok)
	}
	if _, ok := m.Genres["scifi"]; !ok {
		t.Error("expected scifi genre")
	}
}
