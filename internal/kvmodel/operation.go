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
Package kvmodel defines bayoukv's data model: the Operation sum type,
the Entry log record, and the in-memory DB the operations mutate
(spec.md §3, §4.2).

Operations are a closed set of tagged variants rather than a registry
of classes (spec.md §9, "dynamic op dispatch -> tagged variants"):
Operation is an interface implemented by five concrete structs, each
knowing how to Apply itself to a DB and how to encode/decode itself to
the wire tuple representation.
*/
package kvmodel

import "fmt"

// Operation is the closed sum type of mutations a replica can apply.
type Operation interface {
	// Apply mutates db in place.
	Apply(db *DB)
	// Tag returns the single-character wire tag identifying the variant.
	Tag() string
	// Fields returns the variant's parameters in encode order.
	Fields() []interface{}
}

// UpdateRating sets a user's rating for a movie.
type UpdateRating struct {
	UserID  string
	MovieID string
	Value   float64
}

func (o UpdateRating) Tag() string { return "U" }
func (o UpdateRating) Fields() []interface{} {
	return []interface{}{o.UserID, o.MovieID, o.Value}
}
func (o UpdateRating) Apply(db *DB) {
	db.setRating(o.UserID, o.MovieID, o.Value)
}

// DeleteRating removes a user's rating for a movie. Per the resolved
// Open Question (spec.md §9), this deletes only the (user,movie) key
// and leaves the user's other ratings intact.
type DeleteRating struct {
	UserID  string
	MovieID string
}

func (o DeleteRating) Tag() string { return "D" }
func (o DeleteRating) Fields() []interface{} {
	return []interface{}{o.UserID, o.MovieID}
}
func (o DeleteRating) Apply(db *DB) {
	db.deleteRating(o.UserID, o.MovieID)
}

// UpdateMovie creates or replaces a movie's name and genre set.
type UpdateMovie struct {
	MovieID string
	Name    string
	Genres  []string
}

func (o UpdateMovie) Tag() string { return "M" }
func (o UpdateMovie) Fields() []interface{} {
	return []interface{}{o.MovieID, o.Name, o.Genres}
}
func (o UpdateMovie) Apply(db *DB) {
	db.setMovie(o.MovieID, o.Name, o.Genres)
}

// AddTag adds a set of tags a user has applied to a movie.
type AddTag struct {
	UserID  string
	MovieID string
	Tags    []string
}

func (o AddTag) Tag() string { return "A" }
func (o AddTag) Fields() []interface{} {
	return []interface{}{o.UserID, o.MovieID, o.Tags}
}
func (o AddTag) Apply(db *DB) {
	db.addTags(o.UserID, o.MovieID, o.Tags)
}

// RemoveTag removes a set of tags a user has applied to a movie.
type RemoveTag struct {
	UserID  string
	MovieID string
	Tags    []string
}

func (o RemoveTag) Tag() string { return "R" }
func (o RemoveTag) Fields() []interface{} {
	return []interface{}{o.UserID, o.MovieID, o.Tags}
}
func (o RemoveTag) Apply(db *DB) {
	db.removeTags(o.UserID, o.MovieID, o.Tags)
}

// RawOperation is the wire-tuple shape (tag, fields...) an Operation
// marshals to and unmarshals from. It is the shape transport carries,
// independent of the concrete JSON/struct encoding chosen by a given
// Transport implementation.
type RawOperation struct {
	Tag    string        `json:"tag"`
	Fields []interface{} `json:"fields"`
}

// EncodeOperation converts a typed Operation into its wire tuple.
func EncodeOperation(op Operation) RawOperation {
	return RawOperation{Tag: op.Tag(), Fields: op.Fields()}
}

// DecodeOperation reconstructs the typed Operation named by raw.Tag,
// keyed by op-tag as spec.md §4.2 describes ("a registry keyed by
// op-tag reconstructs the typed variant").
func DecodeOperation(raw RawOperation) (Operation, error) {
	switch raw.Tag {
	case "U":
		userID, movieID, err := take2Strings(raw.Fields)
		if err != nil {
			return nil, err
		}
		value, err := toFloat64(raw.Fields[2])
		if err != nil {
			return nil, err
		}
		return UpdateRating{UserID: userID, MovieID: movieID, Value: value}, nil
	case "D":
		userID, movieID, err := take2Strings(raw.Fields)
		if err != nil {
			return nil, err
		}
		return DeleteRating{UserID: userID, MovieID: movieID}, nil
	case "M":
		if len(raw.Fields) != 3 {
			return nil, fmt.Errorf("kvmodel: UpdateMovie wants 3 fields, got %d", len(raw.Fields))
		}
		movieID, err := toString(raw.Fields[0])
		if err != nil {
			return nil, err
		}
		name, err := toString(raw.Fields[1])
		if err != nil {
			return nil, err
		}
		genres, err := toStringSlice(raw.Fields[2])
		if err != nil {
			return nil, err
		}
		return UpdateMovie{MovieID: movieID, Name: name, Genres: genres}, nil
	case "A":
		userID, movieID, tags, err := take2StringsAndSet(raw.Fields)
		if err != nil {
			return nil, err
		}
		return AddTag{UserID: userID, MovieID: movieID, Tags: tags}, nil
	case "R":
		userID, movieID, tags, err := take2StringsAndSet(raw.Fields)
		if err != nil {
			return nil, err
		}
		return RemoveTag{UserID: userID, MovieID: movieID, Tags: tags}, nil
	default:
		return nil, fmt.Errorf("kvmodel: unknown operation tag %q", raw.Tag)
	}
}

func take2Strings(fields []interface{}) (string, string, error) {
	if len(fields) < 2 {
		return "", "", fmt.Errorf("kvmodel: expected at least 2 fields, got %d", len(fields))
	}
	a, err := toString(fields[0])
	if err != nil {
		return "", "", err
	}
	b, err := toString(fields[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func take2StringsAndSet(fields []interface{}) (string, string, []string, error) {
	if len(fields) != 3 {
		return "", "", nil, fmt.Errorf("kvmodel: expected 3 fields, got %d", len(fields))
	}
	a, b, err := take2Strings(fields)
	if err != nil {
		return "", "", nil, err
	}
	tags, err := toStringSlice(fields[2])
	if err != nil {
		return "", "", nil, err
	}
	return a, b, tags, nil
}

func toString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("kvmodel: expected string field, got %T", v)
	}
	return s, nil
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("kvmodel: expected numeric field, got %T", v)
	}
}

func toStringSlice(v interface{}) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return s, nil
	case []interface{}:
		out := make([]string, len(s))
		for i, item := range s {
			str, err := toString(item)
			if err != nil {
				return nil, err
			}
			out[i] = str
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("kvmodel: expected string list field, got %T", v)
	}
}
