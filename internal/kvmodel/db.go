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

import "sort"

// Movie holds a movie's name and its genre set.
type Movie struct {
	Name   string
	Genres map[string]struct{}
}

// DB is the in-memory store an Operation mutates (spec.md §3).
type DB struct {
	Movies  map[string]*Movie
	Ratings map[string]map[string]float64
	Tags    map[string]map[string]map[string]struct{}
}

// NewDB returns an empty DB.
func NewDB() *DB {
	return &DB{
		Movies:  make(map[string]*Movie),
		Ratings: make(map[string]map[string]float64),
		Tags:    make(map[string]map[string]map[string]struct{}),
	}
}

func (db *DB) setRating(userID, movieID string, value float64) {
	m, ok := db.Ratings[userID]
	if !ok {
		m = make(map[string]float64)
		db.Ratings[userID] = m
	}
	m[movieID] = value
}

func (db *DB) deleteRating(userID, movieID string) {
	if m, ok := db.Ratings[userID]; ok {
		delete(m, movieID)
	}
}

func (db *DB) setMovie(movieID, name string, genres []string) {
	g := make(map[string]struct{}, len(genres))
	for _, genre := range genres {
		g[genre] = struct{}{}
	}
	db.Movies[movieID] = &Movie{Name: name, Genres: g}
}

func (db *DB) addTags(userID, movieID string, tags []string) {
	byMovie, ok := db.Tags[userID]
	if !ok {
		byMovie = make(map[string]map[string]struct{})
		db.Tags[userID] = byMovie
	}
	set, ok := byMovie[movieID]
	if !ok {
		set = make(map[string]struct{})
		byMovie[movieID] = set
	}
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
}

func (db *DB) removeTags(userID, movieID string, tags []string) {
	byMovie, ok := db.Tags[userID]
	if !ok {
		return
	}
	set, ok := byMovie[movieID]
	if !ok {
		return
	}
	for _, tag := range tags {
		delete(set, tag)
	}
}

// ListMovies returns a shallow id->name map of every known movie.
func (db *DB) ListMovies() map[string]string {
	out := make(map[string]string, len(db.Movies))
	for id, m := range db.Movies {
		out[id] = m.Name
	}
	return out
}

// Search returns movie ids whose name contains the (case-sensitive)
// substring name and whose genre set is a superset of genres
// (spec.md §4.4 list_movies/search row).
func (db *DB) Search(name string, genres map[string]struct{}) map[string]string {
	out := make(map[string]string)
	for id, m := range db.Movies {
		if name != "" && !containsSubstring(m.Name, name) {
			continue
		}
		if !isSubset(genres, m.Genres) {
			continue
		}
		out[id] = m.Name
	}
	return out
}

func containsSubstring(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func isSubset(want, have map[string]struct{}) bool {
	for g := range want {
		if _, ok := have[g]; !ok {
			return false
		}
	}
	return true
}

// RatingStats summarizes a movie's ratings across all users.
type RatingStats struct {
	Avg   float64
	Min   float64
	Max   float64
	Count int
}

// MovieDetail is get_movie's return shape: a movie plus its
// aggregated ratings and the union of all users' tags (spec.md §4.4).
type MovieDetail struct {
	Name    string
	Genres  []string
	Ratings RatingStats
	Tags    []string
}

// GetMovie returns the aggregated detail for movieID, or nil if
// unknown (spec.md §4.4: "Returns null if unknown").
func (db *DB) GetMovie(movieID string) *MovieDetail {
	m, ok := db.Movies[movieID]
	if !ok {
		return nil
	}
	detail := &MovieDetail{Name: m.Name, Genres: sortedKeys(m.Genres)}

	var sum, min, max float64
	count := 0
	for _, byMovie := range db.Ratings {
		v, ok := byMovie[movieID]
		if !ok {
			continue
		}
		if count == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		sum += v
		count++
	}
	if count > 0 {
		detail.Ratings = RatingStats{Avg: sum / float64(count), Min: min, Max: max, Count: count}
	}

	tagSet := make(map[string]struct{})
	for _, byMovie := range db.Tags {
		if set, ok := byMovie[movieID]; ok {
			for tag := range set {
				tagSet[tag] = struct{}{}
			}
		}
	}
	detail.Tags = sortedKeys(tagSet)
	return detail
}

// UserData is get's return shape: one user's ratings and tags across
// all movies (spec.md §4.4).
type UserData struct {
	Ratings map[string]float64
	Tags    map[string][]string
}

// GetUser returns userID's ratings and tags.
func (db *DB) GetUser(userID string) UserData {
	ratings := make(map[string]float64)
	if m, ok := db.Ratings[userID]; ok {
		for movieID, v := range m {
			ratings[movieID] = v
		}
	}
	tags := make(map[string][]string)
	if byMovie, ok := db.Tags[userID]; ok {
		for movieID, set := range byMovie {
			tags[movieID] = sortedKeys(set)
		}
	}
	return UserData{Ratings: ratings, Tags: tags}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
