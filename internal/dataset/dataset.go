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
Package dataset abstracts the initial movie dataset a replica loads
at startup and reloads on every Reconstruct (spec.md §2: "Dataset +
DB ... load-from-source hook"; spec.md §5: "The initial CSV dataset is
re-read on every Reconstruct").

Dataset is deliberately a one-method interface so tests can substitute
an in-memory fixture; CSVDataset is the concrete, out-of-scope-per-spec
loader (spec.md §1 lists "initial CSV dataset loading" as an external
collaborator, abstracted as a Dataset.load() hook).
*/
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
)

// Dataset loads the initial movie catalog into a fresh DB.
type Dataset interface {
	Load() (*kvmodel.DB, error)
}

// CSVDataset loads movies from a CSV file with header
// "movie_id,name,genres", genres being a "|"-separated list, matching
// the conventional MovieLens-style export this domain's dataset
// traces back to.
type CSVDataset struct {
	Path string
}

// NewCSVDataset returns a Dataset reading from path.
func NewCSVDataset(path string) *CSVDataset {
	return &CSVDataset{Path: path}
}

// Load implements Dataset.
func (d *CSVDataset) Load() (*kvmodel.DB, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", d.Path, err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(r io.Reader) (*kvmodel.DB, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return kvmodel.NewDB(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: reading header: %w", err)
	}
	idCol, nameCol, genresCol := columnIndices(header)
	if idCol < 0 || nameCol < 0 || genresCol < 0 {
		return nil, fmt.Errorf("dataset: expected columns movie_id,name,genres, got %v", header)
	}

	db := kvmodel.NewDB()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: reading record: %w", err)
		}
		movieID := record[idCol]
		name := record[nameCol]
		var genres []string
		if record[genresCol] != "" {
			genres = strings.Split(record[genresCol], "|")
		}
		kvmodel.UpdateMovie{MovieID: movieID, Name: name, Genres: genres}.Apply(db)
	}
	return db, nil
}

func columnIndices(header []string) (idCol, nameCol, genresCol int) {
	idCol, nameCol, genresCol = -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "movie_id", "movieid", "id":
			idCol = i
		case "name", "title":
			nameCol = i
		case "genres":
			genresCol = i
		}
	}
	return
}
