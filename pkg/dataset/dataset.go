// Package dataset holds the immutable student score records every slide reads.
//
// Records are produced once by a [Source] (CSV file, SQLite table or MongoDB
// collection) and wrapped in a [Store]. Nothing downstream ever mutates them:
// the aggregation engine and the charts only read.
//
// # Loading
//
//	store, err := dataset.Load(ctx, dataset.CSVSource{Path: "StudentsPerformance.csv"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(store.Len(), "records")
//
// # Dimensions
//
// Charts group records by one categorical field. [Dimensions] maps the
// dimension names accepted on the command line to their selectors:
//
//	by, _ := dataset.Dimension("gender")
//	by(store.At(0)) // "female"
package dataset

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/scoreslides/pkg/cache"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/observability"
)

// Record is one student entry.
type Record struct {
	ID                int     `json:"id"`
	Gender            string  `json:"gender"`
	RaceEthnicity     string  `json:"race_ethnicity"`
	ParentalEducation string  `json:"parental_education"`
	Lunch             string  `json:"lunch"`
	TestPreparation   string  `json:"test_preparation"`
	Math              float64 `json:"math"`
	Reading           float64 `json:"reading"`
	Writing           float64 `json:"writing"`
}

// Average returns the mean of the three subject scores.
func (r Record) Average() float64 {
	return (r.Math + r.Reading + r.Writing) / 3
}

// Validate checks that every score lies in [0,100].
func (r Record) Validate() error {
	for _, s := range []struct {
		name string
		v    float64
	}{{"math", r.Math}, {"reading", r.Reading}, {"writing", r.Writing}} {
		if math.IsNaN(s.v) || s.v < 0 || s.v > 100 {
			return errors.New(errors.ErrCodeInvalidDataset, "record %d: %s score %g out of range [0,100]", r.ID, s.name, s.v)
		}
	}
	return nil
}

// Source produces records. Implementations own all parsing and coercion.
type Source interface {
	// Name identifies the source kind in logs and cache keys ("csv", "sqlite", "mongo").
	Name() string
	Load(ctx context.Context) ([]Record, error)
}

// Store is an immutable, ordered sequence of records.
type Store struct {
	records     []Record
	fingerprint string
}

// NewStore copies records into a new Store. Record IDs are reassigned to the
// row index so they are unique within the store.
func NewStore(records []Record) *Store {
	rs := make([]Record, len(records))
	copy(rs, records)
	for i := range rs {
		rs[i].ID = i
	}
	return &Store{records: rs, fingerprint: fingerprint(rs)}
}

// Load reads all records from src and validates them.
func Load(ctx context.Context, src Source) (*Store, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, src.Name())

	records, err := src.Load(ctx)
	if err == nil {
		for _, r := range records {
			if err = r.Validate(); err != nil {
				break
			}
		}
	}
	observability.Pipeline().OnLoadComplete(ctx, src.Name(), len(records), time.Since(start), err)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInvalidDataset, err, "load %s", src.Name())
		}
		return nil, err
	}
	return NewStore(records), nil
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// At returns the i-th record.
func (s *Store) At(i int) Record { return s.records[i] }

// Records returns a copy of all records in load order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Fingerprint is a content hash of the records, used in cache keys.
func (s *Store) Fingerprint() string { return s.fingerprint }

// Values returns the distinct values of a dimension in first-encountered order.
func (s *Store) Values(by func(Record) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.records {
		v := by(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func fingerprint(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%g|%g|%g\n",
			r.Gender, r.RaceEthnicity, r.ParentalEducation, r.Lunch, r.TestPreparation,
			r.Math, r.Reading, r.Writing)
	}
	return cache.Hash([]byte(b.String()))
}

// Dimension selectors.
var (
	Gender            = func(r Record) string { return r.Gender }
	RaceEthnicity     = func(r Record) string { return r.RaceEthnicity }
	ParentalEducation = func(r Record) string { return r.ParentalEducation }
	Lunch             = func(r Record) string { return r.Lunch }
	TestPreparation   = func(r Record) string { return r.TestPreparation }
)

var dimensions = map[string]func(Record) string{
	"gender":             Gender,
	"race/ethnicity":     RaceEthnicity,
	"parental education": ParentalEducation,
	"lunch":              Lunch,
	"test preparation":   TestPreparation,
}

var dimensionAliases = map[string]string{
	"race":        "race/ethnicity",
	"ethnicity":   "race/ethnicity",
	"education":   "parental education",
	"parental":    "parental education",
	"preparation": "test preparation",
	"prep":        "test preparation",
}

// Dimension returns the selector for a named dimension. Short aliases such as
// "race" or "education" are accepted.
func Dimension(name string) (func(Record) string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := dimensionAliases[key]; ok {
		key = alias
	}
	if by, ok := dimensions[key]; ok {
		return by, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown dimension %q (valid: %s)", name, strings.Join(Dimensions(), ", "))
}

// Dimensions lists the canonical dimension names, sorted.
func Dimensions() []string {
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
