package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Column names of the StudentsPerformance table.
const (
	ColGender            = "gender"
	ColRaceEthnicity     = "race/ethnicity"
	ColParentalEducation = "parental level of education"
	ColLunch             = "lunch"
	ColTestPreparation   = "test preparation course"
	ColMath              = "math score"
	ColReading           = "reading score"
	ColWriting           = "writing score"
)

var csvColumns = []string{
	ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch,
	ColTestPreparation, ColMath, ColReading, ColWriting,
}

// CSVSource reads records from a CSV file with a header row. Columns are
// matched by name so their order does not matter.
type CSVSource struct {
	Path string
}

// Name implements Source.
func (s CSVSource) Name() string { return "csv" }

// Load implements Source.
func (s CSVSource) Load(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", s.Path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "read %s", s.Path)
	}
	return records, nil
}

// ReadCSV parses records from r.
func ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidDataset, "missing column %q", col)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(col string) string { return strings.TrimSpace(row[idx[col]]) }
		score := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(field(col), 64)
			if err != nil {
				return 0, errors.Wrap(errors.ErrCodeInvalidDataset, err, "line %d: %s", line, col)
			}
			return v, nil
		}

		rec := Record{
			ID:                len(records),
			Gender:            field(ColGender),
			RaceEthnicity:     field(ColRaceEthnicity),
			ParentalEducation: field(ColParentalEducation),
			Lunch:             field(ColLunch),
			TestPreparation:   field(ColTestPreparation),
		}
		if rec.Math, err = score(ColMath); err != nil {
			return nil, err
		}
		if rec.Reading, err = score(ColReading); err != nil {
			return nil, err
		}
		if rec.Writing, err = score(ColWriting); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV writes records with the standard header.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Gender, r.RaceEthnicity, r.ParentalEducation, r.Lunch, r.TestPreparation,
			strconv.FormatFloat(r.Math, 'f', -1, 64),
			strconv.FormatFloat(r.Reading, 'f', -1, 64),
			strconv.FormatFloat(r.Writing, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
