package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/scoreslides/pkg/errors"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultTable is the table SQLiteSource reads when Table is empty.
const DefaultTable = "scores"

// SQLiteSource reads records from a SQLite table with the columns created by
// SaveSQLite.
type SQLiteSource struct {
	Path  string
	Table string
}

// Name implements Source.
func (s SQLiteSource) Name() string { return "sqlite" }

// Load implements Source.
func (s SQLiteSource) Load(ctx context.Context) ([]Record, error) {
	table, err := tableName(s.Table)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.Path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", s.Path)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT gender, race_ethnicity, parental_education, lunch, test_preparation,
		        math_score, reading_score, writing_score
		   FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "query %s", table)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r := Record{ID: len(records)}
		if err := rows.Scan(&r.Gender, &r.RaceEthnicity, &r.ParentalEducation, &r.Lunch,
			&r.TestPreparation, &r.Math, &r.Reading, &r.Writing); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "scan row %d", len(records)+1)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveSQLite writes records into table, replacing any previous contents.
func SaveSQLite(ctx context.Context, path, table string, records []Record) (err error) {
	table, err = tableName(table)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, table),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER PRIMARY KEY,
			gender TEXT NOT NULL,
			race_ethnicity TEXT NOT NULL,
			parental_education TEXT NOT NULL,
			lunch TEXT NOT NULL,
			test_preparation TEXT NOT NULL,
			math_score REAL NOT NULL,
			reading_score REAL NOT NULL,
			writing_score REAL NOT NULL
		);`, table),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, gender, race_ethnicity, parental_education, lunch, test_preparation, math_score, reading_score, writing_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer insert.Close()
	for i, r := range records {
		if _, err = insert.ExecContext(ctx, i, r.Gender, r.RaceEthnicity, r.ParentalEducation,
			r.Lunch, r.TestPreparation, r.Math, r.Reading, r.Writing); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// tableName guards the table identifier, which cannot be a bind parameter.
func tableName(name string) (string, error) {
	if name == "" {
		return DefaultTable, nil
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return "", errors.New(errors.ErrCodeInvalidInput, "invalid table name %q", name)
		}
	}
	return name, nil
}
