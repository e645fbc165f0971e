package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = errors.New("analysis run not found")

// Run describes one analysis of one map.
type Run struct {
	ID         string
	Kind       string // "convergence" or "shear"
	Source     string // input file(s) or generator description
	Pixels     int
	SideDeg    float64
	Normalized bool
	ConfigJSON string
	CreatedAt  time.Time
}

// Series is one binned statistic of a run: X holds the bin centres (ℓ or ν)
// and Y the values.
type Series struct {
	X []float64
	Y []float64
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun stores a run. An empty ID is replaced with a new one and a zero
// CreatedAt with the current time; the stored run is returned.
func (db *DB) RecordRun(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.ConfigJSON == "" {
		run.ConfigJSON = "{}"
	}

	_, err := db.Exec(
		`INSERT INTO analysis_runs (
			run_id, kind, source, pixels, side_deg, normalized, config_json, created_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Source, run.Pixels, run.SideDeg, run.Normalized, run.ConfigJSON, run.CreatedAt.Unix(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	run.CreatedAt = time.Unix(run.CreatedAt.Unix(), 0)
	return run, nil
}

// RecordSeries stores the bins of one statistic for a run in a single
// transaction.
func (db *DB) RecordSeries(runID, statistic string, s Series) error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("series %s: %d bin centres but %d values", statistic, len(s.X), len(s.Y))
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analysis_series (run_id, statistic, bin, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range s.X {
		if _, err := stmt.Exec(runID, statistic, i, s.X[i], s.Y[i]); err != nil {
			return fmt.Errorf("failed to record %s bin %d: %w", statistic, i, err)
		}
	}
	return tx.Commit()
}

// Runs returns the most recent runs first, at most limit of them.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, kind, source, pixels, side_deg, normalized, config_json, created_unix
		FROM analysis_runs ORDER BY created_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (db *DB) GetRun(id string) (Run, error) {
	row := db.QueryRow(`SELECT run_id, kind, source, pixels, side_deg, normalized, config_json, created_unix
		FROM analysis_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run     Run
		created int64
	)
	if err := s.Scan(&run.ID, &run.Kind, &run.Source, &run.Pixels, &run.SideDeg, &run.Normalized, &run.ConfigJSON, &created); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(created, 0)
	return run, nil
}

// Series returns the bins of one statistic of a run in bin order.
func (db *DB) Series(runID, statistic string) (Series, error) {
	rows, err := db.Query(`SELECT x, y FROM analysis_series
		WHERE run_id = ? AND statistic = ? ORDER BY bin`, runID, statistic)
	if err != nil {
		return Series{}, err
	}
	defer rows.Close()

	var s Series
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return Series{}, err
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
	}
	return s, rows.Err()
}

// Statistics lists the statistic names stored for a run.
func (db *DB) Statistics(runID string) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT statistic FROM analysis_series WHERE run_id = ? ORDER BY statistic`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
