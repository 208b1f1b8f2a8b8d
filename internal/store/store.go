package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"incident_audit/audit"
)

// Run statuses persisted to audit_runs.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Store wraps SQLite access for audit runs and their region metrics.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id TEXT PRIMARY KEY,
			trigger TEXT,
			status TEXT,
			n_incidents INTEGER,
			n_regions INTEGER,
			output_path TEXT,
			last_error TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS region_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			state TEXT,
			district TEXT,
			n_incidents INTEGER,
			mean_completeness REAL,
			messiness REAL,
			stations_inside TEXT,
			nearest_station_m REAL,
			approx_distance INTEGER,
			properties_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_region_metrics_run ON region_metrics(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Run is one audit run record.
type Run struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	NIncidents int        `json:"n_incidents"`
	NRegions   int        `json:"n_regions"`
	OutputPath *string    `json:"output_path"`
	LastError  *string    `json:"last_error"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// RegionRow is a persisted region metrics row. NearestStationM stays nil when
// the stored column is NULL.
type RegionRow struct {
	RunID            string   `json:"run_id"`
	State            *string  `json:"state"`
	District         *string  `json:"district"`
	NIncidents       int      `json:"n_incidents"`
	MeanCompleteness float64  `json:"mean_completeness"`
	Messiness        float64  `json:"messiness"`
	StationsInside   []string `json:"stations_inside"`
	NearestStationM  *float64 `json:"nearest_station_distance_m"`
	ApproxDistance   bool     `json:"approx_distance"`
	PropertiesJSON   string   `json:"properties_json"`
}

func (s *Store) StartRun(ctx context.Context, id, trigger string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_runs(id, trigger, status, n_incidents, n_regions, started_at)
		VALUES(?, ?, ?, 0, 0, ?)`, id, trigger, StatusRunning, ts)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, nIncidents, nRegions int, outputPath string, errMsg *string, ts time.Time) error {
	var out *string
	if outputPath != "" {
		out = &outputPath
	}
	_, err := s.db.ExecContext(ctx, `UPDATE audit_runs SET status=?, n_incidents=?, n_regions=?, output_path=?, last_error=?, finished_at=? WHERE id=?`,
		status, nIncidents, nRegions, out, errMsg, ts, id)
	return err
}

// InsertRegionMetrics persists the engine output for a run in one transaction.
func (s *Store) InsertRegionMetrics(ctx context.Context, runID string, rows []audit.RegionMetrics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO region_metrics(run_id, state, district, n_incidents, mean_completeness, messiness, stations_inside, nearest_station_m, approx_distance, properties_json)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		stations, err := json.Marshal(row.StationsInside)
		if err != nil {
			return err
		}
		props, err := json.Marshal(row.Properties)
		if err != nil {
			return err
		}
		var nearest interface{}
		if row.NearestStationM != nil {
			nearest = *row.NearestStationM
		}
		if _, err := stmt.ExecContext(ctx, runID, row.State, row.District, row.NIncidents,
			row.MeanCompleteness, row.Messiness, string(stations), nearest, row.ApproxDistance, string(props)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, trigger, status, n_incidents, n_regions, output_path, last_error, started_at, finished_at
		FROM audit_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns nil when no run has that id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, trigger, status, n_incidents, n_regions, output_path, last_error, started_at, finished_at
		FROM audit_runs WHERE id=?`, id)
	r, err := scanRun(row.Scan)
	switch err {
	case nil:
		return &r, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func scanRun(scan func(...any) error) (Run, error) {
	var r Run
	var outputPath, lastErr sql.NullString
	var finished sql.NullTime
	if err := scan(&r.ID, &r.Trigger, &r.Status, &r.NIncidents, &r.NRegions, &outputPath, &lastErr, &r.StartedAt, &finished); err != nil {
		return r, err
	}
	if outputPath.Valid {
		r.OutputPath = &outputPath.String
	}
	if lastErr.Valid {
		r.LastError = &lastErr.String
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}

func (s *Store) ListRegionMetrics(ctx context.Context, runID string) ([]RegionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, state, district, n_incidents, mean_completeness, messiness, stations_inside, nearest_station_m, approx_distance, properties_json
		FROM region_metrics WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegionRow
	for rows.Next() {
		var r RegionRow
		var state, district, stations, props sql.NullString
		var nearest sql.NullFloat64
		if err := rows.Scan(&r.RunID, &state, &district, &r.NIncidents, &r.MeanCompleteness, &r.Messiness, &stations, &nearest, &r.ApproxDistance, &props); err != nil {
			return nil, err
		}
		if state.Valid {
			r.State = &state.String
		}
		if district.Valid {
			r.District = &district.String
		}
		if nearest.Valid {
			r.NearestStationM = &nearest.Float64
		}
		r.StationsInside = []string{}
		if stations.Valid && stations.String != "" {
			if err := json.Unmarshal([]byte(stations.String), &r.StationsInside); err != nil {
				return nil, fmt.Errorf("region_metrics stations_inside: %w", err)
			}
		}
		if props.Valid {
			r.PropertiesJSON = props.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
