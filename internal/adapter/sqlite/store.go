// Package sqlite stores ports and their observation history in an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so recorded_at sorts lexically in ad hoc queries.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements domain.PortDirectory, domain.ObservationRecorder and
// domain.SubscriptionStore.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps PRAGMAs in effect and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ports (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL,
			longitude REAL
		);
		CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			port_id INTEGER NOT NULL REFERENCES ports(id) ON DELETE CASCADE,
			wind_speed REAL NOT NULL,
			wave_height REAL NOT NULL,
			visibility REAL,
			tide_level REAL,
			precipitation REAL,
			recorded_at TEXT NOT NULL,
			risk_score REAL NOT NULL,
			risk_status TEXT NOT NULL,
			source TEXT NOT NULL,
			origin TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_observations_port_latest
			ON observations(port_id, id DESC);
		CREATE TABLE IF NOT EXISTS route_subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			origin_port_id INTEGER NOT NULL REFERENCES ports(id) ON DELETE CASCADE,
			destination_port_id INTEGER NOT NULL REFERENCES ports(id) ON DELETE CASCADE,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_route_subscriptions_chat
			ON route_subscriptions(chat_id, id);
	`)
	return err
}

// UpsertPort inserts a port or replaces its name and coordinates.
func (s *Store) UpsertPort(ctx context.Context, p domain.Port) error {
	if p.Name == "" {
		return errors.New("port name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ports (id, name, latitude, longitude) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude`,
		p.ID, p.Name, nullFloat(p.Lat), nullFloat(p.Lon),
	)
	if err != nil {
		return fmt.Errorf("upsert port %d: %w", p.ID, err)
	}
	return nil
}

// GetPort returns the port with the given id, or domain.ErrPortNotFound.
func (s *Store) GetPort(ctx context.Context, id int64) (domain.Port, error) {
	var (
		p        domain.Port
		lat, lon sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude FROM ports WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Port{}, fmt.Errorf("port %d: %w", id, domain.ErrPortNotFound)
	}
	if err != nil {
		return domain.Port{}, fmt.Errorf("get port %d: %w", id, err)
	}
	p.Lat = floatPtr(lat)
	p.Lon = floatPtr(lon)
	return p, nil
}

// ListReports returns every port with its most recently recorded observation,
// ordered by port id. Latest means last inserted, so a back-dated manual entry
// or a late streamed reading still becomes the port's current status.
func (s *Store) ListReports(ctx context.Context) ([]domain.PortReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.latitude, p.longitude,
			o.wind_speed, o.wave_height, o.visibility, o.tide_level, o.precipitation,
			o.recorded_at, o.risk_score, o.risk_status, o.source, o.origin
		FROM ports p
		LEFT JOIN observations o ON o.id = (
			SELECT id FROM observations
			WHERE port_id = p.id
			ORDER BY id DESC
			LIMIT 1
		)
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.PortReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func scanReport(rows *sql.Rows) (domain.PortReport, error) {
	var (
		p                                  domain.Port
		lat, lon                           sql.NullFloat64
		wind, wave, vis, tide, precip      sql.NullFloat64
		score                              sql.NullFloat64
		recordedAt, status, source, origin sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.Name, &lat, &lon,
		&wind, &wave, &vis, &tide, &precip,
		&recordedAt, &score, &status, &source, &origin,
	); err != nil {
		return domain.PortReport{}, fmt.Errorf("scan report: %w", err)
	}
	p.Lat = floatPtr(lat)
	p.Lon = floatPtr(lon)

	report := domain.PortReport{Port: p}
	if !recordedAt.Valid {
		return report, nil
	}

	ts, err := time.Parse(timeLayout, recordedAt.String)
	if err != nil {
		return domain.PortReport{}, fmt.Errorf("port %d: parse recorded_at: %w", p.ID, err)
	}
	id := p.ID
	report.Latest = &domain.AssessedObservation{
		PortID: &id,
		Lat:    p.Lat,
		Lon:    p.Lon,
		Origin: origin.String,
		Observation: domain.Observation{
			WindSpeed:     wind.Float64,
			WaveHeight:    wave.Float64,
			Visibility:    floatPtr(vis),
			TideLevel:     floatPtr(tide),
			Precipitation: floatPtr(precip),
			RecordedAt:    ts,
		},
		Assessment: domain.RiskAssessment{
			Score:  score.Float64,
			Status: domain.RiskStatus(status.String),
			Source: domain.AssessmentSource(source.String),
		},
	}
	return report, nil
}

// RecordObservation appends an assessed observation to a port's history.
func (s *Store) RecordObservation(ctx context.Context, portID int64, obs domain.Observation, a domain.RiskAssessment, origin string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (
			port_id, wind_speed, wave_height, visibility, tide_level, precipitation,
			recorded_at, risk_score, risk_status, source, origin
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		portID, obs.WindSpeed, obs.WaveHeight,
		nullFloat(obs.Visibility), nullFloat(obs.TideLevel), nullFloat(obs.Precipitation),
		obs.RecordedAt.UTC().Format(timeLayout),
		a.Score, string(a.Status), string(a.Source), origin,
	)
	if err != nil {
		return fmt.Errorf("insert observation for port %d: %w", portID, err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
