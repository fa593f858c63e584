package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tablecal/internal/fit"
)

// Fit kinds stored in the fits table.
const (
	FitKindPlane  = "plane"
	FitKindCircle = "circle"
)

// FitRecord is one stored fit. Params holds the kind-specific result as
// JSON.
type FitRecord struct {
	ID        string
	SessionID string
	Kind      string
	Params    json.RawMessage
	Residual  float64
	Count     int
	CreatedAt time.Time
}

// RecordPlaneFit stores a plane fit. sessionID may be empty when the
// samples were read from a file rather than probed in a session.
func (db *DB) RecordPlaneFit(sessionID string, p fit.Plane) (string, error) {
	return db.recordFit(sessionID, FitKindPlane, p, p.RMS, p.Count)
}

// RecordCircleFit stores a circle fit.
func (db *DB) RecordCircleFit(sessionID string, c fit.Circle) (string, error) {
	return db.recordFit(sessionID, FitKindCircle, c, c.ResidualsSum, c.Count)
}

func (db *DB) recordFit(sessionID, kind string, params interface{}, residual float64, count int) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s fit: %w", kind, err)
	}

	id := uuid.NewString()
	session := sql.NullString{String: sessionID, Valid: sessionID != ""}
	_, err = db.Exec(
		`INSERT INTO fits (fit_id, session_id, kind, params_json, residual, point_count, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, session, kind, string(data), residual, count, db.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record %s fit: %w", kind, err)
	}
	return id, nil
}

// Fits returns stored fits of kind, newest first.
func (db *DB) Fits(kind string, limit int) ([]FitRecord, error) {
	rows, err := db.Query(
		`SELECT fit_id, session_id, kind, params_json, residual, point_count, created_unix_nanos
		FROM fits WHERE kind = ? ORDER BY created_unix_nanos DESC LIMIT ?`,
		kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FitRecord
	for rows.Next() {
		var (
			r       FitRecord
			session sql.NullString
			params  string
			created int64
		)
		if err := rows.Scan(&r.ID, &session, &r.Kind, &params, &r.Residual, &r.Count, &created); err != nil {
			return nil, err
		}
		r.SessionID = session.String
		r.Params = json.RawMessage(params)
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestPlane returns the most recently stored plane fit.
func (db *DB) LatestPlane() (fit.Plane, error) {
	recs, err := db.Fits(FitKindPlane, 1)
	if err != nil {
		return fit.Plane{}, err
	}
	if len(recs) == 0 {
		return fit.Plane{}, sql.ErrNoRows
	}
	var p fit.Plane
	if err := json.Unmarshal(recs[0].Params, &p); err != nil {
		return fit.Plane{}, fmt.Errorf("failed to decode plane fit %s: %w", recs[0].ID, err)
	}
	return p, nil
}
