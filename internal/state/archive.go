package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// ErrNotFound is returned when no incident exists for a call ID.
var ErrNotFound = errors.New("incident not found")

// IncidentSummary is the list-view projection of an archived incident.
type IncidentSummary struct {
	CallID    string            `json:"call_id"`
	Severity  models.Severity   `json:"severity,omitempty"`
	Status    models.CallStatus `json:"status"`
	Degraded  bool              `json:"degraded,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SaveSnapshot upserts the full incident record, keyed by call ID. The whole
// record rides in a JSON column; severity, status and timestamps are
// denormalized for filtering.
func (db *DB) SaveSnapshot(rec *models.IncidentRecord) error {
	if rec == nil || rec.CallID == "" {
		return errors.New("snapshot has no call id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal incident %s: %w", rec.CallID, err)
	}

	degraded := 0
	if rec.Degraded {
		degraded = 1
	}
	_, err = db.Exec(`
		INSERT INTO incidents (call_id, severity, status, degraded, summary, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			severity = excluded.severity,
			status = excluded.status,
			degraded = excluded.degraded,
			summary = excluded.summary,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`, rec.CallID, string(rec.Severity), string(rec.Status), degraded, rec.Summary,
		string(payload), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save incident %s: %w", rec.CallID, err)
	}
	return nil
}

// GetIncident loads the full record for callID. Returns ErrNotFound when the
// call was never archived.
func (db *DB) GetIncident(callID string) (*models.IncidentRecord, error) {
	var payload string
	row := db.QueryRow("SELECT snapshot FROM incidents WHERE call_id = ?", callID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load incident %s: %w", callID, err)
	}

	var rec models.IncidentRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode incident %s: %w", callID, err)
	}
	return &rec, nil
}

// ListRecent returns up to limit incident summaries, newest first.
func (db *DB) ListRecent(limit int) ([]IncidentSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT call_id, severity, status, degraded, summary, created_at, updated_at
		FROM incidents
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []IncidentSummary
	for rows.Next() {
		var (
			s                    IncidentSummary
			degraded             int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&s.CallID, &s.Severity, &s.Status, &degraded, &s.Summary, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}
		s.Degraded = degraded != 0
		if t, err := parseTime(createdAt); err == nil {
			s.CreatedAt = t
		}
		if t, err := parseTime(updatedAt); err == nil {
			s.UpdatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurgeOldIncidents deletes incidents created before the cutoff.
// Returns the number deleted.
func (db *DB) PurgeOldIncidents(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.Exec("DELETE FROM incidents WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old incidents: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
