package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gearbook/internal/domain"
	"gearbook/internal/metrics"
	"gearbook/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteEquipmentStore persists each equipment record as a JSON document
// with a version column. CompareAndSwap is a conditional UPDATE on the
// version, so concurrent writers on the same record lose cleanly instead of
// clobbering each other's reservation arrays.
type SQLiteEquipmentStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS equipment (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	doc        TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equipment_category ON equipment(category);
CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status);

CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

func NewSQLiteEquipmentStore(path string) (*SQLiteEquipmentStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteEquipmentStore{db: db}, nil
}

func (s *SQLiteEquipmentStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteEquipmentStore) Load(ctx context.Context, id string) (*models.Equipment, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM equipment WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	return decodeEquipment(doc)
}

func (s *SQLiteEquipmentStore) List(ctx context.Context, filter domain.EquipmentFilter) ([]*models.Equipment, error) {
	query := `SELECT doc FROM equipment`
	var args []interface{}
	var where []string
	if filter.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(filter.Status))
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var result []*models.Equipment
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan equipment row: %w", err)
		}
		eq, err := decodeEquipment(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, eq)
	}
	return result, rows.Err()
}

func (s *SQLiteEquipmentStore) Insert(ctx context.Context, eq *models.Equipment) error {
	if eq.Version == 0 {
		eq.Version = 1
	}
	doc, err := json.Marshal(eq)
	if err != nil {
		return fmt.Errorf("encode equipment: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO equipment (id, version, category, status, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eq.ID, eq.Version, eq.Category, string(eq.Status), string(doc), eq.CreatedAt, eq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert equipment: %w", err)
	}
	return nil
}

func (s *SQLiteEquipmentStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate domain.Mutator) (*models.Equipment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var doc string
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT doc, version FROM equipment WHERE id = ?`, id).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load equipment for update: %w", err)
	}
	if version != expectedVersion {
		metrics.IncCASConflict()
		return nil, fmt.Errorf("equipment %s changed since load: %w", id, domain.ErrConflict)
	}

	eq, err := decodeEquipment(doc)
	if err != nil {
		return nil, err
	}
	if err := mutate(eq); err != nil {
		return nil, err
	}
	eq.Version = expectedVersion + 1

	newDoc, err := json.Marshal(eq)
	if err != nil {
		return nil, fmt.Errorf("encode equipment: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE equipment SET doc = ?, version = ?, category = ?, status = ?, updated_at = ? WHERE id = ? AND version = ?`,
		string(newDoc), eq.Version, eq.Category, string(eq.Status), eq.UpdatedAt, id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update equipment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		metrics.IncCASConflict()
		return nil, fmt.Errorf("equipment %s changed since load: %w", id, domain.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return eq, nil
}

func (s *SQLiteEquipmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AppendAudit writes one audit trail row. Used by the audit worker, not by
// the booking path.
func (s *SQLiteEquipmentStore) AppendAudit(ctx context.Context, eventType string, payload []byte, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (event_type, payload, created_at) VALUES (?, ?, ?)`,
		eventType, string(payload), at,
	)
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	return nil
}

// CountAuditRows reports how many audit rows exist for an event type.
func (s *SQLiteEquipmentStore) CountAuditRows(ctx context.Context, eventType string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log WHERE event_type = ?`, eventType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit rows: %w", err)
	}
	return count, nil
}

func decodeEquipment(doc string) (*models.Equipment, error) {
	var eq models.Equipment
	if err := json.Unmarshal([]byte(doc), &eq); err != nil {
		return nil, fmt.Errorf("decode equipment document: %w", err)
	}
	return &eq, nil
}
