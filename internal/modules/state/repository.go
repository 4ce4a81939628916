package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotMeta describes a stored snapshot without its payload.
type SnapshotMeta struct {
	ID           string    `json:"id"`
	NumPositions int       `json:"num_positions"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists engine snapshots in sqlite, msgpack-encoded.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a snapshot repository and ensures its table
// exists.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repository", "state_snapshots").Logger(),
	}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS state_snapshots (
			id TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			num_positions INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating state_snapshots table: %w", err)
	}
	return nil
}

// Save stores the engine's current snapshot and returns its id.
func (r *Repository) Save(e *Engine) (string, error) {
	record := e.Snapshot()
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.Exec(`
		INSERT INTO state_snapshots (id, payload, num_positions, created_at)
		VALUES (?, ?, ?, ?)
	`, id, payload, record.NumPositions, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}

	r.log.Debug().Str("id", id).Int("num_positions", record.NumPositions).Msg("Snapshot saved")
	return id, nil
}

// Get loads one snapshot record by id.
func (r *Repository) Get(id string) (Record, error) {
	var payload []byte
	err := r.db.QueryRow(`SELECT payload FROM state_snapshots WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("snapshot %s not found", id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	var record Record
	if err := msgpack.Unmarshal(payload, &record); err != nil {
		return Record{}, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return record, nil
}

// List returns snapshot metadata, newest first.
func (r *Repository) List(limit int) ([]SnapshotMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, num_positions, created_at
		FROM state_snapshots
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var metas []SnapshotMeta
	for rows.Next() {
		var meta SnapshotMeta
		var createdAt int64
		if err := rows.Scan(&meta.ID, &meta.NumPositions, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		meta.CreatedAt = time.Unix(createdAt, 0).UTC()
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Delete removes one snapshot.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM state_snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("snapshot %s not found", id)
	}
	return nil
}

// Prune deletes all but the newest keep snapshots and returns how many
// were removed.
func (r *Repository) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.db.Exec(`
		DELETE FROM state_snapshots
		WHERE id NOT IN (
			SELECT id FROM state_snapshots
			ORDER BY created_at DESC, id
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.log.Info().Int64("removed", removed).Int("keep", keep).Msg("Snapshots pruned")
	}
	return removed, nil
}
