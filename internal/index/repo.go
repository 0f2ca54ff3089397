package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

// BoardRow represents a row in the boards table.
type BoardRow struct {
	ID          string
	Name        string
	BoardType   string
	ObjectCount int
	Checksum    string
	UpdatedAt   time.Time
}

// Summary converts the row to its API form.
func (r BoardRow) Summary() models.BoardSummary {
	return models.BoardSummary{
		ID:          r.ID,
		Name:        r.Name,
		BoardType:   r.BoardType,
		ObjectCount: r.ObjectCount,
		Checksum:    r.Checksum,
		UpdatedAt:   r.UpdatedAt,
	}
}

// UpsertBoard inserts or replaces a board and its search entry within a transaction.
func (db *DB) UpsertBoard(b BoardRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO boards (id, name, board_type, object_count, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			board_type   = excluded.board_type,
			object_count = excluded.object_count,
			checksum     = excluded.checksum,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, b.ID, b.Name, b.BoardType, b.ObjectCount, b.Checksum, body, b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert board: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, b.ID, b.Name, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteBoard removes a board, its search entry and its event log.
func (db *DB) DeleteBoard(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM events WHERE board_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM boards WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a board, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM boards WHERE id = ?`, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetBoard returns one indexed board.
func (db *DB) GetBoard(id string) (*BoardRow, error) {
	var r BoardRow
	err := db.conn.QueryRow(`
		SELECT id, name, board_type, object_count, checksum, updated_at
		FROM boards WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.BoardType, &r.ObjectCount, &r.Checksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get board: %w", err)
	}
	return &r, nil
}

// ListBoards returns a page of boards, most recently updated first, and the
// total count. boardType filters when non-empty.
func (db *DB) ListBoards(limit, offset int, boardType string) ([]BoardRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	args := []any{}
	if boardType != "" {
		where = "WHERE board_type = ?"
		args = append(args, boardType)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM boards `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count boards: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, name, board_type, object_count, checksum, updated_at
		FROM boards `+where+`
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list boards: %w", err)
	}
	defer rows.Close()

	var out []BoardRow
	for rows.Next() {
		var r BoardRow
		if err := rows.Scan(&r.ID, &r.Name, &r.BoardType, &r.ObjectCount, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed board keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// AppendEvent records ev in the board's event log and returns its sequence
// number. An event already logged for the board is ignored and returns 0.
func (db *DB) AppendEvent(ev board.Event) (int64, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("index: encode event: %w", err)
	}
	res, err := db.conn.Exec(`
		INSERT OR IGNORE INTO events (board_id, event_id, type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ev.BoardID, ev.ID, string(ev.Type), string(payload), ev.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("index: append event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// Events returns logged events for a board with seq > afterSeq, oldest first.
func (db *DB) Events(boardID string, afterSeq int64, limit int) ([]models.LoggedEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.conn.Query(`
		SELECT seq, board_id, event_id, type, payload, created_at
		FROM events
		WHERE board_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
	`, boardID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("index: events: %w", err)
	}
	defer rows.Close()

	var out []models.LoggedEvent
	for rows.Next() {
		var (
			e       models.LoggedEvent
			payload string
		)
		if err := rows.Scan(&e.Seq, &e.BoardID, &e.EventID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Event = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}
