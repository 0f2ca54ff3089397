//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS boards_fts USING fts5(
			board_id UNINDEXED,
			name,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, name, body string) error {
	_, _ = tx.Exec(`DELETE FROM boards_fts WHERE board_id = ?`, id)
	_, err := tx.Exec(`INSERT INTO boards_fts (board_id, name, body) VALUES (?, ?, ?)`, id, name, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM boards_fts WHERE board_id = ?`, id)
}

// Search runs an FTS5 query over board names and text content.
func (db *DB) Search(query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT board_id,
		       name,
		       snippet(boards_fts, 2, '<b>', '</b>', '...', 32)
		FROM boards_fts
		WHERE boards_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.BoardID, &h.Name, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
