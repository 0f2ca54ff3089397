//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, search uses LIKE over boards.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches board names and text content with LIKE.
func (db *DB) Search(query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, name, substr(body, 1, 200)
		FROM boards
		WHERE name LIKE ? OR body LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, like, like, limit)
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
