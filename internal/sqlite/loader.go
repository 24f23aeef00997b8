package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// itemRecord is one line of items.jsonl.
type itemRecord struct {
	ItemID    string `json:"item_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

// loadItems inserts JSONL records into the items table in one transaction.
// Records that fail to decode, lack a key or id, or violate a constraint are
// skipped. Unknown fields are ignored.
func loadItems(db *sql.DB, records []json.RawMessage) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO items (%s) VALUES (?, ?, ?, ?)",
		strings.Join(itemColumns, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, raw := range records {
		var rec itemRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Key == "" || rec.ItemID == "" {
			continue
		}
		if rec.UpdatedAt == "" {
			rec.UpdatedAt = time.Time{}.Format(time.RFC3339)
		}
		if _, err := stmt.Exec(rec.ItemID, rec.Key, rec.Value, rec.UpdatedAt); err != nil {
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// dumpItems returns every row of the items table as JSONL records, ordered
// by key so the file diffs cleanly.
func dumpItems(db *sql.DB) ([]json.RawMessage, error) {
	rows, err := db.Query(fmt.Sprintf(
		"SELECT %s FROM items ORDER BY item_key",
		strings.Join(itemColumns, ", "),
	))
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec itemRecord
		if err := rows.Scan(&rec.ItemID, &rec.Key, &rec.Value, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding item %s: %w", rec.Key, err)
		}
		records = append(records, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return records, nil
}
