package sqlite

// Schema DDL for local storage.
const (
	createItems = `CREATE TABLE items (
    item_id TEXT PRIMARY KEY,
    item_key TEXT NOT NULL UNIQUE,
    item_value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxItemsUpdated = `CREATE INDEX idx_items_updated ON items(updated_at);`
)

// schemaDDL lists all CREATE statements in dependency order.
var schemaDDL = []string{
	createItems,
	idxItemsUpdated,
}

// itemColumns is the column order used by the JSONL loader and persister.
var itemColumns = []string{"item_id", "item_key", "item_value", "updated_at"}
