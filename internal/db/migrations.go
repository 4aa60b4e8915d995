package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: ledger collections are append-only.
	`CREATE TRIGGER IF NOT EXISTS trg_ledger_no_update
	     BEFORE UPDATE ON documents
	     WHEN OLD.collection IN ('stockMovements', 'orderEvents')
	 BEGIN
	     SELECT RAISE(ABORT, 'ledger rows are immutable');
	 END`,
	`CREATE TRIGGER IF NOT EXISTS trg_ledger_no_delete
	     BEFORE DELETE ON documents
	     WHEN OLD.collection IN ('stockMovements', 'orderEvents')
	 BEGIN
	     SELECT RAISE(ABORT, 'ledger rows are immutable');
	 END`,

	// Migration 2: branch lookups on the ledger and on orders.
	`CREATE INDEX IF NOT EXISTS idx_movements_branch
	     ON documents(json_extract(data, '$.branch_id'), created_at)
	     WHERE collection = 'stockMovements'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer
	     ON documents(json_extract(data, '$.buyer_branch_id'))
	     WHERE collection = 'orders'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_seller
	     ON documents(json_extract(data, '$.seller_branch_id'))
	     WHERE collection = 'orders'`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
