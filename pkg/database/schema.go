package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

type sqliteColumn struct {
	CID     int            `bun:"cid"`
	Name    string         `bun:"name"`
	Type    string         `bun:"type"`
	NotNull int            `bun:"notnull"`
	Default sql.NullString `bun:"dflt_value"`
	PK      int            `bun:"pk"`
}

// ListTables returns user tables in name order.
func ListTables(ctx context.Context, db bun.IDB) ([]string, error) {
	var tables []string
	query := "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
	if IsSQLite(db) {
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	}
	if err := db.NewRaw(query).Scan(ctx, &tables); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the column names of table in declaration order.
func ListColumns(ctx context.Context, db bun.IDB, table string) ([]string, error) {
	if IsSQLite(db) {
		var cols []sqliteColumn
		if err := db.NewRaw("PRAGMA table_info(?)", bun.Ident(table)).Scan(ctx, &cols); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		names := make([]string, 0, len(cols))
		for _, c := range cols {
			names = append(names, c.Name)
		}
		return names, nil
	}

	var names []string
	err := db.NewRaw(
		"SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position",
		table,
	).Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return names, nil
}
