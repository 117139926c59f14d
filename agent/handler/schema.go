package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	databasex "github.com/tanpawarit/fanout-concierge/pkg/database"
)

const maxEnumValues = 20

var enumHints = []string{"status", "type", "category", "state", "flag"}

// SchemaOverview renders one line per table, "table(col, ...)", followed by
// the distinct values of enum-like columns when there are 2 to 20 of them.
// Hidden tables are left out.
func SchemaOverview(ctx context.Context, db bun.IDB, hidden ...string) (string, error) {
	all, err := databasex.ListTables(ctx, db)
	if err != nil {
		return "", err
	}
	skip := make(map[string]bool, len(hidden))
	for _, name := range hidden {
		skip[name] = true
	}
	tables := make([]string, 0, len(all))
	for _, name := range all {
		if !skip[name] {
			tables = append(tables, name)
		}
	}
	if len(tables) == 0 {
		return "(No tables found)", nil
	}

	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		cols, err := databasex.ListColumns(ctx, db, table)
		if err != nil {
			return "", err
		}

		var meta []string
		for _, col := range cols {
			if !isEnumLike(col) {
				continue
			}
			values, err := distinctValues(ctx, db, table, col)
			if err != nil {
				return "", err
			}
			if len(values) > 1 && len(values) <= maxEnumValues {
				meta = append(meta, fmt.Sprintf("%s: [%s]", col, strings.Join(values, ", ")))
			}
		}

		line := fmt.Sprintf("%s(%s)", table, strings.Join(cols, ", "))
		if len(meta) > 0 {
			line += "  # " + strings.Join(meta, "; ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func isEnumLike(column string) bool {
	lower := strings.ToLower(column)
	for _, hint := range enumHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func distinctValues(ctx context.Context, db bun.IDB, table, column string) ([]string, error) {
	var raw []sql.NullString
	err := db.NewRaw(
		"SELECT DISTINCT CAST(? AS TEXT) FROM ? LIMIT ?",
		bun.Ident(column), bun.Ident(table), maxEnumValues+1,
	).Scan(ctx, &raw)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", table, column, err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v.Valid {
			values = append(values, v.String)
		}
	}
	return values, nil
}
