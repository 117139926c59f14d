package csvsync

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	databasex "github.com/tanpawarit/fanout-concierge/pkg/database"
)

const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
)

type Options struct {
	// Protected tables are never dropped, even without a matching CSV file.
	Protected []string
}

type Report struct {
	Replaced []string
	Dropped  []string
	Rows     int
}

type table struct {
	name    string
	columns []string
	types   []string
	rows    [][]string
}

// SyncDir makes the database mirror the CSV files in dir: each file replaces
// the table named after it, and tables without a file are dropped.
func SyncDir(ctx context.Context, db *bun.DB, dir string, opts Options) (Report, error) {
	var report Report

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return report, err
	}

	tables := make([]*table, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		t, err := readTable(path)
		if err != nil {
			return report, err
		}
		if prev, ok := seen[t.name]; ok {
			return report, fmt.Errorf("%s and %s both map to table %s", prev, path, t.name)
		}
		seen[t.name] = path
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].name < tables[j].name })

	protected := make(map[string]bool, len(opts.Protected))
	for _, name := range opts.Protected {
		protected[name] = true
	}

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, t := range tables {
			if protected[t.name] {
				return fmt.Errorf("csv file %s would replace protected table %s", seen[t.name], t.name)
			}
			if err := replaceTable(ctx, tx, t); err != nil {
				return err
			}
			report.Replaced = append(report.Replaced, t.name)
			report.Rows += len(t.rows)
		}

		existing, err := databasex.ListTables(ctx, tx)
		if err != nil {
			return err
		}
		for _, name := range existing {
			if _, ok := seen[name]; ok || protected[name] {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(name)); err != nil {
				return fmt.Errorf("drop %s: %w", name, err)
			}
			report.Dropped = append(report.Dropped, name)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	log.Info().
		Strs("replaced", report.Replaced).
		Strs("dropped", report.Dropped).
		Int("rows", report.Rows).
		Msg("csv sync finished")
	return report, nil
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t := &table{
		name:    Identifier(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
		columns: columnNames(header),
	}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := make([]string, len(t.columns))
		copy(row, record)
		t.rows = append(t.rows, row)
	}
	t.types = inferTypes(len(t.columns), t.rows)
	return t, nil
}

func replaceTable(ctx context.Context, tx bun.Tx, t *table) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(t.name)); err != nil {
		return fmt.Errorf("drop %s: %w", t.name, err)
	}

	// Column names are already reduced to [a-z0-9_] by Identifier.
	defs := make([]string, len(t.columns))
	idents := make([]string, len(t.columns))
	for i, col := range t.columns {
		idents[i] = `"` + col + `"`
		defs[i] = idents[i] + " " + t.types[i]
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE ? (?)", bun.Ident(t.name), bun.Safe(strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", t.name, err)
	}

	cols := bun.Safe(strings.Join(idents, ", "))
	for i, row := range t.rows {
		values := make([]any, len(row))
		for j, cell := range row {
			values[j] = convert(cell, t.types[j])
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO ? (?) VALUES (?)", bun.Ident(t.name), cols, bun.In(values)); err != nil {
			return fmt.Errorf("insert %s row %d: %w", t.name, i+1, err)
		}
	}
	return nil
}

// Identifier lowercases s and replaces every run of characters outside
// [a-z0-9_] with one underscore.
func Identifier(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "t"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "t_" + out
	}
	return out
}

func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]int, len(header))
	for i, h := range header {
		name := Identifier(h)
		if strings.TrimSpace(h) == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		names[i] = name
	}
	return names
}

func inferTypes(n int, rows [][]string) []string {
	types := make([]string, n)
	for col := 0; col < n; col++ {
		types[col] = inferType(rows, col)
	}
	return types
}

func inferType(rows [][]string, col int) string {
	kind := ""
	for _, row := range rows {
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			if kind == "" {
				kind = TypeInteger
			}
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			kind = TypeReal
			continue
		}
		return TypeText
	}
	if kind == "" {
		return TypeText
	}
	return kind
}

func convert(cell, typ string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case TypeReal:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	}
	return cell
}
