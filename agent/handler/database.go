package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	databasex "github.com/tanpawarit/fanout-concierge/pkg/database"
)

const (
	DefaultMaxRows = 15
	NoDataReply    = "No data found for your request."
)

type DatabaseHandler struct {
	db        *bun.DB
	completer Completer
	maxRows   int
	hidden    []string
}

var _ contractx.Handler = (*DatabaseHandler)(nil)

// NewDatabaseHandler builds the handler. Hidden tables are kept out of the
// schema shown to the model.
func NewDatabaseHandler(db *bun.DB, completer Completer, maxRows int, hidden ...string) (*DatabaseHandler, error) {
	if db == nil || completer == nil {
		return nil, errors.New("database handler requires a database and a completer")
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &DatabaseHandler{db: db, completer: completer, maxRows: maxRows, hidden: hidden}, nil
}

// Handle turns command into one read-only query and renders at most maxRows
// rows of its result.
func (h *DatabaseHandler) Handle(ctx context.Context, command string) (string, error) {
	overview, err := SchemaOverview(ctx, h.db, h.hidden...)
	if err != nil {
		return "", fmt.Errorf("schema overview: %w", err)
	}

	reply, err := h.completer.Complete(ctx, map[string]any{
		"dialect": databasex.DialectName(h.db),
		"schema":  overview,
	}, command)
	if err != nil {
		return "", err
	}

	query := CleanSQL(reply)
	log.Debug().Str("sql", query).Msg("database handler generated sql")
	if strings.EqualFold(query, noSQL) {
		return "", ErrCannotAnswer
	}
	if err := CheckReadOnly(query); err != nil {
		return "", fmt.Errorf("rejected sql %q: %w", query, err)
	}

	rows, err := h.db.QueryContext(ctx, strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if err != nil {
		return "", fmt.Errorf("query failed: %w (sql: %s)", err, query)
	}
	defer rows.Close()

	table, n, err := renderRows(rows, h.maxRows)
	if err != nil {
		return "", fmt.Errorf("read rows: %w (sql: %s)", err, query)
	}
	if n == 0 {
		return NoDataReply, nil
	}
	return "Query result:\n" + table, nil
}

func renderRows(rows *sql.Rows, maxRows int) (string, int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", 0, err
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	n := 0
	for n < maxRows && rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", 0, err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
		n++
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}
	if err := tw.Flush(); err != nil {
		return "", 0, err
	}
	return strings.TrimRight(b.String(), "\n"), n, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
