package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder selects the bind parameter syntax of the target driver.
type Placeholder int

const (
	// Dollar renders $1, $2, ... (PostgreSQL).
	Dollar Placeholder = iota
	// Question renders ?, ?, ... (SQLite).
	Question
)

func (p Placeholder) render(i int) string {
	if p == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", i)
}

// UpsertConfig defines a single-row upsert.
type UpsertConfig struct {
	Table        string   // target table
	Columns      []string // all columns being inserted, in bind order
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// UpsertSQL renders INSERT ... ON CONFLICT (keys) DO UPDATE for one row.
// Both PostgreSQL and SQLite accept the generated statement.
func UpsertSQL(cfg UpsertConfig, ph Placeholder) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	binds := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		binds[i] = ph.render(i + 1)
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(binds, ", "),
		quoteAndJoin(cfg.ConflictKeys),
	)
	if len(updateCols) == 0 {
		return stmt + " DO NOTHING", nil
	}

	setClauses := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = excluded.%s", q, q)
	}
	return stmt + " DO UPDATE SET " + strings.Join(setClauses, ", "), nil
}

// MustUpsertSQL is UpsertSQL for statically known configs.
func MustUpsertSQL(cfg UpsertConfig, ph Placeholder) string {
	s, err := UpsertSQL(cfg, ph)
	if err != nil {
		panic(err)
	}
	return s
}

// sanitizeTable handles schema-qualified table names like "etl.properties".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
