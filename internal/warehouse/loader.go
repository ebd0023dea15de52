package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "instaetl/internal/errors"
	"instaetl/pkg/contracts/domain"
)

// LoadResult summarizes one table load. Rows skipped as duplicates count
// towards Rows but not Inserted.
type LoadResult struct {
	Table    string
	Target   string
	Rows     int
	Inserted int64
}

// Loader writes star-schema tables into a SQL database
type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLoader creates a loader over an open database handle. The caller owns db.
func NewLoader(db *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		db:     db,
		logger: logger.With("component", "warehouse_loader"),
	}
}

// CreateTables creates the star-schema tables when they do not exist yet
func (l *Loader) CreateTables(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin schema transaction", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return apperrors.NewStorageError("failed to create table", err).
				WithContext("statement", firstLine(stmt))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit schema", err)
	}

	l.logger.InfoContext(ctx, "Warehouse tables ready", slog.Int("tables", len(schemaStatements)))
	return nil
}

// preparedLoad is a table whose columns have been mapped to its warehouse table
type preparedLoad struct {
	table   domain.Table
	spec    tableSpec
	indexes []int
	query   string
}

func prepareLoad(table domain.Table) (preparedLoad, error) {
	spec, ok := tableSpecs[table.Name()]
	if !ok {
		return preparedLoad{}, apperrors.NewAppValidationError(
			fmt.Sprintf("table %q has no warehouse destination", table.Name()))
	}

	indexes, targets, err := mapColumns(spec, table.Columns())
	if err != nil {
		return preparedLoad{}, err
	}

	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		spec.Target,
		strings.Join(targets, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(targets)), ", "))

	return preparedLoad{table: table, spec: spec, indexes: indexes, query: query}, nil
}

// Load inserts every row of table into its warehouse table inside one
// transaction. Rows whose primary key already exists are ignored, so loading
// the same output twice leaves the warehouse unchanged.
func (l *Loader) Load(ctx context.Context, table domain.Table) (LoadResult, error) {
	results, err := l.load(ctx, []domain.Table{table})
	if err != nil {
		target, _ := TargetTable(table.Name())
		return LoadResult{Table: table.Name(), Target: target, Rows: table.Len()}, err
	}
	return results[0], nil
}

// LoadAll loads the given tables with dimensions ahead of the fact table,
// all inside a single transaction: either every table is loaded or nothing
// is. Tables without a warehouse destination or with unmapped columns are
// rejected before anything is written.
func (l *Loader) LoadAll(ctx context.Context, tables []domain.Table) ([]LoadResult, error) {
	rank := make(map[string]int, len(LoadOrder))
	for i, name := range LoadOrder {
		rank[name] = i
	}

	ordered := make([]domain.Table, 0, len(tables))
	for _, table := range tables {
		if _, ok := rank[table.Name()]; !ok {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("table %q has no warehouse destination", table.Name()))
		}
		ordered = append(ordered, table)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Name()] < rank[ordered[j].Name()]
	})

	return l.load(ctx, ordered)
}

func (l *Loader) load(ctx context.Context, tables []domain.Table) ([]LoadResult, error) {
	loads := make([]preparedLoad, 0, len(tables))
	for _, table := range tables {
		pl, err := prepareLoad(table)
		if err != nil {
			return nil, err
		}
		loads = append(loads, pl)
	}

	start := time.Now()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin load transaction", err)
	}

	results := make([]LoadResult, 0, len(loads))
	for _, pl := range loads {
		if err := ctx.Err(); err != nil {
			tx.Rollback()
			return nil, err
		}
		result, err := insertRows(ctx, tx, pl)
		if err != nil {
			tx.Rollback()
			l.logger.ErrorContext(ctx, "Warehouse load rolled back",
				slog.String("table", pl.spec.Target),
				slog.String("error", err.Error()))
			return nil, err
		}
		results = append(results, result)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError("failed to commit load", err)
	}

	for _, r := range results {
		l.logger.InfoContext(ctx, "Table loaded",
			slog.String("table", r.Target),
			slog.Int("rows", r.Rows),
			slog.Int64("inserted", r.Inserted))
	}
	l.logger.DebugContext(ctx, "Load committed",
		slog.Int("tables", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, pl preparedLoad) (LoadResult, error) {
	table := pl.table
	result := LoadResult{Table: table.Name(), Target: pl.spec.Target, Rows: table.Len()}

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		args := make([]any, len(pl.indexes))
		for j, idx := range pl.indexes {
			args[j] = sqlValue(row[idx])
		}

		res, err := tx.ExecContext(ctx, pl.query, args...)
		if err != nil {
			return result, apperrors.NewStorageError("failed to insert row", err).
				WithContext("table", pl.spec.Target).
				WithContext("row", i)
		}
		if n, err := res.RowsAffected(); err == nil {
			result.Inserted += n
		}
	}
	return result, nil
}

// mapColumns returns, for each mapped column present in the table, its index
// in the table row and its warehouse name. Unknown columns are an error.
func mapColumns(spec tableSpec, columns []string) ([]int, []string, error) {
	position := make(map[string]int, len(columns))
	for i, col := range columns {
		position[col] = i
	}

	known := make(map[string]bool, len(spec.Columns))
	var (
		indexes []int
		targets []string
	)
	for _, m := range spec.Columns {
		known[m.Source] = true
		if idx, ok := position[m.Source]; ok {
			indexes = append(indexes, idx)
			targets = append(targets, m.Target)
		}
	}

	var unknown []string
	for _, col := range columns {
		if !known[col] {
			unknown = append(unknown, col)
		}
	}
	if len(unknown) > 0 {
		return nil, nil, apperrors.NewSchemaError(
			fmt.Sprintf("columns not mapped to %s", spec.Target), unknown)
	}
	if len(targets) == 0 {
		return nil, nil, apperrors.NewSchemaError(
			fmt.Sprintf("no columns to load into %s", spec.Target), nil)
	}
	return indexes, targets, nil
}

// sqlValue converts a table cell to a driver value
func sqlValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case int:
		return int64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(domain.DateLayout)
	default:
		return v
	}
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "("))
}
