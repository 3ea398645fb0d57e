package ghola

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEngine executes queries and soft delete mutations against a
// Postgres or CockroachDB table through pgx. Columns come from T's `db`
// struct tags; the first tagged field is the primary key.
type PostgresEngine[T any, ID comparable] struct {
	pool      *pgxpool.Pool
	tableName string
	getID     func(*T) ID
	columns   []string
	index     map[string]int
}

// NewPostgresPool opens a pgx connection pool for the given DSN
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

// NewPostgresEngine creates an engine bound to one table
func NewPostgresEngine[T any, ID comparable](pool *pgxpool.Pool, tableName string, getID func(*T) ID) (*PostgresEngine[T, ID], error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if getID == nil {
		return nil, fmt.Errorf("getID function cannot be nil")
	}
	if err := sanitizeIdentifier(tableName); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	columns, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}
	for _, col := range columns {
		if err := sanitizeIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid column name '%s': %w", col, err)
		}
	}
	index, err := fieldIndexOf[T]()
	if err != nil {
		return nil, err
	}

	return &PostgresEngine[T, ID]{
		pool:      pool,
		tableName: tableName,
		getID:     getID,
		columns:   columns,
		index:     index,
	}, nil
}

func sanitizeIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_') {
			return fmt.Errorf("invalid character in identifier: %c", r)
		}
	}
	return nil
}

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func joinQuotedColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

var sqlOperators = map[string]struct{}{
	OpEqual:          {},
	OpNotEqual:       {},
	OpGreaterThan:    {},
	OpGreaterOrEqual: {},
	OpLessThan:       {},
	OpLessOrEqual:    {},
	OpLike:           {},
}

// renderPredicate translates one predicate into SQL, appending bind values
// to args. Placeholders continue from the current length of args.
func renderPredicate(p Predicate, args *[]any) (string, error) {
	switch p.Kind {
	case PredicateCompare:
		if _, ok := sqlOperators[p.Operator]; !ok {
			return "", fmt.Errorf("unsupported operator %q", p.Operator)
		}
		if err := sanitizeIdentifier(p.Field); err != nil {
			return "", err
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("%s %s $%d", quoteIdentifier(p.Field), p.Operator, len(*args)), nil

	case PredicateIsNull:
		if err := sanitizeIdentifier(p.Field); err != nil {
			return "", err
		}
		return quoteIdentifier(p.Field) + " IS NULL", nil

	case PredicateNot:
		if len(p.Children) != 1 {
			return "", fmt.Errorf("negation requires exactly one child")
		}
		child := p.Children[0]
		if child.Kind == PredicateIsNull {
			if err := sanitizeIdentifier(child.Field); err != nil {
				return "", err
			}
			return quoteIdentifier(child.Field) + " IS NOT NULL", nil
		}
		inner, err := renderPredicate(child, args)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil

	case PredicateAnd, PredicateOr:
		if len(p.Children) == 0 {
			return "", fmt.Errorf("empty logical group")
		}
		sep := " AND "
		if p.Kind == PredicateOr {
			sep = " OR "
		}
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			part, err := renderPredicate(c, args)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		return "(" + strings.Join(parts, sep) + ")", nil

	default:
		return "", fmt.Errorf("unknown predicate kind %d", p.Kind)
	}
}

// whereSQL renders the query's predicate list as a WHERE clause, or ""
// when there are no predicates
func whereSQL(preds []Predicate, args *[]any) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		part, err := renderPredicate(p, args)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func orderSQL(sort []SortField) (string, error) {
	if len(sort) == 0 {
		return "", nil
	}
	parts := make([]string, len(sort))
	for i, sf := range sort {
		if err := sanitizeIdentifier(sf.Field); err != nil {
			return "", err
		}
		if sf.Direction != SortAsc && sf.Direction != SortDesc {
			return "", fmt.Errorf("invalid sort direction %q", sf.Direction)
		}
		parts[i] = quoteIdentifier(sf.Field) + " " + string(sf.Direction)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// selectColumns resolves the query's projection, defaulting to all columns
func (e *PostgresEngine[T, ID]) selectColumns(q *Query) ([]string, error) {
	if len(q.selects) == 0 {
		return e.columns, nil
	}
	for _, col := range q.selects {
		if _, ok := e.index[col]; !ok {
			return nil, fmt.Errorf("unknown column %q in projection", col)
		}
	}
	return q.selects, nil
}

func (e *PostgresEngine[T, ID]) selectSQL(q *Query) (string, []any, error) {
	cols, err := e.selectColumns(q)
	if err != nil {
		return "", nil, err
	}
	var args []any
	where, err := whereSQL(q.preds, &args)
	if err != nil {
		return "", nil, err
	}
	order, err := orderSQL(q.sort)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s",
		joinQuotedColumns(cols),
		quoteIdentifier(e.tableName),
		where,
		order,
	)
	if q.limit != nil {
		sql += fmt.Sprintf(" LIMIT %d", *q.limit)
	}
	if q.offset != nil {
		sql += fmt.Sprintf(" OFFSET %d", *q.offset)
	}
	return sql, args, nil
}

func (e *PostgresEngine[T, ID]) countSQL(q *Query) (string, []any, error) {
	var args []any
	where, err := whereSQL(q.preds, &args)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(e.tableName), where)
	return sql, args, nil
}

// updateAllSQL renders the UPDATE statement for UpdateAll. SET bind values
// come first, WHERE bind values continue the numbering. A projection turns
// into a RETURNING clause.
func (e *PostgresEngine[T, ID]) updateAllSQL(q *Query, changes []FieldChange) (string, []any, []string, error) {
	if len(changes) == 0 {
		return "", nil, nil, fmt.Errorf("no field changes given")
	}

	var args []any
	setClauses := make([]string, len(changes))
	for i, ch := range changes {
		if _, ok := e.index[ch.Field]; !ok {
			return "", nil, nil, fmt.Errorf("unknown field %q", ch.Field)
		}
		args = append(args, ch.Value)
		setClauses[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(ch.Field), len(args))
	}

	where, err := whereSQL(q.preds, &args)
	if err != nil {
		return "", nil, nil, err
	}

	sql := fmt.Sprintf("UPDATE %s SET %s%s",
		quoteIdentifier(e.tableName),
		strings.Join(setClauses, ", "),
		where,
	)

	var returning []string
	if len(q.selects) > 0 {
		returning, err = e.selectColumns(q)
		if err != nil {
			return "", nil, nil, err
		}
		sql += " RETURNING " + joinQuotedColumns(returning)
	}
	return sql, args, returning, nil
}

// getValues extracts the db-tagged field values in column order
func (e *PostgresEngine[T, ID]) getValues(item *T) []any {
	values := make([]any, len(e.columns))
	for i, col := range e.columns {
		values[i] = fieldByIndex(item, e.index[col])
	}
	return values
}

// getScanDestinations returns pointers to the fields backing cols
func (e *PostgresEngine[T, ID]) getScanDestinations(ptr *T, cols []string) []any {
	dests := make([]any, len(cols))
	for i, col := range cols {
		dests[i] = fieldAddrByIndex(ptr, e.index[col])
	}
	return dests
}

func (e *PostgresEngine[T, ID]) PrimaryKey() string {
	return e.columns[0]
}

func (e *PostgresEngine[T, ID]) Insert(ctx context.Context, item *T) error {
	placeholders := make([]string, len(e.columns))
	for i := range e.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(e.tableName),
		joinQuotedColumns(e.columns),
		strings.Join(placeholders, ", "),
	)
	_, err := e.pool.Exec(ctx, sql, e.getValues(item)...)
	return err
}

func (e *PostgresEngine[T, ID]) Select(ctx context.Context, q *Query) ([]T, error) {
	sql, args, err := e.selectSQL(q)
	if err != nil {
		return nil, err
	}
	cols, err := e.selectColumns(q)
	if err != nil {
		return nil, err
	}

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		if err := rows.Scan(e.getScanDestinations(&item, cols)...); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (e *PostgresEngine[T, ID]) Count(ctx context.Context, q *Query) (int64, error) {
	sql, args, err := e.countSQL(q)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := e.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *PostgresEngine[T, ID]) UpdateAll(ctx context.Context, q *Query, changes []FieldChange) (int64, []T, error) {
	sql, args, returning, err := e.updateAllSQL(q, changes)
	if err != nil {
		return 0, nil, err
	}

	if len(returning) == 0 {
		ct, err := e.pool.Exec(ctx, sql, args...)
		if err != nil {
			return 0, nil, err
		}
		return ct.RowsAffected(), nil, nil
	}

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		if err := rows.Scan(e.getScanDestinations(&item, returning)...); err != nil {
			return 0, nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return int64(len(results)), results, nil
}

func (e *PostgresEngine[T, ID]) Update(ctx context.Context, cs *Changeset[T]) (*T, error) {
	if verr := cs.check(e.tableName); verr != nil {
		return nil, verr
	}
	if err := applyChanges(cs.Entity(), e.index, cs.changes); err != nil {
		return nil, err
	}

	values := e.getValues(cs.Entity())
	setClauses := make([]string, 0, len(e.columns)-1)
	for i := 1; i < len(e.columns); i++ {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", quoteIdentifier(e.columns[i]), i))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(e.tableName),
		strings.Join(setClauses, ", "),
		quoteIdentifier(e.columns[0]),
		len(e.columns),
	)

	args := append(values[1:], e.getID(cs.Entity()))
	ct, err := e.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNoUpdateItem
	}
	return cs.Entity(), nil
}
