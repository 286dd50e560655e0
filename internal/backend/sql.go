package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildWhere(filters []Filter, next int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, buildClause(f, &next, &args))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildClause(f Filter, next *int, args *[]any) string {
	if f.Op == OpAny {
		alternatives := make([]string, 0, len(f.Any))
		for _, alt := range f.Any {
			alternatives = append(alternatives, buildClause(alt, next, args))
		}
		return "(" + strings.Join(alternatives, " OR ") + ")"
	}
	if f.Value == nil {
		return ident(f.Column) + " IS NULL"
	}
	op := f.Op
	if op == "" {
		op = OpEq
	}
	clause := fmt.Sprintf("%s %s $%d", ident(f.Column), op, *next)
	*args = append(*args, f.Value)
	*next++
	return clause
}

func buildSelect(q Query) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(ident(q.Table))
	where, args := buildWhere(q.Filters, 1)
	sb.WriteString(where)
	if q.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(ident(q.OrderBy))
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

func buildInsert(table string, row Row) (string, []any) {
	columns := sortedKeys(row)
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		names[i] = ident(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	), args
}

func buildUpdate(table string, filters []Filter, values Row) (string, []any) {
	columns := sortedKeys(values)
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(filters))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", ident(col), i+1)
		args = append(args, values[col])
	}
	where, whereArgs := buildWhere(filters, len(columns)+1)
	args = append(args, whereArgs...)
	return fmt.Sprintf(
		"UPDATE %s SET %s%s RETURNING *",
		ident(table),
		strings.Join(sets, ", "),
		where,
	), args
}

// buildCall uses named notation so argument order never matters.
func buildCall(name string, args map[string]any) (string, []any) {
	keys := sortedKeys(args)
	named := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		named[i] = fmt.Sprintf("%s => $%d", ident(k), i+1)
		values[i] = args[k]
	}
	return fmt.Sprintf("SELECT %s(%s)", ident(name), strings.Join(named, ", ")), values
}
