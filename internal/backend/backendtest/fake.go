// Package backendtest provides an in-memory data service for tests.
package backendtest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/backend"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
)

// Hook runs before the named procedure. call is the 1-based invocation count.
// A non-nil error is returned to the caller instead of running the procedure.
type Hook func(c context.Context, call int, args map[string]any) error

type Fake struct {
	mu        sync.Mutex
	tables    map[string][]backend.Row
	hooks     map[string]Hook
	calls     map[string]int
	listeners map[string][]func(backend.Change)
}

func NewFake() *Fake {
	return &Fake{
		tables:    map[string][]backend.Row{},
		hooks:     map[string]Hook{},
		calls:     map[string]int{},
		listeners: map[string][]func(backend.Change){},
	}
}

func (f *Fake) Seed(table string, rows ...backend.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.tables[table] = append(f.tables[table], copyRow(r))
	}
}

func (f *Fake) OnProcedure(name string, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[name] = hook
}

func (f *Fake) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *Fake) Rows(table string) []backend.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]backend.Row, len(f.tables[table]))
	for i, r := range f.tables[table] {
		rows[i] = copyRow(r)
	}
	return rows
}

func copyRow(r backend.Row) backend.Row {
	c := make(backend.Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func matches(r backend.Row, filters []backend.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(r, f) {
			return false
		}
	}
	return true
}

func matchesFilter(r backend.Row, f backend.Filter) bool {
	if f.Op == backend.OpAny {
		for _, alt := range f.Any {
			if matchesFilter(r, alt) {
				return true
			}
		}
		return false
	}
	v, ok := r[f.Column]
	if f.Value == nil {
		return !ok || v == nil
	}
	if !ok || v == nil {
		return false
	}
	if f.Op == backend.OpILike {
		return like(fmt.Sprint(v), fmt.Sprint(f.Value))
	}
	return equal(v, f.Value)
}

// like reports whether s matches the LIKE pattern, ignoring case.
func like(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String()).MatchString(s)
}

func less(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.LessThan(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)) < 0
}

func (f *Fake) Select(c context.Context, q backend.Query) ([]backend.Row, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	result := []backend.Row{}
	for _, r := range f.tables[q.Table] {
		if matches(r, q.Filters) {
			result = append(result, copyRow(r))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			if q.Desc {
				return less(result[j][q.OrderBy], result[i][q.OrderBy])
			}
			return less(result[i][q.OrderBy], result[j][q.OrderBy])
		})
	}
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (f *Fake) SelectOne(c context.Context, q backend.Query) (backend.Row, error) {
	q.Limit = 1
	rows, err := f.Select(c, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed finding row in %s with error=%w", q.Table, inErrors.ErrNotFound)
	}
	return rows[0], nil
}

func (f *Fake) Insert(c context.Context, table string, row backend.Row) (backend.Row, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	inserted := f.insertLocked(table, row)
	listeners := f.listeners[table]
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(backend.Change{Table: table, Type: backend.ChangeInsert, Record: copyRow(inserted)})
	}
	return copyRow(inserted), nil
}

func (f *Fake) insertLocked(table string, row backend.Row) backend.Row {
	r := copyRow(row)
	if _, ok := r["id"]; !ok {
		r["id"] = uuid.New()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = time.Now()
	}
	f.tables[table] = append(f.tables[table], r)
	return r
}

func (f *Fake) Update(c context.Context, table string, filters []backend.Filter, values backend.Row) ([]backend.Row, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	updated := f.updateLocked(table, filters, values)
	listeners := f.listeners[table]
	f.mu.Unlock()

	for _, r := range updated {
		for _, fn := range listeners {
			fn(backend.Change{Table: table, Type: backend.ChangeUpdate, Record: copyRow(r)})
		}
	}
	return updated, nil
}

func (f *Fake) updateLocked(table string, filters []backend.Filter, values backend.Row) []backend.Row {
	updated := []backend.Row{}
	for _, r := range f.tables[table] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
		updated = append(updated, copyRow(r))
	}
	return updated
}

func stripPrefix(args map[string]any) backend.Row {
	row := backend.Row{}
	for k, v := range args {
		row[strings.TrimPrefix(k, "p_")] = v
	}
	return row
}

// Call implements create_order, add_order_item and cancel_order with the same
// contract as the SQL functions in migrations.
func (f *Fake) Call(c context.Context, name string, args map[string]any) (any, error) {
	f.mu.Lock()
	f.calls[name]++
	call := f.calls[name]
	hook := f.hooks[name]
	f.mu.Unlock()

	if hook != nil {
		if err := hook(c, call, args); err != nil {
			return nil, err
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case backend.ProcedureCreateOrder:
		key := args["p_idempotency_key"]
		for _, r := range f.tables["orders"] {
			if key != nil && equal(r["idempotency_key"], key) {
				return r["id"], nil
			}
		}
		row := stripPrefix(args)
		row["updated_at"] = time.Now()
		return f.insertLocked("orders", row)["id"], nil
	case backend.ProcedureAddOrderItem:
		orderID := args["p_order_id"]
		found := false
		for _, r := range f.tables["orders"] {
			if equal(r["id"], orderID) {
				found = true
				break
			}
		}
		if !found {
			return nil, &backend.RemoteError{Code: "23503", Message: "order does not exist"}
		}
		return f.insertLocked("order_items", stripPrefix(args))["id"], nil
	case backend.ProcedureCancelOrder:
		updated := f.updateLocked(
			"orders",
			[]backend.Filter{backend.Eq("id", args["p_order_id"])},
			backend.Row{"status": "canceled", "notes": args["p_reason"], "updated_at": time.Now()},
		)
		if len(updated) == 0 {
			return nil, &backend.RemoteError{Code: "P0002", Message: "order does not exist"}
		}
		return updated[0]["id"], nil
	default:
		return nil, &backend.RemoteError{Code: "42883", Message: fmt.Sprintf("procedure %s is not exposed", name)}
	}
}

// Subscribe registers fn and blocks until c is done, like the Postgres listener.
func (f *Fake) Subscribe(c context.Context, table string, fn func(backend.Change)) error {
	f.mu.Lock()
	f.listeners[table] = append(f.listeners[table], fn)
	f.mu.Unlock()
	<-c.Done()
	return nil
}

var (
	_ backend.Tables     = (*Fake)(nil)
	_ backend.Procedures = (*Fake)(nil)
	_ backend.Realtime   = (*Fake)(nil)
)
