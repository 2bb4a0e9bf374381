package sql

import (
	"context"
	"slices"

	"github.com/karlosss/describer"
)

// QuerySet is a lazy SELECT over a table backed model.
type QuerySet struct {
	model   *Model
	lookups []describer.Lookup
	order   []string
	offset  int
	limit   int
}

var _ describer.QuerySet = (*QuerySet)(nil)

// Model returns the queried model.
func (q *QuerySet) Model() describer.Model { return q.model }

// Filter returns a query set narrowed by lookups.
func (q *QuerySet) Filter(lookups ...describer.Lookup) describer.QuerySet {
	cp := q.clone()
	cp.lookups = append(cp.lookups, lookups...)
	return cp
}

// OrderBy returns a query set sorted by fields.
func (q *QuerySet) OrderBy(fields ...string) describer.QuerySet {
	cp := q.clone()
	cp.order = slices.Clone(fields)
	return cp
}

// Slice returns a query set restricted to a window.
func (q *QuerySet) Slice(offset, limit int) describer.QuerySet {
	cp := q.clone()
	cp.offset, cp.limit = offset, limit
	return cp
}

// Count returns the number of matching rows, ignoring Slice.
func (q *QuerySet) Count(ctx context.Context) (int, error) {
	b := q.model.catalog.drv.builder().WriteString("SELECT COUNT(*) FROM ").Ident(q.model.table)
	if err := q.where(b); err != nil {
		return 0, err
	}
	query, args := b.Query()
	rows, err := q.model.catalog.drv.query(ctx, query, args)
	if err != nil {
		return 0, describer.NewQueryError(q.model.name, "count", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, describer.NewQueryError(q.model.name, "count", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, describer.NewQueryError(q.model.name, "count", err)
	}
	return n, nil
}

// All returns the matching instances.
func (q *QuerySet) All(ctx context.Context) ([]describer.Instance, error) {
	m := q.model
	b := m.catalog.drv.builder().WriteString("SELECT ")
	for i, f := range m.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(m.columns[f.Name])
	}
	b.WriteString(" FROM ").Ident(m.table)
	if err := q.where(b); err != nil {
		return nil, err
	}
	if err := b.OrderBy(q.order, m.Column); err != nil {
		return nil, err
	}
	b.Window(q.offset, q.limit)
	query, args := b.Query()
	rows, err := m.catalog.drv.query(ctx, query, args)
	if err != nil {
		return nil, describer.NewQueryError(m.name, "select", err)
	}
	defer rows.Close()
	var out []describer.Instance
	for rows.Next() {
		dest := make([]any, len(m.fields))
		ptrs := make([]any, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, describer.NewQueryError(m.name, "select", err)
		}
		r := &Record{model: m, values: make(map[string]any, len(m.fields)), stored: true}
		for i, f := range m.fields {
			v, err := normalize(f, dest[i])
			if err != nil {
				return nil, describer.NewQueryError(m.name, "select", err)
			}
			r.values[f.Name] = v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, describer.NewQueryError(m.name, "select", err)
	}
	return out, nil
}

func (q *QuerySet) where(b *Builder) error {
	for i, l := range q.lookups {
		f, col, ok := q.model.resolve(l.Field)
		if !ok {
			return describer.NewInputError(l.String(), "unknown field %q of %s", l.Field, q.model.name)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if err := b.Predicate(col, f, l); err != nil {
			return describer.NewInputError(l.String(), "%v", err)
		}
	}
	return nil
}

func (q *QuerySet) clone() *QuerySet {
	cp := *q
	cp.lookups = slices.Clone(q.lookups)
	return &cp
}
