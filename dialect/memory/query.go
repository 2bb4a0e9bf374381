package memory

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/karlosss/describer"
)

// opContainsID matches many-to-many fields holding the identifier.
const opContainsID = "has"

// QuerySet is a lazy query over an in-memory model.
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

// Count returns the number of matching instances, ignoring Slice.
func (q *QuerySet) Count(context.Context) (int, error) {
	rows, err := q.rows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// All returns the matching instances.
func (q *QuerySet) All(context.Context) ([]describer.Instance, error) {
	rows, err := q.rows()
	if err != nil {
		return nil, err
	}
	if q.offset > 0 {
		rows = rows[min(q.offset, len(rows)):]
	}
	if q.limit >= 0 && q.limit < len(rows) {
		rows = rows[:q.limit]
	}
	out := make([]describer.Instance, len(rows))
	for i, row := range rows {
		out[i] = &Record{model: q.model, values: row}
	}
	return out, nil
}

func (q *QuerySet) clone() *QuerySet {
	cp := *q
	cp.lookups = slices.Clone(q.lookups)
	return &cp
}

func (q *QuerySet) rows() ([]map[string]any, error) {
	for _, l := range q.lookups {
		if _, ok := q.model.resolve(l.Field); !ok {
			return nil, describer.NewInputError(l.String(), "unknown field %q of %s", l.Field, q.model.name)
		}
	}
	for _, o := range q.order {
		if _, ok := q.model.resolve(strings.TrimPrefix(o, "-")); !ok {
			return nil, describer.NewInputError("ordering", "unknown field %q of %s", o, q.model.name)
		}
	}
	var out []map[string]any
	for _, row := range q.model.snapshot() {
		ok, err := q.match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	order := q.order
	if len(order) == 0 {
		order = []string{describer.IDField}
	}
	slices.SortStableFunc(out, func(a, b map[string]any) int {
		for _, o := range order {
			desc := strings.HasPrefix(o, "-")
			f, _ := q.model.resolve(strings.TrimPrefix(o, "-"))
			c := compare(a[f.Name], b[f.Name])
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out, nil
}

func (q *QuerySet) match(row map[string]any) (bool, error) {
	for _, l := range q.lookups {
		f, _ := q.model.resolve(l.Field)
		ok, err := Match(row[f.Name], l.Op, l.Value)
		if err != nil {
			return false, describer.NewInputError(l.String(), "%v", err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Match reports whether value satisfies the operator op against arg.
func Match(value any, op string, arg any) (bool, error) {
	switch op {
	case describer.OpIsNull:
		want, ok := arg.(bool)
		if !ok {
			return false, fmt.Errorf("isnull expects a boolean, got %T", arg)
		}
		return (value == nil) == want, nil
	case describer.OpIn:
		for _, a := range toList(arg) {
			if equal(value, a) {
				return true, nil
			}
		}
		return false, nil
	case opContainsID:
		ids, _ := value.([]any)
		return slices.ContainsFunc(ids, func(id any) bool { return equal(id, arg) }), nil
	}
	if value == nil {
		return false, nil
	}
	switch op {
	case describer.OpExact:
		return equal(value, arg), nil
	case describer.OpIExact:
		return strings.EqualFold(str(value), str(arg)), nil
	case describer.OpContains:
		return strings.Contains(str(value), str(arg)), nil
	case describer.OpIContains:
		return strings.Contains(strings.ToLower(str(value)), strings.ToLower(str(arg))), nil
	case describer.OpStartsWith:
		return strings.HasPrefix(str(value), str(arg)), nil
	case describer.OpIStartsWith:
		return strings.HasPrefix(strings.ToLower(str(value)), strings.ToLower(str(arg))), nil
	case describer.OpEndsWith:
		return strings.HasSuffix(str(value), str(arg)), nil
	case describer.OpIEndsWith:
		return strings.HasSuffix(strings.ToLower(str(value)), strings.ToLower(str(arg))), nil
	case describer.OpRegex, describer.OpIRegex:
		pattern := str(arg)
		if op == describer.OpIRegex {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(str(value)), nil
	case describer.OpGT:
		return compare(value, arg) > 0, nil
	case describer.OpGTE:
		return compare(value, arg) >= 0, nil
	case describer.OpLT:
		return compare(value, arg) < 0, nil
	case describer.OpLTE:
		return compare(value, arg) <= 0, nil
	default:
		return false, fmt.Errorf("unsupported lookup %q", op)
	}
}

func toList(arg any) []any {
	switch v := arg.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	default:
		return []any{arg}
	}
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compare(a, b) == 0
}

// compare orders numbers numerically and everything else as strings.
// nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, err := toFloat(a); err == nil {
		if y, err := toFloat(b); err == nil {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(str(a), str(b))
}
