package sql

import (
	"fmt"
	"strings"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/dialect"
)

// comparisons maps ordering lookups to SQL operators.
var comparisons = map[string]string{
	describer.OpGT:  " > ",
	describer.OpGTE: " >= ",
	describer.OpLT:  " < ",
	describer.OpLTE: " <= ",
}

type matchKind uint8

const (
	matchContains matchKind = iota
	matchPrefix
	matchSuffix
)

// Predicate appends the condition of l on column col of field f.
func (b *Builder) Predicate(col string, f describer.Field, l describer.Lookup) error {
	v := l.Value
	switch l.Op {
	case describer.OpIsNull:
		want, ok := v.(bool)
		if !ok {
			return fmt.Errorf("isnull expects a boolean, got %T", v)
		}
		b.Ident(col)
		if want {
			b.WriteString(" IS NULL")
		} else {
			b.WriteString(" IS NOT NULL")
		}
	case describer.OpExact:
		if v == nil {
			b.Ident(col).WriteString(" IS NULL")
			return nil
		}
		nv, err := normalize(f, v)
		if err != nil {
			return err
		}
		b.Ident(col).WriteString(" = ").Arg(nv)
	case describer.OpIExact:
		b.WriteString("LOWER(").Ident(col).WriteString(") = LOWER(").Arg(str(v)).WriteString(")")
	case describer.OpIn:
		items := toList(v)
		if len(items) == 0 {
			b.WriteString("1 = 0")
			return nil
		}
		args := make([]any, len(items))
		for i, item := range items {
			nv, err := normalize(f, item)
			if err != nil {
				return err
			}
			args[i] = nv
		}
		b.Ident(col).WriteString(" IN (").Args(args...).WriteString(")")
	case describer.OpGT, describer.OpGTE, describer.OpLT, describer.OpLTE:
		nv, err := normalize(f, v)
		if err != nil {
			return err
		}
		b.Ident(col).WriteString(comparisons[l.Op]).Arg(nv)
	case describer.OpContains, describer.OpIContains:
		b.match(col, str(v), matchContains, l.Op == describer.OpIContains)
	case describer.OpStartsWith, describer.OpIStartsWith:
		b.match(col, str(v), matchPrefix, l.Op == describer.OpIStartsWith)
	case describer.OpEndsWith, describer.OpIEndsWith:
		b.match(col, str(v), matchSuffix, l.Op == describer.OpIEndsWith)
	case describer.OpRegex, describer.OpIRegex:
		b.regex(col, str(v), l.Op == describer.OpIRegex)
	default:
		return fmt.Errorf("unsupported lookup %q", l.Op)
	}
	return nil
}

// match appends a substring match. SQLite LIKE ignores ASCII case, so
// case sensitive matches use GLOB there.
func (b *Builder) match(col, s string, kind matchKind, fold bool) {
	if b.dialect == dialect.SQLite && !fold {
		b.Ident(col).WriteString(" GLOB ").Arg(wrap(globEscaper.Replace(s), "*", kind))
		return
	}
	pattern := wrap(likeEscaper.Replace(s), "%", kind)
	switch {
	case b.dialect == dialect.Postgres && fold:
		b.Ident(col).WriteString(" ILIKE ").Arg(pattern)
	case b.dialect == dialect.MySQL && fold:
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE LOWER(").Arg(pattern).WriteString(")")
	case b.dialect == dialect.MySQL:
		b.Ident(col).WriteString(" LIKE BINARY ").Arg(pattern)
	default:
		b.Ident(col).WriteString(" LIKE ").Arg(pattern)
	}
	if b.dialect != dialect.MySQL {
		b.WriteString(` ESCAPE '\'`)
	}
}

func (b *Builder) regex(col, pattern string, fold bool) {
	switch b.dialect {
	case dialect.Postgres:
		op := " ~ "
		if fold {
			op = " ~* "
		}
		b.Ident(col).WriteString(op).Arg(pattern)
	case dialect.MySQL:
		flags := "'c'"
		if fold {
			flags = "'i'"
		}
		b.WriteString("REGEXP_LIKE(").Ident(col).WriteString(", ").Arg(pattern).WriteString(", " + flags + ")")
	default:
		if fold {
			pattern = "(?i)" + pattern
		}
		b.Ident(col).WriteString(" REGEXP ").Arg(pattern)
	}
}

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	globEscaper = strings.NewReplacer(`[`, `[[]`, `*`, `[*]`, `?`, `[?]`)
)

func wrap(s, wildcard string, kind matchKind) string {
	switch kind {
	case matchPrefix:
		return s + wildcard
	case matchSuffix:
		return wildcard + s
	default:
		return wildcard + s + wildcard
	}
}

// OrderBy appends an ORDER BY clause for fields, resolved to columns by
// column. The identifier column breaks ties.
func (b *Builder) OrderBy(fields []string, column func(string) (string, bool)) error {
	b.WriteString(" ORDER BY ")
	hasID := false
	for i, o := range fields {
		name, desc := strings.CutPrefix(o, "-")
		col, ok := column(name)
		if !ok {
			return describer.NewInputError("ordering", "unknown field %q", name)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(col)
		if desc {
			b.WriteString(" DESC")
		}
		hasID = hasID || name == describer.IDField
	}
	if !hasID {
		if len(fields) > 0 {
			b.WriteString(", ")
		}
		col, _ := column(describer.IDField)
		b.Ident(col)
	}
	return nil
}

// Window appends the LIMIT and OFFSET clauses. A negative limit means no
// upper bound.
func (b *Builder) Window(offset, limit int) {
	switch {
	case limit >= 0:
		b.WriteString(" LIMIT ").Arg(limit)
	case offset <= 0:
		return
	case b.dialect == dialect.SQLite:
		b.WriteString(" LIMIT -1")
	case b.dialect == dialect.MySQL:
		b.WriteString(" LIMIT 18446744073709551615")
	}
	if offset > 0 {
		b.WriteString(" OFFSET ").Arg(offset)
	}
}
