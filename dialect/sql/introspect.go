package sql

import (
	"context"
	"fmt"
	"strings"

	atlasmysql "ariga.io/atlas/sql/mysql"
	atlaspg "ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	atlassqlite "ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/dialect"
)

// Introspect adds a model for every table of the current schema, or for
// the named tables. Tables need an "id" primary key; other tables, such
// as join tables, are skipped. Single column foreign keys to introspected
// tables become foreign key fields named after the column without its
// "_id" suffix.
func (c *Catalog) Introspect(ctx context.Context, tables ...string) error {
	insp, err := c.inspector()
	if err != nil {
		return err
	}
	s, err := insp.InspectSchema(ctx, "", &schema.InspectOptions{Tables: tables})
	if err != nil {
		return fmt.Errorf("dialect/sql: inspect schema: %w", err)
	}
	names := make(map[string]string, len(s.Tables))
	for _, t := range s.Tables {
		if !hasIDKey(t) {
			c.drv.log.Warn("skipping table without id primary key", zap.String("table", t.Name))
			continue
		}
		names[t.Name] = ModelName(t.Name)
	}
	for _, t := range s.Tables {
		model, ok := names[t.Name]
		if !ok {
			continue
		}
		tbl := Table{Model: model, Name: t.Name, Columns: make(map[string]string)}
		for _, col := range t.Columns {
			f, ok := columnField(t, col, names)
			if !ok {
				c.drv.log.Warn("skipping column of unsupported type",
					zap.String("table", t.Name),
					zap.String("column", col.Name),
				)
				continue
			}
			tbl.Fields = append(tbl.Fields, f)
			tbl.Columns[f.Name] = col.Name
		}
		if _, err := c.Add(tbl); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) inspector() (schema.Inspector, error) {
	db := c.drv.DB()
	switch c.drv.Dialect() {
	case dialect.SQLite:
		return atlassqlite.Open(db)
	case dialect.Postgres:
		return atlaspg.Open(db)
	case dialect.MySQL:
		return atlasmysql.Open(db)
	default:
		return nil, fmt.Errorf("dialect/sql: introspection is not supported for %q", c.drv.Dialect())
	}
}

func hasIDKey(t *schema.Table) bool {
	pk := t.PrimaryKey
	return pk != nil && len(pk.Parts) == 1 && pk.Parts[0].C != nil && pk.Parts[0].C.Name == describer.IDField
}

// columnField returns the field stored in col.
func columnField(t *schema.Table, col *schema.Column, models map[string]string) (describer.Field, bool) {
	f := describer.Field{Name: col.Name, Optional: (col.Type != nil && col.Type.Null) || col.Default != nil}
	if col.Name == describer.IDField {
		return describer.Field{Name: describer.IDField, Kind: describer.KindID, Optional: true}, true
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || fk.Columns[0] != col || fk.RefTable == nil {
			continue
		}
		related, ok := models[fk.RefTable.Name]
		if !ok {
			break
		}
		f.Kind = describer.KindForeignKey
		f.Related = related
		if name, ok := strings.CutSuffix(col.Name, "_id"); ok && name != "" {
			f.Name = name
		}
		return f, true
	}
	if col.Type == nil {
		return f, false
	}
	f.Kind = kindOf(col.Type.Type)
	return f, f.Kind != describer.KindUnknown
}

func kindOf(t schema.Type) describer.Kind {
	switch t.(type) {
	case *schema.IntegerType:
		return describer.KindInt
	case *schema.StringType:
		return describer.KindString
	case *schema.FloatType, *schema.DecimalType:
		return describer.KindFloat
	case *schema.BoolType:
		return describer.KindBool
	case *schema.TimeType:
		return describer.KindTime
	default:
		return describer.KindUnknown
	}
}
