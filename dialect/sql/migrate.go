package sql

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	atlasmysql "ariga.io/atlas/sql/mysql"
	atlaspg "ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	atlassqlite "ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/dialect"
)

// Plan returns the statements Migrate would execute.
func (c *Catalog) Plan(ctx context.Context) ([]string, error) {
	drv, changes, err := c.changes(ctx)
	if err != nil || len(changes) == 0 {
		return nil, err
	}
	plan, err := drv.PlanChanges(ctx, "describer", changes)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: plan changes: %w", err)
	}
	stmts := make([]string, 0, len(plan.Changes))
	for _, ch := range plan.Changes {
		stmts = append(stmts, ch.Cmd)
	}
	return stmts, nil
}

// Migrate creates the missing tables and columns of the catalog models.
// Existing columns are never altered or dropped, and tables outside the
// catalog are left alone.
func (c *Catalog) Migrate(ctx context.Context) error {
	drv, changes, err := c.changes(ctx)
	if err != nil || len(changes) == 0 {
		return err
	}
	if err := drv.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("dialect/sql: apply changes: %w", err)
	}
	c.drv.log.Info("schema migrated", zap.Int("changes", len(changes)))
	return nil
}

// changes diffs the database against the catalog and keeps the additive
// changes.
func (c *Catalog) changes(ctx context.Context) (migrate.Driver, []schema.Change, error) {
	drv, err := c.migrateDriver()
	if err != nil {
		return nil, nil, err
	}
	current, err := drv.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: inspect schema: %w", err)
	}
	desired, err := c.desired(current.Name)
	if err != nil {
		return nil, nil, err
	}
	diff, err := drv.SchemaDiff(current, desired)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: diff schema: %w", err)
	}
	var changes []schema.Change
	for _, ch := range diff {
		switch ch := ch.(type) {
		case *schema.AddTable:
			changes = append(changes, ch)
		case *schema.ModifyTable:
			var adds []schema.Change
			added := make(map[string]bool)
			for _, sub := range ch.Changes {
				if add, ok := sub.(*schema.AddColumn); ok {
					adds = append(adds, add)
					added[add.C.Name] = true
				}
			}
			// Foreign keys of existing columns may only differ by name.
			for _, sub := range ch.Changes {
				if add, ok := sub.(*schema.AddForeignKey); ok && newColumns(add.F, added) {
					adds = append(adds, add)
				}
			}
			if len(adds) > 0 {
				changes = append(changes, &schema.ModifyTable{T: ch.T, Changes: adds})
			}
		}
	}
	return drv, changes, nil
}

func newColumns(fk *schema.ForeignKey, added map[string]bool) bool {
	for _, col := range fk.Columns {
		if !added[col.Name] {
			return false
		}
	}
	return true
}

func (c *Catalog) migrateDriver() (migrate.Driver, error) {
	db := c.drv.DB()
	switch c.drv.Dialect() {
	case dialect.SQLite:
		return atlassqlite.Open(db)
	case dialect.Postgres:
		return atlaspg.Open(db)
	case dialect.MySQL:
		return atlasmysql.Open(db)
	default:
		return nil, fmt.Errorf("dialect/sql: migration is not supported for %q", c.drv.Dialect())
	}
}

// desired returns the schema holding the tables of every catalog model.
func (c *Catalog) desired(name string) (*schema.Schema, error) {
	models := c.Models()
	tables := make(map[string]*schema.Table, len(models))
	s := schema.New(name)
	for _, m := range models {
		t := schema.NewTable(m.table)
		for _, f := range m.fields {
			col, err := c.column(m, f)
			if err != nil {
				return nil, err
			}
			t.AddColumns(col)
			if f.Name == describer.IDField {
				t.SetPrimaryKey(schema.NewPrimaryKey(col))
			}
		}
		tables[m.name] = t
		s.AddTables(t)
	}
	for _, m := range models {
		t := tables[m.name]
		for _, f := range m.fields {
			if f.Kind != describer.KindForeignKey {
				continue
			}
			ref, ok := c.Model(f.Related)
			if !ok {
				return nil, describer.NewConfigError(m.name, f.Name, fmt.Sprintf("related model %q is not in the catalog", f.Related), nil)
			}
			col, _ := t.Column(m.columns[f.Name])
			refCol, _ := tables[ref.name].Column(ref.columns[describer.IDField])
			t.AddForeignKeys(schema.NewForeignKey(m.table + "_" + m.columns[f.Name]).
				AddColumns(col).
				SetRefTable(tables[ref.name]).
				AddRefColumns(refCol))
		}
	}
	return s, nil
}

// column returns the column definition of f in the catalog dialect.
func (c *Catalog) column(m *Model, f describer.Field) (*schema.Column, error) {
	d := c.drv.Dialect()
	col := &schema.Column{Name: m.columns[f.Name], Type: &schema.ColumnType{}}
	switch f.Kind {
	case describer.KindID:
		switch d {
		case dialect.SQLite:
			col.Type.Type = &schema.IntegerType{T: "integer"}
			col.AddAttrs(&atlassqlite.AutoIncrement{})
		case dialect.Postgres:
			col.Type.Type = &atlaspg.SerialType{T: "bigserial"}
		default:
			col.Type.Type = &schema.IntegerType{T: "bigint"}
			col.AddAttrs(&atlasmysql.AutoIncrement{})
		}
		return col, nil
	case describer.KindInt, describer.KindForeignKey:
		col.Type.Type = &schema.IntegerType{T: pick(d, "integer", "bigint", "bigint")}
	case describer.KindString:
		st := &schema.StringType{T: pick(d, "text", "character varying", "varchar")}
		if d != dialect.SQLite {
			st.Size = 255
		}
		col.Type.Type = st
	case describer.KindText:
		col.Type.Type = &schema.StringType{T: pick(d, "text", "text", "longtext")}
	case describer.KindFloat:
		col.Type.Type = &schema.FloatType{T: pick(d, "real", "double precision", "double")}
	case describer.KindBool:
		col.Type.Type = &schema.BoolType{T: pick(d, "bool", "boolean", "bool")}
	case describer.KindTime:
		col.Type.Type = &schema.TimeType{T: pick(d, "datetime", "timestamp with time zone", "timestamp")}
	default:
		return nil, describer.NewConfigError(m.name, f.Name, fmt.Sprintf("%s fields have no column type", f.Kind), nil)
	}
	col.Type.Null = f.Optional
	return col, nil
}

// pick returns the type name of the dialect.
func pick(d, sqlite, postgres, mysql string) string {
	switch d {
	case dialect.SQLite:
		return sqlite
	case dialect.Postgres:
		return postgres
	default:
		return mysql
	}
}
