package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/contrib/graphql"
	"github.com/karlosss/describer/dialect/sql"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema"
)

// Config is the project file read by every command.
type Config struct {
	Database Database               `yaml:"database"`
	Log      LogConfig              `yaml:"log"`
	GraphQL  graphql.Config         `yaml:"graphql"`
	Models   map[string]ModelConfig `yaml:"models"`
}

// Database selects the database whose tables are introspected.
type Database struct {
	// Driver is a database/sql driver name: sqlite, postgres or mysql.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Tables limits introspection. Empty means every table.
	Tables        []string      `yaml:"tables,omitempty"`
	SlowThreshold time.Duration `yaml:"slow_threshold,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// ModelConfig customizes the describer of one introspected model.
type ModelConfig struct {
	Only    []string `yaml:"only,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Actions lists the enabled standard actions. Nil enables all of them.
	Actions []string `yaml:"actions,omitempty"`
	// Permissions gates every action: "all", "authenticated" or "none".
	Permissions string `yaml:"permissions,omitempty"`
	// FieldRoles restricts output fields to viewers with one of the roles.
	FieldRoles      map[string][]string `yaml:"field_roles,omitempty"`
	DefaultPageSize int                 `yaml:"default_page_size,omitempty"`
	MaxPageSize     int                 `yaml:"max_page_size,omitempty"`
}

var standardActions = []string{"list", "detail", "create", "update", "delete"}

// LoadConfig reads the project file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Config{
		Database: Database{Driver: "sqlite"},
		Log:      LogConfig{Level: "info"},
		GraphQL:  graphql.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that do not need a database.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := c.GraphQL.Validate(); err != nil {
		errs = append(errs, err)
	}
	for name, m := range c.Models {
		for _, a := range m.Actions {
			if !slices.Contains(standardActions, a) {
				errs = append(errs, fmt.Errorf("models.%s: unknown action %q", name, a))
			}
		}
		if _, err := actionPermissions(m.Permissions); err != nil {
			errs = append(errs, fmt.Errorf("models.%s: %w", name, err))
		}
	}
	return describer.NewAggregateError(errs...)
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// Project is an introspected database and the schema generated from it.
type Project struct {
	Driver  *sql.Driver
	Catalog *sql.Catalog
	Schema  *graphql.Schema
}

// Close closes the database.
func (p *Project) Close() error { return p.Driver.Close() }

// Open introspects the database and generates the schema.
func (c *Config) Open(ctx context.Context, log *zap.Logger) (*Project, error) {
	opts := []sql.Option{sql.WithLogger(log.Named("sql"))}
	if c.Database.SlowThreshold > 0 {
		opts = append(opts, sql.WithSlowThreshold(c.Database.SlowThreshold))
	}
	drv, err := sql.Open(c.Database.Driver, c.Database.DSN, opts...)
	if err != nil {
		return nil, err
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		drv.Close()
		return nil, fmt.Errorf("connect %s: %w", c.Database.Driver, err)
	}
	cat := sql.NewCatalog(drv)
	if err := cat.Introspect(ctx, c.Database.Tables...); err != nil {
		drv.Close()
		return nil, err
	}
	s, err := c.generate(cat, log)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return &Project{Driver: drv, Catalog: cat, Schema: s}, nil
}

func (c *Config) generate(cat *sql.Catalog, log *zap.Logger) (*graphql.Schema, error) {
	reg := schema.NewRegistry(schema.WithLogger(log.Named("schema")))
	known := make(map[string]bool)
	for _, m := range cat.Models() {
		known[m.Name()] = true
		d, err := c.describer(m)
		if err != nil {
			return nil, err
		}
		if _, err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	for name := range c.Models {
		if !known[name] {
			return nil, describer.Configf(name, "no table is mapped to this model")
		}
	}
	return schema.Generate(graphql.NewAdapter(
		graphql.WithLogger(log.Named("graphql")),
		graphql.WithConfig(c.GraphQL),
	), reg)
}

// describer returns the describer of m customized by its model section.
func (c *Config) describer(m describer.Model) (schema.Describer, error) {
	d := schema.New(m)
	mc, ok := c.Models[m.Name()]
	if !ok {
		return d, nil
	}
	d.Only, d.Exclude = mc.Only, mc.Exclude
	d.DefaultPageSize, d.MaxPageSize = mc.DefaultPageSize, mc.MaxPageSize
	perms, err := actionPermissions(mc.Permissions)
	if err != nil {
		return d, describer.NewConfigError(m.Name(), "", "invalid permissions", err)
	}
	d.DefaultActionPermissions = perms
	if len(mc.FieldRoles) > 0 {
		d.FieldPermissions = make(map[string]permission.Set, len(mc.FieldRoles))
		for name, roles := range mc.FieldRoles {
			d.FieldPermissions[name] = permission.Set{permission.HasAnyRole(roles...)}
		}
	}
	if mc.Actions != nil {
		enabled := func(name string) bool { return slices.Contains(mc.Actions, name) }
		if !enabled("list") {
			d.List = nil
		}
		if !enabled("detail") {
			d.Detail = nil
		}
		if !enabled("create") {
			d.Create = nil
		}
		if !enabled("update") {
			d.Update = nil
		}
		if !enabled("delete") {
			d.Delete = nil
		}
	}
	return d, nil
}

func actionPermissions(name string) (permission.Set, error) {
	switch name {
	case "", "all":
		return nil, nil
	case "authenticated":
		return permission.Set{permission.IsAuthenticated()}, nil
	case "none":
		return permission.Set{permission.AllowNone}, nil
	default:
		return nil, fmt.Errorf("unknown permissions %q", name)
	}
}
