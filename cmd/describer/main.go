// Command describer generates a GraphQL API from the tables of a database.
//
// The project file (describer.yaml by default) names the database and
// customizes the describer of each introspected model:
//
//	database:
//	  driver: sqlite
//	  dsn: file:library.db?_pragma=foreign_keys(1)
//	graphql:
//	  default_page_size: 20
//	  schema_path: schema.graphql
//	models:
//	  Book:
//	    exclude: [isbn]
//	    actions: [list, detail]
//
// Print the schema, or keep schema_path up to date while editing:
//
//	describer schema
//	describer schema --write --watch
//
// Run queries:
//
//	describer query '{ bookList(title__icontains: "go") { totalCount } }'
//	describer query --user 1 --role editor @queries/books.graphql
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// app holds the state shared by the commands.
type app struct {
	configPath string
	verbose    bool

	cfg *Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "describer <command>",
		Short:         "Generate a GraphQL API from database tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "describer.yaml", "project file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	cmd.AddCommand(newSchemaCmd(a), newQueryCmd(a))
	return cmd
}

// load reads the project file and builds the logger.
func (a *app) load() error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
