package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSchemaCmd(a *app) *cobra.Command {
	var write, watch bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the generated GraphQL schema",
		Long: `Print the schema definition language of the generated schema.

With --write the schema is stored at graphql.schema_path instead. With
--watch the schema is regenerated whenever the project file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch && !write {
				return fmt.Errorf("--watch requires --write")
			}
			ctx := cmd.Context()
			if err := a.emitSchema(ctx, write, cmd.OutOrStdout()); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchFile(ctx, a.configPath, a.log, func() {
				if err := a.load(); err != nil {
					a.log.Error("reload config failed", zap.Error(err))
					return
				}
				if err := a.emitSchema(ctx, true, nil); err != nil {
					a.log.Error("regenerate schema failed", zap.Error(err))
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the schema to graphql.schema_path")
	cmd.Flags().BoolVar(&watch, "watch", false, "regenerate the schema when the project file changes")
	return cmd
}

// emitSchema generates the schema and prints it to out, or writes it to
// the configured schema path.
func (a *app) emitSchema(ctx context.Context, write bool, out io.Writer) error {
	p, err := a.cfg.Open(ctx, a.log)
	if err != nil {
		return err
	}
	defer p.Close()
	if !write {
		_, err := io.WriteString(out, p.Schema.SDL())
		return err
	}
	if err := a.cfg.GraphQL.WriteSDL(p.Schema); err != nil {
		return err
	}
	a.log.Info("schema written",
		zap.String("path", a.cfg.GraphQL.SchemaPath),
		zap.Int("models", len(p.Catalog.Models())),
	)
	return nil
}
