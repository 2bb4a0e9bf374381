package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karlosss/describer/contrib/graphql"
	"github.com/karlosss/describer/permission"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		operation, variables, format, user string
		roles                              []string
		parallel                           int
	)
	cmd := &cobra.Command{
		Use:   "query [DOCUMENT | @FILE | -]...",
		Short: "Execute GraphQL documents against the database",
		Long: `Execute GraphQL documents and print one response per document.

A document is given inline, as @FILE, or read from stdin with "-" or no
argument. Documents run concurrently and share the variables. The command
fails if a response carries errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			encode, err := encoder(format)
			if err != nil {
				return err
			}
			docs, err := readDocuments(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if user != "" {
				ctx = permission.WithViewer(ctx, &permission.SimpleViewer{UserID: user, Roles: roles})
			}
			p, err := a.cfg.Open(ctx, a.log)
			if err != nil {
				return err
			}
			defer p.Close()

			resps := make([]*gqlgen.Response, len(docs))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for i, doc := range docs {
				g.Go(func() error {
					resps[i] = p.Schema.Exec(gctx, graphql.Request{Query: doc, OperationName: operation, Variables: vars})
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			failed := 0
			for _, resp := range resps {
				if len(resp.Errors) > 0 {
					failed++
				}
				if err := encode(cmd.OutOrStdout(), resp); err != nil {
					return fmt.Errorf("encode response: %w", err)
				}
			}
			a.log.Debug("documents executed", zap.Int("documents", len(docs)), zap.Stringer("stats", p.Driver.Stats()))
			if failed > 0 {
				return fmt.Errorf("%d of %d responses have errors", failed, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "operation to execute in each document")
	cmd.Flags().StringVar(&variables, "variables", "", "variables as a JSON object")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or msgpack")
	cmd.Flags().StringVar(&user, "user", "", "run as the viewer with this id")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles of the viewer")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "documents executed at once")
	return cmd
}

// readDocuments resolves the document arguments.
func readDocuments(args []string, stdin io.Reader) ([]string, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	docs := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "-":
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			docs = append(docs, string(b))
		case strings.HasPrefix(arg, "@"):
			b, err := os.ReadFile(arg[1:])
			if err != nil {
				return nil, fmt.Errorf("read document: %w", err)
			}
			docs = append(docs, string(b))
		default:
			docs = append(docs, arg)
		}
	}
	for i, doc := range docs {
		if strings.TrimSpace(doc) == "" {
			return nil, fmt.Errorf("document %d is empty", i+1)
		}
	}
	return docs, nil
}

func parseVariables(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(s), &vars); err != nil {
		return nil, fmt.Errorf("parse variables: %w", err)
	}
	return vars, nil
}

type encodeFunc func(io.Writer, *gqlgen.Response) error

func encoder(format string) (encodeFunc, error) {
	switch format {
	case "json":
		return encodeJSON, nil
	case "msgpack":
		return encodeMsgpack, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func encodeJSON(w io.Writer, resp *gqlgen.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// msgpackResponse is the response envelope with decoded data.
type msgpackResponse struct {
	Data   any           `json:"data"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

func encodeMsgpack(w io.Writer, resp *gqlgen.Response) error {
	var data any
	if len(resp.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(resp.Data))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return err
		}
	}
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	return enc.Encode(msgpackResponse{Data: numbers(data), Errors: resp.Errors})
}

// numbers replaces JSON numbers with integers where they are integral.
func numbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = numbers(e)
		}
	case []any:
		for i, e := range v {
			v[i] = numbers(e)
		}
	}
	return v
}
