package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	gqlgo "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/contrib/dataloader"
	"github.com/karlosss/describer/permission"
)

// Error codes set in the "code" extension of response errors.
const (
	CodeForbidden = "FORBIDDEN"
	CodeNotFound  = "NOT_FOUND"
	CodeBadInput  = "BAD_USER_INPUT"
	CodeInternal  = "INTERNAL_SERVER_ERROR"
)

// Exec parses, validates and executes req. Field errors are reported in
// the response next to the partial data; a request that fails validation
// has no data. Every call gets its own instance loaders.
func (s *Schema) Exec(ctx context.Context, req Request) *graphql.Response {
	start := time.Now()
	log := s.log.With(zap.String("request_id", uuid.NewString()))
	ctx = dataloader.WithLoaders(ctx, newLoaders())
	ctx = withRequestLogger(ctx, log)

	res := gqlgo.Do(gqlgo.Params{
		Schema:         s.engine,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	resp := &graphql.Response{Errors: responseErrors(res.Errors)}
	if !isNull(res.Data) {
		b, err := json.Marshal(res.Data)
		if err != nil {
			log.Error("graphql response encoding failed", zap.Error(err))
			return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("encode response: %v", err)}}
		}
		resp.Data = b
	}
	log.Debug("graphql request executed",
		zap.String("operation", req.OperationName),
		zap.Int("errors", len(resp.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp
}

// responseErrors converts graphql-go errors to a gqlerror list.
func responseErrors(errs []gqlerrors.FormattedError) gqlerror.List {
	if len(errs) == 0 {
		return nil
	}
	out := make(gqlerror.List, 0, len(errs))
	for _, e := range errs {
		gerr := &gqlerror.Error{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			gerr.Locations = append(gerr.Locations, gqlerror.Location{Line: loc.Line, Column: loc.Column})
		}
		for _, el := range e.Path {
			switch el := el.(type) {
			case string:
				gerr.Path = append(gerr.Path, ast.PathName(el))
			case int:
				gerr.Path = append(gerr.Path, ast.PathIndex(el))
			}
		}
		out = append(out, gerr)
	}
	return out
}

func errorCode(err error) string {
	switch {
	case permission.IsDenied(err):
		return CodeForbidden
	case describer.IsNotFound(err):
		return CodeNotFound
	case describer.IsInputError(err):
		return CodeBadInput
	default:
		return CodeInternal
	}
}

func errorMessage(err error) string {
	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return denied.Message
	}
	return err.Error()
}
