package graphql

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	gqlgo "github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

// scalars maps the built-in scalar names to the graphql-go scalars.
var scalars = map[string]*gqlgo.Scalar{
	scalarString:  gqlgo.String,
	scalarInt:     gqlgo.Int,
	scalarFloat:   gqlgo.Float,
	scalarID:      gqlgo.ID,
	scalarBoolean: gqlgo.Boolean,
}

// lowering turns a validated schema document and its resolver table into
// an executable graphql-go schema. Object and input types are created
// first and their fields are filled lazily, so types may reference each
// other in any order.
type lowering struct {
	resolvers map[string]map[string]resolver
	objects   map[string]*gqlgo.Object
	inputs    map[string]*gqlgo.InputObject
}

func lower(doc *ast.Schema, resolvers map[string]map[string]resolver) (gqlgo.Schema, error) {
	l := &lowering{
		resolvers: resolvers,
		objects:   make(map[string]*gqlgo.Object),
		inputs:    make(map[string]*gqlgo.InputObject),
	}
	for name, def := range doc.Types {
		if def.BuiltIn {
			continue
		}
		switch def.Kind {
		case ast.Object:
			l.objects[name] = l.object(def)
		case ast.InputObject:
			l.inputs[name] = l.inputObject(def)
		}
	}
	cfg := gqlgo.SchemaConfig{Query: l.objects[doc.Query.Name]}
	if doc.Mutation != nil {
		cfg.Mutation = l.objects[doc.Mutation.Name]
	}
	return gqlgo.NewSchema(cfg)
}

func (l *lowering) object(def *ast.Definition) *gqlgo.Object {
	return gqlgo.NewObject(gqlgo.ObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: gqlgo.FieldsThunk(func() gqlgo.Fields {
			fields := make(gqlgo.Fields, len(def.Fields))
			for _, fd := range def.Fields {
				if strings.HasPrefix(fd.Name, "__") {
					continue
				}
				fields[fd.Name] = &gqlgo.Field{
					Name:        fd.Name,
					Description: fd.Description,
					Type:        l.output(fd.Type),
					Args:        l.arguments(fd.Arguments),
					Resolve:     l.resolve(def.Name, fd),
				}
			}
			return fields
		}),
	})
}

func (l *lowering) inputObject(def *ast.Definition) *gqlgo.InputObject {
	return gqlgo.NewInputObject(gqlgo.InputObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: gqlgo.InputObjectConfigFieldMapThunk(func() gqlgo.InputObjectConfigFieldMap {
			fields := make(gqlgo.InputObjectConfigFieldMap, len(def.Fields))
			for _, fd := range def.Fields {
				fields[fd.Name] = &gqlgo.InputObjectFieldConfig{
					Type:        l.input(fd.Type),
					Description: fd.Description,
				}
			}
			return fields
		}),
	})
}

func (l *lowering) arguments(defs ast.ArgumentDefinitionList) gqlgo.FieldConfigArgument {
	if len(defs) == 0 {
		return nil
	}
	args := make(gqlgo.FieldConfigArgument, len(defs))
	for _, d := range defs {
		arg := &gqlgo.ArgumentConfig{Type: l.input(d.Type), Description: d.Description}
		if d.DefaultValue != nil {
			if v, err := d.DefaultValue.Value(nil); err == nil {
				if n, ok := v.(int64); ok {
					v = int(n)
				}
				arg.DefaultValue = v
			}
		}
		args[d.Name] = arg
	}
	return args
}

func (l *lowering) output(t *ast.Type) gqlgo.Output {
	var out gqlgo.Output
	switch {
	case t.Elem != nil:
		out = gqlgo.NewList(l.output(t.Elem))
	case scalars[t.NamedType] != nil:
		out = scalars[t.NamedType]
	default:
		out = l.objects[t.NamedType]
	}
	if t.NonNull {
		return gqlgo.NewNonNull(out)
	}
	return out
}

func (l *lowering) input(t *ast.Type) gqlgo.Input {
	var in gqlgo.Input
	switch {
	case t.Elem != nil:
		in = gqlgo.NewList(l.input(t.Elem))
	case scalars[t.NamedType] != nil:
		in = scalars[t.NamedType]
	default:
		in = l.inputs[t.NamedType]
	}
	if t.NonNull {
		return gqlgo.NewNonNull(in)
	}
	return in
}

// resolve adapts the resolver of typ.fd to graphql-go. Arguments are
// normalized to int64, float64, string, bool, []any and map[string]any.
// A resolver may return a func() (any, error), which the executor calls
// after resolving the sibling values; related instances are batched that
// way.
func (l *lowering) resolve(typ string, fd *ast.FieldDefinition) gqlgo.FieldResolveFn {
	r := l.resolvers[typ][fd.Name]
	if r == nil {
		return func(gqlgo.ResolveParams) (any, error) {
			return nil, fmt.Errorf("graphql: no resolver for %s.%s", typ, fd.Name)
		}
	}
	scalar := ""
	if fd.Type.Elem == nil && scalars[fd.Type.NamedType] != nil {
		scalar = fd.Type.NamedType
	}
	return func(p gqlgo.ResolveParams) (any, error) {
		args, _ := normalize(p.Args).(map[string]any)
		v, err := r(p.Context, p.Source, args)
		if thunk, ok := v.(func() (any, error)); ok && err == nil {
			return func() (any, error) {
				v, err := thunk()
				return finish(p, scalar, v, err)
			}, nil
		}
		return finish(p, scalar, v, err)
	}
}

// finish converts a resolved scalar to its response value and attaches
// the error code to a failure.
func finish(p gqlgo.ResolveParams, scalar string, v any, err error) (any, error) {
	if err == nil && scalar != "" && !isNull(v) {
		v, err = coerceScalar(scalar, v)
	}
	if err != nil {
		return nil, fail(p, err)
	}
	if isNull(v) {
		return nil, nil
	}
	return v, nil
}

// fieldError is a resolver error reported with a code extension.
type fieldError struct {
	err  error
	code string
}

func (e *fieldError) Error() string { return errorMessage(e.err) }

func (e *fieldError) Unwrap() error { return e.err }

// Extensions implements gqlerrors.ExtendedError.
func (e *fieldError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

// fail classifies err. Unexpected errors are logged.
func fail(p gqlgo.ResolveParams, err error) error {
	code := errorCode(err)
	if code == CodeInternal {
		var path []any
		if p.Info.Path != nil {
			path = p.Info.Path.AsArray()
		}
		requestLogger(p.Context).Error("graphql field failed",
			zap.Any("path", path),
			zap.Error(err),
		)
	}
	return &fieldError{err: err, code: code}
}

type loggerKey struct{}

func withRequestLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

func requestLogger(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// normalize widens integer arguments to int64.
func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}

// isNull reports whether v is nil or a nil pointer, map or interface.
// Nil slices are empty lists.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}
