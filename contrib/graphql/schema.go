package graphql

import (
	"slices"

	gqlgo "github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/karlosss/describer/action"
)

// Operation describes a root field of the schema.
type Operation struct {
	// Name is the root field name, e.g. "bookList".
	Name string
	// Action is the qualified action name, e.g. "Book_list".
	Action string
	Kind   action.Kind
	// Mutation is set for fields of the Mutation type.
	Mutation bool
}

// Schema is a generated, executable GraphQL schema. It is immutable and
// safe for concurrent use.
type Schema struct {
	schema *ast.Schema
	engine gqlgo.Schema
	sdl    string
	ops    []Operation
	log    *zap.Logger
}

// SDL returns the schema definition language document.
func (s *Schema) SDL() string { return s.sdl }

// AST returns the validated schema.
func (s *Schema) AST() *ast.Schema { return s.schema }

// Operations returns the root fields in generation order.
func (s *Schema) Operations() []Operation { return slices.Clone(s.ops) }

// Operation returns the root field with the given name.
func (s *Schema) Operation(name string) (Operation, bool) {
	for _, op := range s.ops {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Request is a GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}
