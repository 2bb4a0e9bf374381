// Package graphql generates an executable GraphQL schema from registered
// describers.
//
// The Adapter implements schema.Adapter. It converts every model into an
// object type and a page type, and every action into a root field:
//
//	type BookType {
//	  id: Int
//	  title: String
//	  author: AuthorType
//	}
//
//	type BookListType {
//	  totalCount: Int!
//	  results: [BookType!]!
//	}
//
//	type Query {
//	  bookList(title__contains: String, author_id__exact: Int, limit: Int = 20, offset: Int = 0, ordering: String): BookListType
//	  bookDetail(id: ID!): BookType
//	}
//
//	type Mutation {
//	  bookCreate(data: BookCreateInput!): BookCreatePayload
//	}
//
// # Usage
//
//	reg := schema.NewRegistry()
//	reg.MustRegister(schema.New(books))
//
//	s, err := schema.Generate(graphql.NewAdapter(), reg)
//	if err != nil {
//	    log.Fatalf("generating schema: %v", err)
//	}
//	resp := s.Exec(ctx, graphql.Request{Query: `{ bookList { totalCount } }`})
//
// # Execution
//
// The generated document is validated with gqlparser, which also renders
// the SDL, and lowered to a github.com/graphql-go/graphql schema that
// Schema.Exec runs with graphql.Do. Introspection queries are answered by
// that engine. Foreign keys are loaded in batches per request. Errors
// carry a "code" extension: FORBIDDEN for permission denials, NOT_FOUND
// for missing instances, BAD_USER_INPUT for invalid arguments and
// INTERNAL_SERVER_ERROR otherwise.
//
// # Configuration
//
// Page sizes and the schema output path can be loaded from YAML:
//
//	default_page_size: 20
//	max_page_size: 100
//	schema_path: ./graphql/schema.graphql
//	descriptions: true
package graphql
