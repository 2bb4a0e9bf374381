// Package field provides the type descriptors exposed at the schema boundary.
//
// A descriptor tags the semantic shape of a value:
//
//	field.String()                  // string scalar
//	field.Int().Optional()          // nullable integer
//	field.Model(authors)            // one Author instance
//	field.QuerySet(books)           // a collection of Book instances
//	field.Composite("Stats",        // a named bag of sub-fields
//	    field.Named{Name: "total", Type: field.Int()},
//	)
//
// Each descriptor converts itself through a [Converter] implemented by an
// adapter, and lists the filter operators it supports:
//
//	field.String().Filters() // exact, iexact, contains, icontains, ...
//	field.Int().Filters()    // exact, gt, gte, lt, lte, in, isnull
//
// The null descriptor marks a model field with no known mapping. It has no
// operators and converting it always fails with a [ConversionError].
//
// # Registry
//
// A [Registry] holds the canonical model-reference descriptor of every
// registered model. Relations between models resolve through it lazily, so
// a model may reference another whose describer is registered later:
//
//	reg := field.NewRegistry()
//	reg.Register(books)
//	t, _ := reg.Instantiate(authors) // fails until authors is registered
//	reg.Seal()                       // later Register calls fail
package field
