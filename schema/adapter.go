package schema

import (
	"go.uber.org/zap"

	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/schema/field"
)

// Adapter lowers the registered describers into a target schema S. It
// converts every type descriptor and every bound action, then assembles
// the results.
type Adapter[S any] interface {
	field.Converter
	action.Converter
	// Generate assembles the schema of a sealed registry.
	Generate(r *Registry) (S, error)
}

// Generate seals r and builds its schema with a. Describers registered
// afterwards are rejected.
func Generate[S any](a Adapter[S], r *Registry) (S, error) {
	r.Seal()
	r.log.Debug("generating schema",
		zap.Int("describers", len(r.Handles())),
		zap.Int("actions", len(r.Actions())),
	)
	return a.Generate(r)
}
