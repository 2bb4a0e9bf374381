package field

import (
	"errors"
	"fmt"

	"github.com/karlosss/describer"
)

// Kind tags the semantic shape of a type descriptor.
type Kind uint8

// Type descriptor kinds.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindID
	KindBoolean
	KindModel
	KindQuerySet
	KindComposite
)

var kindNames = [...]string{
	KindNull:      "null",
	KindString:    "string",
	KindInt:       "int",
	KindFloat:     "float",
	KindID:        "id",
	KindBoolean:   "boolean",
	KindModel:     "model",
	KindQuerySet:  "queryset",
	KindComposite: "composite",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Mode tells a converter where the converted type is used.
type Mode uint8

// Conversion modes.
const (
	// Output is a field of an object type.
	Output Mode = iota
	// Input is a top-level mutation argument.
	Input
	// InputField is a field of an input object.
	InputField
	// Listing is a filter argument of a collection.
	Listing
)

var modeNames = [...]string{
	Output:     "output",
	Input:      "input",
	InputField: "input field",
	Listing:    "listing",
}

// String returns the mode name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// IsInput reports whether the mode is an input mode.
func (m Mode) IsInput() bool {
	return m == Input || m == InputField
}

// Options configures a single conversion.
type Options struct {
	Mode Mode
	// Name is the name of the field being converted, if any.
	Name string
}

// Type is a semantic type descriptor exposed at the schema boundary.
type Type interface {
	// Kind returns the descriptor kind.
	Kind() Kind
	// Required reports whether a value must be present.
	Required() bool
	// Filters returns the filter operators the type supports, in order.
	Filters() []string
	// Convert lowers the descriptor through the given converter.
	Convert(c Converter, o Options) (any, error)
}

// Converter is implemented by adapters, one method per convertible kind.
// The null type has no method: converting it always fails.
type Converter interface {
	ConvertString(t *StringType, o Options) (any, error)
	ConvertInt(t *IntType, o Options) (any, error)
	ConvertFloat(t *FloatType, o Options) (any, error)
	ConvertID(t *IDType, o Options) (any, error)
	ConvertBoolean(t *BooleanType, o Options) (any, error)
	ConvertModel(t *ModelType, o Options) (any, error)
	ConvertQuerySet(t *QuerySetType, o Options) (any, error)
	ConvertComposite(t *CompositeType, o Options) (any, error)
}

// ErrConversion is matched by every ConversionError.
var ErrConversion = errors.New("describer/field: type conversion failed")

// ConversionError reports a descriptor that cannot be converted in a mode.
type ConversionError struct {
	Kind    Kind
	Mode    Mode
	Name    string
	Message string
}

// Error returns the error string.
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("describer/field: cannot convert %s type in %s mode", e.Kind, e.Mode)
	if e.Name != "" {
		msg += fmt.Sprintf(" (field %q)", e.Name)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether the target matches ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// NewConversionError returns a ConversionError for t converted with o.
func NewConversionError(t Type, o Options, message string) *ConversionError {
	return &ConversionError{Kind: t.Kind(), Mode: o.Mode, Name: o.Name, Message: message}
}

// IsConversionError returns true if the error is a ConversionError.
func IsConversionError(err error) bool {
	var e *ConversionError
	return errors.As(err, &e)
}

// Filter operator sets.
var (
	stringFilters = []string{
		describer.OpExact, describer.OpIExact,
		describer.OpContains, describer.OpIContains,
		describer.OpIn,
		describer.OpStartsWith, describer.OpIStartsWith,
		describer.OpEndsWith, describer.OpIEndsWith,
		describer.OpRegex, describer.OpIRegex,
		describer.OpIsNull,
	}
	intFilters = []string{
		describer.OpExact,
		describer.OpGT, describer.OpGTE,
		describer.OpLT, describer.OpLTE,
		describer.OpIn,
		describer.OpIsNull,
	}
	floatFilters = []string{
		describer.OpExact,
		describer.OpGT, describer.OpGTE,
		describer.OpLT, describer.OpLTE,
		describer.OpIsNull,
	}
	boolFilters = []string{describer.OpExact, describer.OpIsNull}
)

type base struct {
	optional bool
}

// Required reports whether a value must be present.
func (b base) Required() bool { return !b.optional }

// Filters returns no operators.
func (base) Filters() []string { return nil }

// StringType is a string scalar.
type StringType struct{ base }

// String returns a required string descriptor.
func String() *StringType { return &StringType{} }

// Optional returns a copy of the descriptor that is not required.
func (t *StringType) Optional() *StringType { return &StringType{base{optional: true}} }

// Kind returns KindString.
func (*StringType) Kind() Kind { return KindString }

// Filters returns the string operators.
func (*StringType) Filters() []string { return stringFilters }

// Convert calls c.ConvertString.
func (t *StringType) Convert(c Converter, o Options) (any, error) { return c.ConvertString(t, o) }

// IntType is an integer scalar.
type IntType struct{ base }

// Int returns a required integer descriptor.
func Int() *IntType { return &IntType{} }

// Optional returns a copy of the descriptor that is not required.
func (t *IntType) Optional() *IntType { return &IntType{base{optional: true}} }

// Kind returns KindInt.
func (*IntType) Kind() Kind { return KindInt }

// Filters returns the integer operators.
func (*IntType) Filters() []string { return intFilters }

// Convert calls c.ConvertInt.
func (t *IntType) Convert(c Converter, o Options) (any, error) { return c.ConvertInt(t, o) }

// FloatType is a floating point scalar.
type FloatType struct{ base }

// Float returns a required float descriptor.
func Float() *FloatType { return &FloatType{} }

// Optional returns a copy of the descriptor that is not required.
func (t *FloatType) Optional() *FloatType { return &FloatType{base{optional: true}} }

// Kind returns KindFloat.
func (*FloatType) Kind() Kind { return KindFloat }

// Filters returns the float operators.
func (*FloatType) Filters() []string { return floatFilters }

// Convert calls c.ConvertFloat.
func (t *FloatType) Convert(c Converter, o Options) (any, error) { return c.ConvertFloat(t, o) }

// IDType is an identifier scalar.
type IDType struct{ base }

// ID returns a required identifier descriptor.
func ID() *IDType { return &IDType{} }

// Optional returns a copy of the descriptor that is not required.
func (t *IDType) Optional() *IDType { return &IDType{base{optional: true}} }

// Kind returns KindID.
func (*IDType) Kind() Kind { return KindID }

// Convert calls c.ConvertID.
func (t *IDType) Convert(c Converter, o Options) (any, error) { return c.ConvertID(t, o) }

// BooleanType is a boolean scalar.
type BooleanType struct{ base }

// Boolean returns a required boolean descriptor.
func Boolean() *BooleanType { return &BooleanType{} }

// Optional returns a copy of the descriptor that is not required.
func (t *BooleanType) Optional() *BooleanType { return &BooleanType{base{optional: true}} }

// Kind returns KindBoolean.
func (*BooleanType) Kind() Kind { return KindBoolean }

// Filters returns the boolean operators.
func (*BooleanType) Filters() []string { return boolFilters }

// Convert calls c.ConvertBoolean.
func (t *BooleanType) Convert(c Converter, o Options) (any, error) { return c.ConvertBoolean(t, o) }

// ModelType is a reference to a single instance of a model.
type ModelType struct {
	base
	model describer.Model
}

// Model returns a required reference to m. Describers registered with a
// Registry share the canonical descriptor returned by Registry.Lookup.
func Model(m describer.Model) *ModelType { return &ModelType{model: m} }

// Optional returns a copy of the descriptor that is not required.
func (t *ModelType) Optional() *ModelType {
	return &ModelType{base: base{optional: true}, model: t.model}
}

// Kind returns KindModel.
func (*ModelType) Kind() Kind { return KindModel }

// Model returns the referenced model.
func (t *ModelType) Model() describer.Model { return t.model }

// Convert calls c.ConvertModel.
func (t *ModelType) Convert(c Converter, o Options) (any, error) { return c.ConvertModel(t, o) }

// QuerySetType is a collection of instances of a model.
type QuerySetType struct {
	base
	model describer.Model
}

// QuerySet returns a required collection of m.
func QuerySet(m describer.Model) *QuerySetType { return &QuerySetType{model: m} }

// Optional returns a copy of the descriptor that is not required.
func (t *QuerySetType) Optional() *QuerySetType {
	return &QuerySetType{base: base{optional: true}, model: t.model}
}

// Kind returns KindQuerySet.
func (*QuerySetType) Kind() Kind { return KindQuerySet }

// Model returns the element model.
func (t *QuerySetType) Model() describer.Model { return t.model }

// Convert calls c.ConvertQuerySet.
func (t *QuerySetType) Convert(c Converter, o Options) (any, error) { return c.ConvertQuerySet(t, o) }

// Named pairs a field name with its descriptor.
type Named struct {
	Name string
	Type Type
}

// CompositeType is a named bag of sub-fields with no backing model.
type CompositeType struct {
	base
	name   string
	fields []Named
}

// Composite returns a required composite descriptor.
func Composite(name string, fields ...Named) *CompositeType {
	return &CompositeType{name: name, fields: fields}
}

// Optional returns a copy of the descriptor that is not required.
func (t *CompositeType) Optional() *CompositeType {
	return &CompositeType{base: base{optional: true}, name: t.name, fields: t.fields}
}

// Kind returns KindComposite.
func (*CompositeType) Kind() Kind { return KindComposite }

// Name returns the composite name.
func (t *CompositeType) Name() string { return t.name }

// Fields returns the sub-fields in declaration order.
func (t *CompositeType) Fields() []Named { return t.fields }

// Convert calls c.ConvertComposite.
func (t *CompositeType) Convert(c Converter, o Options) (any, error) { return c.ConvertComposite(t, o) }

// NullType stands for a model field with no known mapping.
type NullType struct {
	base
	source describer.Kind
}

// Null returns the null descriptor.
func Null() *NullType { return &NullType{base: base{optional: true}} }

// Kind returns KindNull.
func (*NullType) Kind() Kind { return KindNull }

// Convert always fails.
func (t *NullType) Convert(_ Converter, o Options) (any, error) {
	msg := "type has no mapping"
	if t.source != describer.KindUnknown {
		msg = fmt.Sprintf("model field kind %s has no mapping", t.source)
	}
	return nil, NewConversionError(t, o, msg)
}
