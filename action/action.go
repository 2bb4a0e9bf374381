package action

import (
	"context"
	"fmt"
	"slices"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema/field"
)

// Kind is the variant of an action.
type Kind uint8

// Action kinds.
const (
	KindList Kind = iota
	KindDetail
	KindCreate
	KindUpdate
	KindDelete
	KindCustom
	KindCustomObject
)

var kindNames = [...]string{
	KindList:         "list",
	KindDetail:       "detail",
	KindCreate:       "create",
	KindUpdate:       "update",
	KindDelete:       "delete",
	KindCustom:       "custom",
	KindCustomObject: "custom_object",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ReadOnly reports whether actions of this kind are queries.
func (k Kind) ReadOnly() bool {
	return k == KindList || k == KindDetail
}

// Reserved names of the standard actions.
const (
	NameList   = "list"
	NameDetail = "detail"
	NameCreate = "create"
	NameUpdate = "update"
	NameDelete = "delete"
)

var reserved = []string{NameCreate, NameUpdate, NameDelete, NameList, NameDetail}

// IsReserved reports whether name belongs to a standard action.
func IsReserved(name string) bool {
	return slices.Contains(reserved, name)
}

// ObjectField is the name of the default return field of model actions.
const ObjectField = "object"

// Result maps return field names to values.
type Result map[string]any

type (
	// ExecFunc performs the side effect of a mutation. obj is the fetched
	// target, nil for create and custom actions.
	ExecFunc func(ctx context.Context, obj describer.Instance, data describer.Data) (Result, error)

	// FetchFunc fetches the target of a detail or mutation by identifier.
	FetchFunc func(ctx context.Context, id any) (describer.Instance, error)

	// ListFunc returns the unfiltered collection of a listing.
	ListFunc func(ctx context.Context) (describer.QuerySet, error)
)

// Action is an immutable action configuration. The set of variants is
// closed: List, Detail, Create, Update, Delete, Custom, CustomObject and
// the bound form *Bound.
type Action interface {
	Kind() Kind
	action()
}

// List exposes a filtered, paginated collection of the model.
type List struct {
	Permissions permission.Set
	// Fetch returns the collection to filter. Defaults to Model.Query.
	Fetch ListFunc
}

// Detail exposes a single instance by identifier.
type Detail struct {
	Permissions permission.Set
	// Fetch defaults to Model.Get.
	Fetch FetchFunc
	// NoID drops the id argument; Fetch is then called with a nil
	// identifier, e.g. to return the instance of the current viewer.
	NoID bool
}

// Create constructs and saves a new instance.
type Create struct {
	Permissions permission.Set
	// Only and Exclude select the input fields among the local fields.
	// When both are nil the describer's fields are used.
	Only, Exclude []string
	ExtraFields   []field.Named
	// Required overrides whether an input field is required.
	Required map[string]bool
	Exec     ExecFunc
	Returns  []field.Named
}

// Update modifies an existing instance.
type Update struct {
	Permissions   permission.Set
	Only, Exclude []string
	ExtraFields   []field.Named
	Required      map[string]bool
	Exec          ExecFunc
	Returns       []field.Named
	Fetch         FetchFunc
}

// Delete removes an existing instance.
type Delete struct {
	Permissions permission.Set
	ExtraFields []field.Named
	Exec        ExecFunc
	Returns     []field.Named
	Fetch       FetchFunc
}

// Custom is a mutation with a user-supplied input type, execution function
// and return shape. It needs no model and may be registered globally.
type Custom struct {
	Permissions permission.Set
	// Input is the input type. A nil Input takes no arguments.
	Input   *field.CompositeType
	Exec    ExecFunc
	Returns []field.Named
}

// CustomObject is a mutation on a fetched instance with a user-supplied
// execution function and return shape. Its input holds the identifier and
// the extra fields.
type CustomObject struct {
	Permissions permission.Set
	ExtraFields []field.Named
	Exec        ExecFunc
	Returns     []field.Named
	Fetch       FetchFunc
}

// Kind returns KindList.
func (*List) Kind() Kind { return KindList }

// Kind returns KindDetail.
func (*Detail) Kind() Kind { return KindDetail }

// Kind returns KindCreate.
func (*Create) Kind() Kind { return KindCreate }

// Kind returns KindUpdate.
func (*Update) Kind() Kind { return KindUpdate }

// Kind returns KindDelete.
func (*Delete) Kind() Kind { return KindDelete }

// Kind returns KindCustom.
func (*Custom) Kind() Kind { return KindCustom }

// Kind returns KindCustomObject.
func (*CustomObject) Kind() Kind { return KindCustomObject }

func (*List) action()         {}
func (*Detail) action()       {}
func (*Create) action()       {}
func (*Update) action()       {}
func (*Delete) action()       {}
func (*Custom) action()       {}
func (*CustomObject) action() {}

// Converter is implemented by adapters, one method per action kind.
type Converter interface {
	ConvertList(b *Bound) (any, error)
	ConvertDetail(b *Bound) (any, error)
	ConvertCreate(b *Bound) (any, error)
	ConvertUpdate(b *Bound) (any, error)
	ConvertDelete(b *Bound) (any, error)
	ConvertCustom(b *Bound) (any, error)
	ConvertCustomObject(b *Bound) (any, error)
}

// Owner is the describer an action is bound to.
type Owner interface {
	// Model returns the described model.
	Model() describer.Model
	// ModelType returns the model's registered descriptor.
	ModelType() *field.ModelType
	// Fields returns the exposed output fields.
	Fields() []string
	// LocalFields returns the exposed local fields.
	LocalFields() []string
	// DefaultActionPermissions returns the describer's default action permissions.
	DefaultActionPermissions() permission.Set
}
