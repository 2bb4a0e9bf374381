package permission

import (
	"context"
	"errors"
	"strings"

	"github.com/karlosss/describer"
)

// DefaultMessage is the denial message of permissions that do not set one.
const DefaultMessage = "You don't have permission to do this."

// ErrDenied is matched by every DeniedError.
var ErrDenied = errors.New("describer/permission: permission denied")

// DeniedError carries the user-visible denial message of a failed check.
type DeniedError struct {
	Message string
}

// Error returns the denial message.
func (e *DeniedError) Error() string {
	return e.Message
}

// Is reports whether the target matches ErrDenied.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// IsDenied returns true if the error is a permission denial.
func IsDenied(err error) bool {
	if err == nil {
		return false
	}
	var e *DeniedError
	return errors.As(err, &e) || errors.Is(err, ErrDenied)
}

// Check is the per-invocation input of a permission.
type Check struct {
	Ctx context.Context
	// Obj is the target instance, if any.
	Obj describer.Instance
	// Data is the proposed input. It is never nil.
	Data describer.Data
	// Result is the collection a listing is about to return, if any.
	// Permissions may narrow it by assigning a filtered set.
	Result describer.QuerySet
}

// NewCheck returns a Check with Data normalized to an empty mapping.
func NewCheck(ctx context.Context, obj describer.Instance, data describer.Data, result describer.QuerySet) *Check {
	if data == nil {
		data = describer.Data{}
	}
	return &Check{Ctx: ctx, Obj: obj, Data: data, Result: result}
}

// Viewer returns the viewer of the checked request, or nil.
func (c *Check) Viewer() Viewer {
	if c.Ctx == nil {
		return nil
	}
	return ViewerFromContext(c.Ctx)
}

func (c *Check) clone() *Check {
	cp := *c
	return &cp
}

// Permission decides whether a request may proceed.
type Permission interface {
	// Allow reports whether the request described by c may proceed.
	Allow(c *Check) bool
	// Message returns the user-visible denial message.
	Message(c *Check) string
}

// Set is a conjunction: it allows iff every element allows.
// The empty set allows everything.
type Set []Permission

// Allow reports whether every element allows c.
func (s Set) Allow(c *Check) bool {
	if c.bypassed() {
		return true
	}
	for _, p := range s {
		if !p.Allow(c) {
			return false
		}
	}
	return true
}

// Message returns the message of the first denying element.
func (s Set) Message(c *Check) string {
	if c.bypassed() {
		return DefaultMessage
	}
	for _, p := range s {
		if !p.Allow(c.clone()) {
			return p.Message(c)
		}
	}
	return DefaultMessage
}

// Evaluate returns nil if every element allows c, and a *DeniedError with
// the first denial message otherwise. Elements run in order and may narrow
// c.Result before a later element denies.
func (s Set) Evaluate(c *Check) error {
	if c.bypassed() {
		return nil
	}
	for _, p := range s {
		if !p.Allow(c) {
			return &DeniedError{Message: p.Message(c)}
		}
	}
	return nil
}

// Or returns a permission that allows iff one of ps allows. Its denial
// message joins the messages of ps with " OR ". The Result narrowed by the
// first allowing permission is kept.
func Or(ps ...Permission) Permission {
	return or(ps)
}

type or []Permission

func (o or) Allow(c *Check) bool {
	for _, p := range o {
		cp := c.clone()
		if p.Allow(cp) {
			c.Result = cp.Result
			return true
		}
	}
	return false
}

func (o or) Message(c *Check) string {
	msgs := make([]string, 0, len(o))
	for _, p := range o {
		msgs = append(msgs, p.Message(c))
	}
	return strings.Join(msgs, " OR ")
}

// Func type is an adapter which allows the use of ordinary functions as
// permissions denying with DefaultMessage.
type Func func(*Check) bool

// Allow returns f(c).
func (f Func) Allow(c *Check) bool {
	return f(c)
}

// Message returns DefaultMessage.
func (Func) Message(*Check) string {
	return DefaultMessage
}

// New returns a permission from fn denying with message.
func New(message string, fn func(*Check) bool) Permission {
	return messageFunc{msg: message, fn: fn}
}

type messageFunc struct {
	msg string
	fn  func(*Check) bool
}

func (m messageFunc) Allow(c *Check) bool   { return m.fn(c) }
func (m messageFunc) Message(*Check) string { return m.msg }

// AllowAll allows every request.
var AllowAll Permission = fixed(true)

// AllowNone denies every request.
var AllowNone Permission = fixed(false)

type fixed bool

func (f fixed) Allow(*Check) bool     { return bool(f) }
func (fixed) Message(*Check) string { return DefaultMessage }

// Narrow returns a permission that restricts the listing result to the
// instances matching the lookups returned by fn, and then allows.
// Checks without a result are allowed unchanged.
func Narrow(fn func(*Check) []describer.Lookup) Permission {
	return Func(func(c *Check) bool {
		if c.Result != nil {
			if lookups := fn(c); len(lookups) > 0 {
				c.Result = c.Result.Filter(lookups...)
			}
		}
		return true
	})
}

type bypassCtxKey struct{}

// BypassContext returns a context under which every Set allows: Allow
// and Evaluate succeed and Message has no denial to report. Individual
// permissions outside a Set are unaffected. It is meant for trusted
// system callers such as migrations and tooling.
func BypassContext(parent context.Context) context.Context {
	return context.WithValue(parent, bypassCtxKey{}, true)
}

func (c *Check) bypassed() bool {
	if c.Ctx == nil {
		return false
	}
	v, _ := c.Ctx.Value(bypassCtxKey{}).(bool)
	return v
}
