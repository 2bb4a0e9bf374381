package graphql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/contrib/dataloader"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema"
)

// resolver computes the value of a field of src. Root fields get a nil src.
type resolver func(ctx context.Context, src any, args map[string]any) (any, error)

// lookup reads a named value from an instance or a result mapping.
func lookup(src any, name string) any {
	switch s := src.(type) {
	case describer.Instance:
		v, _ := s.Get(name)
		return v
	case action.Result:
		return s[name]
	case describer.Data:
		return s[name]
	case map[string]any:
		return s[name]
	}
	return nil
}

func valueResolver(name string) resolver {
	return func(_ context.Context, src any, _ map[string]any) (any, error) {
		return lookup(src, name), nil
	}
}

func instanceResolver(fn func(context.Context, describer.Instance) (any, error)) resolver {
	return func(ctx context.Context, src any, _ map[string]any) (any, error) {
		obj, _ := src.(describer.Instance)
		return fn(ctx, obj)
	}
}

// gate wraps r with a field permission check on the instance.
func gate(perms permission.Set, r resolver) resolver {
	if len(perms) == 0 {
		return r
	}
	return func(ctx context.Context, src any, args map[string]any) (any, error) {
		obj, _ := src.(describer.Instance)
		if err := perms.Evaluate(permission.NewCheck(ctx, obj, nil, nil)); err != nil {
			return nil, err
		}
		return r(ctx, src, args)
	}
}

// relatedResolver loads the target of a foreign key through the request
// loader of m. The key is enqueued at once and the value is read by a
// thunk, so the targets of a whole list are fetched in one batch.
func relatedResolver(name string, m describer.Model) resolver {
	return func(ctx context.Context, src any, _ map[string]any) (any, error) {
		v := lookup(src, name)
		switch v := v.(type) {
		case nil:
			return nil, nil
		case describer.Instance:
			return v, nil
		}
		load := loaderFor(ctx, m).Thunk(ctx, key(v))
		return func() (any, error) {
			obj, err := load()
			if errors.Is(err, dataloader.ErrNotFound) {
				return nil, describer.NewNotFoundError(m.Name(), v)
			}
			if err != nil {
				return nil, err
			}
			return obj, nil
		}, nil
	}
}

// page is the value of a <Model>ListType.
type page struct {
	total int
	items []describer.Instance
}

func totalCountResolver(ctx context.Context, src any, _ map[string]any) (any, error) {
	switch s := src.(type) {
	case *page:
		return s.total, nil
	case describer.QuerySet:
		return s.Count(ctx)
	}
	return nil, fmt.Errorf("graphql: %T is not a page", src)
}

func resultsResolver(ctx context.Context, src any, _ map[string]any) (any, error) {
	switch s := src.(type) {
	case *page:
		return s.items, nil
	case describer.QuerySet:
		return s.All(ctx)
	}
	return nil, fmt.Errorf("graphql: %T is not a page", src)
}

// listing filters, authorizes and paginates collections of a model.
type listing struct {
	handle   *schema.Handle
	perms    permission.Set
	def, max int
}

// run applies the filter arguments to qs, evaluates the permissions on the
// filtered set, then orders and slices the set they return. The total
// count and the page are fetched concurrently.
func (l *listing) run(ctx context.Context, qs describer.QuerySet, args map[string]any) (*page, error) {
	lookups := l.lookups(args)
	if len(lookups) > 0 {
		qs = qs.Filter(lookups...)
	}
	check := permission.NewCheck(ctx, nil, nil, qs)
	if err := l.perms.Evaluate(check); err != nil {
		return nil, err
	}
	if check.Result != nil {
		qs = check.Result
	}
	if o, ok := args[argOrdering].(string); ok && o != "" {
		qs = qs.OrderBy(ordering(o)...)
	}
	limit, offset, err := l.window(args)
	if err != nil {
		return nil, err
	}

	var p page
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := qs.Count(gctx)
		p.total = n
		return err
	})
	g.Go(func() error {
		items, err := qs.Slice(offset, limit).All(gctx)
		p.items = items
		return err
	})
	if err := g.Wait(); err != nil {
		if describer.IsInputError(err) || describer.IsQueryError(err) {
			return nil, err
		}
		return nil, describer.NewQueryError(l.handle.Name(), "list", err)
	}
	dataloader.PrimeMany[string, describer.Instance](loaderFor(ctx, l.handle.Model()), p.items, instanceKey)
	return &p, nil
}

// lookups converts the filter arguments, in name order, into lookups.
func (l *listing) lookups(args map[string]any) []describer.Lookup {
	extra := make(map[string]schema.ExtraFilter)
	for _, ef := range l.handle.ExtraFilters() {
		extra[ef.Name] = ef
	}
	names := make([]string, 0, len(args))
	for name, v := range args {
		switch name {
		case argLimit, argOffset, argOrdering:
			continue
		}
		if v != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var lookups []describer.Lookup
	for _, name := range names {
		if ef, ok := extra[name]; ok && ef.Lookups != nil {
			lookups = append(lookups, ef.Lookups(args[name])...)
			continue
		}
		lookups = append(lookups, describer.ParseLookup(name, args[name]))
	}
	return lookups
}

func (l *listing) window(args map[string]any) (limit, offset int, err error) {
	limit = l.def
	if v, ok := args[argLimit].(int64); ok {
		limit = int(v)
	}
	if limit <= 0 {
		return 0, 0, describer.NewInputError(argLimit, "must be positive, got %d", limit)
	}
	limit = min(limit, l.max)
	if v, ok := args[argOffset].(int64); ok {
		offset = int(v)
	}
	if offset < 0 {
		return 0, 0, describer.NewInputError(argOffset, "must not be negative, got %d", offset)
	}
	return limit, offset, nil
}

// ordering splits a comma separated ordering argument.
func ordering(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func listResolver(b *action.Bound, l *listing) resolver {
	return func(ctx context.Context, _ any, args map[string]any) (any, error) {
		qs, err := b.List()(ctx)
		if err != nil {
			return nil, err
		}
		return l.run(ctx, qs, args)
	}
}

func detailResolver(b *action.Bound) resolver {
	return func(ctx context.Context, _ any, args map[string]any) (any, error) {
		obj, err := b.Fetch()(ctx, args[idArg])
		if err != nil {
			return nil, err
		}
		if err := b.Permissions().Evaluate(permission.NewCheck(ctx, obj, nil, nil)); err != nil {
			return nil, err
		}
		return obj, nil
	}
}

// mutationResolver fetches the target when the input carries an
// identifier, checks the permissions with the target and the input, then
// executes the action.
func mutationResolver(b *action.Bound) resolver {
	return func(ctx context.Context, _ any, args map[string]any) (any, error) {
		data := describer.Data{}
		if in, ok := args[dataArg].(map[string]any); ok {
			for k, v := range in {
				data[k] = v
			}
		}
		var obj describer.Instance
		if b.HasModel() && b.Fetch() != nil && data.Get(describer.IDField) != nil {
			target, err := b.Fetch()(ctx, data.Get(describer.IDField))
			if err != nil {
				return nil, err
			}
			obj = target
		}
		if err := b.Permissions().Evaluate(permission.NewCheck(ctx, obj, data, nil)); err != nil {
			return nil, err
		}
		res, err := b.Exec()(ctx, obj, data)
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = action.Result{}
		}
		if b.HasModel() {
			if o, ok := res[action.ObjectField].(describer.Instance); ok && o != nil && o.ID() != nil {
				l := loaderFor(ctx, b.Owner().Model())
				if b.Kind() == action.KindDelete {
					l.Clear(instanceKey(o))
				} else {
					l.Prime(instanceKey(o), o)
				}
			}
		}
		return res, nil
	}
}

// loaders holds the per-request instance loaders, one per model.
type loaders struct {
	mu      sync.Mutex
	byModel map[string]*dataloader.Loader[string, describer.Instance]
}

func newLoaders() *loaders {
	return &loaders{byModel: make(map[string]*dataloader.Loader[string, describer.Instance])}
}

func (l *loaders) get(m describer.Model) *dataloader.Loader[string, describer.Instance] {
	l.mu.Lock()
	defer l.mu.Unlock()
	ld, ok := l.byModel[m.Name()]
	if !ok {
		ld = dataloader.NewLoader(batchGet(m))
		l.byModel[m.Name()] = ld
	}
	return ld
}

// loaderFor returns the request loader of m. Outside of a request every
// call gets a fresh loader.
func loaderFor(ctx context.Context, m describer.Model) *dataloader.Loader[string, describer.Instance] {
	l := dataloader.For[*loaders](ctx)
	if l == nil {
		l = newLoaders()
	}
	return l.get(m)
}

// batchGet fetches instances of m by identifier with one query.
func batchGet(m describer.Model) dataloader.BatchFunc[string, describer.Instance] {
	return func(ctx context.Context, keys []string) ([]describer.Instance, []error) {
		ids := make([]any, len(keys))
		for i, k := range keys {
			ids[i] = k
		}
		items, err := m.Query(ctx).Filter(describer.Lookup{Field: describer.IDField, Op: describer.OpIn, Value: ids}).All(ctx)
		if err != nil {
			return nil, []error{describer.NewQueryError(m.Name(), "load", err)}
		}
		return dataloader.OrderByKeys(keys, items, instanceKey)
	}
}

func instanceKey(i describer.Instance) string { return key(i.ID()) }

func key(id any) string { return fmt.Sprint(id) }
