package action

import (
	"context"
	"slices"

	"github.com/karlosss/describer"
)

func defaultList(m describer.Model) ListFunc {
	return func(ctx context.Context) (describer.QuerySet, error) {
		return m.Query(ctx), nil
	}
}

func orDefaultFetch(fn FetchFunc, m describer.Model) FetchFunc {
	if fn != nil {
		return fn
	}
	return m.Get
}

func defaultCreate(m describer.Model) ExecFunc {
	return func(ctx context.Context, _ describer.Instance, data describer.Data) (Result, error) {
		obj, err := m.New(data)
		if err != nil {
			return nil, describer.NewMutationError(m.Name(), "create", err)
		}
		if err := m.Save(ctx, obj); err != nil {
			return nil, describer.NewMutationError(m.Name(), "create", err)
		}
		return Result{ObjectField: obj}, nil
	}
}

func defaultUpdate(m describer.Model) ExecFunc {
	return func(ctx context.Context, obj describer.Instance, data describer.Data) (Result, error) {
		keys := make([]string, 0, len(data))
		for k := range data {
			if k != describer.IDField {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := obj.Set(k, data[k]); err != nil {
				return nil, describer.NewMutationError(m.Name(), "update", err)
			}
		}
		if err := m.Save(ctx, obj); err != nil {
			return nil, describer.NewMutationError(m.Name(), "update", err)
		}
		return Result{ObjectField: obj}, nil
	}
}

func defaultDelete(m describer.Model) ExecFunc {
	return func(ctx context.Context, obj describer.Instance, _ describer.Data) (Result, error) {
		if err := m.Delete(ctx, obj); err != nil {
			return nil, describer.NewMutationError(m.Name(), "delete", err)
		}
		return Result{ObjectField: obj}, nil
	}
}
