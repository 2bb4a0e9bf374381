// Package dataloader batches and memoizes fetches of model instances by key.
//
// Loaders are backed by github.com/graph-gophers/dataloader/v7. A Loader
// is created per request: keys requested within the batch window are
// fetched together, so the related instances of a page of results cost
// one query per model instead of one per result.
//
// # Basic Usage
//
// Define a batch function for your model:
//
//	func bookBatchFn(ctx context.Context, ids []string) ([]describer.Instance, []error) {
//	    books, err := m.Query(ctx).Filter(describer.Lookup{Field: "id", Op: describer.OpIn, Value: ids}).All(ctx)
//	    if err != nil {
//	        return nil, []error{err}
//	    }
//	    return dataloader.OrderByKeys(ids, books, func(b describer.Instance) string { return fmt.Sprint(b.ID()) })
//	}
//
// Then load through a Loader:
//
//	loader := dataloader.NewLoader(bookBatchFn)
//	book, err := loader.Load(ctx, "7")
//
// Thunk enqueues a key without waiting, which lets a GraphQL executor
// resolve every item of a list before the batch is fetched:
//
//	thunk := loader.Thunk(ctx, "7")
//	// ... enqueue more keys ...
//	book, err := thunk()
package dataloader

import (
	"context"
	"errors"

	dl "github.com/graph-gophers/dataloader/v7"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc is a function that loads a batch of entities by their keys.
// It returns one value and one error per key, in key order. A single
// error with no values fails the whole batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
//
// The result slices have the same length and order as keys, as BatchFunc
// requires.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}

	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// CachePrimer primes a loader cache with known values.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes multiple values into a cache.
// This is useful after a listing or a mutation has already fetched them.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// Results adapts batch to the result slice of dataloader/v7. A batch
// that fails as a whole returns a single error, which is reported for
// every key.
func Results[K comparable, V any](batch BatchFunc[K, V]) dl.BatchFunc[K, V] {
	return func(ctx context.Context, keys []K) []*dl.Result[V] {
		values, errs := batch(ctx, keys)
		out := make([]*dl.Result[V], len(keys))
		for i := range keys {
			r := &dl.Result[V]{}
			if i < len(values) {
				r.Data = values[i]
			}
			switch {
			case len(values) == 0 && len(errs) == 1:
				r.Error = errs[0]
			case i < len(errs):
				r.Error = errs[i]
			}
			out[i] = r
		}
		return out
	}
}

// Loader memoizes the results of a BatchFunc. Keys that are already cached,
// errors included, are never fetched again. It is safe for concurrent use.
type Loader[K comparable, V any] struct {
	loader *dl.Loader[K, V]
}

var _ CachePrimer[string, any] = (*Loader[string, any])(nil)

// NewLoader returns a loader fetching missing keys with batch.
func NewLoader[K comparable, V any](batch BatchFunc[K, V], opts ...dl.Option[K, V]) *Loader[K, V] {
	return &Loader[K, V]{loader: dl.NewBatchedLoader(Results(batch), opts...)}
}

// Load returns the value for key, fetching it if it is not cached.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.loader.Load(ctx, key)()
}

// Thunk enqueues key and returns a function waiting for its value.
func (l *Loader[K, V]) Thunk(ctx context.Context, key K) func() (V, error) {
	return l.loader.Load(ctx, key)
}

// LoadMany returns the values for keys. The keys that are not cached are
// fetched in a single batch.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]dl.Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.loader.Load(ctx, key)
	}
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}

// Prime stores value under key, replacing any cached result.
func (l *Loader[K, V]) Prime(key K, value V) {
	ctx := context.Background()
	l.loader.Clear(ctx, key).Prime(ctx, key, value)
}

// Clear removes key from the cache.
func (l *Loader[K, V]) Clear(key K) {
	l.loader.Clear(context.Background(), key)
}

// ctxKey is the context key for storing loaders.
type ctxKey struct{}

// WithLoaders injects loaders into the context.
//
// Example:
//
//	ctx := dataloader.WithLoaders(ctx, &Loaders{
//	    Books: dataloader.NewLoader(bookBatchFn),
//	})
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts loaders from context.
//
// Example:
//
//	loaders := dataloader.For[*Loaders](ctx)
//	book, err := loaders.Books.Load(ctx, id)
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
