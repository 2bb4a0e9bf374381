package dataloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// book is a test entity.
type book struct {
	ID    string
	Title string
}

func bookKey(b *book) string { return b.ID }

// =============================================================================
// OrderByKeys Tests
// =============================================================================

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	t.Run("all keys found", func(t *testing.T) {
		t.Parallel()
		keys := []string{"1", "2", "3"}
		values := []*book{
			{ID: "3", Title: "third"},
			{ID: "1", Title: "first"},
			{ID: "2", Title: "second"},
		}

		result, errs := OrderByKeys(keys, values, bookKey)

		require.Len(t, result, 3)
		require.Len(t, errs, 3)
		assert.Equal(t, "first", result[0].Title)
		assert.Equal(t, "second", result[1].Title)
		assert.Equal(t, "third", result[2].Title)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("some keys missing", func(t *testing.T) {
		t.Parallel()
		keys := []string{"1", "2", "3"}
		values := []*book{{ID: "2", Title: "second"}}

		result, errs := OrderByKeys(keys, values, bookKey)

		require.Len(t, result, 3)
		assert.Nil(t, result[0])
		assert.Equal(t, "second", result[1].Title)
		assert.ErrorIs(t, errs[0], ErrNotFound)
		assert.NoError(t, errs[1])
		assert.ErrorIs(t, errs[2], ErrNotFound)
	})

	t.Run("empty keys", func(t *testing.T) {
		t.Parallel()
		result, errs := OrderByKeys([]string{}, []*book{{ID: "1"}}, bookKey)
		assert.Empty(t, result)
		assert.Empty(t, errs)
	})
}

// =============================================================================
// Loader Tests
// =============================================================================

type counter struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *counter) batch(data map[string]*book) BatchFunc[string, *book] {
	return func(_ context.Context, keys []string) ([]*book, []error) {
		c.mu.Lock()
		c.batches = append(c.batches, append([]string(nil), keys...))
		c.mu.Unlock()
		var found []*book
		for _, k := range keys {
			if b, ok := data[k]; ok {
				found = append(found, b)
			}
		}
		return OrderByKeys(keys, found, bookKey)
	}
}

func TestLoaderLoadMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &counter{}
	l := NewLoader(c.batch(map[string]*book{
		"1": {ID: "1", Title: "first"},
		"2": {ID: "2", Title: "second"},
	}))

	values, errs := l.LoadMany(ctx, []string{"2", "1", "2", "9"})
	require.Len(t, values, 4)
	assert.Equal(t, "second", values[0].Title)
	assert.Equal(t, "first", values[1].Title)
	assert.Same(t, values[0], values[2])
	assert.Nil(t, values[3])
	assert.ErrorIs(t, errs[3], ErrNotFound)
	assert.Equal(t, [][]string{{"2", "1", "9"}}, c.batches)

	b, err := l.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "first", b.Title)
	_, err = l.Load(ctx, "9")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, c.batches, 1, "cached keys are not fetched again")
}

func TestLoaderBatchError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	l := NewLoader(func(context.Context, []string) ([]*book, []error) {
		return nil, []error{boom}
	})

	values, errs := l.LoadMany(context.Background(), []string{"1", "2"})
	assert.Equal(t, []*book{nil, nil}, values)
	assert.ErrorIs(t, errs[0], boom)
	assert.ErrorIs(t, errs[1], boom)
}

func TestLoaderPrimeAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &counter{}
	l := NewLoader(c.batch(map[string]*book{"1": {ID: "1", Title: "stored"}}))

	PrimeMany[string, *book](l, []*book{{ID: "1", Title: "primed"}}, bookKey)
	b, err := l.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "primed", b.Title)
	assert.Empty(t, c.batches)

	l.Clear("1")
	b, err = l.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "stored", b.Title)
	assert.Equal(t, [][]string{{"1"}}, c.batches)
}

func TestLoaderConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &counter{}
	l := NewLoader(c.batch(map[string]*book{"1": {ID: "1"}, "2": {ID: "2"}}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs := l.LoadMany(ctx, []string{"1", "2"})
			assert.NoError(t, errs[0])
			assert.NoError(t, errs[1])
		}()
	}
	wg.Wait()
	assert.NotEmpty(t, c.batches)
}

func TestLoaderThunksShareBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := &counter{}
	l := NewLoader(c.batch(map[string]*book{"1": {ID: "1"}, "2": {ID: "2"}}))

	first := l.Thunk(ctx, "1")
	second := l.Thunk(ctx, "2")
	again := l.Thunk(ctx, "1")

	b, err := second()
	require.NoError(t, err)
	assert.Equal(t, "2", b.ID)
	b, err = first()
	require.NoError(t, err)
	assert.Equal(t, "1", b.ID)
	_, err = again()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, c.batches)
}

func TestResults(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	tests := []struct {
		name   string
		values []*book
		errs   []error
		want   []error
	}{
		{name: "per key", values: []*book{{ID: "1"}, nil}, errs: []error{nil, ErrNotFound}, want: []error{nil, ErrNotFound}},
		{name: "whole batch", errs: []error{boom}, want: []error{boom, boom}},
		{name: "no errors", values: []*book{{ID: "1"}, {ID: "2"}}, want: []error{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			batch := Results(func(context.Context, []string) ([]*book, []error) {
				return tt.values, tt.errs
			})
			results := batch(context.Background(), []string{"1", "2"})
			require.Len(t, results, 2)
			for i, r := range results {
				assert.Equal(t, tt.want[i], r.Error)
			}
		})
	}
}

// =============================================================================
// Context Tests
// =============================================================================

type testLoaders struct {
	Books *Loader[string, *book]
}

func TestWithLoaders(t *testing.T) {
	t.Parallel()

	loaders := &testLoaders{Books: NewLoader((&counter{}).batch(nil))}
	ctx := WithLoaders(context.Background(), loaders)

	retrieved := For[*testLoaders](ctx)
	require.NotNil(t, retrieved)
	assert.Same(t, loaders.Books, retrieved.Books)
}

func TestFor_NotFound(t *testing.T) {
	t.Parallel()

	retrieved := For[*testLoaders](context.Background())
	assert.Nil(t, retrieved)
}
