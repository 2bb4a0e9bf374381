package graphql_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/contrib/graphql"
	"github.com/karlosss/describer/schema"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    graphql.Config
		wantErr string
	}{
		{
			name: "full",
			content: `default_page_size: 10
max_page_size: 30
schema_path: out/schema.graphql
descriptions: true
`,
			want: graphql.Config{DefaultPageSize: 10, MaxPageSize: 30, SchemaPath: "out/schema.graphql", Descriptions: true},
		},
		{
			name:    "partial",
			content: "max_page_size: 500\n",
			want:    graphql.Config{DefaultPageSize: graphql.DefaultPageSize, MaxPageSize: 500},
		},
		{
			name:    "max below default",
			content: "default_page_size: 50\nmax_page_size: 10\n",
			wantErr: "max_page_size 10 is smaller than default_page_size 50",
		},
		{
			name:    "malformed",
			content: "default_page_size: [",
			wantErr: "parse graphql config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "graphql.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := graphql.LoadConfig(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Parallel()
	cfg, err := graphql.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, graphql.DefaultConfig(), *cfg)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := graphql.Config{MaxPageSize: 10}
	err := cfg.Validate()
	require.ErrorIs(t, err, describer.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "default_page_size must be positive, got 0")

	cfg = graphql.DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestWriteSDL(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	cfg := graphql.DefaultConfig()
	require.ErrorIs(t, cfg.WriteSDL(s), describer.ErrInvalidConfig)

	cfg.SchemaPath = filepath.Join(t.TempDir(), "nested", "schema.graphql")
	require.NoError(t, cfg.WriteSDL(s))
	b, err := os.ReadFile(cfg.SchemaPath)
	require.NoError(t, err)
	assert.Equal(t, s.SDL(), string(b))
	assert.Contains(t, string(b), "type BookType {")
}
