package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/chatrelay/pkg/augment"
	"github.com/rhuss/chatrelay/pkg/completion"
	"github.com/rhuss/chatrelay/pkg/config"
	"github.com/rhuss/chatrelay/pkg/storage/memory"
	"github.com/rhuss/chatrelay/pkg/storage/sqlite"
	"github.com/rhuss/chatrelay/pkg/upstream/ollama"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	migrate, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	for _, key := range []string{"CHATRELAY_CONFIG", "CHATRELAY_STORAGE", "OLLAMA_BASE_URL", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
	root := newRootCommand()
	root.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	// A missing explicit config file is a load error before storage is checked.
	require.Error(t, root.Execute())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := newStore(ctx, config.StorageConfig{Type: "memory", MaxSize: 10})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &memory.Store{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := newStore(ctx, config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "chats.db")},
		})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &sqlite.Store{}, store)
		require.NoError(t, store.HealthCheck(ctx))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := newStore(ctx, config.StorageConfig{Type: "redis"})
		require.Error(t, err)
	})
}

func TestNewCompleter(t *testing.T) {
	client, err := ollama.New(ollama.DefaultConfig(""))
	require.NoError(t, err)
	defer client.Close()

	t.Run("local without key", func(t *testing.T) {
		cfg := config.Defaults()
		c, err := newCompleter(&cfg, client)
		require.NoError(t, err)
		assert.IsType(t, completion.Local{}, c)
	})

	t.Run("ollama fallback without key", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Hosted.Fallback = "ollama"
		c, err := newCompleter(&cfg, client)
		require.NoError(t, err)
		o, ok := c.(*completion.Ollama)
		require.True(t, ok, "got %T", c)
		assert.Equal(t, cfg.Upstream.DefaultModel, o.Model)
	})

	t.Run("hosted with key", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Hosted.APIKey = "sk-test"
		c, err := newCompleter(&cfg, client)
		require.NoError(t, err)
		fb, ok := c.(*completion.Fallback)
		require.True(t, ok, "got %T", c)
		assert.IsType(t, &completion.OpenAI{}, fb.Primary)
		assert.IsType(t, completion.Local{}, fb.Secondary)
	})
}

func TestNewAugmenter(t *testing.T) {
	aug, err := newAugmenter(config.AugmentConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, augment.Noop{}, aug)

	cfg := config.Defaults().Augment
	aug, err = newAugmenter(cfg)
	require.NoError(t, err)
	sa, ok := aug.(*augment.SearchAugmenter)
	require.True(t, ok, "got %T", aug)
	assert.Equal(t, "wikipedia", sa.Backend)
	assert.Equal(t, 3, sa.Limit)

	aug, err = newAugmenter(config.AugmentConfig{Backend: "searxng", SearXNGURL: "http://searx:8888"})
	require.NoError(t, err)
	assert.Equal(t, "searxng", aug.(*augment.SearchAugmenter).Backend)
}
