package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maps-scraper/config"
	"maps-scraper/models"
	"maps-scraper/services"
	"maps-scraper/storage"
)

// stubBrowser serves a fixed feed of n entries named after the query.
type stubBrowser struct {
	n       int
	query   string
	current int
}

func (b *stubBrowser) Search(_ context.Context, q string) error { b.query = q; return nil }
func (b *stubBrowser) Release()                                 {}
func (b *stubBrowser) CountVisible(context.Context) int         { return b.n }
func (b *stubBrowser) Grow(context.Context) bool                { return false }

func (b *stubBrowser) Activate(_ context.Context, i int) (bool, error) {
	b.current = i
	return i < b.n, nil
}

func (b *stubBrowser) Extract(context.Context) (models.Listing, error) {
	// every query shares "Shared Cafe" so the merge has something to drop
	if b.current == 0 {
		return models.Listing{Name: "Shared Cafe", Rating: "4.2"}, nil
	}
	return models.Listing{Name: fmt.Sprintf("%s %d", b.query, b.current), Phone: "+1 555 000 0000"}, nil
}

func withAcquire(t *testing.T, fn services.AcquireFunc) {
	t.Helper()
	prev := acquire
	acquire = fn
	t.Cleanup(func() { acquire = prev })
}

func stubAcquire(n int) services.AcquireFunc {
	return func(context.Context, config.Config, *zap.SugaredLogger) (services.Browser, error) {
		return &stubBrowser{n: n}, nil
	}
}

func TestResolveConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("MAPS_TARGET", "15")
	t.Setenv("MAPS_OUT", "env.json")

	root, f := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--max", "7", "-q", "bars in Bari", "--headless=false"}))

	cfg := resolveConfig(root, f, []string{"pubs in Cork"})
	assert.Equal(t, 7, cfg.Target)
	assert.Equal(t, "env.json", cfg.OutFile, "unset flags keep the env value")
	assert.False(t, cfg.Headless)
	assert.Equal(t, []string{"bars in Bari", "pubs in Cork"}, cfg.Queries)
}

func TestRun_WritesJSONCSVAndDatabase(t *testing.T) {
	t.Setenv("MAPS_ITEM_DELAY", "0s")
	withAcquire(t, stubAcquire(3))
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	csvPath := filepath.Join(dir, "out.csv")
	dbPath := filepath.Join(dir, "listings.db")

	root := NewRootCmd()
	root.SetArgs([]string{
		"run", "-q", "cafes in Bern", "-q", "cafes in Basel",
		"--max", "3", "--out", out, "--csv", csvPath,
		"--db", "sqlite", "--dsn", dbPath,
	})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var listings []models.Listing
	require.NoError(t, json.Unmarshal(raw, &listings))
	assert.Len(t, listings, 5, "shared name merged across queries")
	assert.Equal(t, "Shared Cafe", listings[0].Name)

	_, err = os.Stat(csvPath)
	require.NoError(t, err)

	store, err := storage.Open(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	defer store.Close()
	stored, err := store.Listings(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestRun_AllQueriesFailed(t *testing.T) {
	withAcquire(t, func(context.Context, config.Config, *zap.SugaredLogger) (services.Browser, error) {
		return nil, errors.New("no browser")
	})

	root := NewRootCmd()
	root.SetArgs([]string{"-q", "anything", "--out", filepath.Join(t.TempDir(), "out.json")})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 queries failed")
}

func TestRun_RequiresQuery(t *testing.T) {
	t.Setenv("MAPS_QUERIES", "")
	root := NewRootCmd()
	root.SetArgs([]string{"run"})
	assert.Error(t, root.Execute())
}

func TestDoctor(t *testing.T) {
	withAcquire(t, stubAcquire(0))
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"doctor"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "ok\n", buf.String())
}
