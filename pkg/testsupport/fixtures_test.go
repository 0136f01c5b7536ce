package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-gridpool/pool"
)

func TestLoadFixture(t *testing.T) {
	path := TempFile(t, "fixture.txt", []byte("test fixture content"))

	assert.Equal(t, "test fixture content", string(LoadFixture(t, path)))
}

func TestLoadFixtureYAML(t *testing.T) {
	path := TempFile(t, "pools.yaml", []byte("name: orders\nlocators:\n  - host: a\n    port: 1\n  - host: b\n    port: 2\n"))

	var result struct {
		Name     string          `yaml:"name"`
		Locators []pool.Endpoint `yaml:"locators"`
	}
	LoadFixtureYAML(t, path, &result)

	assert.Equal(t, "orders", result.Name)
	assert.Equal(t, []pool.Endpoint{{Host: "a", Port: 1}, {Host: "b", Port: 2}}, result.Locators)
}

func TestCompareWithGolden_CreatesMissingFile(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden", "out.golden")

	CompareWithGolden(t, golden, []byte("snapshot"))

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))

	// second run compares against the file just written
	CompareWithGolden(t, golden, []byte("snapshot"))
}

func TestCompareJSONWithGolden(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "state.json")

	CompareJSONWithGolden(t, golden, map[string]string{"state": "created"})

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"state\": \"created\"\n}\n", string(data))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "pools.yaml"), FixturePath("pools.yaml"))
	assert.Equal(t, filepath.Join("testdata", "golden", "snap.json"), GoldenPath("snap.json"))
}

func TestPoolConfig(t *testing.T) {
	cfg := PoolConfig("orders")

	assert.Equal(t, "orders", cfg.Name)
	assert.NoError(t, cfg.Validate())
}

func TestFakeRegistry(t *testing.T) {
	a := NewFakePool("a", pool.DefaultConfig())
	b := NewFakePool("a", pool.DefaultConfig())
	r := NewFakeRegistry()

	actual, loaded := r.Register("a", a)
	require.False(t, loaded, "first register should store the pool")
	require.Same(t, a, actual)

	actual, loaded = r.Register("a", b)
	require.True(t, loaded, "second register should return the stored pool")
	require.Same(t, a, actual)

	assert.False(t, r.Remove("a", b), "removing a different pool should fail")
	assert.True(t, r.Remove("a", a))
	assert.Empty(t, r.Names())
}

func TestFakeFactory_RecordsCallsInOrder(t *testing.T) {
	f := NewFakeFactory()
	f.AddLocator("l1", 1)
	f.AddServer("s1", 2)

	p, err := f.Create(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"AddLocator(l1,1)", "AddServer(s1,2)", "Create(orders)"}, f.Calls())
	require.NotEmpty(t, p.Settings().Servers)
	assert.Equal(t, "s1", p.Settings().Servers[0].Host, "created pool should carry factory settings")
}

func TestFactorySet_FreshFactoryPerCreation(t *testing.T) {
	set := &FactorySet{}
	newFactory := set.Func()
	ctx := context.Background()

	first := newFactory()
	first.AddServer("s1", 1)
	_, err := first.Create(ctx, "orders")
	require.NoError(t, err)

	second := newFactory()
	second.AddServer("s2", 2)
	_, err = second.Create(ctx, "sessions")
	require.NoError(t, err)

	require.Len(t, set.Factories(), 2)
	sessions, ok := set.Pool("sessions")
	require.True(t, ok)
	assert.Equal(t, []string{"s2:2"}, pool.EndpointStrings(sessions.Settings().Servers), "settings must not leak between creations")
	_, ok = set.Pool("missing")
	assert.False(t, ok)
}
