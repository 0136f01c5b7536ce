package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-gridpool/pool"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureYAML loads a YAML fixture and decodes it into dest.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// WriteGolden writes test output to a golden file, creating parent directories.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with the golden file at path.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareJSONWithGolden marshals v with indentation and compares it with the golden file.
func CompareJSONWithGolden(t *testing.T, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}
	CompareWithGolden(t, path, append(data, '\n'))
}

// TempFile writes content to a file inside a per-test directory and returns
// its path. The file is removed with the directory when the test ends.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}
	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// PoolConfig returns a valid default configuration named name with a single
// locator on the default port.
func PoolConfig(name string) pool.Config {
	cfg := pool.DefaultConfig().WithLocators(pool.Endpoint{Host: "localhost", Port: pool.DefaultLocatorPort})
	cfg.Name = name
	return cfg
}
