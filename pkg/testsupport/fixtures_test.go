package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.txt")
	content := []byte("fixture content")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if got := LoadFixture(t, path); string(got) != string(content) {
		t.Errorf("LoadFixture = %q, want %q", got, content)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(`{"sku":"BOLT-M8","available":12}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var dest struct {
		SKU       string `json:"sku"`
		Available int    `json:"available"`
	}
	LoadFixtureJSON(t, path, &dest)

	if dest.SKU != "BOLT-M8" || dest.Available != 12 {
		t.Errorf("unexpected fixture contents: %+v", dest)
	}
}

func TestCompareWithGoldenMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "out.txt")
	WriteGolden(t, path, []byte("expected"))
	CompareWithGolden(t, path, []byte("expected"))
}

func TestWriteGoldenCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	WriteGolden(t, path, []byte("data"))

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("golden file missing: %v", err)
	}
}

func TestFixtureAndGoldenPaths(t *testing.T) {
	if got := FixturePath("seed.json"); got != filepath.Join("testdata", "seed.json") {
		t.Errorf("FixturePath = %q", got)
	}
	if got := GoldenPath("out.txt"); got != filepath.Join("testdata", "golden", "out.txt") {
		t.Errorf("GoldenPath = %q", got)
	}
}
