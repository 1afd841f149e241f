package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "accounting.conf")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

func TestLoadSeedEmptyPathIsNoop(t *testing.T) {
	seed, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if seed != nil {
		t.Fatalf("expected nil seed for an empty path, got %+v", seed)
	}
}

func TestLoadSeedMissingFileIsNotAnError(t *testing.T) {
	seed, err := LoadSeed(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if seed != nil {
		t.Fatalf("expected nil seed for a missing file, got %+v", seed)
	}
}

func TestLoadSeedParsesItemsAndPrices(t *testing.T) {
	path := writeSeedFile(t, `
items:
  - sku: "my-sku"
    name: "my product"
    unit: "GB-s"
prices:
  - sku: "my-sku"
    valid_from: "2025-01-01T00:00:00Z"
    price: 12.34
`)

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(seed.Items) != 1 || seed.Items[0].SKU != "my-sku" {
		t.Fatalf("got items %+v", seed.Items)
	}
	if len(seed.Prices) != 1 || seed.Prices[0].Price != 12.34 {
		t.Fatalf("got prices %+v", seed.Prices)
	}
}

func TestLoadSeedRejectsMalformedYAML(t *testing.T) {
	path := writeSeedFile(t, "items: [this is not valid: yaml: at all")
	if _, err := LoadSeed(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
