package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the startup configuration of items and prices, loaded from the
// ingester's seed config file. Example:
//
//	items:
//	  - sku: "my-sku"
//	    name: "my product"
//	    unit: "GB-s"
//	prices:
//	  - sku: "my-sku"
//	    valid_from: "2025-01-01T00:00:00Z"
//	    price: 12.34
type Seed struct {
	Items  []SeedItem  `yaml:"items"`
	Prices []SeedPrice `yaml:"prices"`
}

// SeedItem seeds (or updates) a BillingItem by SKU.
type SeedItem struct {
	SKU  string `yaml:"sku"`
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
}

// SeedPrice seeds a BillingItemPrice, opening a new price window for its
// item from ValidFrom.
type SeedPrice struct {
	SKU       string  `yaml:"sku"`
	ValidFrom string  `yaml:"valid_from"`
	Price     float64 `yaml:"price"`
}

// LoadSeed reads and parses the seed config file at path. A missing file is
// not an error: deployments without pre-seeded items/prices omit it
// entirely. A present-but-malformed file is fatal, since a truncated or
// mistyped seed silently starving the catalogue is worse than failing to
// start.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed config: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("seed config is not valid YAML: %w", err)
	}

	return &seed, nil
}
