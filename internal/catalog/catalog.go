// Package catalog exposes the static registry of deliverable items.
//
// The catalog is process-wide constant state: parsed once at startup from a
// YAML document (the embedded default or an operator-supplied file) and never
// mutated afterwards, so it is safe for concurrent reads without locking.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	dErrors "cobal/pkg/domain-errors"
)

//go:embed items.yaml
var defaultItemsYAML []byte

// Catalog holds the item definitions in declaration order with an index for
// id lookup.
type Catalog struct {
	items []ItemDefinition
	byID  map[string]int
}

type catalogFile struct {
	Items []ItemDefinition `yaml:"items"`
}

// Load parses a catalog from YAML and validates every definition.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog contains no items")
	}

	c := &Catalog{
		items: file.Items,
		byID:  make(map[string]int, len(file.Items)),
	}
	for i, item := range file.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("catalog item %d: missing id", i)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %q: duplicate id", item.ID)
		}
		if item.Name == "" {
			return nil, fmt.Errorf("catalog item %q: missing name", item.ID)
		}
		if item.MaxQuantity <= 0 {
			return nil, fmt.Errorf("catalog item %q: max quantity must be positive", item.ID)
		}
		if !item.Recurrence.IsValid() {
			return nil, fmt.Errorf("catalog item %q: unknown recurrence class %q", item.ID, item.Recurrence)
		}
		if !item.SexRestriction.IsValid() {
			return nil, fmt.Errorf("catalog item %q: unknown sex restriction %q", item.ID, item.SexRestriction)
		}
		c.byID[item.ID] = i
	}
	return c, nil
}

// LoadDefault parses the embedded catalog.
func LoadDefault() (*Catalog, error) {
	return Load(defaultItemsYAML)
}

// LoadFile parses a catalog from a YAML file, falling back to the embedded
// catalog when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Load(data)
}

// Get returns the definition for an item id.
func (c *Catalog) Get(itemID string) (ItemDefinition, error) {
	if i, ok := c.byID[itemID]; ok {
		return c.items[i], nil
	}
	return ItemDefinition{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown item %q", itemID))
}

// Has reports whether an item id exists in the catalog.
func (c *Catalog) Has(itemID string) bool {
	_, ok := c.byID[itemID]
	return ok
}

// List returns item definitions in declaration order, optionally filtered by
// recurrence class. The empty filter returns the whole catalog. The returned
// slice is a copy; callers may not mutate catalog state through it.
func (c *Catalog) List(class Recurrence) []ItemDefinition {
	out := make([]ItemDefinition, 0, len(c.items))
	for _, item := range c.items {
		if class != "" && item.Recurrence != class {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.items) }
