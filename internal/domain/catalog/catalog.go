// Package catalog holds the immutable table of models the arena can talk to.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Category is the capability class of a model.
type Category string

const (
	CategoryText       Category = "text"
	CategoryImage      Category = "image"
	CategoryMultimodal Category = "multimodal"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryText, CategoryImage, CategoryMultimodal:
		return true
	}
	return false
}

// Model describes one selectable model.
type Model struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Provider     string   `json:"provider" yaml:"provider"`
	Category     Category `json:"type" yaml:"type"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Icon         string   `json:"icon" yaml:"icon"`
	IsNew        bool     `json:"isNew,omitempty" yaml:"is_new"`
}

// Sentinel errors.
var (
	ErrInvalidModel = errors.New("invalid model descriptor")
	ErrDuplicateID  = errors.New("duplicate model id")
	ErrEmptyCatalog = errors.New("catalog has no models")
)

// idPattern accepts the ids used by providers, including "vendor/model".
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_./]+$`)

// Catalog is a read-only model table; safe for concurrent use.
type Catalog struct {
	models []Model
	byID   map[string]int
}

// New validates models and builds a catalog. The slice is copied.
func New(models []Model) (*Catalog, error) {
	if len(models) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		models: make([]Model, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		if !idPattern.MatchString(m.ID) || m.Name == "" || m.Provider == "" || !m.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidModel, m.ID)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, m.ID)
		}
		m.Capabilities = append([]string(nil), m.Capabilities...)
		c.models[i] = m
		c.byID[m.ID] = i
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

type fileFormat struct {
	Models []Model `yaml:"models"`
}

// LoadFile reads a YAML catalog of the form `models: [...]`.
func LoadFile(path string) (*Catalog, error) {
	const op = "catalog.load_file"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := New(f.Models)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// All returns a copy of every model in catalog order.
func (c *Catalog) All() []Model {
	return c.filter(func(Model) bool { return true })
}

// Len is the number of models.
func (c *Catalog) Len() int { return len(c.models) }

// ByID looks a model up.
func (c *Catalog) ByID(id string) (Model, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Model{}, false
	}
	return c.models[i], true
}

// ByProvider returns models of one provider, e.g. "Anthropic".
func (c *Catalog) ByProvider(provider string) []Model {
	return c.filter(func(m Model) bool { return m.Provider == provider })
}

// ByCategory returns models of one category.
func (c *Catalog) ByCategory(cat Category) []Model {
	return c.filter(func(m Model) bool { return m.Category == cat })
}

// BattlePool returns the text models followed by the multimodal ones.
func (c *Catalog) BattlePool() []Model {
	return append(c.ByCategory(CategoryText), c.ByCategory(CategoryMultimodal)...)
}

// DisplayName returns the model name, or the id when unknown.
func (c *Catalog) DisplayName(id string) string {
	if m, ok := c.ByID(id); ok {
		return m.Name
	}
	return id
}

func (c *Catalog) filter(keep func(Model) bool) []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
