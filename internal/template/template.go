// Package template holds the static per-transition checklist definitions.
// The catalog is embedded configuration data and is never mutated at runtime.
package template

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

//go:embed templates.yaml
var defaultYAML []byte

// Catalog maps each transition to its ordered checklist.
type Catalog struct {
	items map[model.Transition][]*model.TemplateItem
}

// Default returns the catalog compiled into the binary. It panics if the
// embedded file is malformed, which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("template: embedded catalog: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog. Every transition key must be a known
// transition, every known transition must have at least one item, and item
// codes must be unique within a transition.
func Parse(data []byte) (*Catalog, error) {
	raw := map[string][]*model.TemplateItem{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{items: make(map[model.Transition][]*model.TemplateItem, len(raw))}
	for key, items := range raw {
		tr, err := model.ParseTransition(key)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(items))
		for i, item := range items {
			if item == nil || item.ItemCode == "" || item.ItemLabel == "" {
				return nil, fmt.Errorf("%s item %d: code and label are required", key, i)
			}
			if _, dup := seen[item.ItemCode]; dup {
				return nil, fmt.Errorf("%s: duplicate item code %q", key, item.ItemCode)
			}
			seen[item.ItemCode] = struct{}{}
			item.Transition = tr
			item.Position = i
		}
		c.items[tr] = items
	}

	for _, tr := range model.Transitions {
		if len(c.items[tr]) == 0 {
			return nil, fmt.Errorf("%s: no checklist items defined", tr)
		}
	}
	return c, nil
}

// New builds a catalog from explicit checklists, assigning positions in
// slice order. Transitions absent from m have no checklist.
func New(m map[model.Transition][]*model.TemplateItem) *Catalog {
	c := &Catalog{items: make(map[model.Transition][]*model.TemplateItem, len(m))}
	for tr, items := range m {
		list := make([]*model.TemplateItem, len(items))
		for i, item := range items {
			cp := *item
			cp.Transition = tr
			cp.Position = i
			list[i] = &cp
		}
		c.items[tr] = list
	}
	return c
}

// Items returns a copy of the checklist for a transition in definition order.
func (c *Catalog) Items(tr model.Transition) ([]*model.TemplateItem, error) {
	if !tr.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTransition, tr)
	}
	src := c.items[tr]
	out := make([]*model.TemplateItem, len(src))
	for i, item := range src {
		cp := *item
		out[i] = &cp
	}
	return out, nil
}

// All returns every template item across all transitions, transitions in
// build order and items in definition order.
func (c *Catalog) All() []*model.TemplateItem {
	var out []*model.TemplateItem
	for _, tr := range model.Transitions {
		items, _ := c.Items(tr)
		out = append(out, items...)
	}
	return out
}
