package ui

import tea "charm.land/bubbletea/v2"

// Maker creates child models on demand. The root uses one to build the
// list model of a screen the first time the user switches to it.
type Maker interface {
	// Make creates the model identified by id sized to width x height.
	Make(id string, width, height int) (ChildModel, tea.Cmd)
}

// MakerFunc adapts a function to Maker.
type MakerFunc func(id string, width, height int) (ChildModel, tea.Cmd)

// Make implements Maker.
func (f MakerFunc) Make(id string, width, height int) (ChildModel, tea.Cmd) {
	return f(id, width, height)
}

// CachedMaker wraps a Maker and keeps every model it made, so switching
// back to a screen restores its tab, search and page instead of starting
// over.
type CachedMaker struct {
	maker Maker
	cache map[string]ChildModel
}

// NewCachedMaker creates a CachedMaker around maker.
func NewCachedMaker(maker Maker) *CachedMaker {
	return &CachedMaker{
		maker: maker,
		cache: make(map[string]ChildModel),
	}
}

// Make returns the cached model for id, resized, or makes a new one. The
// init command is only returned for new models.
func (c *CachedMaker) Make(id string, width, height int) (ChildModel, tea.Cmd) {
	if model, ok := c.cache[id]; ok {
		if sized, ok := model.(ModelWithSize); ok {
			sized.SetSize(width, height)
		}
		return model, nil
	}

	model, cmd := c.maker.Make(id, width, height)
	c.cache[id] = model
	return model, cmd
}

// Models returns every cached model.
func (c *CachedMaker) Models() []ChildModel {
	out := make([]ChildModel, 0, len(c.cache))
	for _, m := range c.cache {
		out = append(out, m)
	}
	return out
}

// Remove drops the model for id.
func (c *CachedMaker) Remove(id string) {
	delete(c.cache, id)
}

// Has returns true if a model with the given id is cached.
func (c *CachedMaker) Has(id string) bool {
	_, ok := c.cache[id]
	return ok
}
