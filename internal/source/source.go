package source

import (
	"fmt"
	"image"
)

// Source renders the pages of a visual document.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Provider supplies the ordered waypoints a presenter moves between. IDs are
// stable for the life of the provider.
type Provider interface {
	CurrentID() int64
	Count() int
	MoveNext() bool
	MovePrevious() bool
	IDAt(i int) (int64, error)
}

// Policy decides what happens at either end of a provider.
type Policy int

const (
	// Sequence stops at the first and last waypoint.
	Sequence Policy = iota
	// Loop wraps around.
	Loop
)

func (p Policy) String() string {
	if p == Loop {
		return "loop"
	}
	return "sequence"
}

// cursor is the traversal state shared by the providers.
type cursor struct {
	ids    []int64
	pos    int
	policy Policy
}

func (c *cursor) CurrentID() int64 {
	if len(c.ids) == 0 {
		return 0
	}
	return c.ids[c.pos]
}

func (c *cursor) Count() int { return len(c.ids) }

func (c *cursor) MoveNext() bool {
	switch {
	case len(c.ids) == 0:
		return false
	case c.pos+1 < len(c.ids):
		c.pos++
	case c.policy == Loop && len(c.ids) > 1:
		c.pos = 0
	default:
		return false
	}
	return true
}

func (c *cursor) MovePrevious() bool {
	switch {
	case len(c.ids) == 0:
		return false
	case c.pos > 0:
		c.pos--
	case c.policy == Loop && len(c.ids) > 1:
		c.pos = len(c.ids) - 1
	default:
		return false
	}
	return true
}

func (c *cursor) IDAt(i int) (int64, error) {
	if i < 0 || i >= len(c.ids) {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, len(c.ids))
	}
	return c.ids[i], nil
}

// Seek moves to id and reports whether it exists.
func (c *cursor) Seek(id int64) bool {
	for i, v := range c.ids {
		if v == id {
			c.pos = i
			return true
		}
	}
	return false
}

// Ordinals maps every waypoint id to its 1-based display position.
func Ordinals(p Provider) map[int64]int {
	out := make(map[int64]int, p.Count())
	for i := 0; i < p.Count(); i++ {
		if id, err := p.IDAt(i); err == nil {
			out[id] = i + 1
		}
	}
	return out
}

// StartID is the id of the first waypoint.
func StartID(p Provider) (int64, error) {
	return p.IDAt(0)
}

// SeekTo positions p on id.
func SeekTo(p Provider, id int64) bool {
	if s, ok := p.(interface{ Seek(int64) bool }); ok {
		return s.Seek(id)
	}
	if p.CurrentID() == id {
		return true
	}
	// Looping providers wrap, so every walk is bounded by Count.
	n := p.Count()
	for i := 0; i < n && p.MovePrevious(); i++ {
		if p.CurrentID() == id {
			return true
		}
	}
	for i := 0; i < 2*n && p.MoveNext(); i++ {
		if p.CurrentID() == id {
			return true
		}
	}
	return false
}
