package director

import (
	"fmt"
	"sort"
)

// Scenario is a keyframe marker document: slides, each with the markers a
// presenter moves between while recording or playing back.
type Scenario struct {
	Version string  `yaml:"version"`
	Slides  []Slide `yaml:"slides"`
}

// Slide is a single visual with its keyframe markers. The slide ID is the
// owner of the keyframe timing sequence.
type Slide struct {
	ID        int64      `yaml:"id"`
	Input     string     `yaml:"input,omitempty"`
	Title     string     `yaml:"title,omitempty"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is a marker on a slide. Position orders markers for display and
// traversal; it does not have to be contiguous.
type Keyframe struct {
	ID       int64     `yaml:"id"`
	Position int       `yaml:"position"`
	Focus    string    `yaml:"focus,omitempty"` // Description of focus region
	Rect     Rectangle `yaml:"rect"`
	Zoom     float64   `yaml:"zoom,omitempty"` // 1.0 = full view
}

// Rectangle represents a bounding box
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Slide returns the slide with the given id.
func (s *Scenario) Slide(id int64) (*Slide, error) {
	for i := range s.Slides {
		if s.Slides[i].ID == id {
			return &s.Slides[i], nil
		}
	}
	return nil, fmt.Errorf("slide %d not found", id)
}

// Validate checks that slide ids are positive and unique and that keyframe
// ids are positive and unique within their slide.
func (s *Scenario) Validate() error {
	seen := make(map[int64]bool, len(s.Slides))
	for _, slide := range s.Slides {
		if slide.ID <= 0 {
			return fmt.Errorf("slide id must be positive, got %d", slide.ID)
		}
		if seen[slide.ID] {
			return fmt.Errorf("duplicate slide id %d", slide.ID)
		}
		seen[slide.ID] = true
		if err := slide.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks keyframe ids on one slide.
func (s *Slide) Validate() error {
	ids := make(map[int64]bool, len(s.Keyframes))
	for _, kf := range s.Keyframes {
		if kf.ID <= 0 {
			return fmt.Errorf("slide %d: keyframe id must be positive, got %d", s.ID, kf.ID)
		}
		if ids[kf.ID] {
			return fmt.Errorf("slide %d: duplicate keyframe id %d", s.ID, kf.ID)
		}
		ids[kf.ID] = true
	}
	return nil
}

// Ordered returns the keyframes sorted by Position, ties broken by ID.
func (s *Slide) Ordered() []Keyframe {
	out := make([]Keyframe, len(s.Keyframes))
	copy(out, s.Keyframes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}
