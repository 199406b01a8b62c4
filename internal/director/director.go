package director

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Director turns detected regions of a visual into keyframe markers
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	RowThreshold   int     // Regions whose tops differ by less than this share a row
	MaxZoom        float64 // Upper bound for a marker's zoom
}

// NewDirector creates a new Director with default settings
func NewDirector(viewportWidth, viewportHeight int) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		RowThreshold:   20,
		MaxZoom:        3.0,
	}
}

// BuildSlide creates a slide whose first marker is the full view followed by
// one marker per region in reading order. Marker ids and positions start at 1.
func (d *Director) BuildSlide(id int64, input string, regions []image.Rectangle) (Slide, error) {
	if id <= 0 {
		return Slide{}, fmt.Errorf("slide id must be positive, got %d", id)
	}
	if len(regions) == 0 {
		return Slide{}, fmt.Errorf("no regions detected")
	}

	keyframes := []Keyframe{{
		ID:       1,
		Position: 1,
		Focus:    "full_view",
		Rect:     Rectangle{W: d.ViewportWidth, H: d.ViewportHeight},
		Zoom:     1.0,
	}}

	for i, r := range d.sortRegions(regions) {
		keyframes = append(keyframes, Keyframe{
			ID:       int64(i + 2),
			Position: i + 2,
			Focus:    fmt.Sprintf("region_%d", i+1),
			Rect:     Rectangle{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()},
			Zoom:     d.calculateZoom(r),
		})
	}

	return Slide{ID: id, Input: input, Keyframes: keyframes}, nil
}

// NewScenario wraps slides into a versioned document
func NewScenario(slides ...Slide) *Scenario {
	return &Scenario{Version: "1.0", Slides: slides}
}

// sortRegions sorts regions in reading order (top-to-bottom, left-to-right)
func (d *Director) sortRegions(regions []image.Rectangle) []image.Rectangle {
	sorted := make([]image.Rectangle, len(regions))
	copy(sorted, regions)

	sort.SliceStable(sorted, func(i, j int) bool {
		yDiff := sorted[i].Min.Y - sorted[j].Min.Y
		if abs(yDiff) > d.RowThreshold {
			return sorted[i].Min.Y < sorted[j].Min.Y
		}
		return sorted[i].Min.X < sorted[j].Min.X
	})

	return sorted
}

// calculateZoom determines the zoom that fits r into 90% of the viewport
func (d *Director) calculateZoom(r image.Rectangle) float64 {
	w, h := float64(r.Dx()), float64(r.Dy())
	if w == 0 || h == 0 {
		return 1.0
	}

	zoom := math.Min(float64(d.ViewportWidth)*0.9/w, float64(d.ViewportHeight)*0.9/h)
	return math.Max(1.0, math.Min(zoom, d.MaxZoom))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
