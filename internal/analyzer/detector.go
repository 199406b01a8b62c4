// Package analyzer finds regions of interest on a visual so they can be
// seeded as keyframe markers.
package analyzer

import "image"

// Block represents a detected region of interest in an image
type Block struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

// Detector is the interface for region detection strategies
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// Rects returns the rectangles of blocks in order.
func Rects(blocks []Block) []image.Rectangle {
	out := make([]image.Rectangle, len(blocks))
	for i, b := range blocks {
		out[i] = b.Rect
	}
	return out
}
