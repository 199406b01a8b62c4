package analyzer

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// NewDetector creates a detector based on the specified variant: "edges"
// (the default) or "grid:RxC".
func NewDetector(variant string) (Detector, error) {
	switch {
	case variant == "edges" || variant == "":
		return NewEdgeDetector(), nil
	case strings.HasPrefix(variant, "grid"):
		rows, cols := 2, 2
		if dims, ok := strings.CutPrefix(variant, "grid:"); ok {
			r, c, found := strings.Cut(dims, "x")
			var errR, errC error
			rows, errR = strconv.Atoi(r)
			cols, errC = strconv.Atoi(c)
			if !found || errR != nil || errC != nil || rows < 1 || cols < 1 {
				return nil, fmt.Errorf("invalid grid %q, want grid:RxC", variant)
			}
		} else if variant != "grid" {
			return nil, fmt.Errorf("unknown detector variant: %s", variant)
		}
		return GridDetector{Rows: rows, Cols: cols}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

// GridDetector splits the image into equal cells, for visuals without
// clear contrast boundaries.
type GridDetector struct {
	Rows, Cols int
}

func (g GridDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if g.Rows < 1 || g.Cols < 1 {
		return nil, fmt.Errorf("grid must have at least one cell, got %dx%d", g.Rows, g.Cols)
	}
	blocks := make([]Block, 0, g.Rows*g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			blocks = append(blocks, Block{
				Rect: image.Rect(
					b.Min.X+b.Dx()*c/g.Cols,
					b.Min.Y+b.Dy()*r/g.Rows,
					b.Min.X+b.Dx()*(c+1)/g.Cols,
					b.Min.Y+b.Dy()*(r+1)/g.Rows,
				),
				Confidence: 1.0,
			})
		}
	}
	return blocks, nil
}
