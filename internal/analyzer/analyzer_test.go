package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func whiteBox(w, h int, boxes ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range boxes {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestEdgeDetectorSingleBlock(t *testing.T) {
	img := whiteBox(200, 200, image.Rect(50, 50, 150, 150))

	blocks, err := NewEdgeDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d: %v", len(blocks), Rects(blocks))
	}

	r := blocks[0].Rect
	if r.Dx() < 90 || r.Dy() < 90 || r.Dx() > 120 || r.Dy() > 120 {
		t.Errorf("Block does not match the white square: %v", r)
	}
	if !r.Overlaps(image.Rect(50, 50, 150, 150)) {
		t.Errorf("Block %v is away from the square", r)
	}
}

func TestEdgeDetectorSeparatesDistantBlocks(t *testing.T) {
	img := whiteBox(400, 200, image.Rect(20, 20, 120, 120), image.Rect(250, 40, 380, 160))

	blocks, err := NewEdgeDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d: %v", len(blocks), Rects(blocks))
	}
}

func TestEdgeDetectorDownscalesLargeImages(t *testing.T) {
	img := whiteBox(2000, 1000, image.Rect(500, 200, 1500, 800))
	d := NewEdgeDetector()
	d.MaxSide = 500

	blocks, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	// Coordinates come back in the source space.
	r := blocks[0].Rect
	if r.Min.X > 500 || r.Max.X < 1500 || r.Min.Y > 200 || r.Max.Y < 800 {
		t.Errorf("Block %v does not cover the source square", r)
	}
}

func TestEdgeDetectorBlankImage(t *testing.T) {
	blocks, err := NewEdgeDetector().Detect(whiteBox(100, 100))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("Expected no blocks on a blank image, got %v", Rects(blocks))
	}
}

func TestGridDetector(t *testing.T) {
	blocks, err := GridDetector{Rows: 2, Cols: 3}.Detect(image.NewGray(image.Rect(0, 0, 300, 200)))
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 6 {
		t.Fatalf("Expected 6 cells, got %d", len(blocks))
	}
	if blocks[4].Rect != image.Rect(100, 100, 200, 200) {
		t.Errorf("Unexpected cell: %v", blocks[4].Rect)
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"edges", false},
		{"", false}, // default
		{"grid", false},
		{"grid:3x4", false},
		{"grid:0x4", true},
		{"grid:abc", true},
		{"ocr", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}
