package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// EdgeDetector finds text and picture blocks from gradient magnitude: Sobel
// edges are thickened so nearby strokes merge, then each connected component
// becomes a block.
type EdgeDetector struct {
	MinBlockArea  int     // Minimum area in pixels² of the source image
	EdgeThreshold float64 // Gradient magnitude threshold
	DilateRadius  int     // Half-width of the dilation window
	MaxSide       int     // Longer side is downscaled to this before analysis; 0 disables
}

// NewEdgeDetector creates a detector with default settings
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
		DilateRadius:  4,
		MaxSide:       1024,
	}
}

// Detect returns blocks in source image coordinates
func (d *EdgeDetector) Detect(img image.Image) ([]Block, error) {
	src := img.Bounds()
	if src.Empty() {
		return nil, nil
	}

	gray, scale := d.grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	mask := sobel(gray, d.EdgeThreshold)
	mask = dilate(mask, w, h, d.DilateRadius)

	var blocks []Block
	for _, r := range components(mask, w, h) {
		// Back to source coordinates
		r = image.Rect(
			src.Min.X+int(float64(r.Min.X)/scale),
			src.Min.Y+int(float64(r.Min.Y)/scale),
			src.Min.X+int(math.Ceil(float64(r.Max.X)/scale)),
			src.Min.Y+int(math.Ceil(float64(r.Max.Y)/scale)),
		).Intersect(src)
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: r, Confidence: 0.7})
	}
	return blocks, nil
}

// grayscale converts img to a zero-origin gray image, downscaling it when
// its longer side exceeds MaxSide. It returns the applied scale factor.
func (d *EdgeDetector) grayscale(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	scale := 1.0
	if longest := max(b.Dx(), b.Dy()); d.MaxSide > 0 && longest > d.MaxSide {
		scale = float64(d.MaxSide) / float64(longest)
	}
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	if scale == 1.0 {
		draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, draw.Src, nil)
	}
	return gray, scale
}

func sobel(gray *image.Gray, threshold float64) []bool {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	mask := make([]bool, w*h)
	px := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			mask[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return mask
}

// dilate grows the mask by r pixels in every direction, one axis at a time.
func dilate(mask []bool, w, h, r int) []bool {
	if r <= 0 {
		return mask
	}
	horiz := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		last := -r - 1 // x of the most recent set pixel
		for x := 0; x < w+r; x++ {
			if x < w && mask[y*w+x] {
				last = x
			}
			if t := x - r; t >= 0 && t < w {
				horiz[y*w+t] = x-last <= 2*r
			}
		}
	}
	out := make([]bool, len(mask))
	for x := 0; x < w; x++ {
		last := -r - 1
		for y := 0; y < h+r; y++ {
			if y < h && horiz[y*w+x] {
				last = y
			}
			if t := y - r; t >= 0 && t < h {
				out[t*w+x] = y-last <= 2*r
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []image.Rectangle {
	visited := make([]bool, len(mask))
	var rects []image.Rectangle
	var stack []int

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		minX, minY := w, h
		maxX, maxY := -1, -1
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) || visited[n] || !mask[n] {
					continue
				}
				// no wrapping across row ends
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}
		rects = append(rects, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return rects
}
