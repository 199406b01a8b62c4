package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidecast/internal/logger"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Image is one waypoint of an image set.
type Image struct {
	ID     int64
	Path   string
	Group  string // similarity key shared by related images
	Number int    // trailing number in the file name, -1 when absent
	Width  int
	Height int
}

// ImageSetProvider walks the images of a directory, grouped by file name
// similarity and ordered by group then number. IDs are 1-based in that
// order.
type ImageSetProvider struct {
	cursor
	images []Image
}

// NewImageSetProvider scans dir. Files that cannot be decoded are skipped.
func NewImageSetProvider(ctx context.Context, dir string, policy Policy, log *slog.Logger) (*ImageSetProvider, error) {
	log = logger.OrDefault(log)

	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
	} else {
		paths = []string{dir}
	}

	probed := make([]*Image, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg, err := probe(path)
			if err != nil {
				log.Warn("skipping unreadable image", "path", path, "error", err)
				return nil
			}
			group, number := similarityKey(filepath.Base(path))
			probed[i] = &Image{Path: path, Group: group, Number: number, Width: cfg.Width, Height: cfg.Height}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var images []Image
	for _, img := range probed {
		if img != nil {
			images = append(images, *img)
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no readable images in %s", dir)
	}

	sort.Slice(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.Path < b.Path
	})

	ids := make([]int64, len(images))
	for i := range images {
		images[i].ID = int64(i + 1)
		ids[i] = images[i].ID
	}
	log.Debug("image set loaded", "dir", dir, "images", len(images), "skipped", len(paths)-len(images))

	return &ImageSetProvider{cursor: cursor{ids: ids, policy: policy}, images: images}, nil
}

func probe(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

// similarityKey strips the extension and any trailing number with its
// separators: "Intro_02.png" and "intro-10.jpg" both map to "intro".
func similarityKey(name string) (string, int) {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	end := len(stem)
	for end > 0 && stem[end-1] >= '0' && stem[end-1] <= '9' {
		end--
	}
	number := -1
	if end < len(stem) {
		number, _ = strconv.Atoi(stem[end:])
	}
	key := strings.TrimRight(stem[:end], " _-.")
	if key == "" {
		key = stem
	}
	return key, number
}

// Images returns the ordered set.
func (s *ImageSetProvider) Images() []Image {
	return append([]Image(nil), s.images...)
}

// Image returns the image with the given id.
func (s *ImageSetProvider) Image(id int64) (Image, bool) {
	if id < 1 || int(id) > len(s.images) {
		return Image{}, false
	}
	return s.images[id-1], true
}

func (s *ImageSetProvider) PageCount() int {
	return len(s.images)
}

func (s *ImageSetProvider) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= len(s.images) {
		return 0, 0, fmt.Errorf("index %d out of range", index)
	}
	return float64(s.images[index].Width), float64(s.images[index].Height), nil
}

func (s *ImageSetProvider) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= len(s.images) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	f, err := os.Open(s.images[index].Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *ImageSetProvider) Close() error {
	return nil
}
