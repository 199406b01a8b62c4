package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/ivlev/slidecast/internal/logger"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if filepath.Ext(path) == ".bmp" {
		require.NoError(t, bmp.Encode(f, img))
		return
	}
	require.NoError(t, png.Encode(f, img))
}

func TestSimilarityKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		number int
	}{
		{"Intro_02.png", "intro", 2},
		{"intro-10.jpg", "intro", 10},
		{"slide3.png", "slide", 3},
		{"cover.png", "cover", -1},
		{"2024.png", "2024", 2024},
	}
	for _, tt := range tests {
		key, number := similarityKey(tt.name)
		assert.Equal(t, tt.key, key, tt.name)
		assert.Equal(t, tt.number, number, tt.name)
	}
}

func TestImageSetProvider(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "scene_10.png"), 4, 3)
	writeImage(t, filepath.Join(dir, "scene_2.png"), 4, 3)
	writeImage(t, filepath.Join(dir, "alpha.bmp"), 8, 8)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	p, err := NewImageSetProvider(context.Background(), dir, Loop, logger.Discard())
	require.NoError(t, err)

	images := p.Images()
	require.Len(t, images, 3)
	assert.Equal(t, "alpha.bmp", filepath.Base(images[0].Path))
	assert.Equal(t, "scene_2.png", filepath.Base(images[1].Path))
	assert.Equal(t, "scene_10.png", filepath.Base(images[2].Path))
	for i, img := range images {
		assert.Equal(t, int64(i+1), img.ID)
	}

	w, h, err := p.GetPageDimensions(0)
	require.NoError(t, err)
	assert.Equal(t, 8.0, w)
	assert.Equal(t, 8.0, h)

	img, ok := p.Image(3)
	require.True(t, ok)
	assert.Equal(t, 10, img.Number)

	rendered, err := p.RenderPage(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, rendered.Bounds().Dx())

	assert.True(t, p.MovePrevious())
	assert.Equal(t, int64(3), p.CurrentID())
}

func TestImageSetProviderNoImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("nope"), 0644))

	_, err := NewImageSetProvider(context.Background(), dir, Sequence, logger.Discard())
	assert.Error(t, err)
}

func TestImageSetProviderCancelled(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewImageSetProvider(ctx, dir, Sequence, logger.Discard())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFProviderMissingFile(t *testing.T) {
	_, err := NewPDFProvider(filepath.Join(t.TempDir(), "missing.pdf"), Sequence)
	assert.Error(t, err)
}
