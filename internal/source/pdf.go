package source

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// PDFProvider exposes the pages of a PDF as waypoints 1..N.
type PDFProvider struct {
	cursor
	doc  *fitz.Document
	path string
}

func NewPDFProvider(path string, policy Policy) (*PDFProvider, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	n := doc.NumPage()
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return &PDFProvider{cursor: cursor{ids: ids, policy: policy}, doc: doc, path: path}, nil
}

func (f *PDFProvider) PageCount() int {
	return f.doc.NumPage()
}

func (f *PDFProvider) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens its own document handle; fitz documents are not safe for
// concurrent use.
func (f *PDFProvider) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *PDFProvider) Close() error {
	return f.doc.Close()
}
