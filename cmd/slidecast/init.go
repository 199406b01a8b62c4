package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/slidecast/internal/analyzer"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/director"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
)

func runInit(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	input := fs.String("input", "", "Изображение или PDF (по умолчанию: самый свежий PDF в input/pdf/)")
	page := fs.Int("page", 1, "Страница PDF")
	slideID := fs.Int64("slide", 1, "ID слайда в сценарии")
	detectorName := fs.String("detector", "edges", "Поиск областей: edges, grid, grid:RxC")
	out := fs.String("o", "", "Файл сценария (если существует, слайд будет заменён)")
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	inputPath := *input
	if inputPath == "" {
		latest, err := system.FindLatest(filepath.Join("input", "pdf"), system.PDFExtensions...)
		if err != nil {
			return fmt.Errorf("%w. Положите PDF в input/pdf/ или укажите -input", err)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	img, err := renderInput(ctx, cfg, inputPath, *page)
	if err != nil {
		return fmt.Errorf("рендеринг %s: %w", inputPath, err)
	}

	detector, err := analyzer.NewDetector(*detectorName)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Анализ %s (%dx%d)...\n", inputPath, img.Bounds().Dx(), img.Bounds().Dy())
	blocks, err := detector.Detect(img)
	if err != nil {
		return err
	}

	slide, err := director.NewDirector(cfg.Width, cfg.Height).BuildSlide(*slideID, inputPath, analyzer.Rects(blocks))
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		if err := os.MkdirAll(cfg.ScenariosDir, 0755); err != nil {
			return err
		}
		path = director.GenerateScenarioPath(cfg.ScenariosDir)
	}

	scenario := director.NewScenario()
	if existing, err := director.ReadScenario(path); err == nil {
		scenario = existing
	} else if !os.IsNotExist(err) {
		return err
	}
	replaced := false
	for i := range scenario.Slides {
		if scenario.Slides[i].ID == slide.ID {
			scenario.Slides[i] = slide
			replaced = true
		}
	}
	if !replaced {
		scenario.Slides = append(scenario.Slides, slide)
	}

	if err := director.WriteScenario(scenario, path); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! Сценарий сохранен: %s (слайд %d, ключевых кадров: %d)\n", path, slide.ID, len(slide.Keyframes))
	return nil
}

func renderInput(ctx context.Context, cfg *config.Config, path string, page int) (image.Image, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		p, err := source.NewPDFProvider(path, source.Sequence)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		if page < 1 || page > p.PageCount() {
			return nil, fmt.Errorf("страница %d вне диапазона 1..%d", page, p.PageCount())
		}
		return p.RenderPage(page-1, cfg.DPI)
	}

	p, err := source.NewImageSetProvider(ctx, path, source.Sequence, nil)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.RenderPage(0, cfg.DPI)
}
