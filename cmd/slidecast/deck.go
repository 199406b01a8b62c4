package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/director"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
	"github.com/ivlev/slidecast/internal/timing"
)

// sourceFlags selects what the presenter moves between and who owns the
// timings.
type sourceFlags struct {
	keyframes string
	slide     int64
	images    string
	pdf       string
	loop      bool
	owner     int64
	mode      string
}

func (s *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.keyframes, "keyframes", "", "Сценарий с ключевыми кадрами (YAML); по умолчанию самый свежий в папке сценариев")
	fs.Int64Var(&s.slide, "slide", 0, "ID слайда в сценарии (владелец таймингов ключевых кадров)")
	fs.StringVar(&s.images, "images", "", "Папка с изображениями (режим original)")
	fs.StringVar(&s.pdf, "pdf", "", "PDF или папка с PDF (страницы как изображения, режим original)")
	fs.BoolVar(&s.loop, "loop", false, "Зациклить переходы по изображениям")
	fs.Int64Var(&s.owner, "owner", 1, "ID владельца для режима original")
	fs.StringVar(&s.mode, "mode", "", "keyframe или original, если источник не указан")
}

// deck is the provider shared by the input loop and the notification sink.
type deck struct {
	mu       sync.Mutex
	provider source.Provider
	mode     timing.Mode
	owner    int64
	closer   io.Closer
	label    func(id int64) string
}

func (s *sourceFlags) open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*deck, error) {
	policy := source.Sequence
	if s.loop {
		policy = source.Loop
	}

	switch {
	case s.images != "":
		p, err := source.NewImageSetProvider(ctx, s.images, policy, log)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Изображений: %d (%s)\n", p.Count(), policy)
		return &deck{provider: p, mode: timing.ModeOriginal, owner: s.owner, closer: p, label: func(id int64) string {
			if img, ok := p.Image(id); ok {
				return fmt.Sprintf("#%d %s", id, img.Path)
			}
			return fmt.Sprintf("#%d", id)
		}}, nil

	case s.pdf != "":
		path, err := system.ResolveInput(s.pdf, system.PDFExtensions...)
		if err != nil {
			return nil, err
		}
		p, err := source.NewPDFProvider(path, policy)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Выбран файл: %s | Страниц: %d\n", path, p.Count())
		return &deck{provider: p, mode: timing.ModeOriginal, owner: s.owner, closer: p, label: func(id int64) string {
			return fmt.Sprintf("страница %d", id)
		}}, nil
	}

	if s.keyframes == "" && s.mode != "" {
		mode, err := timing.ParseMode(s.mode)
		if err != nil {
			return nil, err
		}
		owner := s.owner
		if mode == timing.ModeKeyframe && s.slide != 0 {
			owner = s.slide
		}
		return &deck{mode: mode, owner: owner}, nil
	}

	path := s.keyframes
	if path == "" {
		latest, err := director.FindLatestScenario(cfg.ScenariosDir)
		if err != nil {
			return nil, fmt.Errorf("%w. Укажите -keyframes, -images или -pdf", err)
		}
		path = latest
	}
	scenario, err := director.ReadScenario(path)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[*] Используется сценарий: %s\n", path)

	slideID := s.slide
	if slideID == 0 {
		if len(scenario.Slides) != 1 {
			return nil, fmt.Errorf("в сценарии %d слайдов, укажите -slide", len(scenario.Slides))
		}
		slideID = scenario.Slides[0].ID
	}
	slide, err := scenario.Slide(slideID)
	if err != nil {
		return nil, err
	}
	p, err := source.NewKeyframeProvider(*slide, policy)
	if err != nil {
		return nil, err
	}
	ordinals := source.Ordinals(p)
	return &deck{provider: p, mode: timing.ModeKeyframe, owner: slideID, label: func(id int64) string {
		kf, _ := p.Keyframe(id)
		if kf.Focus != "" {
			return fmt.Sprintf("кадр %d (%s)", ordinals[id], kf.Focus)
		}
		return fmt.Sprintf("кадр %d", ordinals[id])
	}}, nil
}

func (d *deck) close() {
	if d.closer != nil {
		_ = d.closer.Close()
	}
}

func (d *deck) requireProvider() error {
	if d.provider == nil {
		return errors.New("нужен источник: -keyframes, -images или -pdf")
	}
	return nil
}

func (d *deck) current() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.provider.CurrentID()
}

// step moves one waypoint and returns both ends of the transition.
func (d *deck) step(forward bool) (from, to int64, moved bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	from = d.provider.CurrentID()
	if forward {
		moved = d.provider.MoveNext()
	} else {
		moved = d.provider.MovePrevious()
	}
	return from, d.provider.CurrentID(), moved
}

func (d *deck) seek(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	source.SeekTo(d.provider, id)
}

func (d *deck) ref(from, to int64) timing.WaypointRef {
	if d.mode == timing.ModeKeyframe {
		return timing.Keyframe(to)
	}
	return timing.ImagePair(from, to)
}

func (d *deck) ordinals() map[int64]int {
	if d.provider == nil || d.mode != timing.ModeKeyframe {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return source.Ordinals(d.provider)
}

func (d *deck) describe(id int64) string {
	if d.label == nil {
		return fmt.Sprintf("#%d", id)
	}
	return d.label(id)
}

// readLines feeds stdin lines to the returned channel until EOF. The reader
// goroutine cannot be interrupted; it dies with the process.
func readLines() <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			ch <- strings.TrimSpace(scanner.Text())
		}
	}()
	return ch
}
