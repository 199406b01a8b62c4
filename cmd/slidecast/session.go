package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/timing"
)

// consoleSink prints notifications and keeps the deck in step with playback.
type consoleSink struct {
	deck      *deck
	completed chan struct{}
	once      sync.Once
}

func newConsoleSink(d *deck) *consoleSink {
	return &consoleSink{deck: d, completed: make(chan struct{})}
}

func (s *consoleSink) OnSwitchWaypointRequested(ref timing.WaypointRef) error {
	id := ref.TargetID()
	s.deck.seek(id)
	fmt.Printf("[>] %s\n", s.deck.describe(id))
	return nil
}

func (s *consoleSink) OnPlaybackCompleted() error {
	s.once.Do(func() { close(s.completed) })
	return nil
}

func (s *consoleSink) OnRecordingStopped(count int) error {
	fmt.Printf("[+++] Сохранено переходов: %d\n", count)
	return nil
}

func runRecord(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	var src sourceFlags
	src.register(fs)
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	return withSession(ctx, cfg, &src, func(ctx context.Context, a *app, d *deck, sink *consoleSink, input <-chan string) error {
		start, err := source.StartID(d.provider)
		if err != nil {
			return err
		}
		d.seek(start)
		if _, err := a.coord.StartRecording(d.owner, d.mode); err != nil {
			return err
		}
		fmt.Printf("[*] Запись: владелец %d, режим %s. Сейчас: %s\n", d.owner, d.mode, d.describe(start))
		fmt.Println("[*] Enter/n - вперёд, p - назад, q - сохранить, x - отменить")
		return recordLoop(ctx, a, d, sink, start, input)
	})
}

func recordLoop(ctx context.Context, a *app, d *deck, sink *consoleSink, start int64, input <-chan string) error {
	eof := false
	for {
		var line string
		select {
		case <-ctx.Done():
			_ = a.coord.DiscardRecording(d.owner)
			fmt.Println("[!] Прервано, запись не сохранена")
			return nil
		case l, ok := <-input:
			if !ok {
				eof, line = true, "q"
			} else {
				line = l
			}
		}

		switch line {
		case "", "n", "p":
			from, to, moved := d.step(line != "p")
			if !moved {
				fmt.Println("[!] Переход невозможен")
				continue
			}
			// Coming back to the first waypoint going forward closes the loop.
			loop := line != "p" && to == start
			if err := a.coord.RecordTransition(ctx, d.owner, d.ref(from, to), loop); err != nil {
				log.Printf("[!] Не удалось записать переход: %v", err)
				continue
			}
			fmt.Printf("[>] %s\n", d.describe(to))
			if loop {
				fmt.Printf("[*] Цикл завершён, воспроизведение через %s\n", a.cfg.AutoPlayDelay)
				return playLoop(ctx, a, d, sink, input)
			}
		case "q":
			if _, err := a.coord.StopRecording(ctx, d.owner); err != nil {
				log.Printf("[!] Не удалось сохранить запись (q - повторить, x - отменить): %v", err)
				if eof || errors.Is(err, timing.ErrNotActive) {
					return err
				}
				continue
			}
			return nil
		case "x":
			if err := a.coord.DiscardRecording(d.owner); err != nil {
				return err
			}
			fmt.Println("[*] Запись отменена")
			return nil
		default:
			fmt.Println("[!] Неизвестная команда")
		}
	}
}

func runPlay(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	var src sourceFlags
	src.register(fs)
	if err := setup(cfg, fs, args); err != nil {
		return err
	}

	return withSession(ctx, cfg, &src, func(ctx context.Context, a *app, d *deck, sink *consoleSink, input <-chan string) error {
		if start, err := source.StartID(d.provider); err == nil {
			d.seek(start)
		}
		if _, err := a.coord.StartPlayback(ctx, d.owner, d.mode, cfg.PlayCount); err != nil {
			return err
		}
		fmt.Printf("[*] Воспроизведение: владелец %d, режим %s, проигрываний: %d\n", d.owner, d.mode, cfg.PlayCount)
		return playLoop(ctx, a, d, sink, input)
	})
}

func playLoop(ctx context.Context, a *app, d *deck, sink *consoleSink, input <-chan string) error {
	fmt.Println("[*] p - пауза, r - продолжить, n - следующий вручную, s - статус, q - стоп")
	for {
		select {
		case <-ctx.Done():
			_ = a.coord.StopPlayback(d.owner)
			return nil
		case <-sink.completed:
			fmt.Println("[+++] Воспроизведение завершено")
			return nil
		case line, ok := <-input:
			if !ok {
				// stdin closed: let the playback run out
				input = nil
				continue
			}
			var err error
			switch line {
			case "p":
				err = a.coord.Pause(d.owner)
			case "r":
				err = a.coord.Resume(d.owner)
			case "n", "":
				from, to, moved := d.step(true)
				if !moved {
					fmt.Println("[!] Переход невозможен")
					continue
				}
				fmt.Printf("[>] %s (вручную)\n", d.describe(to))
				err = a.coord.ManualOverride(ctx, d.owner, from, to)
			case "s":
				st := a.coord.Status(d.owner)
				if st.Playback != nil {
					fmt.Printf("[*] %s | позиция %d/%d | осталось проигрываний %d | до перехода %.1fs\n",
						st.Playback.State, st.Playback.Index+1, st.Playback.Entries, st.Playback.RemainingPlays, st.Playback.WaitLeft)
				} else {
					fmt.Printf("[*] %s\n", st.Kind)
				}
			case "q":
				if err := a.coord.StopPlayback(d.owner); err != nil && !errors.Is(err, timing.ErrNotActive) {
					return err
				}
				fmt.Println("[*] Остановлено")
				return nil
			default:
				fmt.Println("[!] Неизвестная команда")
			}
			if err != nil {
				log.Printf("[!] %v", err)
			}
		}
	}
}

// withSession opens the store and the source, subscribes a console sink and
// runs body next to the optional metrics server.
func withSession(ctx context.Context, cfg *config.Config, src *sourceFlags, body func(context.Context, *app, *deck, *consoleSink, <-chan string) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	d, err := src.open(ctx, cfg, a.log)
	if err != nil {
		return err
	}
	defer d.close()
	if err := d.requireProvider(); err != nil {
		return err
	}

	sink := newConsoleSink(d)
	if err := a.coord.Subscribe(d.owner, sink); err != nil {
		return err
	}
	defer a.coord.Unsubscribe(d.owner)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	a.serveMetrics(gctx, g)
	g.Go(func() error {
		defer cancel()
		return body(gctx, a, d, sink, readLines())
	})
	return g.Wait()
}
