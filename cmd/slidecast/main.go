package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/system"
)

var buildVersion = "dev"

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"record", "записать тайминги переходов вручную", runRecord},
	{"play", "воспроизвести записанную последовательность", runPlay},
	{"export", "выгрузить тайминги в текстовый скрипт", runExport},
	{"import", "загрузить отредактированный скрипт", runImport},
	{"show", "показать сохранённые последовательности", runShow},
	{"init", "создать сценарий ключевых кадров по изображению или PDF", runInit},
}

func usage() {
	fmt.Fprintf(os.Stderr, "slidecast %s\n\nИспользование: slidecast <команда> [флаги]\n\n", buildVersion)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr, "\nФлаги команды: slidecast <команда> -h")
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = buildVersion

	name, args := os.Args[1], os.Args[2:]
	if name == "version" {
		fmt.Println(buildVersion)
		return
	}

	var run func(context.Context, *config.Config, []string) error
	for _, c := range commands {
		if c.name == name {
			run = c.run
		}
	}
	if run == nil {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, args)

	if cfg.ShowStats {
		if report, serr := system.CurrentProcessReport(); serr == nil {
			fmt.Printf("[*] %s\n", report)
		} else {
			log.Printf("[!] Не удалось получить статистику процесса: %v", serr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		log.Fatalf("[-] Ошибка: %v", err)
	}
}

// setup parses the command flags and applies the logging settings.
func setup(cfg *config.Config, fs interface{ Parse([]string) error }, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	}
	return nil
}
