// Package config loads slidecast settings from SLIDECAST_* environment
// variables; command-line flags registered by RegisterFlags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBPath        string        `env:"SLIDECAST_DB" envDefault:"slidecast.db"`
	ScenariosDir  string        `env:"SLIDECAST_SCENARIOS_DIR" envDefault:"scenarios"`
	AutoPlayDelay time.Duration `env:"SLIDECAST_AUTOPLAY_DELAY" envDefault:"300ms"`
	AutoPlayCount int           `env:"SLIDECAST_AUTOPLAY_COUNT" envDefault:"1"`
	PlayCount     int           `env:"SLIDECAST_PLAY_COUNT" envDefault:"1"`
	MetricsAddr   string        `env:"SLIDECAST_METRICS_ADDR"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Verbose       bool          `env:"SLIDECAST_VERBOSE"`
	ShowStats     bool          `env:"SLIDECAST_SHOW_STATS"`
	Width         int           `env:"SLIDECAST_WIDTH" envDefault:"1280"`
	Height        int           `env:"SLIDECAST_HEIGHT" envDefault:"720"`
	DPI           int           `env:"SLIDECAST_DPI" envDefault:"150"`
	BuildVersion  string
}

// Load reads the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// RegisterFlags binds the shared flags to fs, using the current values as
// defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Путь к базе SQLite с таймингами")
	fs.StringVar(&c.ScenariosDir, "scenarios", c.ScenariosDir, "Папка со сценариями (ключевые кадры)")
	fs.DurationVar(&c.AutoPlayDelay, "autoplay-delay", c.AutoPlayDelay, "Пауза перед автозапуском после записи цикла")
	fs.IntVar(&c.AutoPlayCount, "autoplay-count", c.AutoPlayCount, "Сколько раз проиграть после записи цикла")
	fs.IntVar(&c.PlayCount, "count", c.PlayCount, "Количество проигрываний")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Адрес для /metrics (например, :9090); пусто - выключено")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "Подробный лог")
	fs.BoolVar(&c.ShowStats, "stats", c.ShowStats, "Показать статистику процесса при выходе")
	fs.IntVar(&c.Width, "width", c.Width, "Ширина")
	fs.IntVar(&c.Height, "height", c.Height, "Высота")
	fs.IntVar(&c.DPI, "dpi", c.DPI, "DPI для рендеринга PDF")
}

// Validate checks the values after flags are parsed.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.AutoPlayDelay < 0 {
		errs = append(errs, fmt.Errorf("autoplay delay must not be negative, got %s", c.AutoPlayDelay))
	}
	if c.AutoPlayCount < 1 {
		errs = append(errs, fmt.Errorf("autoplay count must be at least 1, got %d", c.AutoPlayCount))
	}
	if c.PlayCount < 1 {
		errs = append(errs, fmt.Errorf("play count must be at least 1, got %d", c.PlayCount))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.DPI <= 0 {
		errs = append(errs, fmt.Errorf("dpi must be positive, got %d", c.DPI))
	}
	return errors.Join(errs...)
}
