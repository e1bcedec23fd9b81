// Package config предоставляет функциональность для управления конфигурацией экспортера.
// Поддерживает загрузку настроек из файла (YAML или JSON), флагов командной строки
// и переменных окружения. Приоритет: окружение, затем флаги, затем файл,
// затем значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Значения по умолчанию.
const (
	DefaultPort            = 9912
	DefaultSmartCacheHours = 12
	DefaultScrapeTimeout   = 60 * time.Second
	DefaultWorkers         = 4
	DefaultLogLevel        = "info"
)

var (
	// ErrMissingCredentials возвращается, если не заданы TRUENAS_USER или TRUENAS_PASS.
	ErrMissingCredentials = errors.New("TRUENAS_USER and TRUENAS_PASS must be set")
	// ErrMissingTarget возвращается, если не задан адрес хранилища.
	ErrMissingTarget = errors.New("target appliance address must be set")
)

// FileConfig описывает содержимое файла конфигурации.
// JSON является подмножеством YAML, поэтому поддерживаются оба формата.
type FileConfig struct {
	Target          string `yaml:"target"`
	User            string `yaml:"user"`
	Pass            string `yaml:"pass"`
	Port            int    `yaml:"port"`
	SkipSNMP        *bool  `yaml:"skip_snmp"`
	SmartCacheHours int    `yaml:"smart_cache_hours"`
	DFExclude       string `yaml:"df_exclude"`
	ScrapeTimeout   string `yaml:"scrape_timeout"`
	Workers         int    `yaml:"workers"`
	LogLevel        string `yaml:"log_level"`
}

// Config содержит все параметры экспортера.
type Config struct {
	// Target задаёт адрес хранилища: имя хоста, IP или полный URL.
	Target string `env:"TRUENAS_TARGET"`

	// User и Pass задают учётные данные HTTP Basic для API хранилища.
	User string `env:"TRUENAS_USER"`
	Pass string `env:"TRUENAS_PASS"`

	// Port задаёт порт, на котором экспортер отдаёт /metrics.
	Port int `env:"TRUENAS_EXPORTER_PORT"`

	// SkipSNMP отключает сетевые счётчики, которые дублируют SNMP.
	SkipSNMP bool `env:"TRUENAS_SKIP_SNMP"`

	// SmartCacheHours задаёт время жизни кэша результатов SMART-тестов.
	SmartCacheHours int `env:"TRUENAS_SMART_CACHE_HOURS"`

	// DFExclude содержит регулярное выражение: совпавшие файловые системы
	// не попадают в статистику использования дисков.
	DFExclude string `env:"TRUENAS_DF_EXCLUDE"`

	// ScrapeTimeout ограничивает один полный сбор.
	ScrapeTimeout time.Duration `env:"TRUENAS_SCRAPE_TIMEOUT"`

	// Workers задаёт число одновременно работающих сборщиков.
	Workers int `env:"TRUENAS_COLLECTOR_WORKERS"`

	LogLevel string `env:"TRUENAS_LOG_LEVEL"`

	ConfigFilePath string `env:"TRUENAS_EXPORTER_CONFIG"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		SmartCacheHours: DefaultSmartCacheHours,
		ScrapeTimeout:   DefaultScrapeTimeout,
		Workers:         DefaultWorkers,
		LogLevel:        DefaultLogLevel,
	}
}

// RegisterFlags добавляет флаги экспортера в fs.
//
// Поддерживаемые флаги:
//
//	--target: адрес хранилища
//	--port: порт HTTP-сервера (по умолчанию 9912)
//	--skip-snmp: не собирать сетевые счётчики
//	--smart-cache-hours: время жизни кэша SMART (по умолчанию 12)
//	--df-exclude: регулярное выражение для исключения файловых систем
//	--scrape-timeout: срок одного сбора (по умолчанию 60s)
//	--workers: число параллельных сборщиков (по умолчанию 4)
//	--log-level: уровень логирования (по умолчанию info)
//	--config: путь к файлу конфигурации
//
// Учётные данные принимаются только из окружения или файла.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("target", "", "TrueNAS appliance host name, IP or URL")
	fs.Int("port", d.Port, "port to expose /metrics on")
	fs.Bool("skip-snmp", false, "skip network interface counters that overlap with SNMP")
	fs.Int("smart-cache-hours", d.SmartCacheHours, "hours to cache SMART test results")
	fs.String("df-exclude", "", "regular expression of filesystems to exclude from usage stats")
	fs.Duration("scrape-timeout", d.ScrapeTimeout, "deadline for a single scrape")
	fs.Int("workers", d.Workers, "number of collectors run concurrently")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("config", "", "path to a YAML or JSON config file")
}

// Load собирает конфигурацию из файла, разобранных флагов fs и окружения
// и проверяет её.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	path := os.Getenv("TRUENAS_EXPORTER_CONFIG")
	if fs != nil && fs.Changed("config") {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		fc, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.applyFile(fc); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		cfg.ConfigFilePath = path
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile читает файл конфигурации.
func ReadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func (c *Config) applyFile(fc FileConfig) error {
	c.Target = getString(fc.Target, c.Target)
	c.User = getString(fc.User, c.User)
	c.Pass = getString(fc.Pass, c.Pass)
	c.Port = getInt(fc.Port, c.Port)
	if fc.SkipSNMP != nil {
		c.SkipSNMP = *fc.SkipSNMP
	}
	c.SmartCacheHours = getInt(fc.SmartCacheHours, c.SmartCacheHours)
	c.DFExclude = getString(fc.DFExclude, c.DFExclude)
	if fc.ScrapeTimeout != "" {
		d, err := time.ParseDuration(fc.ScrapeTimeout)
		if err != nil {
			return fmt.Errorf("scrape_timeout: %w", err)
		}
		c.ScrapeTimeout = d
	}
	c.Workers = getInt(fc.Workers, c.Workers)
	c.LogLevel = getString(fc.LogLevel, c.LogLevel)
	return nil
}

// applyFlags переносит только явно заданные флаги.
func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "target":
			c.Target, err = fs.GetString(f.Name)
		case "port":
			c.Port, err = fs.GetInt(f.Name)
		case "skip-snmp":
			c.SkipSNMP, err = fs.GetBool(f.Name)
		case "smart-cache-hours":
			c.SmartCacheHours, err = fs.GetInt(f.Name)
		case "df-exclude":
			c.DFExclude, err = fs.GetString(f.Name)
		case "scrape-timeout":
			c.ScrapeTimeout, err = fs.GetDuration(f.Name)
		case "workers":
			c.Workers, err = fs.GetInt(f.Name)
		case "log-level":
			c.LogLevel, err = fs.GetString(f.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}

// Validate проверяет обязательные параметры и корректность значений.
func (c Config) Validate() error {
	if c.User == "" || c.Pass == "" {
		return ErrMissingCredentials
	}
	if c.Target == "" {
		return ErrMissingTarget
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SmartCacheHours < 0 {
		return fmt.Errorf("invalid smart cache hours %d", c.SmartCacheHours)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers %d", c.Workers)
	}
	if _, err := c.DFExcludeRegexp(); err != nil {
		return err
	}
	return nil
}

// DFExcludeRegexp компилирует DFExclude. Пустое выражение даёт nil.
func (c Config) DFExcludeRegexp() (*regexp.Regexp, error) {
	if c.DFExclude == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.DFExclude)
	if err != nil {
		return nil, fmt.Errorf("invalid df exclude pattern: %w", err)
	}
	return re, nil
}

// SmartCacheTTL возвращает время жизни кэша SMART.
func (c Config) SmartCacheTTL() time.Duration {
	return time.Duration(c.SmartCacheHours) * time.Hour
}

// Addr возвращает адрес, на котором слушает HTTP-сервер.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// getString возвращает значение из файла, если оно задано,
// иначе текущее значение.
func getString(fileValue, current string) string {
	if fileValue != "" {
		return fileValue
	}
	return current
}

// getInt возвращает значение из файла, если оно задано,
// иначе текущее значение.
func getInt(fileValue, current int) int {
	if fileValue != 0 {
		return fileValue
	}
	return current
}
