// Package config содержит конфигурацию развёртывания топологии.
//
// Источники по возрастанию приоритета: Default(), YAML-файл, .env,
// переменные окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/yaml.v3"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// Config — корневая конфигурация.
type Config struct {
	Broker    BrokerConfig    `yaml:"broker"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Audit     AuditConfig     `yaml:"audit"`
	Topology  topology.Spec   `yaml:"topology"`
}

// BrokerConfig — параметры подключения к RabbitMQ.
type BrokerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	VHost          string `yaml:"vhost"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	DialTimeoutSec int    `yaml:"dial_timeout_sec"`
}

// ReadinessConfig — политика ожидания брокера.
type ReadinessConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	IntervalSec int `yaml:"interval_sec"`
}

// MetricsConfig — порт /metrics для команды watch.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// AuditConfig — журнал прогонов в PostgreSQL. Пустой DBURL отключает журнал.
type AuditConfig struct {
	DBURL string `yaml:"db_url"`
}

// Default возвращает конфигурацию по умолчанию с фиксированной топологией.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host:           "localhost",
			Port:           5672,
			VHost:          "/",
			Username:       "admin",
			Password:       "admin123",
			DialTimeoutSec: 5,
		},
		Readiness: ReadinessConfig{
			MaxAttempts: 30,
			IntervalSec: 2,
		},
		Metrics: MetricsConfig{
			Port: 9102,
		},
		Topology: topology.DefaultSpec(),
	}
}

// Load читает YAML-файл поверх Default(). Отсутствующий файл (или пустой
// path) — не ошибка. Затем загружается .env (если есть) и применяются
// переменные окружения:
//
//	RABBITMQ_HOST, RABBITMQ_PORT, RABBITMQ_VHOST,
//	RABBITMQ_USER, RABBITMQ_PASSWORD,
//	READINESS_MAX_ATTEMPTS, READINESS_INTERVAL_SEC,
//	METRICS_PORT, DB_URL
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env только для локального запуска, его отсутствие не ошибка
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения на cfg.
func applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"RABBITMQ_HOST", &cfg.Broker.Host},
		{"RABBITMQ_VHOST", &cfg.Broker.VHost},
		{"RABBITMQ_USER", &cfg.Broker.Username},
		{"RABBITMQ_PASSWORD", &cfg.Broker.Password},
		{"DB_URL", &cfg.Audit.DBURL},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RABBITMQ_PORT", &cfg.Broker.Port},
		{"READINESS_MAX_ATTEMPTS", &cfg.Readiness.MaxAttempts},
		{"READINESS_INTERVAL_SEC", &cfg.Readiness.IntervalSec},
		{"METRICS_PORT", &cfg.Metrics.Port},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", i.key, err)
		}
		*i.dst = n
	}

	return nil
}

// Validate проверяет значения и возвращает первую найденную ошибку.
// Топология проверяется отдельно через Definition.
func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return errors.New("broker.host must not be empty")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return errors.New("broker.port must be between 1 and 65535")
	}
	if c.Broker.VHost == "" {
		return errors.New("broker.vhost must not be empty")
	}
	if c.Broker.Username == "" {
		return errors.New("broker.username must not be empty")
	}
	if c.Readiness.MaxAttempts < 1 {
		return errors.New("readiness.max_attempts must be at least 1")
	}
	if c.Readiness.IntervalSec < 0 {
		return errors.New("readiness.interval_sec must be >= 0")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	return nil
}

// Definition проверяет и возвращает топологию из конфигурации.
func (c *Config) Definition() (*topology.Definition, error) {
	def, err := topology.New(c.Topology)
	if err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	return def, nil
}

// URL возвращает AMQP URI брокера.
func (b BrokerConfig) URL() string {
	return amqp.URI{
		Scheme:   "amqp",
		Host:     b.Host,
		Port:     b.Port,
		Username: b.Username,
		Password: b.Password,
		Vhost:    b.VHost,
	}.String()
}

// DialTimeout возвращает таймаут подключения.
func (b BrokerConfig) DialTimeout() time.Duration {
	return time.Duration(b.DialTimeoutSec) * time.Second
}

// Interval возвращает паузу между попытками ожидания.
func (r ReadinessConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSec) * time.Second
}
