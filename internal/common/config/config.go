package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Backend struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (b Backend) Timeout() time.Duration { return time.Duration(b.TimeoutSeconds) * time.Second }

type Stream struct {
	Path          string `yaml:"path"`
	MaxRetries    int    `yaml:"max_retries"`
	BackoffBaseMS int    `yaml:"backoff_base_ms"`
	BackoffMaxMS  int    `yaml:"backoff_max_ms"`
}

type Gateway struct {
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
	FailureThreshold    int `yaml:"failure_threshold"`
}

type DB struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"password"`
	Name string `yaml:"database"`
}

type MQ struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Exchange string `yaml:"exchange"`
}

type Server struct {
	Port       int    `yaml:"port"`
	Token      string `yaml:"token"`
	SeedTables int    `yaml:"seed_tables"`
	Database   DB     `yaml:"database"`
	Rabbit     MQ     `yaml:"rabbitmq"`
}

type App struct {
	Backend Backend `yaml:"backend"`
	Stream  Stream  `yaml:"stream"`
	Gateway Gateway `yaml:"gateway"`
	Server  Server  `yaml:"server"`
}

func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	var a App
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse %s: %w", path, err)
	}
	a.applyDefaults()
	if a.Backend.BaseURL == "" {
		return App{}, errors.New("invalid config: missing backend base_url")
	}
	return a, nil
}

func (a *App) applyDefaults() {
	if a.Backend.TimeoutSeconds == 0 {
		a.Backend.TimeoutSeconds = 5
	}
	if a.Stream.Path == "" {
		a.Stream.Path = "/kitchen/stream"
	}
	if a.Stream.MaxRetries == 0 {
		a.Stream.MaxRetries = 5
	}
	if a.Stream.BackoffBaseMS == 0 {
		a.Stream.BackoffBaseMS = 200
	}
	if a.Stream.BackoffMaxMS == 0 {
		a.Stream.BackoffMaxMS = 5000
	}
	if a.Gateway.ProbeTimeoutSeconds == 0 {
		a.Gateway.ProbeTimeoutSeconds = 3
	}
	if a.Gateway.FailureThreshold == 0 {
		a.Gateway.FailureThreshold = 3
	}
	if a.Server.Port == 0 {
		a.Server.Port = 3000
	}
	if a.Server.SeedTables == 0 {
		a.Server.SeedTables = 8
	}
	if a.Server.Rabbit.Exchange == "" {
		a.Server.Rabbit.Exchange = "pos.events"
	}
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
