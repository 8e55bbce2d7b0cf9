package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Quiz struct {
		BankPath  string `yaml:"bank_path"` // JSON question bank file
		BankID    string `yaml:"bank_id"`   // row id when loading from Postgres
		Duration  string `yaml:"duration"`  // attempt time limit
		HighMin   int    `yaml:"high_min"`  // tier cutoffs; zero -> defaults
		MediumMin int    `yaml:"medium_min"`
		TTL       string `yaml:"ttl"` // bank cache TTL
	} `yaml:"quiz"`
	Results struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"results"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
