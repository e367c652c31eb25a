package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1e-3
	DefaultDuration = 10.0
	DefaultAbsTol   = 1e-8
	DefaultRelTol   = 1e-8
	DefaultFDStep   = 1e-9
	DefaultPeriod   = 6.0
)

// Config is one run description, loadable from yaml. CLI flags override
// file values.
type Config struct {
	Model     string    `yaml:"model"`
	Algorithm string    `yaml:"algorithm"`
	Dt        float64   `yaml:"dt"`
	Duration  float64   `yaml:"duration"`
	AbsTol    float64   `yaml:"abs_tol"`
	RelTol    float64   `yaml:"rel_tol"`
	InitState []float64 `yaml:"init_state"`
	Workers   int       `yaml:"workers"`
	FDStep    float64   `yaml:"fd_step"`
	Period    float64   `yaml:"period"`
	Exact     bool      `yaml:"exact_variational"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:     "harmonic",
		Algorithm: "dopri5",
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		AbsTol:    DefaultAbsTol,
		RelTol:    DefaultRelTol,
		FDStep:    DefaultFDStep,
		Period:    DefaultPeriod,
		Exact:     true,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
