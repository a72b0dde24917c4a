package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Forecast  Forecast  `yaml:"forecast"`
	Basket    Basket    `yaml:"basket"`
	Recommend Recommend `yaml:"recommend"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Forecast struct {
	HorizonWeeks int     `yaml:"horizon_weeks"`
	LookBack     int     `yaml:"look_back"`
	Estimators   int     `yaml:"estimators"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxDepth     int     `yaml:"max_depth"`
	MinLeaf      int     `yaml:"min_leaf"`
}

type Basket struct {
	MinSupport     float64  `yaml:"min_support"`
	MinLift        float64  `yaml:"min_lift"`
	MinItemCount   int      `yaml:"min_item_count"`
	DropCategories []string `yaml:"drop_categories"`
}

type Recommend struct {
	GrowthThreshold  float64 `yaml:"growth_threshold"`
	DeclineThreshold float64 `yaml:"decline_threshold"`
	AnchorMinLift    float64 `yaml:"anchor_min_lift"`
	MinConfidence    float64 `yaml:"min_confidence"`
	DeadStockPool    int     `yaml:"dead_stock_pool"`
}

type Pipeline struct {
	Workers int `yaml:"workers"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for niaga.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "niaga")
}

// DataDir returns the XDG data directory for niaga.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "niaga")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/niaga/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'niaga init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Forecast: Forecast{
			HorizonWeeks: 10,
			LookBack:     4,
			Estimators:   300,
			LearningRate: 0.05,
			MaxDepth:     4,
			MinLeaf:      2,
		},
		Basket: Basket{
			MinSupport:     0.1,
			MinLift:        2.0,
			MinItemCount:   5,
			DropCategories: []string{"POSTAGE"},
		},
		Recommend: Recommend{
			GrowthThreshold:  0.1,
			DeclineThreshold: 0.1,
			AnchorMinLift:    1.5,
			MinConfidence:    0.3,
			DeadStockPool:    5,
		},
		Pipeline: Pipeline{Workers: 1},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
