package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var builtin embed.FS

const (
	FrontDeskName = "FrontDesk"
	ConciergeName = "Concierge"
)

type AgentSpec struct {
	Name         string  `yaml:"name"`
	Role         string  `yaml:"role"` // recommender, reviewer
	Instructions string  `yaml:"instructions"`
	Temperature  float64 `yaml:"temperature"`
}

type Config struct {
	Agents map[string]AgentSpec
}

// Agent returns the persona registered under name.
func (c *Config) Agent(name string) (AgentSpec, error) {
	a, ok := c.Agents[name]
	if !ok {
		return AgentSpec{}, fmt.Errorf("agent %s not defined", name)
	}
	return a, nil
}

// Default returns the built-in FrontDesk and Concierge personas.
func Default() (*Config, error) {
	cfg := &Config{Agents: make(map[string]AgentSpec)}
	entries, err := builtin.ReadDir("definitions")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := builtin.ReadFile("definitions/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := parseAgents(e.Name(), data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFromDir starts from the built-in personas and overrides them with the
// agents defined in every *.yaml / *.yml file of dir.
func LoadFromDir(dir string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return cfg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading agents dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := parseAgents(path, data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func parseAgents(path string, data []byte, cfg *Config) error {
	var raw struct {
		Agents []AgentSpec `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, a := range raw.Agents {
		if a.Name == "" {
			return fmt.Errorf("parsing %s: agent without name", path)
		}
		a.Instructions = strings.TrimSpace(a.Instructions)
		if a.Instructions == "" {
			return fmt.Errorf("parsing %s: agent %s has no instructions", path, a.Name)
		}
		cfg.Agents[a.Name] = a
	}
	return nil
}
