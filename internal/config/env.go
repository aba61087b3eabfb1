package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ccastromar/aicore-agents/internal/aicore"
)

type EnvVars struct {
	Env      string `envconfig:"ENV" default:"prod"`
	Port     string `envconfig:"PORT" default:"9090"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	APIKey   string `envconfig:"API_KEY"`

	// Deployment selection
	ResourceGroup  string `envconfig:"AICORE_RESOURCE_GROUP" default:"default"`
	ScenarioID     string `envconfig:"AICORE_SCENARIO_ID" default:"foundation-models"`
	DeploymentName string `envconfig:"AICORE_DEPLOYMENT_NAME"`
	APIVersion     string `envconfig:"AICORE_API_VERSION" default:"2023-05-15"`

	// Service key
	BaseURL      string        `envconfig:"AICORE_BASE_URL"`
	AuthURL      string        `envconfig:"AICORE_AUTH_URL"`
	ClientID     string        `envconfig:"AICORE_CLIENT_ID"`
	ClientSecret string        `envconfig:"AICORE_CLIENT_SECRET"`
	HTTPTimeout  time.Duration `envconfig:"AICORE_HTTP_TIMEOUT" default:"10s"`

	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	AgentsDir         string `envconfig:"AGENTS_DIR"`
	WorkflowMaxRounds int    `envconfig:"WORKFLOW_MAX_ROUNDS" default:"3"`
}

// LoadEnv reads the given .env files (missing files are skipped) and then
// the process environment. Variables already set in the environment win.
func LoadEnv(envFiles ...string) (*EnvVars, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var v EnvVars
	if err := envconfig.Process("", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Settings is the deployment selection part of the environment.
func (v *EnvVars) Settings() aicore.Settings {
	return aicore.Settings{
		ResourceGroup:  v.ResourceGroup,
		ScenarioID:     v.ScenarioID,
		DeploymentName: v.DeploymentName,
		APIVersion:     v.APIVersion,
	}
}

// ValidateServiceKey reports the service key variables that are missing.
func (v *EnvVars) ValidateServiceKey() error {
	var missing []string
	for name, val := range map[string]string{
		"AICORE_BASE_URL":      v.BaseURL,
		"AICORE_AUTH_URL":      v.AuthURL,
		"AICORE_CLIENT_ID":     v.ClientID,
		"AICORE_CLIENT_SECRET": v.ClientSecret,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required environment variable(s): %v", missing)
}
