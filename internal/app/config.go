package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/Tombirdi473/telegrambot/core/config"
	"github.com/Tombirdi473/telegrambot/internal/cast"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
)

const defaultPromoCode = "WELCOME"

// Config aggregates core runtime settings with the funnel's content knobs.
type Config struct {
	Core   coreconfig.Config `yaml:",inline"`
	Funnel funnel.Config     `yaml:"funnel"`
	Cast   cast.Config       `yaml:"cast"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Core }

// Load reads configuration from an optional .env file, an optional YAML file
// and environment variables, then validates it. Validation failure aborts
// startup; nothing else is allowed to.
func Load(path string) (*Config, error) {
	var cfg Config

	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
		// Env-only deployments are fine; the YAML file is optional.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	f := &cfg.Funnel
	if strings.TrimSpace(f.RegistrationURL) == "" {
		return fmt.Errorf("funnel.registration_url is required")
	}
	if strings.TrimSpace(f.HelpContact) == "" {
		return fmt.Errorf("funnel.help_contact is required")
	}
	if strings.TrimSpace(f.ChannelName) == "" {
		return fmt.Errorf("funnel.channel_name is required")
	}
	if strings.TrimSpace(f.InstructionURL) == "" {
		return fmt.Errorf("funnel.instruction_url is required")
	}
	f.HelpContact = strings.TrimPrefix(strings.TrimSpace(f.HelpContact), "@")
	f.ChannelName = strings.TrimPrefix(strings.TrimSpace(f.ChannelName), "@")
	if strings.TrimSpace(f.PromoCode) == "" {
		f.PromoCode = defaultPromoCode
	}

	if cfg.Cast.Workers < 0 {
		return fmt.Errorf("cast.workers must be >= 0")
	}
	return nil
}
