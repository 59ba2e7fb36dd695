package app

import (
	"strings"
	"testing"

	coreconfig "github.com/Tombirdi473/telegrambot/core/config"
	"github.com/Tombirdi473/telegrambot/internal/funnel"
)

func validConfig() *Config {
	return &Config{
		Core: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{
				Token:      "123:abc",
				OperatorID: 777,
			},
		},
		Funnel: funnel.Config{
			RegistrationURL: "https://example.com/register",
			HelpContact:     "@helpdesk",
			ChannelName:     "@signals",
			InstructionURL:  "https://example.com/guide",
		},
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Funnel.PromoCode != defaultPromoCode {
		t.Errorf("promo code default = %q", cfg.Funnel.PromoCode)
	}
	if strings.HasPrefix(cfg.Funnel.HelpContact, "@") || strings.HasPrefix(cfg.Funnel.ChannelName, "@") {
		t.Errorf("handles must be stripped of @: %q %q", cfg.Funnel.HelpContact, cfg.Funnel.ChannelName)
	}
	if cfg.Core.Telegram.RunMode != coreconfig.RunModeLongpoll {
		t.Errorf("run mode default = %q", cfg.Core.Telegram.RunMode)
	}
}

func TestNormalizeRequiresIdentifiers(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":            func(c *Config) { c.Core.Telegram.Token = "" },
		"missing operator":         func(c *Config) { c.Core.Telegram.OperatorID = 0 },
		"missing registration url": func(c *Config) { c.Funnel.RegistrationURL = "" },
		"missing help contact":     func(c *Config) { c.Funnel.HelpContact = "" },
		"missing channel":          func(c *Config) { c.Funnel.ChannelName = "" },
		"missing instruction url":  func(c *Config) { c.Funnel.InstructionURL = "" },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			corrupt(cfg)
			if err := Normalize(cfg); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
