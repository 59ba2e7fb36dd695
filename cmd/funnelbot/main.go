package main

import (
	"log"

	"github.com/Tombirdi473/telegrambot/core/cmd"
	"github.com/Tombirdi473/telegrambot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadCarrier,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("funnelbot: %v", err)
	}
}
