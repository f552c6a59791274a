package main

import (
	"log"

	"github.com/universal-inbox/universal-inbox/internal/bootstrap"
	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/providers/linear"
	"github.com/universal-inbox/universal-inbox/internal/providers/todoist"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	registry := core.NewRegistry()
	registry.Register(todoist.New())
	registry.Register(linear.New())

	if err := bootstrap.Run(cfg, registry); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
