package main

import (
	"flag"
	"log"
	"os"

	"RiskScore/internal/di"
	"RiskScore/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s artifacts=%s cursor_store=%s kafka=%t", cfg.Environment, cfg.Artifacts.Path, cfg.Cursor.Store, cfg.Kafka.Enabled)
	if cfg.Model.ServiceURL == "" {
		log.Printf("model.service_url is empty: scoring endpoints will answer 503")
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
