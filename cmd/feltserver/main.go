package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"

	"github.com/openfelt/feltserver/internal/logutil"
	"github.com/openfelt/feltserver/internal/session"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"feltserver.hcl" env:"FELTSERVER_CONFIG" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" long:"log-level" env:"FELTSERVER_LOG_LEVEL" help:"Log level (overrides config)"`
	Check    bool   `long:"check" help:"Validate configuration and exit"`
}

func main() {
	// A .env file can carry the FELTSERVER_* variables in development.
	godotenv.Load()
	ctx := kong.Parse(&CLI)

	cfg, err := session.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}
	if CLI.Check {
		fmt.Printf("Configuration OK: %d games, %d sessions\n", len(cfg.Games), len(cfg.Sessions))
		return
	}

	logger := logutil.New(os.Stderr, cfg.Server.LogLevel)

	manager, err := session.NewManager(cfg, logger, quartz.NewReal())
	if err != nil {
		logger.Error("Failed to build sessions", "error", err)
		ctx.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting felt server",
		"sessions", len(cfg.Sessions),
		"admin_port", cfg.Server.AdminPort)

	if err := manager.Run(runCtx); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
	logger.Info("Shut down cleanly")
}
