package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darkodi/snip/internal/codegen"
	"github.com/darkodi/snip/internal/config"
	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/repository"
	"github.com/darkodi/snip/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "shortener",
	Short:         "Operate the URL shortener store from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(createCmd, statsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what a subcommand needs; close releases the store
type app struct {
	cfg        *config.Config
	repo       *repository.URLRepository
	shortener  *service.ShortenService
	redirector *service.RedirectService
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewURLRepository(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// CLI output is the result itself; keep the logs to warnings
	log := logger.New(logger.Config{Level: "warn", Format: cfg.Log.Format, Output: os.Stderr})

	return &app{
		cfg:        cfg,
		repo:       repo,
		shortener:  service.NewShortenService(repo, codegen.New(cfg.App.CodeLength), cfg.App.MaxAttempts, log),
		redirector: service.NewRedirectService(repo, nil, nil, log),
	}, nil
}

func (a *app) close() {
	a.repo.Close()
}

// baseURL falls back to the local server address when BASE_URL is unset
func (a *app) baseURL() string {
	if a.cfg.App.BaseURL != "" {
		return a.cfg.App.BaseURL
	}
	return "http://localhost:" + a.cfg.Server.Port
}
