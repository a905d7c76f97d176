package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/config"
	"github.com/imkarma/tablero/internal/printer"
	"github.com/imkarma/tablero/internal/store"
)

var initAPIURL string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tablero in the current directory",
	Long:  "Creates a .tablero/ directory with default config and database.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initAPIURL, "api-url", "", "Base URL of the task API (default http://localhost:3000)")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if already initialized.
	if _, err := os.Stat(workspaceDir); err == nil {
		return fmt.Errorf("tablero already initialized in this directory (%s/ exists)", workspaceDir)
	}

	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", workspaceDir, err)
	}

	cfg := config.DefaultConfig()
	if initAPIURL != "" {
		cfg.API.BaseURL = initAPIURL
	}
	if err := config.Save(workspacePath("config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Create database by opening store (migration runs automatically).
	s, err := store.New(workspacePath("tablero.db"))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	s.Close()

	printer.Success("Initialized tablero in %s/\n", workspaceDir)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Check %s (API URL and status names)\n", workspacePath("config.yaml"))
	printer.Info("  2. Run: tablero login\n")
	printer.Info("  3. Run: tablero ui\n")
	return nil
}
