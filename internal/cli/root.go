package cli

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tablero",
	Short: "Kanban board for a remote task API",
	Long: "tablero: a terminal kanban board over a remote task API.\n" +
		"Cards move between three columns; the server stays the source of truth.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

var logFile *os.File

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(statusMapCmd)
	rootCmd.AddCommand(logCmd)
}

// setupLogging sends logs to .tablero/tablero.log when the workspace
// exists, so the TUI is never drawn over. Elsewhere only warnings reach
// stderr. TABLERO_DEBUG=true enables debug output.
func setupLogging(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if v := strings.ToLower(os.Getenv("TABLERO_DEBUG")); v == "true" || v == "1" {
		log.SetLevel(log.DebugLevel)
	}

	if logFile == nil {
		if _, err := os.Stat(workspaceDir); err == nil {
			f, err := os.OpenFile(workspacePath("tablero.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				logFile = f
			}
		}
	}
	if logFile != nil {
		log.SetOutput(logFile)
		return nil
	}

	if log.GetLevel() < log.DebugLevel {
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(os.Stderr)
	return nil
}
