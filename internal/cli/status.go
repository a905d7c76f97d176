package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick status overview",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	printer.Info("API:      %s\n", sess.cfg.BaseURL())
	if sess.store.Token() == "" {
		printer.Info("Session:  %s\n", printer.Dim("not logged in"))
	} else {
		printer.Info("Session:  logged in %s\n", printer.Dim(sess.userID()))
	}
	if n := len(sess.mapper.Overrides()); n > 0 {
		printer.Info("Overrides: %d (see: tablero statusmap show)\n", n)
	}
	printer.Info("\n")

	b, err := sess.reconciler(board.Options{}).Load(context.Background())
	if err != nil {
		printer.Warning("Board unavailable: %v\n", err)
		return nil
	}
	printer.Info("Tasks: %d\n", b.Len())
	for i, label := range b.Labels {
		printer.Info("  %s\n", printer.Column(i, label, len(b.Columns[i])))
	}
	if len(b.Unplaced) > 0 {
		printer.Warning("%d task(s) have a status with no column\n", len(b.Unplaced))
	}
	return nil
}
