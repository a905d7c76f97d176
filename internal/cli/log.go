package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/printer"
	"github.com/imkarma/tablero/internal/store"
	"github.com/imkarma/tablero/internal/taskid"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Show what this client did, for one task or overall",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of recent events without a task id")
}

func runLog(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var events []store.Event
	if len(args) == 1 {
		id := taskid.Sanitize(args[0])
		if !taskid.Valid(id) {
			return fmt.Errorf("invalid task ID: %s", args[0])
		}
		events, err = s.GetEvents(id)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			printer.Info("No events for task %s\n", id)
			return nil
		}
		printer.Info("Events for task %s:\n\n", printer.ID(id))
	} else {
		events, err = s.RecentEvents(logLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			printer.Info("No events yet\n")
			return nil
		}
	}

	for _, e := range events {
		task := ""
		if len(args) == 0 && e.TaskID != "" {
			task = printer.ID(e.TaskID) + " "
		}
		printer.Info("  %s  %s%-16s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), task, e.Kind, e.Content)
	}
	return nil
}
