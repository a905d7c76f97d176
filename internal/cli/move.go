package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/printer"
)

var deleteYes bool

var moveCmd = &cobra.Command{
	Use:   "move [id] [column]",
	Short: "Move a task to another column",
	Long: "Moves a task to a column, given by label or 1-based position.\n" +
		"If the server rejects the status value you are asked for the exact\n" +
		"one it expects; the answer is remembered for that column.",
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runMove(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	label, err := resolveLabel(sess.mapper, args[1])
	if err != nil {
		return err
	}

	p := newPrompter(cmd)
	rec := sess.reconciler(board.Options{Corrector: p, Reporter: p})
	b, err := rec.Move(context.Background(), args[0], label)
	if err != nil {
		if board.IsValidation(err) {
			return err
		}
		return printer.Error("Move failed", err.Error())
	}

	printer.Success("Moved to %s\n", label)
	printer.Info("%s\n", printer.Column(indexOf(b.Labels, label), label, len(b.Column(label))))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	p := newPrompter(cmd)
	p.assumeYes = deleteYes
	rec := sess.reconciler(board.Options{Confirmer: p, Reporter: p})

	// Load first so the confirmation can name the task.
	if _, err := rec.Load(context.Background()); err != nil {
		printer.Warning("Could not load the board: %v\n", err)
	}

	if _, err := rec.Delete(context.Background(), args[0], board.DeleteReload); err != nil {
		if errors.Is(err, board.ErrCancelled) {
			printer.Info("Cancelled\n")
			return nil
		}
		if board.IsValidation(err) {
			return err
		}
		return printer.Error("Delete failed", err.Error())
	}
	printer.Success("Deleted %s\n", args[0])
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
