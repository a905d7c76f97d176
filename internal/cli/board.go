package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/printer"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	b, err := sess.reconciler(board.Options{}).Load(context.Background())
	if err != nil {
		return printer.Error("Could not load the board", err.Error())
	}
	printBoard(b)
	return nil
}

func printBoard(b *board.Board) {
	if b.Len() == 0 && len(b.Unplaced) == 0 {
		printer.Info("%s Create one: %s\n", printer.Dim("Board is empty."), "tablero task create \"title\"")
		return
	}

	for i, label := range b.Labels {
		cards := b.Columns[i]
		printer.Info("%s\n", printer.Column(i, label, len(cards)))
		for _, c := range cards {
			printer.Info("  %s  %s\n", printer.ID(c.ID), c.Title)
		}
		printer.Info("\n")
	}

	if len(b.Unplaced) > 0 {
		printer.Warning("%d task(s) have a status with no column:\n", len(b.Unplaced))
		for _, c := range b.Unplaced {
			printer.Info("  %s  %s %s\n", printer.ID(c.ID), c.Title, printer.Dim("("+c.Backend+")"))
		}
	}
}
