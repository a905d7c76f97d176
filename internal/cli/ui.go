package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive board",
	Long: "Opens the three-column board. Pick a card up with space, carry it\n" +
		"with the arrow keys and drop it with enter; the delete zone appears\n" +
		"while a card is being carried.",
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	bridge := tui.NewBridge()
	rec := sess.reconciler(board.Options{
		Corrector: bridge,
		Confirmer: bridge,
		Reporter:  bridge,
	})
	model := tui.New(rec, bridge, tui.Options{
		DeleteMode: sess.deleteMode(),
		UserID:     sess.userID(),
		History:    sess.store,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
