package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/printer"
)

// prompter asks questions on the command's stdin. It implements
// board.Corrector, board.Confirmer and board.Reporter.
type prompter struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// ask prints question and reads one line. An empty answer yields def.
func (p *prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *prompter) CorrectStatus(_ context.Context, label, rejected string) (string, bool, error) {
	fmt.Fprintf(p.out, "The server rejected status %q for column %q.\n", rejected, label)
	v, err := p.ask("Exact value the server expects", label)
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

func (p *prompter) ConfirmDelete(_ context.Context, id, title string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	what := id
	if title != "" {
		what = fmt.Sprintf("%q (%s)", title, id)
	}
	ans, err := p.ask(fmt.Sprintf("Delete %s? This cannot be undone [y/N]", what), "")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	}
	return false, nil
}

func (p *prompter) Diagnostic(d board.Diagnostic) {
	printer.Raw(fmt.Sprintf("%s %s → %d", d.Method, d.URL, d.StatusCode), d.Body)
}
