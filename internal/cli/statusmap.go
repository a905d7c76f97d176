package cli

import (
	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/printer"
)

var statusMapCmd = &cobra.Command{
	Use:   "statusmap",
	Short: "Inspect or change how columns map to server status values",
}

var statusMapShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective status table",
	RunE:  runStatusMapShow,
}

var statusMapSetCmd = &cobra.Command{
	Use:   "set [column] [value]",
	Short: "Send value for column from now on",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatusMapSet,
}

var statusMapUnsetCmd = &cobra.Command{
	Use:   "unset [column]",
	Short: "Forget the override for column",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatusMapUnset,
}

func init() {
	statusMapCmd.AddCommand(statusMapShowCmd)
	statusMapCmd.AddCommand(statusMapSetCmd)
	statusMapCmd.AddCommand(statusMapUnsetCmd)
}

func runStatusMapShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	_, defaults := sess.cfg.StatusTable()
	overrides := sess.mapper.Overrides()

	printer.Info("%-16s %-16s %-16s\n", "COLUMN", "DEFAULT", "OVERRIDE")
	for _, label := range sess.mapper.Labels() {
		o := overrides[label]
		if o == "" {
			o = printer.Dim("-")
		}
		printer.Info("%-16s %-16s %s\n", label, defaults[label], o)
	}

	// Overrides for labels that are not columns (older configs).
	for label, v := range overrides {
		if !sess.mapper.IsLabel(label) {
			printer.Warning("stale override %q -> %q\n", label, v)
		}
	}
	return nil
}

func runStatusMapSet(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	label, err := resolveLabel(sess.mapper, args[0])
	if err != nil {
		return err
	}
	if err := sess.mapper.RecordOverride(label, args[1]); err != nil {
		return err
	}
	printer.Success("%s now sends %q\n", label, args[1])
	return nil
}

func runStatusMapUnset(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	label := args[0]
	if resolved, err := resolveLabel(sess.mapper, label); err == nil {
		label = resolved
	}
	if err := sess.mapper.ClearOverride(label); err != nil {
		return err
	}
	printer.Success("Override for %s removed\n", label)
	return nil
}
