package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/printer"
	"github.com/imkarma/tablero/internal/taskid"
)

var (
	taskDescription string
	taskColumn      string
	taskTitle       string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, show or edit tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a task's title, description or column",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")
	taskCreateCmd.Flags().StringVarP(&taskColumn, "column", "c", "", "Column label or position (default: first column)")

	taskEditCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "New title")
	taskEditCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "New description")
	taskEditCmd.Flags().StringVarP(&taskColumn, "column", "c", "", "New column label or position")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskEditCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	in := board.Input{
		Title:       strings.Join(args, " "),
		Description: taskDescription,
		User:        sess.userID(),
	}
	if taskColumn != "" {
		if in.Status, err = resolveLabel(sess.mapper, taskColumn); err != nil {
			return err
		}
	}

	p := newPrompter(cmd)
	if _, err := sess.reconciler(board.Options{Reporter: p}).Create(context.Background(), in); err != nil {
		if board.IsValidation(err) {
			return err
		}
		return printer.Error("Could not create the task", err.Error())
	}
	printer.Success("Created task: %s\n", strings.TrimSpace(in.Title))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	id := taskid.Sanitize(args[0])
	if !taskid.Valid(id) {
		return fmt.Errorf("invalid task ID: %s", args[0])
	}

	task, err := sess.client.GetTask(context.Background(), id)
	if err != nil {
		return printer.Error("Could not fetch the task", err.Error())
	}

	backend := fieldString(task, "status")
	printer.Info("Task %s\n", printer.ID(id))
	printer.Info("  Title:   %s\n", fieldString(task, "title"))
	printer.Info("  Column:  %s %s\n", sess.mapper.ToUI(backend), printer.Dim("("+backend+")"))
	if d := fieldString(task, "description"); d != "" {
		printer.Info("  Desc:    %s\n", d)
	}
	if u := fieldString(task, "user"); u != "" {
		printer.Info("  User:    %s\n", u)
	}
	if c := fieldString(task, "createdAt"); c != "" {
		printer.Info("  Created: %s\n", c)
	}

	events, err := sess.store.GetEvents(id)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		printer.Info("\n  Local log:\n")
		for _, e := range events {
			printer.Info("    %s %s: %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Kind, e.Content)
		}
	}
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	id := taskid.Sanitize(args[0])
	if !taskid.Valid(id) {
		return fmt.Errorf("invalid task ID: %s", args[0])
	}

	// The edit sends a full body, so unspecified fields keep their
	// current values.
	current, err := sess.client.GetTask(context.Background(), id)
	if err != nil {
		return printer.Error("Could not fetch the task", err.Error())
	}
	in := board.Input{
		Title:       fieldString(current, "title"),
		Description: fieldString(current, "description"),
		Status:      sess.mapper.ToUI(fieldString(current, "status")),
		User:        fieldString(current, "user"),
	}
	if cmd.Flags().Changed("title") {
		in.Title = taskTitle
	}
	if cmd.Flags().Changed("desc") {
		in.Description = taskDescription
	}
	if taskColumn != "" {
		if in.Status, err = resolveLabel(sess.mapper, taskColumn); err != nil {
			return err
		}
	}
	if in.User == "" {
		in.User = sess.userID()
	}

	p := newPrompter(cmd)
	if _, err := sess.reconciler(board.Options{Reporter: p}).Edit(context.Background(), id, in); err != nil {
		if board.IsValidation(err) {
			return err
		}
		return printer.Error("Could not save the task", err.Error())
	}
	printer.Success("Saved %s\n", printer.ID(id))
	return nil
}

func fieldString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
