package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"todo-ledger/core/token"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints tasks in a table, most recent first.
func (t *TablePrinter) PrintList(tasks []token.TaskRecord) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(t.writer, "No tasks.")
		return err
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "REFERENCE\tSATS\tTASK")
	for _, r := range tasks {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Reference, r.Amount, r.Text)
	}
	return nil
}

// PrintTask prints one task.
func (t *TablePrinter) PrintTask(task token.TaskRecord) error {
	fmt.Fprintf(t.writer, "Task:       %s\n", task.Text)
	fmt.Fprintf(t.writer, "Reference:  %s\n", task.Reference)
	fmt.Fprintf(t.writer, "Amount:     %d sats\n", task.Amount)
	_, err := fmt.Fprintf(t.writer, "State:      %s\n", task.State)
	return err
}

// PrintMessage prints a plain message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}
