// Package printer renders task records for the CLI.
package printer

import "todo-ledger/core/token"

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintList(tasks []token.TaskRecord) error
	PrintTask(task token.TaskRecord) error
	PrintMessage(msg string) error
}
