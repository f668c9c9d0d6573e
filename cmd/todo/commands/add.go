package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"todo-ledger/lifecycle"
)

type AddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	text   string
	amount string
}

// NewAddCommand returns the add command.
func NewAddCommand(rootCmd *RootCommand, app *kingpin.Application) *AddCommand {
	c := &AddCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("add", "Create a task by locking satoshis behind it.")
	c.Cmd.Arg("text", "Task description.").Required().StringVar(&c.text)
	c.Cmd.Arg("amount", "Satoshis to lock.").Required().StringVar(&c.amount)

	return c
}

func (c AddCommand) Name() string { return c.Cmd.FullCommand() }

func (c AddCommand) Run(ctx context.Context) error {
	rt, err := newRuntime(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	task, err := rt.controller.Create(ctx, lifecycle.CreateRequest{Text: c.text, Amount: c.amount})
	if err != nil {
		return userError(err)
	}
	return c.rootCmd.printer().PrintTask(task)
}
