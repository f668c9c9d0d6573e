package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"todo-ledger/core/token"
)

type DoneCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	reference string
}

// NewDoneCommand returns the done command.
func NewDoneCommand(rootCmd *RootCommand, app *kingpin.Application) *DoneCommand {
	c := &DoneCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("done", "Complete a task and redeem its satoshis.")
	c.Cmd.Arg("reference", "Task reference (txid.vout).").Required().StringVar(&c.reference)

	return c
}

func (c DoneCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoneCommand) Run(ctx context.Context) error {
	ref, err := token.ParseOutpoint(c.reference)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Each invocation starts from an empty store.
	if _, err := rt.controller.Load(ctx); err != nil {
		return userError(err)
	}
	task, err := rt.controller.Complete(ctx, ref)
	if err != nil {
		return userError(err)
	}
	return c.rootCmd.printer().PrintMessage(fmt.Sprintf("Completed %q, redeemed %d sats.", task.Text, task.Amount))
}
