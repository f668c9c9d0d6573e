package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("list", "List tasks, most recent first.")
	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	rt, err := newRuntime(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	tasks, err := rt.controller.Load(ctx)
	if err != nil {
		return userError(err)
	}
	return c.rootCmd.printer().PrintList(tasks)
}
