package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/skip2/go-qrcode"
)

type IdentityCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	qr bool
}

// NewIdentityCommand returns the identity command.
func NewIdentityCommand(rootCmd *RootCommand, app *kingpin.Application) *IdentityCommand {
	c := &IdentityCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("identity", "Show the identity key tasks are indexed under.")
	c.Cmd.Flag("qr", "Also render the key as a terminal QR code.").BoolVar(&c.qr)

	return c
}

func (c IdentityCommand) Name() string { return c.Cmd.FullCommand() }

func (c IdentityCommand) Run(ctx context.Context) error {
	rt, err := newRuntime(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.controller.Identity(ctx)
	if err != nil {
		return userError(err)
	}
	if err := c.rootCmd.printer().PrintMessage(id); err != nil {
		return err
	}
	if !c.qr {
		return nil
	}

	qr, err := qrcode.New(id, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	_, err = fmt.Fprint(c.rootCmd.Stdout, qr.ToSmallString(false))
	return err
}
