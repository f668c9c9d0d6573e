package commands

import (
	"context"
	"errors"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"todo-ledger/lifecycle"
	"todo-ledger/log"
	"todo-ledger/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigPath string
	Format     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to a YAML configuration file.").Envar("TODO_CONFIG").StringVar(&c.ConfigPath)
	app.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.Format, "table", "json")

	return c
}

func (c *RootCommand) printer() printer.Printer {
	if c.Format == "json" {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}

// userError turns an operation failure into the single message shown to the
// user.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(lifecycle.UserMessage(err))
}
