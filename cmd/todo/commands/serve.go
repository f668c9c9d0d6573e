package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todo-ledger/lifecycle"
	"todo-ledger/mcp"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	metricsAddr string
	noResync    bool
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Serve the task tools over MCP stdio.")
	c.Cmd.Flag("metrics-addr", "Address for the Prometheus /metrics endpoint (overrides config).").StringVar(&c.metricsAddr)
	c.Cmd.Flag("no-resync", "Disable periodic reloads from the bridge.").BoolVar(&c.noResync)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	rt, err := newRuntime(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := rt.controller.Load(ctx); err != nil {
		logger.Warningf("initial load failed, starting empty: %v", lifecycle.UserMessage(err))
	}
	if !c.noResync {
		if err := lifecycle.StartResync(ctx, rt.controller, rt.config.ResyncInterval); err != nil {
			return fmt.Errorf("could not start resync: %w", err)
		}
		logger.Infof("resync enabled (interval=%s)", rt.config.ResyncInterval)
	}

	mcpServer, err := mcp.NewServer(mcp.ServerConfig{Tasks: rt.controller, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create MCP server: %w", err)
	}

	var g run.Group

	// MCP over stdio.
	{
		stdio := server.NewStdioServer(mcpServer.GetMCPServer())
		g.Add(
			func() error {
				logger.Infof("MCP server listening on stdio")
				err := stdio.Listen(ctx, c.rootCmd.Stdin, c.rootCmd.Stdout)
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("mcp server: %w", err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Metrics.
	addr := rt.config.MetricsAddr
	if c.metricsAddr != "" {
		addr = c.metricsAddr
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
		g.Add(
			func() error {
				logger.Infof("metrics server listening on %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			},
			func(_ error) {
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutCancel()
				_ = srv.Shutdown(shutCtx)
			},
		)
	}

	// Parent cancellation (signals).
	{
		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}
