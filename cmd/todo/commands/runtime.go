package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"todo-ledger/bridge"
	"todo-ledger/config"
	"todo-ledger/lifecycle"
	"todo-ledger/log"
	"todo-ledger/metrics"
	"todo-ledger/storage/diagnostics"
	"todo-ledger/wallet"
)

// runtime holds the dependencies every command builds from configuration.
type runtime struct {
	config     *config.Config
	controller *lifecycle.Controller
	registry   *prometheus.Registry
	closers    []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newRuntime(ctx context.Context, root *RootCommand) (*runtime, error) {
	logger := root.Logger
	if logger == nil {
		logger = log.Noop
	}

	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	rt := &runtime{config: cfg, registry: prometheus.NewRegistry()}

	provider, err := cfg.KeyProvider()
	if err != nil {
		return nil, fmt.Errorf("could not load root key: %w", err)
	}

	var (
		submitter wallet.Submitter
		fetcher   bridge.Fetcher
	)
	switch cfg.Driver {
	case config.DriverHTTP:
		client, err := bridge.NewClient(bridge.ClientConfig{BaseURL: cfg.BridgeURL, Timeout: cfg.HTTPTimeout, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create bridge client: %w", err)
		}
		sub, err := wallet.NewHTTPSubmitter(wallet.HTTPSubmitterConfig{BaseURL: cfg.WalletURL, Timeout: cfg.HTTPTimeout, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create wallet client: %w", err)
		}
		fetcher, submitter = client, sub
	default:
		identity, err := provider.IdentityKey(ctx)
		if err != nil {
			return nil, err
		}
		ledger := wallet.NewMemoryLedger(identity)
		fetcher, submitter = ledger, ledger
		logger.Warningf("using the in-memory ledger, tasks last for this process only")
	}

	diag := diagnostics.Recorder(diagnostics.NewLogRecorder(logger))
	if cfg.DiagnosticsDSN != "" {
		pg, err := diagnostics.NewPGRecorder(ctx, cfg.DiagnosticsDSN)
		if err != nil {
			return nil, fmt.Errorf("could not connect diagnostics store: %w", err)
		}
		rt.closers = append(rt.closers, pg.Close)
		diag = diagnostics.Multi(diag, pg)
	}

	m, err := metrics.NewPrometheus(rt.registry)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("could not register metrics: %w", err)
	}

	rt.controller, err = lifecycle.NewController(lifecycle.ControllerConfig{
		Keys:           provider,
		Submitter:      submitter,
		Bridge:         fetcher,
		Namespace:      cfg.NamespaceMarker(),
		Scope:          cfg.Scope(),
		MinAmount:      cfg.MinAmount,
		DecryptWorkers: cfg.DecryptWorkers,
		Diagnostics:    diag,
		Metrics:        m,
		Logger:         logger,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("could not create controller: %w", err)
	}
	return rt, nil
}
