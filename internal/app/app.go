package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/config"
	"github.com/five82/notechain/internal/controller"
	"github.com/five82/notechain/internal/ledger"
	"github.com/five82/notechain/internal/pinning"
	"github.com/five82/notechain/internal/prefs"
	"github.com/five82/notechain/internal/state"
	"github.com/five82/notechain/internal/ui"
	"github.com/five82/notechain/internal/wallet"
)

// Options configure the notechain application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/notechain/prefs.toml
	WalletURL  string // overrides wallet.url when set
}

// Runtime is the wired application: config, logger, gateways and the
// controller on top of them.
type Runtime struct {
	Config     config.Config
	Logger     *slog.Logger
	Store      *state.Store
	Controller *controller.Controller

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open loads the configuration and connects every collaborator. Nothing
// here contacts the wallet; that happens on Connect.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.WalletURL != "" {
		cfg.Wallet.URL = opts.WalletURL
	}

	logger, logFile, err := NewLogger(cfg.Log.File, cfg.SlogLevel())
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, Store: &state.Store{}}
	rt.closers = append(rt.closers, logFile)

	logger.Info("configuration loaded",
		slog.String("source", cfg.Source),
		slog.String("rpc_url", cfg.Ledger.RPCURL),
		slog.String("contract", cfg.Ledger.ContractAddress),
		slog.String("wallet_url", cfg.Wallet.URL),
		slog.String("action_scope", cfg.Sync.ActionScope))

	node, err := ethclient.DialContext(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		_ = rt.Close()
		return nil, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("dial ledger %s: %w", cfg.Ledger.RPCURL, err))
	}
	rt.closers = append(rt.closers, closerFunc(func() error { node.Close(); return nil }))

	var provider wallet.Provider
	var transactor ledger.Transactor
	rpcProvider, err := wallet.Dial(ctx, cfg.Wallet.URL)
	switch {
	case err == nil:
		provider, transactor = rpcProvider, rpcProvider
		rt.closers = append(rt.closers, closerFunc(func() error { rpcProvider.Close(); return nil }))
	case errors.Is(err, apperr.ErrNoProvider):
		logger.Warn("no wallet provider", slog.String("error", err.Error()))
	default:
		_ = rt.Close()
		return nil, err
	}

	contract, err := ledger.NewContract(ledger.Options{
		Address:    cfg.Ledger.ContractAddress,
		Backend:    node,
		Transactor: transactor,
		Logger:     logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	pin, err := pinning.NewClient(pinning.Options{
		APIURL:     cfg.Pinning.APIURL,
		GatewayURL: cfg.Pinning.GatewayURL,
		Credentials: pinning.Credentials{
			APIKey:    cfg.Pinning.APIKey,
			APISecret: cfg.Pinning.APISecret,
			JWT:       cfg.Pinning.JWT,
		},
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init pinning client: %w", err)
	}
	if !cfg.HasPinningCredentials() {
		logger.Warn("no pinning credentials configured; uploads will be rejected by the pinning api")
	}

	scope, err := state.ParseScope(cfg.Sync.ActionScope)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	ctrl, err := controller.New(controller.Options{
		Wallet:   wallet.NewManager(provider, logger),
		Ledger:   contract,
		Pinning:  pin,
		Store:    rt.Store,
		Timeouts: controller.Timeouts{Call: cfg.Timeouts.Call, Transaction: cfg.Timeouts.Transaction},
		Scope:    scope,
		Limits: controller.Limits{
			MaxFileSize:       cfg.Pinning.MaxFileSize,
			AllowedExtensions: cfg.Pinning.AllowedExtensions,
		},
		UnpinOrphans: cfg.Pinning.UnpinOrphans,
		Logger:       logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Controller = ctrl
	return rt, nil
}

// Close releases connections and the log file, newest first.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Run boots the TUI and the background poller until the user quits or the
// context is cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		RunPoller(gCtx, rt.Controller, rt.Config.Sync.PollInterval, rt.Logger)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return ui.Run(gCtx, ui.Options{
			Controller:  rt.Controller,
			LogPath:     rt.Config.Log.File,
			DownloadDir: rt.Config.DownloadDir,
			ThemeName:   userPrefs.Theme,
			Filter:      userPrefs.LastFilter,
			PrefsPath:   opts.PrefsPath,
		})
	})

	if err := g.Wait(); err != nil {
		rt.Logger.Error("application error", slog.String("error", err.Error()))
		return err
	}
	rt.Logger.Info("application stopped")
	return nil
}
