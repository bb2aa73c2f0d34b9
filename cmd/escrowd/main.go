package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mardiprk/token-escrow/config"
	"github.com/Mardiprk/token-escrow/core/events"
	"github.com/Mardiprk/token-escrow/core/state"
	"github.com/Mardiprk/token-escrow/core/types"
	"github.com/Mardiprk/token-escrow/crypto"
	"github.com/Mardiprk/token-escrow/native/escrow"
	"github.com/Mardiprk/token-escrow/observability/logging"
	"github.com/Mardiprk/token-escrow/rpc"
	"github.com/Mardiprk/token-escrow/storage"
)

var genesisAppliedKey = []byte("genesis-applied")

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TOKEN_ESCROW_ENV"))
	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("escrowd", env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := applyGenesis(manager, cfg); err != nil {
		logger.Error("Failed to apply genesis allocations", slog.Any("error", err))
		os.Exit(1)
	}

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(logEmitter{logger: logger})

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("starting metrics server", "addr", cfg.MetricsAddress)
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()

	server := rpc.NewServer(engine, manager, logger)
	go func() {
		if err := server.Start(cfg.RPCAddress); err != nil {
			logger.Error("RPC server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("escrow daemon running",
		"network", cfg.NetworkName,
		"token", cfg.TokenSymbol,
		"rpc", cfg.RPCAddress,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}

// applyGenesis seeds configured participant balances exactly once per data
// directory.
func applyGenesis(manager *state.Manager, cfg *config.Config) error {
	if len(cfg.GenesisAccounts) == 0 {
		return nil
	}
	if _, applied, err := manager.KVGet(genesisAppliedKey); err != nil {
		return err
	} else if applied {
		return nil
	}
	for _, alloc := range cfg.GenesisAccounts {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return fmt.Errorf("genesis account %q: %w", alloc.Address, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
		if !ok || amount.Sign() < 0 {
			return fmt.Errorf("genesis account %q: invalid amount %q", alloc.Address, alloc.Amount)
		}
		id := addr.ID()
		if err := manager.PutAccount(id, &types.Account{Balance: amount, Authority: id}); err != nil {
			return err
		}
	}
	return manager.KVPut(genesisAppliedKey, []byte{1})
}

// logEmitter forwards engine events to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	type attributed interface {
		Event() *types.Event
	}
	args := []any{}
	if carrier, ok := evt.(attributed); ok && carrier.Event() != nil {
		for k, v := range carrier.Event().Attributes {
			args = append(args, slog.String(k, v))
		}
	}
	l.logger.Info(evt.EventType(), args...)
}
