package main

import (
	"flag"
	"math/big"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vouchnet/config"
	"vouchnet/core/events"
	"vouchnet/gateway"
	"vouchnet/native/params"
	"vouchnet/native/voucher"
	"vouchnet/observability"
	"vouchnet/observability/logging"
	"vouchnet/state"
	"vouchnet/storage"
)

func main() {
	configPath := flag.String("config", "vouchd.toml", "path to the node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.Setup("vouchd", cfg.Environment)

	var db storage.Database
	if cfg.DataDir == "" {
		logger.Warn("no data directory configured, running on in-memory storage")
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	store := params.NewStore(manager)

	engine := voucher.NewEngine()
	engine.SetState(manager)
	engine.SetParams(store)
	engine.SetLimits(store)
	engine.SetPauses(store)
	engine.SetEmitter(events.MultiEmitter{
		events.NewMemoryRecorder(),
		observability.Metrics(),
	})

	settlement := voucher.NewSettlement(engine)

	if cfg.GenesisFile != "" {
		gen, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			logger.Error("load genesis", "error", err)
			os.Exit(1)
		}
		if err := applyGenesis(gen, store, engine, settlement); err != nil {
			logger.Error("apply genesis", "error", err)
			os.Exit(1)
		}
	}

	router := chi.NewRouter()
	router.Mount("/", gateway.NewServer(engine, logger).Router())
	router.Handle("/metrics", promhttp.Handler())

	logger.Info("gateway listening", "address", cfg.ListenAddress, "network", cfg.NetworkName)
	if err := http.ListenAndServe(cfg.ListenAddress, router); err != nil {
		logger.Error("serve gateway", "error", err)
		os.Exit(1)
	}
}

func applyGenesis(gen *config.Genesis, store *params.Store, engine *voucher.Engine, settlement *voucher.Settlement) error {
	if gen.ComplainPeriodSecs > 0 {
		if err := store.SetComplainPeriod(gen.ComplainPeriodSecs); err != nil {
			return err
		}
	}
	if gen.CancelPeriodSecs > 0 {
		if err := store.SetCancelPeriod(gen.CancelPeriodSecs); err != nil {
			return err
		}
	}
	for key, value := range gen.OrderLimits {
		max, ok := new(big.Int).SetString(value, 10)
		if !ok {
			continue
		}
		if err := store.SetOrderLimit(key, max); err != nil {
			return err
		}
	}
	if gen.Operator != "" {
		operator, err := config.ParseAddress(gen.Operator)
		if err != nil {
			return err
		}
		engine.SetOperator(operator)
	}
	if gen.Pool != "" {
		pool, err := config.ParseAddress(gen.Pool)
		if err != nil {
			return err
		}
		settlement.SetPool(pool)
	}
	return nil
}
