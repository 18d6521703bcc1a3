// Command request-insurance-worker connects to Postgres, applies
// migrations, and runs one or more Worker instances against the same
// database — the entrypoint of the Request Insurance Worker Engine.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"os/signal"

	"github.com/nbj/request-insurance/config"
	"github.com/nbj/request-insurance/logger"
	"github.com/nbj/request-insurance/requests"
	"github.com/nbj/request-insurance/transport"
)

func main() {
	var (
		dsn          = flag.String("dsn", os.Getenv("REQUEST_INSURANCE_DSN"), "Postgres connection string")
		configPath   = flag.String("config", "", "path to a JSON config file (requests.Config shape)")
		workers      = flag.Int("workers", 1, "number of Worker goroutines to run against the same store")
		headerKeyHex = flag.String("header-key", os.Getenv("REQUEST_INSURANCE_HEADER_KEY"), "hex-encoded master key used to derive the header-encryption key")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "request-insurance-worker: -dsn (or REQUEST_INSURANCE_DSN) is required")
		os.Exit(1)
	}

	log := logger.LoadLogger("request-insurance-worker", os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	conn, err := pgx.Connect(ctx, *dsn)
	if err != nil {
		log.Error(err).LogActivity("failed to connect for migration", nil)
		os.Exit(1)
	}
	if err := requests.MigrateDatabase(ctx, conn); err != nil {
		log.Error(err).LogActivity("migration failed", nil)
		os.Exit(1)
	}
	conn.Close(ctx)

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		log.Error(err).LogActivity("failed to open connection pool", nil)
		os.Exit(1)
	}
	defer pool.Close()

	cfg := requests.DefaultConfig()
	if *configPath != "" {
		if err := config.LoadConfigFromFile(*configPath, &cfg); err != nil {
			log.Error(err).LogActivity("failed to load config file", nil)
			os.Exit(1)
		}
	}
	if err := cfg.Normalize(); err != nil {
		log.Error(err).LogActivity("invalid configuration", nil)
		os.Exit(1)
	}

	headerKey, err := headerEncryptionKey(*headerKeyHex)
	if err != nil {
		log.Error(err).LogActivity("invalid header encryption key", nil)
		os.Exit(1)
	}

	store, err := requests.NewStore(pool, log, headerKey)
	if err != nil {
		log.Error(err).LogActivity("failed to build store", nil)
		os.Exit(1)
	}

	httpTransport := transport.NewHTTPTransport(cfg.KeepAlive)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		w, err := requests.NewWorker(store, httpTransport, log, cfg)
		if err != nil {
			log.Error(err).LogActivity("failed to construct worker", nil)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				log.Error(err).LogActivity("worker exited with error", nil)
			}
		}()
	}
	wg.Wait()
}

func headerEncryptionKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		// A development-only default so the binary runs out of the box;
		// production deployments must set REQUEST_INSURANCE_HEADER_KEY.
		return []byte("request-insurance-development-only-key"), nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding header key: %w", err)
	}
	return key, nil
}
