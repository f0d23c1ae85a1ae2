// Package main runs the tokenized vault service: the HTTP API, the
// websocket event stream and the Prometheus metrics endpoint, backed by
// PostgreSQL + ClickHouse or fully in-memory storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tokenized-vault/internal/api"
	"tokenized-vault/internal/events"
	"tokenized-vault/internal/observability"
	"tokenized-vault/internal/solana"
	"tokenized-vault/internal/storage"
	chstore "tokenized-vault/internal/storage/clickhouse"
	"tokenized-vault/internal/storage/memory"
	"tokenized-vault/internal/storage/migrations"
	pgstore "tokenized-vault/internal/storage/postgres"
	"tokenized-vault/internal/token"
	"tokenized-vault/internal/token/stub"
	"tokenized-vault/internal/vault"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen", envOr("VAULTD_LISTEN", ":8080"), "API listen address")
	metricsAddr := flag.String("metrics-addr", envOr("VAULTD_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (event audit log)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint for the balance oracle")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and a stub token ledger")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[vaultd] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if !*useMemory && *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required (use --use-memory for the stub token ledger)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := buildDeps(ctx, *postgresDSN, *clickhouseDSN, *rpcEndpoint, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to build dependencies: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	bus := events.NewBus()

	opts := []vault.Option{
		vault.WithMetrics(metrics),
		vault.WithLogger(logger),
		vault.WithEventSink(bus),
	}
	if deps.eventStore != nil {
		opts = append(opts, vault.WithEventSink(events.NewStoreSink(deps.eventStore, logger)))
	}

	svc := vault.NewService(deps.vaults, deps.registries, deps.oracle, deps.transfers, deps.minter, opts...)
	server := api.NewServer(svc, bus, metrics, logger)

	apiSrv := &http.Server{Addr: *listenAddr, Handler: server.Handler()}
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: observability.Handler()}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", *listenAddr)
		errCh <- apiSrv.ListenAndServe()
	}()
	go func() {
		logger.Printf("Metrics listening on %s", *metricsAddr)
		errCh <- metricsSrv.ListenAndServe()
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Printf("Server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

// deps holds the service dependencies selected by the storage flags.
type deps struct {
	vaults     storage.VaultStateStore
	registries storage.RegistryStore
	eventStore storage.EventStore
	oracle     token.BalanceOracle
	transfers  token.TransferExecutor
	minter     token.MintExecutor
}

// buildDeps wires storage and the token collaborators.
func buildDeps(ctx context.Context, postgresDSN, clickhouseDSN, rpcEndpoint string, useMemory bool, logger *log.Logger) (*deps, func(), error) {
	if useMemory {
		ledger := stub.NewLedger()
		return &deps{
			vaults:     memory.NewVaultStateStore(),
			registries: memory.NewRegistryStore(),
			eventStore: memory.NewEventStore(),
			oracle:     ledger,
			transfers:  ledger,
			minter:     ledger,
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	d := &deps{
		vaults:     pgstore.NewVaultStateStore(pool),
		registries: pgstore.NewRegistryStore(pool),
	}
	cleanup := func() { pool.Close() }

	// Event audit log is optional
	var chConn *chstore.Conn
	if clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		d.eventStore = chstore.NewEventStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	} else {
		logger.Println("No --clickhouse-dsn, event audit log disabled")
	}

	// The live deployment signs and submits transfers out of process; the
	// daemon itself only reads balances and records state, so the executors
	// acknowledge without moving value.
	// TODO: replace the no-op executors with the transaction submitter once
	// the signing service is deployed.
	d.transfers = token.NopExecutor{}
	d.minter = token.NopExecutor{}
	d.oracle = solana.NewHTTPClient(rpcEndpoint)

	return d, cleanup, nil
}

// envOr returns the environment value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads .env into the environment without overriding existing
// variables.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
