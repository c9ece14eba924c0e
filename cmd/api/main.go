// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"evimap/internal/adapter/storage"
	"evimap/internal/cache"
	"evimap/internal/config"
	"evimap/internal/dataset"
	"evimap/internal/server"
	"evimap/internal/worker"
)

func main() {
	// Load .env if present, then configuration from the environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Load the evidence bundle
	evidenceStore := storage.NewEvidenceStore(db)
	bundle, err := evidenceStore.LoadBundle(ctx)
	if err != nil {
		log.Fatalf("Failed to load evidence bundle: %v", err)
	}
	log.Printf("Loaded %d evidence tuples, %d places", len(bundle.Tuples), len(bundle.Places))

	// Initialize the dataset engine
	ds := dataset.New(bundle, dataset.Options{
		BrushOnlyActive: cfg.Map.BrushOnlyActive,
		Publisher:       natsConn,
	})

	// Initialize snapshot storage and the result cache
	snapshots, err := storage.NewSnapshotStore(cfg.Snapshot.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot store: %v", err)
	}
	resultCache := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)

	// Initialize the map worker
	mapWorker := worker.New(worker.Config{
		Threshold:    cfg.Map.ClusterThreshold,
		Radius:       cfg.Map.GlyphRadius,
		SymbolBudget: cfg.Map.SymbolBudget,
		Publisher:    natsConn,
	})
	mapWorker.Start(ctx)

	// Feed the worker on every dataset change and invalidate the cache
	ds.OnChange(func(change dataset.Change) {
		resultCache.Clear()
		mapWorker.Send(worker.Message{Type: worker.MsgSetData, Data: ds.MapData()})
	})

	// Seed the worker with the initial state
	mapWorker.Send(worker.Message{Type: worker.MsgSetData, Data: ds.MapData()})

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		natsConn,
		ds,
		mapWorker,
		resultCache,
		snapshots,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the worker loop
	cancel()

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
