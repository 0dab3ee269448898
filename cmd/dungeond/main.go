// Command dungeond serves procedurally generated dungeon rooms over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/database"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
	"github.com/lawnchairsociety/cloudquest/internal/server"
)

// statsInterval is how often history totals are logged.
const statsInterval = 10 * time.Minute

func main() {
	configFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	seed := flag.Int64("seed", 0, "Generator seed (default: config, then current time)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configFile, *addr, *seed); err != nil {
		logger.Error("Dungeon service stopped", "error", err)
		os.Exit(1)
	}
}

func run(configFile, addr string, seedFlag int64) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	seed := seedFlag
	if seed == 0 {
		seed = cfg.Generator.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Info("Generator seed selected", "seed", seed, "random", true)
	} else {
		logger.Info("Generator seed selected", "seed", seed, "random", false)
	}

	srv := server.NewServer(cfg, seed)

	var db *database.Database
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		srv.SetStore(db)
		logger.Info("Generation history enabled", "driver", cfg.Database.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if db != nil {
		g.Go(func() error {
			logStats(ctx, db)
			return nil
		})
	}

	return g.Wait()
}

// logStats periodically logs how many rooms of each layout have been generated.
func logStats(ctx context.Context, db *database.Database) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := db.LayoutCounts(ctx)
			if err != nil {
				logger.Warning("Failed to read layout counts", "error", err)
				continue
			}
			total := 0
			for _, n := range counts {
				total += n
			}
			logger.Info("Generation history", "total", total, "by_layout", counts)
		}
	}
}
