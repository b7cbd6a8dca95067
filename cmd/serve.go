package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fractal-ledger/db"
	"fractal-ledger/handlers"
	"fractal-ledger/logger"
	"fractal-ledger/repository"
	"fractal-ledger/routers"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Logger.Sync()

		logger.Logger.Info("Starting ledger server...")

		// Connect to LevelDB
		ldb, err := db.NewLevelDB(cfg.LevelDB.Path)
		if err != nil {
			return fmt.Errorf("failed to open leveldb: %w", err)
		}
		defer ldb.Close()

		segmentRepo, err := repository.NewSegmentRepository(ldb)
		if err != nil {
			return err
		}

		h := handlers.NewHandler(newLedger(cfg, segmentRepo))

		r := mux.NewRouter()
		routers.RegisterRoutes(r, h)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: r,
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Logger.Error("Server stopped", zap.Error(err))
			}
		}()

		logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

		// Graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		<-sigCh
		logger.Logger.Info("Shutdown signal received, exiting...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
