package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fractal-ledger/config"
	"fractal-ledger/economics"
	"fractal-ledger/fractal"
	"fractal-ledger/ledger"
	"fractal-ledger/logger"
	"fractal-ledger/mining"
	"fractal-ledger/models"
	"fractal-ledger/repository"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ledgerd",
	Short:         "Fractal segment ledger node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the YAML config file, empty for defaults")
}

// loadConfig reads the config and initialises the global logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func newProtocol(cfg *config.Config, economy *economics.Economy) *mining.Protocol {
	return mining.NewProtocol(cfg.MiningOptions(), economy, nil)
}

func newEconomy(cfg *config.Config) *economics.Economy {
	return economics.NewEconomy(cfg.Economics.InitialState,
		economics.WithVolatility(cfg.Economics.Volatility),
		economics.WithAdjustmentFactor(cfg.Economics.AdjustmentFactor),
	)
}

func newLedger(cfg *config.Config, repo repository.SegmentRepositoryInterface) *ledger.Ledger {
	economy := newEconomy(cfg)
	policy := cfg.Policy()
	return ledger.New(ledger.Params{
		Repo:     repo,
		Cache:    fractal.NewCache(cfg.Fractal.CacheTTL),
		Mining:   newProtocol(cfg, economy),
		Economy:  economy,
		Treasury: economics.NewTreasury(policy, nil, economics.NewDividendSystem(policy.DecayFactor)),
		MaxLevel: models.Level(cfg.Fractal.MaxLevel),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Logger.Error("Command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
