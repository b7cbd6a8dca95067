package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fractal-ledger/mining"
	"fractal-ledger/models"
)

var (
	mineData       string
	mineDifficulty int
	mineLevel      int
)

func init() {
	mineCmd.Flags().StringVar(&mineData, "data", "", "data to mine a proof for")
	mineCmd.Flags().IntVar(&mineDifficulty, "difficulty", 1, "target difficulty in leading hex zeros")
	mineCmd.Flags().IntVar(&mineLevel, "level", -1, "scale the difficulty by the scarcity of this level")
	mineCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(mineCmd)
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Search for a proof of work",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		protocol := newProtocol(cfg, newEconomy(cfg))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var proof mining.Proof
		if cmd.Flags().Changed("level") {
			proof, err = protocol.MineAtLevel(ctx, mineData, mineDifficulty, models.Level(mineLevel))
		} else {
			proof, err = protocol.Mine(ctx, mineData, mineDifficulty)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(proof)
	},
}
