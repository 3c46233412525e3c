package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "crocplan",
		Short:        "Plan CrocSwap dex transactions",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.Uint64("chain-id", 10143, "chain id from the chain table")
	flags.String("rpc", "", "RPC URL (overrides the chain table)")
	flags.String("sender", "", "address the plans are built for")
	flags.String("journal", "", "append plans to this JSONL file")
	flags.String("pg-dsn", "", "also record plans in Postgres")
	flags.Uint("retry-attempts", 3, "RPC read attempts")
	flags.Duration("retry-delay", 200*time.Millisecond, "initial RPC retry delay")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPriceCmd(),
		newInitCmd(),
		newSwapCmd(),
		newMintCmd(),
		newBurnCmd(),
		newKnockoutCmd(),
		newRepositionCmd(),
		newPositionCmd(),
		newSurplusCmd(),
		newApproveCmd(),
		newHistoryCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
