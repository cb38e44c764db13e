package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "suraksha",
	Short: "Face authentication and route safety service",
	Long: `Suraksha authenticates users by face scan, with email and password as a
fallback, and scores the safety of locations and routes through the
route-safety engine.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err := config.InitLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
