package main

import (
	"fmt"
	"os"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "treadwise",
	Short: "TreadWise customer support agent",
	Long:  `TreadWise answers customer questions about tires and services, records sales leads and logs questions it could not answer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.treadwise/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file exported before config is loaded (default is ./.env)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("models.default", config.DefaultModelDefault, "model used for chat completions")
}
