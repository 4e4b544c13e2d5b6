// Command revued runs the product-review service: an HTTP server over a
// sqlite catalog, plus maintenance subcommands for seeding demo data and
// importing review CSV files offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"revue/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:           "revued",
		Short:         "Product review service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose development logging")

	loadConfig := func() (config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, nil, err
		}
		if debug {
			cfg.Debug = true
		}
		log, err := newLogger(cfg.Debug)
		if err != nil {
			return cfg, nil, err
		}
		return cfg, log, nil
	}

	root.AddCommand(newServeCmd(loadConfig))
	root.AddCommand(newSeedCmd(loadConfig))
	root.AddCommand(newImportCmd(loadConfig))
	return root
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = nil
	return cfg.Build()
}
