// Kestrel - a UCI chess engine that serves neural-network evaluations
// through a batching backend and plays instant moves from the raw network
// outputs.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/logging"
	"github.com/kestrelchess/kestrel/internal/network"
	"github.com/kestrelchess/kestrel/internal/search"
	"github.com/kestrelchess/kestrel/internal/storage"
	"github.com/kestrelchess/kestrel/internal/uci"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		noStore    bool
		flags      config.File
	)

	cmd := &cobra.Command{
		Use:           "kestrel",
		Short:         "UCI engine playing instant moves from neural-network output",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Precedence: flags > config file > stored preferences >
			// built-in defaults.
			base := config.DefaultFile()

			var store *storage.Storage
			if !noStore {
				s, err := storage.NewStorage()
				if err == nil {
					store = s
					defer store.Close()
					if prefs, err := store.LoadPreferences(); err == nil {
						base.Backend = prefs.Backend
						base.Weights = prefs.WeightsFile
						base.BackendOptions = prefs.BackendOptions
						base.PolicySoftmaxTemp = prefs.PolicySoftmaxTemp
						base.HistoryFill = prefs.HistoryFill
						base.Search = prefs.SearchMode
					}
				}
			}

			cfg, err := config.LoadFileOver(configPath, base)
			if err != nil {
				return err
			}
			overrideChanged(cmd, &cfg, flags)

			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log := logging.New(level, cfg.LogJSON)
			if store == nil && !noStore {
				log.Warn("persistent storage unavailable, statistics disabled")
			}

			network.RegisterDefaults()
			search.RegisterDefaults()

			log.Info("kestrel starting",
				"backend", cfg.Backend, "search", cfg.Search, "weights", cfg.Weights)
			uci.New(cfg, store, log, os.Stdin, os.Stdout).Run()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "kestrel.yaml", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the preferences and statistics database")
	cmd.Flags().StringVar(&flags.Backend, "backend", "random", "network backend to use")
	cmd.Flags().StringVar(&flags.Weights, "weights", "", "path to the network weight file")
	cmd.Flags().StringVar(&flags.BackendOptions, "backend-opts", "", "backend-specific options, e.g. \"threads=2,batch=16\"")
	cmd.Flags().Float64Var(&flags.PolicySoftmaxTemp, "policy-softmax-temp", 1.0, "policy softmax temperature")
	cmd.Flags().StringVar(&flags.HistoryFill, "history-fill", "fen_only", "empty-history fill policy (no, fen_only, always)")
	cmd.Flags().StringVar(&flags.Search, "search", "policyhead", "search strategy (policyhead, valuehead)")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.LogJSON, "log-json", false, "log as JSON instead of text")

	return cmd
}

// overrideChanged copies only the flags the user actually set onto the
// loaded configuration.
func overrideChanged(cmd *cobra.Command, cfg *config.File, flags config.File) {
	if cmd.Flags().Changed("backend") {
		cfg.Backend = flags.Backend
	}
	if cmd.Flags().Changed("weights") {
		cfg.Weights = flags.Weights
	}
	if cmd.Flags().Changed("backend-opts") {
		cfg.BackendOptions = flags.BackendOptions
	}
	if cmd.Flags().Changed("policy-softmax-temp") {
		cfg.PolicySoftmaxTemp = flags.PolicySoftmaxTemp
	}
	if cmd.Flags().Changed("history-fill") {
		cfg.HistoryFill = flags.HistoryFill
	}
	if cmd.Flags().Changed("search") {
		cfg.Search = flags.Search
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON = flags.LogJSON
	}
}
