package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/config"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/logging"
)

// app is resolved once per invocation by the root PersistentPreRunE.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		store   string
		dbPath  string
		level   string
		a       = &app{}
	)

	rootCmd := &cobra.Command{
		Use:           "labconsole",
		Short:         "Access lab registration console",
		Long:          "Registers lab users under face, RFID and fingerprint, and manages RFID credentials and the access log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			a.cfg = config.FromEnv()

			// flag > env > default
			if cmd.Flags().Changed("store") {
				v, err := config.ParseStore(store)
				if err != nil {
					return err
				}
				a.cfg.Store = v
			}
			if cmd.Flags().Changed("db") {
				a.cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = level
			}

			a.logger = logging.New(logging.ForEnv(a.cfg.Env, a.cfg.LogLevel))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "KEY=VALUE file loaded before reading LABCONSOLE_* variables")
	rootCmd.PersistentFlags().StringVar(&store, "store", "", "Credential store: memory, sqlite, firebase, redis, etcd")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&level, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newRFIDCmd(a))

	return rootCmd
}
