package main

import (
	"github.com/gopsql/logger"
	"github.com/spf13/cobra"

	"github.com/gopsql/tsql/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	log        logger.Logger = logger.StandardLogger

	// Persistent flags
	cfgFile string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "tsql",
	Short: "Typed SQL entities from database schemas",
	Long: `tsql - Typed SQL entities from database schemas

tsql reads the tables of a database into a schema file and generates
entities, typed columns and relations of package tsql from it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet {
			log = quietLogger{logger.StandardLogger}
		}
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		if configPath != "" {
			log.Debug("Using config file", configPath)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover tsql.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddCommand(generateSchemaCmd)
	rootCmd.AddCommand(generateCmd)
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return cli.LogError(log, err)
	}
	return cli.ExitSuccess
}

// quietLogger drops debug and info messages.
type quietLogger struct {
	logger.Logger
}

func (quietLogger) Debug(args ...interface{}) {}

func (quietLogger) Info(args ...interface{}) {}
