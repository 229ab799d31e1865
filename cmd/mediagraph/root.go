package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "mediagraph",
		Short: "mediagraph: idempotent movie and series graph loader",
		Long: `mediagraph fetches movie, series and episode metadata from OMDb and
upserts it into a Neo4j or Memgraph property graph. Every write is
create-if-absent, so re-running an ingest leaves the graph unchanged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mediagraph.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("db-driver", "neo4j", "graph store (neo4j, memgraph, memory)")
	flags.String("db-uri", "bolt://localhost:7687", "graph store URI")
	flags.String("db-username", "neo4j", "graph store username")
	flags.String("db-password", "", "graph store password")
	flags.String("db-database", "", "graph database name (neo4j only)")
	flags.String("omdb-api-key", "", "OMDb API key")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory and the working directory with
		// name ".mediagraph" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mediagraph")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
