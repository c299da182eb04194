// Package cmd provides the CLI commands for PlutoDesk.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plutodesk/plutodesk/internal/config"
)

var cfgFile string
var dataDir string

var rootCmd = &cobra.Command{
	Use:   "plutodesk",
	Short: "PlutoDesk - study session tracker",
	Long: `PlutoDesk tracks study sessions and files screenshots of problems
under the folder, course and set of the active session.

Quick start:
  1. Run: plutodesk serve
  2. Point the desktop UI at http://127.0.0.1:7421

Configuration:
  Config is loaded from plutodesk.yaml in the current directory,
  <user config dir>/plutodesk/, or /etc/plutodesk/.

  Environment variables can override config values with the PLUTODESK_ prefix.
  Example: PLUTODESK_SERVER_HTTP_ADDR=127.0.0.1:9090

Commands:
  serve       Start the local API server
  stop        Stop the running server
  sessions    List, create, start, end and delete sessions
  screenshot  File an image under the active session
  config      Print the effective configuration
  reset       Remove saved sessions (and optionally all data)
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./plutodesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: <user config dir>/plutodesk)")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	config.InitViper(cfgFile)
}
