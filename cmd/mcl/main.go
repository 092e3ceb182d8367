package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/movie-checklist/internal/config"
	"github.com/franz/movie-checklist/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mcl",
		Short: "Movie Checklist - track the movies and series you plan to watch",
		Long: `mcl (Movie Checklist) keeps a local library of movies and series.
Search the catalog, put titles on your planned list, mark them watched
with a 1-5 star rating, and browse both lists offline.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	// cfg is loaded before any command runs
	cfg config.Config
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/mcl.yaml)")
	rootCmd.PersistentFlags().String("db", "mcl-library.db", "library database file")
	rootCmd.PersistentFlags().String("events-dir", "", "directory for JSONL event logs (disabled if empty)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("events_dir", rootCmd.PersistentFlags().Lookup("events-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if err := config.Init(cfgFile); err != nil {
		util.ErrorLog("%v", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	util.SetVerbose(cfg.Verbose)
	util.SetQuiet(cfg.Quiet)
	util.SetColors(util.IsTerminal(os.Stdout.Fd()))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
