package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	apiURL    string
	officerID string
	debug     bool

	rootCmd = &cobra.Command{
		Use:   "karmasri",
		Short: "Edit KARMASRI officer profiles from the terminal",
		Long: `karmasri loads an officer's profile from the portal backend, shows
each section with the source of every field, and saves edits the way
the portal forms do.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("KARMASRI_API", "http://localhost:8080"), "portal backend base URL")
	rootCmd.PersistentFlags().StringVar(&officerID, "officer-id", "", "act on another officer (GAD only)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log requests and cache activity")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(showCmd, refreshCmd, editCmd, deleteCmd)
	rootCmd.AddCommand(attachCmd, detachCmd, downloadCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
