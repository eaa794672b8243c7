package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:     "shiritori",
		Short:   "Two-player word-chaining game server",
		Long:    "Shiritori serves a two-player word-chaining game: each word must start\nwith the last letter of the previous one, and every word is checked\nagainst a dictionary before it scores.",
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file")
	cmd.Flags().Int("port", 0, "HTTP listen port")
	cmd.Flags().Int("turn-seconds", 0, "default per-turn countdown in seconds")
	cmd.Flags().String("lookup-provider", "", "dictionary provider (dictapi or gemini)")
	cmd.Flags().String("lookup-base-url", "", "dictionary API base URL")

	return cmd
}

func runServer(cfg *Config) error {
	ctx := context.Background()
	timeout := time.Duration(cfg.LookupTimeoutMs) * time.Millisecond

	var dict Dictionary
	switch cfg.LookupProvider {
	case ProviderGemini:
		gem, err := NewGeminiDictionary(ctx, cfg.GCPProject, cfg.GCPRegion, timeout)
		if err != nil {
			return fmt.Errorf("init gemini dictionary: %w", err)
		}
		defer gem.Close()
		dict = gem
		log.Printf("Dictionary: Gemini (project: %s)", cfg.GCPProject)
	default:
		dict = NewDictionaryClient(cfg.LookupBaseURL, timeout)
		log.Printf("Dictionary: %s", cfg.LookupBaseURL)
	}

	sse := NewBroadcaster()
	store := NewStore(dict, sse)
	go store.MaintainSessions(time.Minute)

	srv := NewServer(cfg, store, sse)

	log.Printf("Server listening on http://localhost:%d", cfg.Port)
	return http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), srv)
}
