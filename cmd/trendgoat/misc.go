package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/storage"
)

var purgeDays int

// purgeCmd creates the "purge" subcommand. Only MongoDB keeps per-record
// timestamps, so JSON-only storage is rejected.
func purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete MongoDB records older than --days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if purgeDays < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", purgeDays)
			}
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			mongo, ok := mongoStore(a.store)
			if !ok {
				return errors.New("purge needs storage.type mongodb or both")
			}
			n, err := mongo.PurgeOlderThan(cmd.Context(), purgeDays)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d records older than %d days\n", n, purgeDays)
			return nil
		},
	}
	cmd.Flags().IntVarP(&purgeDays, "days", "d", 30, "age in days above which records are deleted")
	return cmd
}

func mongoStore(s storage.Store) (*storage.MongoStore, bool) {
	switch s := s.(type) {
	case *storage.MongoStore:
		return s, true
	case *storage.MultiStore:
		return s.Mongo()
	}
	return nil, false
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			masked := maskSecrets(*cfg)
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(&masked); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// maskSecrets returns a copy of cfg with credentials hidden.
func maskSecrets(cfg config.Config) config.Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	cfg.Sources.Reddit.ClientSecret = mask(cfg.Sources.Reddit.ClientSecret)
	cfg.Sources.YouTube.APIKey = mask(cfg.Sources.YouTube.APIKey)
	cfg.Sources.Twitter.BearerToken = mask(cfg.Sources.Twitter.BearerToken)
	if u, err := url.Parse(cfg.Storage.MongoURI); err == nil {
		cfg.Storage.MongoURI = u.Redacted()
	}
	return cfg
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TrendGoat %s\n", config.Version)
		},
	}
}
