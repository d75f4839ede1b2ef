package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upscale cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached upscale results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if dir := mustGetString(cmd, "cache-dir"); dir != "" {
			cfg.CacheDir = dir
		}
		store, err := cache.New(cfg.CacheDir, cfg.Mode, true)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		store.ClearAll()
		fmt.Printf("Cleared cache at %s\n", store.Root())
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().String("cache-dir", "", "Override the upscale cache directory")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
