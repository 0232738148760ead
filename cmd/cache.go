package cmd

import (
	"fmt"

	"github.com/jcdickinson/astdocs/internal/cas"
	"github.com/jcdickinson/astdocs/internal/config"
	"github.com/jcdickinson/astdocs/internal/db"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the rendered-page cache and the objects index",
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached pages and indexed objects",
	Args:  cobra.NoArgs,
	RunE:  runClearCache,
}

func init() {
	cacheCmd.AddCommand(clearCacheCmd)
}

func runClearCache(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := cas.New(afero.NewOsFs(), cfg.Cache.Dir)
	pages, err := store.Clear()
	if err != nil {
		return fmt.Errorf("clearing page cache %s: %w", store.Dir(), err)
	}

	database, err := db.New(config.IndexPath())
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer database.Close()

	modules, err := database.Clear()
	if err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached pages from %s and %d indexed modules\n", pages, store.Dir(), modules)
	return nil
}
