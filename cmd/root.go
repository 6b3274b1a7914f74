package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gst-filter",
	Short: "Filter and summarise GST registration snapshots",
	Long:  "Narrows a GST registration snapshot by HSN code, location, business type and turnover slab, and summarises the survivors by location and HSN code.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
