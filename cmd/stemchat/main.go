package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindx-labs/stemchat/config"
	"github.com/mindx-labs/stemchat/internal/guides"
	srv "github.com/mindx-labs/stemchat/internal/server"
)

func main() {
	var configPath string
	var root = &cobra.Command{Use: "stemchat"}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the tutoring HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(config.LoadConfig(configPath))
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run analytics database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			return srv.Migrate(migDir, cfg.Databases.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var guidesCmd = &cobra.Command{
		Use:   "guides",
		Short: "List loaded teaching guides and their chunk counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			loaded, err := guides.Load(cfg.Guides.Dir, cfg.Guides.MaxChunkLen, nil)
			if err != nil {
				return err
			}
			for _, g := range loaded {
				fmt.Printf("%-40s %3d chunks  %s\n", g.ID, len(g.Chunks), g.DisplayTitle)
			}
			fmt.Printf("%d guides\n", len(loaded))
			return nil
		},
	}

	root.AddCommand(serve, migrate, guidesCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
