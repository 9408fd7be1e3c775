package main

import (
	"fmt"
	"os"

	"github.com/lifeos/internal/config"
	"github.com/lifeos/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "lifeos",
		Short:        "LifeOS - daily task board and guardian brain",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(brainCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDatabase 读取配置并打开（迁移）数据库
func openDatabase() (config.AppConfig, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	gdb, err := db.Init(db.Options{
		Driver:   cfg.DatabaseDriver,
		Path:     cfg.DatabasePath,
		DSN:      cfg.DatabaseURL,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("initialize database: %w", err)
	}
	return cfg, gdb, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := openDatabase()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DatabaseDriver)
			return nil
		},
	}
}
