package main

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/erazemk/estatedesk/internal/config"
	"github.com/erazemk/estatedesk/internal/db"
)

type commandContext struct {
	configFlag *string
	dbFlag     *string
	logFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if p := strings.TrimSpace(*c.dbFlag); p != "" {
			cfg.DB.Path = p
		}
		if p := strings.TrimSpace(*c.logFlag); p != "" {
			cfg.Log.Path = p
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openDB opens the configured database and applies migrations.
func (c *commandContext) openDB() (*sql.DB, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag, dbFlag, logFlag string
	ctx := &commandContext{configFlag: &configFlag, dbFlag: &dbFlag, logFlag: &logFlag}

	rootCmd := &cobra.Command{
		Use:           "estatedesk",
		Short:         "Estate-sale item intake and approval",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file (default: ./estatedesk.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&dbFlag, "db", "d", "", "SQLite database path (overrides db.path)")
	rootCmd.PersistentFlags().StringVarP(&logFlag, "log", "l", "", "log file path (overrides log.path)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newJobCommand(ctx))
	rootCmd.AddCommand(newItemCommand(ctx))

	return rootCmd
}
