package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCmd creates the database schema and seeds configured admins.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and seed administrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := openStorage(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := seedAdmins(cfg, store, log); err != nil {
				return err
			}
			log.Info("schema ready", zap.String("db", cfg.DB.Path))
			return nil
		},
	}
}
