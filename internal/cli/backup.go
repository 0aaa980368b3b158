package cli

import (
	"errors"

	"onionsite/internal/database"

	"github.com/spf13/cobra"
)

type backupOutput struct {
	Path    string `json:"path"`
	Removed int    `json:"removed"`
}

func newBackupCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the SQLite store and prune old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if backend.DB == nil {
				return errors.New("backup needs storage.driver=sqlite")
			}

			bcfg := a.cfg.Backup
			if dir != "" {
				bcfg.StoragePath = dir
			}
			svc := database.NewBackupService(backend.DB.Path(), bcfg, a.logger)
			path, err := svc.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, backupOutput{Path: path, Removed: svc.CleanupOldBackups()})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory, overrides backup.storage_path")
	return cmd
}
