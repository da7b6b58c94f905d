package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/storage"
)

func uploadsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Manage uploaded spreadsheets",
	}
	cmd.AddCommand(pruneCmd(g))
	return cmd
}

func pruneCmd(g *globalFlags) *cobra.Command {
	var (
		dir    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete spreadsheets that no upload record refers to",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), g.logLevel)
			cfg, err := loadConfig(g, logger)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Uploads.Dir
			}

			ctx := commandContext(cmd)
			store, err := storage.Open(ctx, cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			orphans, err := store.Uploads.Prune(ctx, dir, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, p := range orphans {
				fmt.Fprintf(out, "%s %s\n", verb, p)
			}
			fmt.Fprintf(out, "%d orphaned file(s) %s\n", len(orphans), verb)
			logger.Debug("Upload prune finished", "dir", dir, "orphans", len(orphans), "dry_run", dryRun)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Upload directory (defaults to uploads.dir from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List orphaned files without deleting them")
	return cmd
}
