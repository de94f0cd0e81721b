package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibegraph/vibegraph/internal/config"
	"github.com/vibegraph/vibegraph/internal/db"
	"github.com/vibegraph/vibegraph/internal/db/driver"
	"github.com/vibegraph/vibegraph/internal/github"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull all enabled GitHub project links once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger := newLogger()

			dialect, err := driver.ParseDialect(cfg.Database.Dialect)
			if err != nil {
				return err
			}
			store, err := db.Open(driver.Config{Dialect: dialect, DSN: cfg.Database.DSN}, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			provider := github.NewCLIProvider(cfg.Github.Token, logger)
			syncSvc := github.NewSyncService(provider, logger)

			ctx := cmd.Context()
			if err := syncSvc.CheckAvailable(ctx); err != nil {
				return err
			}

			links, err := store.ListAllEnabledLinks(ctx)
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Println("No enabled GitHub links to sync.")
				return nil
			}

			for i := range links {
				link := &links[i]
				result, err := syncSvc.SyncFromGithub(ctx, store, link, link.ProjectID)
				if err != nil {
					logger.Error("sync failed", "link_id", link.ID, "error", err)
					continue
				}
				fmt.Printf("%s: %d synced (%d created, %d updated, %d errors)\n",
					link.GithubProjectID, result.ItemsSynced, result.ItemsCreated,
					result.ItemsUpdated, len(result.Errors))
			}
			return nil
		},
	}
}
