package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/similarweb-ingest/internal/app"
	"github.com/ignite/similarweb-ingest/internal/ingest"
	"github.com/ignite/similarweb-ingest/internal/similarweb"
	"github.com/ignite/similarweb-ingest/internal/warehouse"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch all configured domains and load them once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s inserted %d rows into %s\n",
				result.RunID, result.Inserted, a.Warehouse.TableID())
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), cfg, warehouse.QualifiedName(cfg.Warehouse))
			return nil
		},
	}
}

func newEnsureTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-table",
		Short: "Create the destination table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			wh, err := warehouse.New(cmd.Context(), cfg.Warehouse)
			if err != nil {
				return err
			}
			defer wh.Close()

			if err := wh.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s is ready\n", wh.TableID())
			return nil
		},
	}
}

func newPreviewCommand() *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Fetch one domain and print its rows without loading them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Similarweb.APIKey == "" {
				return ingest.ErrMissingAPIKey
			}
			if site == "" {
				if len(cfg.Ingest.Domains) == 0 {
					return errors.New("no domains configured; pass --domain")
				}
				site = cfg.Ingest.Domains[0]
			}

			client := similarweb.NewClient(cfg.Similarweb, cfg.Ingest)
			rows, err := client.FetchVisits(cmd.Context(), site)
			if err != nil {
				return err
			}
			renderRows(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&site, "domain", "", "domain to fetch (defaults to the first configured domain)")
	return cmd
}
