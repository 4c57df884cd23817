package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/knowbase/internal/config"
	"github.com/cloo-solutions/knowbase/internal/database"
	"github.com/spf13/cobra"
)

// ReinitCmd returns the reinit command
func ReinitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reinit <domain>",
		Short: "Force re-ingestion of a domain's content pack",
		Long:  "Clear a domain's indexed chunks and status record, then re-ingest its content pack from CONTENT_DIR",
		Args:  cobra.ExactArgs(1),
		RunE:  runReinit,
	}
}

func runReinit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	domainName := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	deps, err := buildServices(cfg, pool)
	if err != nil {
		return err
	}

	packs, err := discoverPacks(cfg)
	if err != nil {
		return fmt.Errorf("failed to discover content packs: %w", err)
	}

	for _, pack := range packs {
		if pack.Domain != domainName {
			continue
		}
		if err := deps.initializer.ForceReinitialize(ctx, pack); err != nil {
			return fmt.Errorf("failed to reinitialize domain %q: %w", domainName, err)
		}
		log.Printf("domain %q reinitialized from %s", domainName, pack.Dir)
		return nil
	}

	return fmt.Errorf("no content pack for domain %q under %q", domainName, cfg.ContentDir)
}
