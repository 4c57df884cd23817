package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cloo-solutions/knowbase/internal/config"
	"github.com/cloo-solutions/knowbase/internal/database"
	"github.com/cloo-solutions/knowbase/internal/storage"
	"github.com/spf13/cobra"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export knowledge items as JSON",
		Long:  "Export all knowledge items, or a single domain, as a JSON snapshot",
		RunE:  runExport,
	}

	cmd.Flags().String("domain", "", "Restrict the export to one domain")
	cmd.Flags().String("out", "", "Write the snapshot to this file instead of stdout")
	cmd.Flags().Bool("upload", false, "Upload the snapshot to the configured S3 bucket")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	domainName, _ := cmd.Flags().GetString("domain")

	export, err := deps.knowledge.Export(ctx, domainName)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	payload, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		if err := os.WriteFile(outPath, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", outPath, err)
		}
		log.Printf("exported %d items to %s", len(export.Items), outPath)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	}

	upload, _ := cmd.Flags().GetBool("upload")
	if !upload {
		return nil
	}

	if !cfg.HasS3() {
		return fmt.Errorf("--upload requires KNOWBASE_S3_ENDPOINT, KNOWBASE_S3_ACCESS_KEY_ID and KNOWBASE_S3_SECRET_ACCESS_KEY")
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	key := storage.SnapshotKey(domainName, time.Now().UTC())
	if err := s3Client.UploadSnapshot(ctx, key, payload); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	log.Printf("uploaded snapshot to s3://%s/%s", cfg.S3Bucket, key)

	return nil
}
