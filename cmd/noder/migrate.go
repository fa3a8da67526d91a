package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noder-app/noder/pkg/config"
	"github.com/noder-app/noder/pkg/storage"
)

// migrateDataCommand migrates workflows and credentials between file-based
// storage and PostgreSQL
func migrateDataCommand() {
	fmt.Println("🔄 Noder Data Migration Tool")
	fmt.Println("============================")
	fmt.Println()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	dataDir, err := config.AppDataDir()
	if err != nil {
		fmt.Printf("❌ Error resolving app data directory: %v\n", err)
		os.Exit(1)
	}
	filePath := cfg.Storage.FilePath
	if filePath == "" {
		filePath = filepath.Join(dataDir, "data")
	}

	// Determine source and destination
	var sourceType, destType string
	var sourceConfig, destConfig storage.Config

	if cfg.Storage.Type == "postgres" {
		// Migrating TO postgres, source is file
		sourceType = "file"
		destType = "postgres"

		sourceConfig = storage.Config{
			Type:     "file",
			FilePath: filePath,
		}

		destConfig = storage.Config{
			Type:        "postgres",
			DatabaseURL: cfg.Storage.DatabaseURL,
			SSLEnabled:  cfg.Storage.SSLEnabled,
		}
	} else {
		// Export FROM postgres to file
		sourceType = "postgres"
		destType = "file"

		sourceConfig = storage.Config{
			Type:        "postgres",
			DatabaseURL: cfg.Storage.DatabaseURL,
			SSLEnabled:  cfg.Storage.SSLEnabled,
		}

		destConfig = storage.Config{
			Type:     "file",
			FilePath: filePath,
		}
	}

	fmt.Printf("📁 Source: %s\n", sourceType)
	fmt.Printf("📁 Destination: %s\n", destType)
	fmt.Println()

	// Confirm migration
	fmt.Print("⚠️  This will migrate all data. Continue? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("❌ Migration cancelled")
		return
	}

	// Create source storage
	fmt.Printf("🔌 Connecting to source (%s)...\n", sourceType)
	sourceStore, err := storage.NewStorage(sourceConfig)
	if err != nil {
		fmt.Printf("❌ Error creating source storage: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := sourceStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Error connecting to source: %v\n", err)
		os.Exit(1)
	}
	defer sourceStore.Close()

	// Create destination storage
	fmt.Printf("🔌 Connecting to destination (%s)...\n", destType)
	destStore, err := storage.NewStorage(destConfig)
	if err != nil {
		fmt.Printf("❌ Error creating destination storage: %v\n", err)
		os.Exit(1)
	}

	if err := destStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Error connecting to destination: %v\n", err)
		os.Exit(1)
	}
	defer destStore.Close()

	// Migrate workflows
	fmt.Println()
	fmt.Println("📦 Migrating workflows...")
	if err := migrateWorkflows(ctx, sourceStore, destStore); err != nil {
		fmt.Printf("❌ Error migrating workflows: %v\n", err)
		os.Exit(1)
	}

	// Migrate credentials
	fmt.Println()
	fmt.Println("📦 Migrating credentials...")
	if err := migrateCredentials(ctx, sourceStore, destStore); err != nil {
		fmt.Printf("❌ Error migrating credentials: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✅ Migration completed successfully!")
	fmt.Println()
	fmt.Println("⚠️  Remember to:")
	fmt.Printf("   1. Update storage type to '%s' in the settings\n", destType)
	fmt.Println("   2. Restart Noder for changes to take effect")
}

func migrateWorkflows(ctx context.Context, source, dest storage.Storage) error {
	summaries, err := source.Workflows().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	fmt.Printf("   Found %d workflows\n", len(summaries))

	for i, summary := range summaries {
		fmt.Printf("   [%d/%d] Migrating workflow: %s\n", i+1, len(summaries), summary.Name)

		wf, err := source.Workflows().Load(ctx, summary.ID)
		if err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", summary.ID, err)
		}

		if err := dest.Workflows().Save(ctx, wf); err != nil {
			return fmt.Errorf("failed to save workflow %s: %w", summary.ID, err)
		}
	}

	fmt.Printf("   ✅ Migrated %d workflows\n", len(summaries))
	return nil
}

func migrateCredentials(ctx context.Context, source, dest storage.Storage) error {
	creds, err := source.Credentials().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	fmt.Printf("   Found %d credentials\n", len(creds))

	for i, cred := range creds {
		fmt.Printf("   [%d/%d] Migrating credential: %s\n", i+1, len(creds), cred.Name)

		if err := dest.Credentials().Save(ctx, cred); err != nil {
			return fmt.Errorf("failed to save credential %s: %w", cred.ID, err)
		}
	}

	fmt.Printf("   ✅ Migrated %d credentials\n", len(creds))
	return nil
}

// exportDataCommand exports data from current storage to JSON files
func exportDataCommand(outputDir string) {
	fmt.Println("📤 Noder Data Export Tool")
	fmt.Println("=========================")
	fmt.Println()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	dataDir, err := config.AppDataDir()
	if err != nil {
		fmt.Printf("❌ Error resolving app data directory: %v\n", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg, dataDir)
	if err != nil {
		fmt.Printf("❌ Error connecting to storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Printf("📁 Storage type: %s\n", cfg.Storage.Type)
	fmt.Printf("📁 Output directory: %s\n", outputDir)
	fmt.Println()

	ctx := context.Background()

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("❌ Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	// Export workflows
	fmt.Println("📦 Exporting workflows...")
	if err := exportWorkflows(ctx, store, outputDir); err != nil {
		fmt.Printf("❌ Error exporting workflows: %v\n", err)
		os.Exit(1)
	}

	// Export credentials
	fmt.Println("📦 Exporting credentials...")
	if err := exportCredentials(ctx, store, outputDir); err != nil {
		fmt.Printf("❌ Error exporting credentials: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("✅ Export completed successfully to: %s\n", outputDir)
}

func exportWorkflows(ctx context.Context, store storage.Storage, outputDir string) error {
	summaries, err := store.Workflows().List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("   Exporting %d workflows...\n", len(summaries))

	for _, summary := range summaries {
		wf, err := store.Workflows().Load(ctx, summary.ID)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, summary.ID+".json")
		if err := writeJSONFile(filename, wf); err != nil {
			return err
		}
	}

	fmt.Printf("   ✅ Exported %d workflows\n", len(summaries))
	return nil
}

func exportCredentials(ctx context.Context, store storage.Storage, outputDir string) error {
	creds, err := store.Credentials().List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("   Exporting %d credentials...\n", len(creds))

	// Write all credentials to single file
	filename := filepath.Join(outputDir, "credentials.json")
	if err := writeJSONFile(filename, creds); err != nil {
		return err
	}

	fmt.Printf("   ✅ Exported %d credentials\n", len(creds))
	return nil
}

func writeJSONFile(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
