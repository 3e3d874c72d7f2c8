package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/testplan-ai/backend/internal/config"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/internal/utils"
)

// Re-encrypts the stored JIRA token and Groq key under a new passphrase.
//
//	ENCRYPTION_KEY=old NEW_ENCRYPTION_KEY=new go run ./cmd/scripts/rotate_secrets
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	dryRun := flag.Bool("dry-run", false, "only count the secrets that would be rotated")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	newKey := os.Getenv("NEW_ENCRYPTION_KEY")
	if newKey == "" {
		log.Fatal("NEW_ENCRYPTION_KEY must be set")
	}
	if newKey == cfg.Security.EncryptionKey {
		log.Fatal("NEW_ENCRYPTION_KEY is the same as the current key")
	}

	from, err := utils.NewSecretCodec(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to derive current key: %v", err)
	}
	to, err := utils.NewSecretCodec(newKey)
	if err != nil {
		log.Fatalf("Failed to derive new key: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	fmt.Printf("Connected to %s database\n", cfg.Database.Driver)

	settings := services.NewSettingService(db)
	all, err := settings.GetAll()
	if err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}

	fmt.Printf("%-25s %s\n", "Key", "Stored")
	fmt.Println("------------------------------------------")
	for key, value := range all {
		if !services.IsSecretSetting(key) {
			continue
		}
		state := "empty"
		if value != "" {
			state = "encrypted"
		}
		fmt.Printf("%-25s %s\n", key, state)
	}
	fmt.Println("")

	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return
	}

	rotated, err := settings.RotateSecrets(from, to)
	if err != nil {
		log.Fatalf("Rotation failed, no changes written: %v", err)
	}
	fmt.Printf("Rotated %d secret(s). Restart the server with ENCRYPTION_KEY set to the new passphrase.\n", rotated)
}
