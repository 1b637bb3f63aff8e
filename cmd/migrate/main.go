package main

import (
	"context"
	"log"
	"os"

	"cv-rag/pkg/database"
	"cv-rag/pkg/vectorindex/pgvector"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer func() { _ = database.Close(db) }()

	// 3. Extension and vector tables
	log.Println("Migrating pgvector namespace and record tables...")
	if err := pgvector.NewStore(db).Migrate(context.Background()); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}

	log.Println("✅ Success: Vector store migration completed.")
}
