package main

import (
	"miracle_store/internal/config" // Custom import path (Config)
	"miracle_store/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DBDriver, cfg.DSN())
}
