package main

import (
	"flag"    // Command line flags
	"os"      // Arguments and exit codes
	"strings" // Email normalisation

	"miracle_store/internal/config" // Configuration
	"miracle_store/internal/db"     // Database connection
	"miracle_store/internal/domain" // Importing domain models
	"miracle_store/internal/utils"  // Password hashing

	"github.com/sirupsen/logrus" // Logging library
)

const usage = "usage: admin add-user -email EMAIL -password PASSWORD [-name NAME] [-role admin|user]"

// Main entry point for operator tasks
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if len(os.Args) < 2 || os.Args[1] != "add-user" {
		logrus.Fatal(usage)
	}

	fs := flag.NewFlagSet("add-user", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, 8-72 characters")
	name := fs.String("name", "", "display name")
	role := fs.String("role", domain.RoleAdmin, "admin or user")
	_ = fs.Parse(os.Args[2:])

	if *email == "" || len(*password) < 8 || len(*password) > 72 {
		logrus.Fatal(usage)
	}
	if *role != domain.RoleAdmin && *role != domain.RoleUser {
		logrus.Fatalf("unknown role %q", *role)
	}

	cfg := config.LoadConfig() // Load configuration
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	hash, err := utils.HashPassword(*password)
	if err != nil {
		logrus.Fatalf("failed to hash password: %v", err)
	}
	user := domain.User{
		Name:     strings.TrimSpace(*name),
		Email:    strings.ToLower(strings.TrimSpace(*email)),
		Password: hash,
		Role:     *role,
	}
	if err := gdb.Create(&user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			logrus.Fatalf("a user with email %s already exists", user.Email)
		}
		logrus.Fatalf("failed to create user: %v", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email, "role": user.Role}).Info("User created")
}
