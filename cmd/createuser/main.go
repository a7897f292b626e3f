// Command createuser seeds an account directly in the database. It is the
// only way to create the first admin.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/config"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/database"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

func main() {
	email := flag.String("email", "", "login email")
	name := flag.String("name", "", "full name")
	role := flag.String("role", models.RoleAdmin, "admin, staff or viewer")
	migrate := flag.Bool("migrate", false, "run migrations first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.Environment, cfg.LogLevel)

	password := os.Getenv("CREATEUSER_PASSWORD")
	if *email == "" || *name == "" || password == "" {
		flag.Usage()
		log.Fatal("-email, -name and CREATEUSER_PASSWORD are required")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if *migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// no worker: nothing is queued
	svcs := services.NewServices(repository.NewRepositories(db), nil, cfg)
	user, err := svcs.User.Bootstrap(ctx, services.CreateUserInput{
		Email:    *email,
		Password: password,
		FullName: *name,
		Role:     *role,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("Created %s user %s (id %d)", user.Role, user.Email, user.ID)
}
