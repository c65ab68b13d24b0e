package main

import (
	"log"
	"os"

	"ai-therapist-be/internal/model"
	"ai-therapist-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding Demo Users...")

	// Fixed ids so demo JWTs stay valid across reseeds
	users := []model.User{
		{Id: uuid.MustParse("66a32015-43b7-4f30-a4c9-6f4c74a0d3c3"), Email: "demo@example.com", FullName: "Demo User", Status: "active"},
		{Id: uuid.MustParse("f6c0c35b-3a42-4da9-882f-25342fa6fe4c"), Email: "tester@example.com", FullName: "Second Tester", Status: "active"},
	}

	for _, u := range users {
		var existing model.User
		if err := db.Where("email = ?", u.Email).First(&existing).Error; err == nil {
			log.Printf("User '%s' already exists, skipping...", u.Email)
			continue
		}

		if err := db.Create(&u).Error; err != nil {
			log.Printf("Error creating user '%s': %v", u.Email, err)
		} else {
			log.Printf("Created user: %s (%s)", u.FullName, u.Email)
		}
	}

	log.Println("User seeding completed!")
}
