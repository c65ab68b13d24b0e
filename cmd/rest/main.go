package main

import (
	"context"
	"log"

	"ai-therapist-be/internal/bootstrap"
	"ai-therapist-be/internal/config"
	"ai-therapist-be/internal/server"
	"ai-therapist-be/internal/tracer"
	"ai-therapist-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Event Relay...")
		if err := container.EventRelayService.Relay(context.Background()); err != nil {
			log.Printf("Background Relay Error: %v", err)
		}
	}()

	if container.AnalyticsService != nil {
		go func() {
			log.Println("Background: Starting Analytics Worker...")
			if err := container.AnalyticsService.Start(); err != nil {
				log.Printf("Background Analytics Error: %v", err)
			}
		}()
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
