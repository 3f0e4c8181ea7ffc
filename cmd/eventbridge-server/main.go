package main

import (
	"log"
	"net/http"
	"os"

	"github.com/eventbridgenz/eventbridge/internal/api"
	"github.com/eventbridgenz/eventbridge/internal/config"
	"github.com/eventbridgenz/eventbridge/internal/database"
	"github.com/eventbridgenz/eventbridge/internal/email"
	"github.com/eventbridgenz/eventbridge/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

// main is the entry point for the EventBridge backend server.
func main() {
	// --- 1. Load Configuration ---
	// Configuration comes from a .env file during development and from real
	// environment variables in production.
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, using environment variables from the system.")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("FATAL: Failed to load application configuration: %v", err)
	}

	// --- 2. Ensure Required Directories Exist ---
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create data directory at %s: %v", cfg.DataPath, err)
	}

	log.Println("INFO: Application directories verified.")

	broker := realtime.NewBroker()

	emailService := email.NewEmailService(email.SMTPServerConfig{
		Host:     cfg.SmtpHost,
		Port:     cfg.SmtpPort,
		Username: cfg.SmtpUser,
		Password: cfg.SmtpPass,
		Sender:   cfg.SmtpSender,
	})

	log.Println("INFO: Realtime broker and email service initialized.")

	// --- 3. Initialize Database Service ---
	// The database service manages all connections and serializes writes.
	dbService, err := database.NewService(cfg.DbPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database service: %v", err)
	}
	// 'defer' ensures all open database connections are closed gracefully
	// when main exits.
	defer dbService.Close()

	log.Println("INFO: Database service initialized successfully.")

	// --- 4. Initialize Database Schema ---
	// Creates the tables and views if they do not already exist. Safe to run
	// on every startup.
	if err := dbService.InitSchema(); err != nil {
		log.Fatalf("FATAL: Failed to initialize database schema: %v", err)
	}

	log.Println("INFO: Database schema verified.")

	// --- 5. Set Up API Server and Routes ---
	serverAPI := api.NewServer(cfg, dbService, broker, emailService)

	router := chi.NewRouter()
	serverAPI.RegisterRoutes(router)

	log.Println("INFO: API routes registered.")

	// --- 6. Start the HTTP Server ---
	log.Printf("INFO: EventBridge server starting on %s", cfg.ServerAddr)

	if err := http.ListenAndServe(cfg.ServerAddr, router); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
