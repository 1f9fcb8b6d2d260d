package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"eshop-api/internal/api"
	"eshop-api/internal/auth"
	"eshop-api/internal/config"
	"eshop-api/internal/store"
	"eshop-api/internal/upload"
)

const defaultAppName = "EshopAPI"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile)
	logger.Println("INFO: Starting service...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s", cfg.AppEnv)

	// --- Database Connection ---
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelConnect()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize MongoDB connection: %v", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Fatalf("FATAL: Failed to ping MongoDB: %v", err)
	}
	logger.Println("INFO: MongoDB connection established.")

	dbStore := store.NewMongoStore(client.Database(cfg.Mongo.Database))
	if err := dbStore.EnsureIndexes(connectCtx); err != nil {
		logger.Fatalf("FATAL: Failed to ensure indexes: %v", err)
	}

	// --- Upload storage & auth ---
	uploads, err := upload.New(cfg.Upload.Dir, cfg.Upload.PublicBase)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize upload storage: %v", err)
	}
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)

	// --- Router ---
	httpAPIHandler := api.NewHTTPHandler(dbStore, dbStore, dbStore, dbStore, tokens, uploads)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Welcome to first project!"))
	})
	router.Handle(uploads.PublicBase()+"/*",
		http.StripPrefix(uploads.PublicBase()+"/", http.FileServer(http.Dir(uploads.Dir()))))
	httpAPIHandler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}

	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Printf("WARN: Error closing MongoDB connection: %v", err)
	}
	logger.Println("INFO: Graceful shutdown sequence completed.")
}
