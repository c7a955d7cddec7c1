package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sheet-management-service/internal/config"
	"sheet-management-service/internal/database/mongo"
	"sheet-management-service/internal/database/redis"
	"sheet-management-service/internal/event"
	"sheet-management-service/internal/handlers"
	"sheet-management-service/internal/repository"
	"sheet-management-service/internal/services"
	"sheet-management-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "sheet_management_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Initialize repositories
	sheetRepo := repository.NewSheetRepository(mongo.Mongo_Database)
	assignmentRepo := repository.NewAssignmentRepository(mongo.Mongo_Database)
	rowRepo := repository.NewRowRepository(mongo.Mongo_Database)
	lockRepo := repository.NewLockRepository(mongo.Mongo_Database)
	auditRepo := repository.NewAuditRepository(mongo.Mongo_Database)

	// Create database indexes
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sheetRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create sheet indexes: %v", err)
	}
	if err := assignmentRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create assignment indexes: %v", err)
	}
	if err := rowRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create row indexes: %v", err)
	}
	if err := lockRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create lock indexes: %v", err)
	}
	if err := auditRepo.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create audit indexes: %v", err)
	}
	cancel()

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher, _ = event.NewEventPublisher("", "")
	}

	// Initialize services
	auditService := services.NewAuditService(auditRepo, eventPublisher, cfg.Governance.LogReadActions)
	accessService := services.NewAccessService(assignmentRepo, sheetRepo, redis.Redis_Client, cfg.Governance.AccessCacheTTL)
	sheetService := services.NewSheetService(sheetRepo, accessService, auditService)
	assignmentService := services.NewAssignmentService(assignmentRepo, sheetRepo, accessService, auditService, eventPublisher)
	rowService := services.NewRowService(rowRepo, sheetRepo, lockRepo, accessService, auditService, eventPublisher, cfg.Governance.DefaultLockTimeout)
	lockService := services.NewLockService(lockRepo, sheetRepo, rowRepo, accessService, auditService, cfg.Governance.DefaultLockTimeout, cfg.Governance.LockReaperInterval)
	workflowService := services.NewWorkflowService(rowRepo, sheetRepo, lockRepo, accessService, auditService, eventPublisher)

	// Initialize event consumer for account lifecycle events
	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.AccountExchange, assignmentService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
			eventConsumer = nil
		} else {
			log.Println("Successfully started account event consumer")
		}
	}

	// Background reaper clears expired locks left behind by the TTL monitor delay
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	lockService.StartReaper(reaperCtx)

	// Initialize and register handlers
	sheetHandler := handlers.NewSheetHandler(sheetService)
	sheetHandler.RegisterRoutes(app)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	assignmentHandler.RegisterRoutes(app)
	rowHandler := handlers.NewRowHandler(rowService)
	rowHandler.RegisterRoutes(app)
	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	workflowHandler.RegisterRoutes(app)
	lockHandler := handlers.NewLockHandler(lockService)
	lockHandler.RegisterRoutes(app)
	auditHandler := handlers.NewAuditHandler(auditService, accessService)
	auditHandler.RegisterRoutes(app)

	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Register(); err != nil {
			log.Printf("Warning: Failed to register with service discovery: %v", err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	stopReaper()

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Disconnect from MongoDB
	mongo.DisconnectMongo()

	// Deregister from service discovery
	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	if eventConsumer != nil {
		if err := eventConsumer.Close(); err != nil {
			log.Printf("Error closing event consumer: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
