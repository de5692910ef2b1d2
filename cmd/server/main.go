package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-service/config"
	"course-service/internal/api"
	"course-service/internal/broker"
	"course-service/internal/redisclient"
	"course-service/internal/service"
	"course-service/internal/store"
	"course-service/internal/util"
	"course-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting course service")

	tp, err := util.InitTracer("course-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// Redis only accelerates pending lookups and serializes manual
		// confirm/fail races; the store stays correct without it.
		log.Printf("Redis unavailable, continuing without it: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	purchaseProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPurchase)
	defer purchaseProducer.Close()
	paymentProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment)
	defer paymentProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(purchaseProducer, paymentProducer)

	purchaseService := service.NewPurchaseService(db, redisClient, eventPublisher)
	progressService := service.NewProgressService(db, eventPublisher)
	courseService := service.NewCourseService(db)
	accessGate := service.NewAccessGate(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	paymentResultConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment, cfg.Kafka.ConsumerGroup)
	purchaseWorker := worker.NewPurchaseWorker(paymentResultConsumer, db, purchaseService)
	go func() {
		if err := purchaseWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Purchase worker error: %v", err)
		}
	}()

	var paymentWorker *worker.PaymentWorker
	if cfg.Payment.SimulateProvider {
		paymentService := service.NewPaymentService(eventPublisher, cfg.Payment.SuccessRate)
		purchaseConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPurchase, "payment-provider-group")
		paymentWorker = worker.NewPaymentWorker(purchaseConsumer, paymentService)
		go func() {
			if err := paymentWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				log.Printf("Payment worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(purchaseService, progressService, courseService, accessGate)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	purchaseWorker.Stop()
	if paymentWorker != nil {
		paymentWorker.Stop()
	}

	log.Println("Server exited")
}
