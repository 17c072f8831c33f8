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

	"github.com/garage-notify/internal/application/account"
	"github.com/garage-notify/internal/application/device"
	"github.com/garage-notify/internal/application/notification"
	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/config"
	"github.com/garage-notify/internal/infrastructure/dynamo"
	jwtinfra "github.com/garage-notify/internal/infrastructure/jwt"
	"github.com/garage-notify/internal/infrastructure/sns"
	transporthttp "github.com/garage-notify/internal/transport/http"
	"github.com/garage-notify/internal/transport/http/middleware"
	"github.com/garage-notify/internal/transport/ws"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	dynamoClient, err := dynamo.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("DynamoDB client: %v", err)
	}
	// Creates missing tables.
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// SNS push gateway (optional: push is skipped without a platform application ARN).
	var pushGateway *sns.PushGateway
	if cfg.PushEnabled() {
		client, err := sns.NewClient(context.Background(), cfg)
		if err != nil {
			log.Printf("WARN: SNS push not available: %v", err)
		} else {
			pushGateway = sns.NewPushGateway(client, cfg.SNSPlatformAppARNAndroid, cfg.SNSPlatformAppARNIOS)
		}
	} else {
		log.Println("WARN: no SNS platform application configured, mobile push disabled")
	}

	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
	counterRepo := dynamo.NewCounterRepo(dynamoClient, cfg.DynamoTables.Counters)
	deviceRepo := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.DeviceBindings)

	hub := ws.NewHub()
	deviceSvc := device.NewService(deviceRepo)
	pushSvc := push.NewService(pushGateway, deviceSvc, cfg.Push.FanoutLimit, cfg.Push.SendTimeout)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := push.NewDispatcher(pushSvc, cfg.Push.Workers, cfg.Push.QueueSize, cfg.Push.JobTimeout)
	dispatcher.Start(dispatchCtx)

	wsLimiter := middleware.NewRateLimiter(rate.Limit(cfg.WS.RateLimit), cfg.WS.RateBurst)

	deps := &transporthttp.Deps{
		Verifier:      jwtProvider,
		Notifications: notification.NewService(notificationRepo, counterRepo, hub, dispatcher),
		Devices:       deviceSvc,
		Push:          pushSvc,
		Accounts:      account.NewService(notificationRepo, deviceSvc),
		Hub:           hub,
		WSLimiter:     wsLimiter,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, push=%t)", cfg.AppPort, cfg.AppEnv, pushGateway.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	// Hijacked WebSocket connections are not tracked by Shutdown.
	hub.Close()
	dispatcher.Stop()
	stopDispatch()
	wsLimiter.Stop()
	log.Println("Server stopped")
}
