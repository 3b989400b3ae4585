// README: Entry point; loads config, wires services, starts the HTTP server
// and background workers.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dormdrop/internal/audit"
	"dormdrop/internal/config"
	"dormdrop/internal/dispatch"
	httptransport "dormdrop/internal/http"
	"dormdrop/internal/infra"
	"dormdrop/internal/modules/chat"
	"dormdrop/internal/modules/notification"
	"dormdrop/internal/modules/order"
	"dormdrop/internal/modules/stats"
	"dormdrop/internal/modules/user"
	"dormdrop/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	bus := realtime.NewRedisBus(redisClient)

	var sink dispatch.AuditSink
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Fatalf("kafka init: %v", err)
		}
		defer publisher.Close()
		sink = publisher
	}

	orderStore := order.NewStore(dbPool)
	userStore := user.NewStore(dbPool)
	chatStore := chat.NewStore(dbPool)
	notificationStore := notification.NewStore(dbPool)
	statsStore := stats.NewStore(dbPool)

	chatSvc := chat.NewService(chatStore, orderStore, bus)
	notificationSvc := notification.NewService(notificationStore, cfg.Notification)
	dispatcher := dispatch.New(chatSvc, notificationSvc, userStore, userStore, bus, sink)
	orderSvc := order.NewService(orderStore, userStore, dispatcher)
	statsSvc := stats.NewService(statsStore, userStore)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:         orderSvc,
		Chat:          chatSvc,
		Notifications: notificationSvc,
		Stats:         statsSvc,
		Users:         userStore,
		Bus:           bus,
		JWTSecret:     cfg.Auth.JWTSecret,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		notificationSvc.RunCleanup(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
