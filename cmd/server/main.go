// Server runs the bot for one tenant: it recovers armed deadlines, long-polls
// the chat platform for commands, and executes them against Postgres.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditpkg "groupwarden/internal/audit"
	auditrepo "groupwarden/internal/audit/repository"
	"groupwarden/internal/authz"
	"groupwarden/internal/chat"
	"groupwarden/internal/command"
	"groupwarden/internal/config"
	"groupwarden/internal/db"
	deadlinerepo "groupwarden/internal/deadline/repository"
	"groupwarden/internal/deadline/scheduler"
	"groupwarden/internal/events"
	eventsotel "groupwarden/internal/events/otel"
	"groupwarden/internal/events/producer"
	"groupwarden/internal/moderation"
	"groupwarden/internal/platform/keylock"
	"groupwarden/internal/server"
	sessionrepo "groupwarden/internal/session/repository"
	userrepo "groupwarden/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := eventsotel.NewProviders(ctx, cfg.OTLPEndpoint, "groupwarden-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	var emitter events.Emitter
	if brokers := cfg.EventsKafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		emitter = kp
		log.Printf("ops events: kafka topic %s", cfg.EventsKafkaTopic)
	} else {
		emitter = eventsotel.NewEventEmitter(providers.LoggerProvider)
	}

	client := chat.NewClient(cfg.BotAPIBaseURL, cfg.BotToken)
	registry := deadlinerepo.NewPostgresRegistry(database)
	sched := scheduler.New(registry, cfg.TenantID)

	svc := command.NewService(command.Deps{
		TenantID:   cfg.TenantID,
		Sessions:   sessionrepo.NewPostgresRepository(database),
		Registry:   registry,
		Scheduler:  sched,
		Transport:  client,
		Authorizer: authz.NewCachedAuthorizer(client, cfg.AdminCacheTTLDuration()),
		Enforcer:   moderation.NewEnforcer(client),
		Users:      userrepo.NewPostgresRepository(database),
		Audit:      auditpkg.NewLogger(auditrepo.NewPostgresRepository(database)),
		Emitter:    emitter,
		Locks:      keylock.New(),
	})
	sched.SetHandler(svc)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	loop := server.NewLoop(client, client, svc, cfg.PollTimeoutSeconds)
	go func() {
		log.Printf("polling updates for tenant %s", cfg.TenantID)
		loop.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()
	sched.Stop()
	if err := emitter.Close(); err != nil {
		log.Printf("emitter close: %v", err)
	}
	// Give in-flight async emits time to land before the exporters go away.
	time.Sleep(events.ShutdownDrainDuration)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("stopped")
}
