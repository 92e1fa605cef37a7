package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/reclamacidade/internal/auth"
	"github.com/gestaozabele/reclamacidade/internal/cache"
	"github.com/gestaozabele/reclamacidade/internal/config"
	"github.com/gestaozabele/reclamacidade/internal/db"
	"github.com/gestaozabele/reclamacidade/internal/engagement"
	internalhttp "github.com/gestaozabele/reclamacidade/internal/http"
	"github.com/gestaozabele/reclamacidade/internal/identity"
	"github.com/gestaozabele/reclamacidade/internal/notify"
	"github.com/gestaozabele/reclamacidade/internal/refresh"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("schema aplicado")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	inbox := notify.NewInbox(pool)
	notifiers := []notify.Notifier{inbox, notify.NewLogNotifier(log.Logger)}
	if pub := notify.NewRedisPublisher(redisClient, cfg.Notify.RedisChannel); pub != nil {
		notifiers = append(notifiers, pub)
	}
	kafkaPub := notify.NewKafkaPublisher(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
	if kafkaPub != nil {
		notifiers = append(notifiers, kafkaPub)
		defer kafkaPub.Close()
	}
	if slack := notify.NewSlackNotifier(cfg.Notify.SlackWebhook); slack != nil {
		notifiers = append(notifiers, slack)
	}
	dispatcher := notify.NewDispatcher(log.Logger, cfg.Notify.Timeout, notifiers...)

	rankingCache := cache.NewRankingCache(redisClient, cfg.Ranking.CacheTTL, log.Logger)
	engine := engagement.NewService(engagement.NewPostgresStore(pool), rankingCache, dispatcher, cfg.Ranking.Location, log.Logger)

	if _, err := engine.SeedBadges(ctx); err != nil {
		return fmt.Errorf("badges: %w", err)
	}

	users := identity.NewRepository(pool)
	refresher := refresh.NewRefresher(users, engine, cfg.Ranking.RefreshInterval, log.Logger)
	refresher.Start(ctx)

	handler := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Engine: engine,
		Inbox:  inbox,
		Users:  users,
		JWT:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		Checks: map[string]internalhttp.Pinger{
			"postgres": pool,
			"redis":    redisPinger{client: redisClient},
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	refresher.Stop()
	// entregas pendentes saem antes de fechar Kafka e Redis
	dispatcher.Wait()
	return err
}
