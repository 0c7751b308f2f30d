package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/api"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/config"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll/scrape"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/database"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/logger"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/mappings"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/resolver"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/scheduler"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/scheduler/tasks"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("catalogMode", cfg.Crunchyroll.Mode).
		Msg("starting crunchyroll-jellyfin")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := mappings.NewStore(db.Conn(), log.Logger)

	var inner crunchyroll.API
	switch cfg.Crunchyroll.Mode {
	case "scrape":
		inner = scrape.NewClient(cfg.Crunchyroll, log.Logger)
	default:
		inner = crunchyroll.NewClient(cfg.Crunchyroll, log.Logger)
	}
	if !inner.IsConfigured() {
		log.Warn().Str("catalog", inner.Name()).Msg("catalog client is not configured, resolutions will fail")
	}

	catalog := crunchyroll.NewCachedClient(inner, crunchyroll.CacheConfig{
		TTL:      time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		MaxItems: cfg.Cache.MaxItems,
	}, log.Logger)

	matcher := resolver.NewMatcher(catalog, resolver.Options{
		Sensitivity:           cfg.Matcher.Sensitivity,
		SearchLimit:           cfg.Matcher.SearchLimit,
		MinCascadeScore:       cfg.Matcher.MinCascadeScore,
		MaxCascadeCandidates:  cfg.Matcher.MaxCascadeCandidates,
		MaxFilmSeasonEpisodes: cfg.Matcher.MaxFilmSeasonEpisodes,
		DistinctiveBonusMax:   cfg.Matcher.DistinctiveBonusMax,
		MinFuzzyLength:        cfg.Matcher.MinFuzzyLength,
	}, log.Logger)

	resolverService := resolver.NewService(catalog, matcher, store, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := tasks.RegisterMappingPruneTask(sched, store, cfg.Scheduler.PruneCron, cfg.Scheduler.RetentionDays); err != nil {
		log.Fatal().Err(err).Msg("failed to register mapping prune task")
	}
	if err := tasks.RegisterCacheSweepTask(sched, catalog); err != nil {
		log.Fatal().Err(err).Msg("failed to register cache sweep task")
	}
	sched.Start()

	server := api.NewServer(cfg, catalog, resolverService, store, sched, log.Logger)

	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}

	log.Info().Msg("server stopped")
}
