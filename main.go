package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pupbodhi/dealbot/config"
	"pupbodhi/dealbot/internal/bot"
	"pupbodhi/dealbot/internal/dispatcher"
	"pupbodhi/dealbot/internal/scraper"
	"pupbodhi/dealbot/internal/store"
	"pupbodhi/dealbot/logger"
	"pupbodhi/dealbot/services/cache"
	"pupbodhi/dealbot/services/publisher"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("site_url", cfg.SiteURL).
		Str("notify_time", cfg.NotifyTime).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	st, err := store.New(cfg.SubscriptionsFile, cfg.WatchlistFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stores")
	}

	sc := scraper.New(cfg.SiteURL, cfg.RatesURL, services.Cache, cfg.ScrapeBlockTime)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	handler := bot.NewHandler(api, cfg, st, sc)
	disp := dispatcher.New(api, cfg, st, sc, services.Publisher)

	go disp.Start(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			api.StopReceivingUpdates()
			cancel()
			log.Info().Msg("Shutting down gracefully...")
			return
		case upd, ok := <-updates:
			if !ok {
				log.Info().Msg("Update channel closed")
				return
			}
			handler.HandleUpdate(upd)
		}
	}
}

// Services holds the optional backing services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices wires up the rate-limit guard and the deal event
// stream. Both are optional; an unset address disables the service.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Scrape rate-limit guard enabled via memcache at %s", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		logger.Info("Deal event stream enabled on %s", cfg.RedisStream)
	}

	return services
}
