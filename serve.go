package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"factcheck_gateway/internal/api"
	"factcheck_gateway/internal/config"
	"factcheck_gateway/internal/factcheck"
	"factcheck_gateway/internal/intent"
	"factcheck_gateway/internal/messaging"
	"factcheck_gateway/internal/model"
	"factcheck_gateway/internal/platform"
	"factcheck_gateway/internal/repository"
	"factcheck_gateway/internal/service"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting fact-check gateway", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(ctx, db, cfg.Database.MigrationsDir, log); err != nil {
		return err
	}

	rdb, err := connectRedis(ctx, cfg.Redis.URL, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var publisher messaging.Publisher
	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, log)
	if err != nil {
		// события необязательны
		log.Warn("NATS unavailable, verification events disabled", zap.Error(err))
	} else {
		defer natsClient.Close()
		publisher = natsClient

		err = natsClient.SubscribeToFactCheckVerified(ctx, func(event *messaging.VerifiedEvent) {
			log.Info("received fact-check verified event",
				zap.String("fact_id", event.FactID),
				zap.String("verdict", string(event.Verdict)),
				zap.Bool("found", event.Found))
		})
		if err != nil {
			log.Error("failed to subscribe to fact-check verified", zap.Error(err))
		}
	}

	searcher := factcheck.NewGoogleClient(factcheck.Config{
		APIKey:  cfg.GoogleFactCheck.APIKey,
		BaseURL: cfg.GoogleFactCheck.APIURL,
		Timeout: cfg.GoogleFactCheck.Timeout,
	}, nil, log)
	if cfg.GoogleFactCheck.APIKey == "" {
		log.Warn("google fact check api key is not set, verification requests will fail")
	}

	verifier := service.NewVerificationService(
		searcher,
		repository.NewVerificationRepository(db, log),
		repository.NewVerificationCache(rdb, log),
		publisher,
		log,
		service.VerificationOptions{DedupeInFlight: cfg.Verifier.DedupeInFlight},
	)
	router := service.NewMessageRouter(intent.NewKeywordClassifier(), verifier, log)

	senders := map[model.Platform]service.Sender{}

	whatsapp := platform.NewWhatsApp(platform.WhatsAppConfig{
		Token:         cfg.WhatsApp.Token,
		APIURL:        cfg.WhatsApp.APIURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		VerifyToken:   cfg.WhatsApp.VerifyToken,
	}, nil, log)
	if cfg.WhatsApp.Token != "" {
		senders[model.PlatformWhatsApp] = whatsapp
	}

	var telegram *platform.Telegram
	if cfg.Telegram.BotToken != "" {
		telegram, err = platform.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.APIURL, log)
		if err != nil {
			return err
		}
		senders[model.PlatformTelegram] = telegram
	}

	var discord *platform.Discord
	if cfg.Discord.BotToken != "" {
		discord, err = platform.NewDiscord(cfg.Discord.BotToken, log)
		if err != nil {
			return err
		}
		senders[model.PlatformDiscord] = discord
	}

	inbound := service.NewInboundService(
		repository.NewUserRepository(db, log),
		repository.NewConversationRepository(db, log),
		router,
		senders,
		log,
	)

	apiLimiter := api.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	defer apiLimiter.Stop()
	webhookLimiter := api.NewRateLimiter(cfg.RateLimit.WebhookMaxRequests, cfg.RateLimit.WebhookWindow)
	defer webhookLimiter.Stop()

	webhooks := api.NewWebhookHandler(inbound, whatsapp, log)
	handler := api.NewRouter(api.Options{
		FactChecks:     api.NewFactCheckHandler(verifier, cfg.IsProduction(), log),
		Webhooks:       webhooks,
		JWTSecret:      cfg.JWT.Secret,
		APILimiter:     apiLimiter,
		WebhookLimiter: webhookLimiter,
		Logger:         log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.Serve(gctx, cfg.ServerAddr(), handler, log)
	})

	if telegram != nil && cfg.Telegram.Mode == config.TelegramModePolling {
		g.Go(func() error {
			return telegram.Poll(gctx, webhooks.HandleTelegramUpdate)
		})
	}

	if discord != nil {
		err := discord.Start(gctx, func(ctx context.Context, msg model.InboundMessage) {
			if err := inbound.HandleMessage(ctx, msg); err != nil {
				log.Error("failed to handle discord message", zap.Error(err), zap.String("channel_id", msg.ChatID))
			}
		})
		if err != nil {
			log.Error("discord adapter disabled", zap.Error(err))
		} else {
			defer discord.Close()
		}
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// connectRedis разбирает URL и проверяет соединение. Недоступный Redis
// не мешает старту: кэш работает в режиме fail-open.
func connectRedis(ctx context.Context, url string, log *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, cache disabled until it recovers", zap.Error(err))
	} else {
		log.Info("connected to redis", zap.String("addr", opts.Addr))
	}
	return rdb, nil
}
