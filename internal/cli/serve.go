package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/go-telegram-quiz/internal/api"
	"github.com/ad/go-telegram-quiz/internal/config"
	"github.com/ad/go-telegram-quiz/internal/handlers"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd starts the HTTP API and, when a token is configured, the bot.
func NewServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStorage(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seedAdmins(cfg, store, log); err != nil {
		return err
	}

	media, err := newMediaStore(ctx, cfg.Media)
	if err != nil {
		return err
	}

	var (
		b      *bot.Bot
		botAPI services.BotAPI
	)
	if cfg.BotEnabled() {
		var me *tgmodels.User
		b, me, err = connectBot(ctx, cfg.Bot.Token, log)
		if err != nil {
			return err
		}
		botAPI = b
		log.Info("connected to Telegram API", zap.String("bot", me.Username))
	} else {
		log.Warn("telegram bot disabled, moderation requests will not be delivered")
	}

	locales := services.NewLocaleResolver(cfg.Scoring.FallbackLocale)
	errorManager := services.NewErrorManager(botAPI, store.adminChats, log)
	msgManager := services.NewMessageManager(botAPI, errorManager, log)
	notifier := services.NewNotifier(msgManager, store.adminChats, store.notifications, log)

	var registrations services.RegistrationNotifier
	if botAPI != nil {
		registrations = notifier
	}

	userManager := services.NewUserManager(store.users, store.events, registrations, log)
	eventManager := services.NewEventManager(store.events, store.settings, log)
	leaderboard := services.NewLeaderboardService(store.users)
	quizzes := services.NewQuizService(store.quizzes, store.questions, locales, media, cfg.Media.MaxBytes, log)
	importer := services.NewQuestionImporter(store.quizzes, store.questions, media, cfg.Media.MaxBytes, log)
	submissions := services.NewSubmissionService(store.answers, store.quizzes, services.NewAnswerEvaluator(locales, cfg.Scoring.PartialCredit), locales, log)

	gin.SetMode(cfg.HTTP.Mode)
	server := api.NewServer(api.Deps{
		Users:       userManager,
		Events:      eventManager,
		Quizzes:     quizzes,
		Importer:    importer,
		Submissions: submissions,
		Leaderboard: leaderboard,
		AdminChats:  store.adminChats,
		Store:       store.sqlDB,
		Log:         log,
	}, apiOptions(cfg))

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting HTTP API", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if b != nil {
		handler := handlers.NewBotHandler(
			errorManager,
			msgManager,
			userManager,
			eventManager,
			leaderboard,
			store.adminChats,
			store.notifications,
			store.settings,
			notifier,
			log,
		)
		b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
			return true
		}, handler.HandleUpdate, logMiddleware(log))

		g.Go(func() error {
			return notifier.Run(gctx)
		})
		g.Go(func() error {
			log.Info("bot started", zap.String("db", cfg.DB.Path))
			b.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

func apiOptions(cfg *config.Config) api.Options {
	opts := api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		MaxUploadBytes: cfg.Media.MaxBytes * 20,
	}
	if cfg.Media.Backend == "local" {
		opts.MediaRoot = cfg.Media.Root
		opts.MediaURLPrefix = cfg.Media.URLPrefix
	}
	return opts
}
