package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/config"
	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/logger"
	"github.com/ad/go-telegram-quiz/internal/services"
	"go.uber.org/zap"
)

type storage struct {
	sqlDB         *sql.DB
	queue         *db.DBQueue
	users         *db.UserRepository
	events        *db.EventRepository
	quizzes       *db.QuizRepository
	questions     *db.QuestionRepository
	answers       *db.AnswerRepository
	adminChats    *db.AdminChatRepository
	notifications *db.AdminNotificationRepository
	settings      *db.SettingsRepository
}

func openStorage(path string) (*storage, error) {
	sqlDB, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	queue := db.NewDBQueue(sqlDB)
	return &storage{
		sqlDB:         sqlDB,
		queue:         queue,
		users:         db.NewUserRepository(queue),
		events:        db.NewEventRepository(queue),
		quizzes:       db.NewQuizRepository(queue),
		questions:     db.NewQuestionRepository(queue),
		answers:       db.NewAnswerRepository(queue),
		adminChats:    db.NewAdminChatRepository(queue),
		notifications: db.NewAdminNotificationRepository(queue),
		settings:      db.NewSettingsRepository(queue),
	}, nil
}

func (s *storage) Close() {
	s.queue.Close()
	s.sqlDB.Close()
}

func newMediaStore(ctx context.Context, cfg config.MediaConfig) (services.MediaStore, error) {
	if cfg.Backend == "minio" {
		return services.NewMinioMediaStore(ctx, services.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
			URLPrefix: cfg.MinioPublicURL,
		})
	}
	return services.NewLocalMediaStore(cfg.Root, cfg.URLPrefix), nil
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
