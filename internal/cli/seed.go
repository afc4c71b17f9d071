package cli

import (
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/config"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/services"
	"go.uber.org/zap"
)

// seedAdmins upserts configured administrators and admin chats. Running it
// again with the same config changes nothing.
func seedAdmins(cfg *config.Config, store *storage, log *zap.Logger) error {
	admins := make([]models.User, 0, len(cfg.Admins))
	for _, a := range cfg.Admins {
		admins = append(admins, models.User{
			TelegramID: a.TelegramID,
			Nickname:   a.Nickname,
			FirstName:  a.FirstName,
			LastName:   a.LastName,
		})
	}
	users := services.NewUserManager(store.users, store.events, nil, log)
	if err := users.InitAdmins(admins); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}

	ids, skipped := config.ParseAdminIDs(cfg.AdminIDs)
	for _, s := range skipped {
		log.Warn("skipping invalid admin chat id", zap.String("value", s))
	}
	if len(ids) == 0 {
		return nil
	}
	added, err := store.adminChats.AddMany(ids)
	if err != nil {
		return fmt.Errorf("seed admin chats: %w", err)
	}
	log.Info("admin chats seeded", zap.Int("configured", len(ids)), zap.Int("added", added))
	return nil
}
