package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const getMeAttempts = 3

// connectBot creates the Telegram client and checks the token with getMe.
func connectBot(ctx context.Context, token string, log *zap.Logger) (*bot.Bot, *tgmodels.User, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	b, err := bot.New(token, bot.WithHTTPClient(15*time.Second, httpClient))
	if err != nil {
		return nil, nil, fmt.Errorf("create bot: %w", err)
	}

	var me *tgmodels.User
	for i := 0; i < getMeAttempts; i++ {
		log.Info("connecting to Telegram API", zap.Int("attempt", i+1))
		getMeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		me, err = b.GetMe(getMeCtx)
		cancel()
		if err == nil {
			return b, me, nil
		}
		log.Warn("getMe failed", zap.Int("attempt", i+1), zap.Error(err))
		if i < getMeAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, nil, fmt.Errorf("get bot info after %d attempts: %w", getMeAttempts, err)
}

func formatUser(u *tgmodels.User) string {
	if u == nil {
		return "unknown"
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return fmt.Sprintf("%s [%d]", name, u.ID)
}

func logMiddleware(log *zap.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
			if update.Message != nil {
				log.Info("[MSG]", zap.String("from", formatUser(update.Message.From)), zap.String("text", update.Message.Text))
			}
			if update.CallbackQuery != nil {
				log.Info("[CALLBACK]", zap.String("from", formatUser(&update.CallbackQuery.From)), zap.String("data", update.CallbackQuery.Data))
			}
			next(ctx, b, update)
		}
	}
}
