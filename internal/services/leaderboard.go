package services

import (
	"context"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

type LeaderboardService struct {
	userRepo *db.UserRepository
}

func NewLeaderboardService(userRepo *db.UserRepository) *LeaderboardService {
	return &LeaderboardService{userRepo: userRepo}
}

// Top returns active users with the most points. Non-positive limits fall
// back to the default size.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	return s.userRepo.TopByPoints(ctx, limit)
}
