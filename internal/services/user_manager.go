package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"go.uber.org/zap"
)

const UsersPerPage = 10

type UserListPage struct {
	Users       []*models.User `json:"users"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	HasPrev     bool           `json:"has_prev"`
	HasNext     bool           `json:"has_next"`
}

var ErrRegistrationClosed = fmt.Errorf("%w: no event is open for registration", models.ErrForbidden)

type UserManager struct {
	userRepo  *db.UserRepository
	eventRepo *db.EventRepository
	notifier  RegistrationNotifier
	log       *zap.Logger
}

func NewUserManager(userRepo *db.UserRepository, eventRepo *db.EventRepository, notifier RegistrationNotifier, log *zap.Logger) *UserManager {
	return &UserManager{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		notifier:  notifier,
		log:       log.Named("users"),
	}
}

// Register files an application for the event currently in registration.
// The user stays inactive until an admin approves them.
func (m *UserManager) Register(_ context.Context, reg models.Registration) (*models.User, error) {
	reg.Nickname = strings.TrimPrefix(strings.TrimSpace(reg.Nickname), "@")
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if reg.TelegramID <= 0 {
		return nil, fmt.Errorf("%w: telegram_id is required", models.ErrValidation)
	}
	if reg.Nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", models.ErrValidation)
	}

	event, err := m.eventRepo.FindOpenForRegistration()
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrRegistrationClosed
	}
	if err != nil {
		return nil, err
	}

	user, err := m.userRepo.RegisterForEvent(&reg, event.ID)
	if err != nil {
		return nil, err
	}
	m.log.Info("user registered", zap.Int64("telegram_id", user.TelegramID), zap.String("nickname", user.Nickname), zap.Int64("event_id", event.ID))

	if m.notifier != nil {
		m.notifier.NotifyRegistration(user)
	}
	return user, nil
}

// Authenticate resolves the caller. Unknown identities are unauthorized.
func (m *UserManager) Authenticate(telegramID int64) (*models.User, error) {
	user, err := m.userRepo.GetByTelegramID(telegramID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d is not registered", models.ErrUnauthorized, telegramID)
	}
	return user, err
}

func (m *UserManager) IsAdmin(telegramID int64) (bool, error) {
	user, err := m.userRepo.GetByTelegramID(telegramID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (m *UserManager) GetUser(telegramID int64) (*models.User, error) {
	return m.userRepo.GetByTelegramID(telegramID)
}

func (m *UserManager) ListUsers() ([]*models.User, error) {
	return m.userRepo.GetAll()
}

func (m *UserManager) GetUserListPage(page int) (*UserListPage, error) {
	users, err := m.userRepo.GetAll()
	if err != nil {
		return nil, err
	}

	totalPages := (len(users) + UsersPerPage - 1) / UsersPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * UsersPerPage
	end := start + UsersPerPage
	if end > len(users) {
		end = len(users)
	}

	return &UserListPage{
		Users:       users[start:end],
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}, nil
}

func (m *UserManager) DeleteUser(telegramID int64) error {
	if err := m.userRepo.Delete(telegramID); err != nil {
		return err
	}
	m.log.Info("user deleted", zap.Int64("telegram_id", telegramID))
	return nil
}

func (m *UserManager) Promote(telegramID int64) (*models.User, error) {
	user, err := m.userRepo.GetByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return nil, fmt.Errorf("%w: user %d is already an admin", models.ErrValidation, telegramID)
	}
	if err := m.userRepo.SetAdmin(telegramID); err != nil {
		return nil, err
	}
	user.IsAdmin = true
	m.log.Info("user promoted", zap.Int64("telegram_id", telegramID))
	return user, nil
}

// Activate approves an application.
func (m *UserManager) Activate(telegramID int64) (*models.User, error) {
	if err := m.userRepo.SetActive(telegramID, true); err != nil {
		return nil, err
	}
	m.log.Info("user activated", zap.Int64("telegram_id", telegramID))
	return m.userRepo.GetByTelegramID(telegramID)
}

// Reject deletes the applicant and returns the removed record.
func (m *UserManager) Reject(telegramID int64) (*models.User, error) {
	user, err := m.userRepo.GetByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}
	if err := m.userRepo.Delete(telegramID); err != nil {
		return nil, err
	}
	m.log.Info("user rejected", zap.Int64("telegram_id", telegramID))
	return user, nil
}

// InitAdmins seeds configured administrators. It is idempotent.
func (m *UserManager) InitAdmins(admins []models.User) error {
	for i := range admins {
		a := admins[i]
		if a.TelegramID <= 0 || a.Nickname == "" {
			m.log.Warn("skipping admin without telegram_id or nickname", zap.Int64("telegram_id", a.TelegramID))
			continue
		}
		if err := m.userRepo.UpsertAdmin(&a); err != nil {
			return fmt.Errorf("seed admin %d: %w", a.TelegramID, err)
		}
	}
	return nil
}
