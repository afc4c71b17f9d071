package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

const userColumns = `id, telegram_id, nickname, first_name, last_name, is_admin, is_active, points, created_at`

type UserRepository struct {
	queue *DBQueue
}

func NewUserRepository(queue *DBQueue) *UserRepository {
	return &UserRepository{queue: queue}
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var firstName, lastName sql.NullString
	err := row.Scan(&user.ID, &user.TelegramID, &user.Nickname, &firstName, &lastName,
		&user.IsAdmin, &user.IsActive, &user.Points, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	return &user, nil
}

// RegisterForEvent stores an inactive participant and attaches them to the event.
func (r *UserRepository) RegisterForEvent(reg *models.Registration, eventID int64) (*models.User, error) {
	result, err := r.queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		var taken int
		err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE telegram_id = ? OR nickname = ?`,
			reg.TelegramID, reg.Nickname).Scan(&taken)
		if err != nil {
			return nil, err
		}
		if taken > 0 {
			return nil, fmt.Errorf("%w: nickname or telegram id already registered", models.ErrConflict)
		}

		res, err := tx.Exec(`
			INSERT INTO users (telegram_id, nickname, first_name, last_name, is_admin, is_active)
			VALUES (?, ?, ?, ?, FALSE, FALSE)
		`, reg.TelegramID, reg.Nickname, reg.FirstName, reg.LastName)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: nickname or telegram id already registered", models.ErrConflict)
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO event_players (event_id, user_telegram_id) VALUES (?, ?)
		`, eventID, reg.TelegramID); err != nil {
			return nil, err
		}

		user, err := scanUser(tx.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

// UpsertAdmin creates or promotes an administrator. Existing points are kept.
func (r *UserRepository) UpsertAdmin(user *models.User) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO users (telegram_id, nickname, first_name, last_name, is_admin, is_active)
			VALUES (?, ?, ?, ?, TRUE, TRUE)
			ON CONFLICT(telegram_id) DO UPDATE SET
				is_admin = TRUE,
				is_active = TRUE
		`, user.TelegramID, user.Nickname, user.FirstName, user.LastName)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: nickname %q already taken", models.ErrConflict, user.Nickname)
		}
		return nil, err
	})
	return err
}

func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByTelegramID(telegramID int64) (*models.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
}

func (r *UserRepository) getOne(query string, arg int64) (*models.User, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		user, err := scanUser(db.QueryRow(query, arg))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", arg, models.ErrNotFound)
		}
		return user, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

func (r *UserRepository) GetAll() ([]*models.User, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		users := []*models.User{}
		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return nil, err
			}
			users = append(users, user)
		}
		return users, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.User), nil
}

// TopByPoints ranks active users by points. Ties keep registration order.
func (r *UserRepository) TopByPoints(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT telegram_id, nickname, first_name, last_name, points
			FROM users
			WHERE is_active = TRUE
			ORDER BY points DESC, id ASC
			LIMIT ?
		`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		entries := []models.LeaderboardEntry{}
		for rows.Next() {
			var e models.LeaderboardEntry
			if err := rows.Scan(&e.TelegramID, &e.Nickname, &e.FirstName, &e.LastName, &e.Points); err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.LeaderboardEntry), nil
}

func (r *UserRepository) SetActive(telegramID int64, active bool) error {
	return r.updateOne(`UPDATE users SET is_active = ? WHERE telegram_id = ?`, active, telegramID)
}

func (r *UserRepository) SetAdmin(telegramID int64) error {
	return r.updateOne(`UPDATE users SET is_admin = TRUE WHERE telegram_id = ?`, telegramID)
}

// Delete removes the user; answers and event memberships cascade.
func (r *UserRepository) Delete(telegramID int64) error {
	return r.updateOne(`DELETE FROM users WHERE telegram_id = ?`, telegramID)
}

func (r *UserRepository) updateOne(query string, args ...any) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("user %v: %w", args[len(args)-1], models.ErrNotFound)
		}
		return nil, nil
	})
	return err
}
