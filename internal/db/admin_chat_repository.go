package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ad/go-telegram-quiz/internal/models"
)

// AdminChatRepository keeps the chats that receive moderation requests.
type AdminChatRepository struct {
	queue *DBQueue
}

func NewAdminChatRepository(queue *DBQueue) *AdminChatRepository {
	return &AdminChatRepository{queue: queue}
}

func (r *AdminChatRepository) Add(chatID int64) error {
	_, err := r.AddMany([]int64{chatID})
	return err
}

// AddMany inserts the chats and returns how many were new.
func (r *AdminChatRepository) AddMany(chatIDs []int64) (int, error) {
	result, err := r.queue.ExecuteTx(context.Background(), func(tx *sql.Tx) (interface{}, error) {
		added := 0
		for _, id := range chatIDs {
			res, err := tx.Exec(`INSERT OR IGNORE INTO admin_chats (telegram_id) VALUES (?)`, id)
			if err != nil {
				return nil, err
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return added, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (r *AdminChatRepository) GetAll() ([]int64, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`SELECT telegram_id FROM admin_chats ORDER BY telegram_id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		ids := []int64{}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (r *AdminChatRepository) IsAdminChat(chatID int64) (bool, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM admin_chats WHERE telegram_id = ?`, chatID).Scan(&n)
		return n > 0, err
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (r *AdminChatRepository) Remove(chatID int64) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`DELETE FROM admin_chats WHERE telegram_id = ?`, chatID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("admin chat %d: %w", chatID, models.ErrNotFound)
		}
		return nil, nil
	})
	return err
}
